package app

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is returned by Safely when fn panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Safely runs fn and converts a panic into a *PanicError after logging it
// with its stack at ERROR.
func Safely(logger *slog.Logger, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			stack := debug.Stack()
			logger.Error("Panic detected!", "panic", fmt.Sprint(v), "stack", string(stack))
			err = &PanicError{Value: v, Stack: stack}
		}
	}()
	return fn()
}
