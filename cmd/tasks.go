package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// DefaultTaskCount is used when NUM_TASKS is omitted.
const DefaultTaskCount = 64

// newTasksCmd creates the demo-tasks command.
func newTasksCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "demo-tasks [NUM_TASKS]",
		Short: "Test generating of tasks.",
		Long:  fmt.Sprintf("Spawns NUM_TASKS concurrent tasks (default %d) and logs each result.", DefaultTaskCount),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := DefaultTaskCount
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed < 0 {
					return fmt.Errorf("invalid NUM_TASKS %q", args[0])
				}
				n = parsed
			}
			return s.run(cmd.Context(), fmt.Sprintf("TasksDemo(%d)", n), func(ctx context.Context) error {
				_, err := s.runtime.Tasks(ctx, n)
				return err
			})
		},
	}
}
