package events

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/starter-template/internal/config"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConfigReloadedEvent, 1)

	unsub := bus.Subscribe(func(e ConfigReloadedEvent) {
		received <- e
	})
	defer unsub()

	event := ConfigReloadedEvent{
		Config:    config.AppConfig{CLILogLevel: "debug"},
		Path:      "/etc/starter-template.toml",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	select {
	case got := <-received:
		if got != event {
			t.Errorf("Expected %+v, got %+v", event, got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan LevelsRefreshedEvent, 1)
	received2 := make(chan LevelsRefreshedEvent, 1)

	unsub1 := bus.Subscribe(func(e LevelsRefreshedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e LevelsRefreshedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(LevelsRefreshedEvent{Levels: map[string]string{"console": "debug"}})

	got1 := <-received1
	got2 := <-received2
	if got1.Levels["console"] != "debug" {
		t.Errorf("Expected console level debug, got %q", got1.Levels["console"])
	}
	if !reflect.DeepEqual(got1.Levels, got2.Levels) {
		t.Errorf("Subscribers saw different levels: %v vs %v", got1.Levels, got2.Levels)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan LevelsRefreshedEvent, 1)

	unsub := bus.Subscribe(func(e LevelsRefreshedEvent) {
		received <- e
	})

	bus.Publish(LevelsRefreshedEvent{})
	<-received

	unsub()

	bus.Publish(LevelsRefreshedEvent{Error: "late"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	configReceived := make(chan bool, 1)
	levelsReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(ConfigReloadedEvent) {
		configReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(LevelsRefreshedEvent) {
		levelsReceived <- true
	})
	defer unsub2()

	bus.Publish(ConfigReloadedEvent{})
	<-configReceived

	select {
	case <-levelsReceived:
		t.Fatal("levels subscriber should NOT have received ConfigReloadedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Expected a no-op unsubscribe for an unknown handler type")
	}
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(LevelsRefreshedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(LevelsRefreshedEvent{Timestamp: time.Now().Format(time.RFC3339)})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestLevelsRefreshedEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  LevelsRefreshedEvent
		failed bool
	}{
		{"success", LevelsRefreshedEvent{}, false},
		{"failure", LevelsRefreshedEvent{Error: "boom"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Failed(); got != tt.failed {
				t.Errorf("Failed() = %v, want %v", got, tt.failed)
			}
			if got := tt.event.Type(); got != TypeLevelsRefreshed {
				t.Errorf("Type() = %d, want %d", got, TypeLevelsRefreshed)
			}
		})
	}
	if got := (ConfigReloadedEvent{}).Type(); got != TypeConfigReloaded {
		t.Errorf("ConfigReloadedEvent.Type() = %d, want %d", got, TypeConfigReloaded)
	}
}
