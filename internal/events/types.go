package events

import "github.com/smazurov/starter-template/internal/config"

// Event type constants for kelindar/event.
const (
	TypeConfigReloaded uint32 = iota + 1
	TypeLevelsRefreshed
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ConfigReloadedEvent carries a freshly resolved configuration after the
// config file changed on disk.
type ConfigReloadedEvent struct {
	Config    config.AppConfig `json:"config"`
	Path      string           `json:"path"`
	Timestamp string           `json:"timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// LevelsRefreshedEvent reports the outcome of pushing new levels into the
// logging pipeline. Levels maps sink name to the level text requested.
type LevelsRefreshedEvent struct {
	Levels    map[string]string `json:"levels"`
	Error     string            `json:"error,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// Type returns the event type identifier for LevelsRefreshedEvent.
func (e LevelsRefreshedEvent) Type() uint32 { return TypeLevelsRefreshed }

// Failed reports whether the refresh returned an error.
func (e LevelsRefreshedEvent) Failed() bool { return e.Error != "" }
