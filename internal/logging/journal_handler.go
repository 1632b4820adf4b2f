package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// journalTransport abstracts the journal socket so tests can capture entries.
type journalTransport struct {
	enabled func() bool
	send    func(message string, priority journal.Priority, vars map[string]string) error
}

var systemJournal = journalTransport{
	enabled: journal.Enabled,
	send:    journal.Send,
}

// JournalHandler is a slog.Handler that sends logs to systemd journal.
type JournalHandler struct {
	transport  journalTransport
	identifier string
	attrs      []slog.Attr
	groups     []string
}

// NewJournalHandler connects to the system journal. An empty identifier is
// replaced by the executable's base name.
func NewJournalHandler(identifier string) (*JournalHandler, error) {
	return newJournalHandler(systemJournal, identifier)
}

func newJournalHandler(transport journalTransport, identifier string) (*JournalHandler, error) {
	if !transport.enabled() {
		return nil, ErrJournalUnavailable
	}
	if identifier == "" {
		identifier = defaultSyslogIdentifier()
	}
	return &JournalHandler{transport: transport, identifier: identifier}, nil
}

func defaultSyslogIdentifier() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "starter-template"
	}
	return filepath.Base(os.Args[0])
}

// Identifier returns the SYSLOG_IDENTIFIER attached to every entry.
func (h *JournalHandler) Identifier() string {
	return h.identifier
}

// Enabled implements slog.Handler. Filtering is done by the wrapping filter.
func (h *JournalHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle sends the log record to systemd journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := mapLevelToPriority(r.Level)

	fields := make(map[string]string)
	fields["SYSLOG_IDENTIFIER"] = h.identifier
	fields["LEVEL"] = LevelName(r.Level)

	for _, attr := range h.attrs {
		addAttrToFields(fields, attr, h.groups)
	}
	r.Attrs(func(attr slog.Attr) bool {
		addAttrToFields(fields, attr, h.groups)
		return true
	})
	if module, ok := fields["MODULE"]; ok {
		fields["TARGET"] = module
	}

	return h.transport.send(r.Message, priority, fields)
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	h2 := *h
	h2.attrs = newAttrs
	return &h2
}

// WithGroup returns a new handler with a group prefix.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)
	return &h2
}

// mapLevelToPriority maps levels to journal priorities. Each level sits one
// step below its syslog namesake so TRACE still has a slot.
func mapLevelToPriority(level slog.Level) journal.Priority {
	switch {
	case level >= LevelError:
		return journal.PriErr
	case level >= LevelWarn:
		return journal.PriWarning
	case level >= LevelInfo:
		return journal.PriNotice
	case level >= LevelDebug:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addAttrToFields adds an slog attribute to journal fields.
func addAttrToFields(fields map[string]string, attr slog.Attr, groups []string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		nested := groups
		if attr.Key != "" {
			nested = append(append([]string(nil), groups...), attr.Key)
		}
		for _, a := range attr.Value.Group() {
			addAttrToFields(fields, a, nested)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = journalFieldName(key)

	switch attr.Value.Kind() {
	case slog.KindFloat64:
		fields[key] = fmt.Sprintf("%f", attr.Value.Float64())
	case slog.KindTime:
		fields[key] = attr.Value.Time().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		fields[key] = attr.Value.String()
	}
}

// journalFieldName upper-cases key and replaces characters journald rejects.
// Leading underscores are reserved for trusted fields.
func journalFieldName(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "F_" + name
	}
	return name
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return systemJournal.enabled()
}
