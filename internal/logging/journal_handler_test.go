package logging

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type journalEntry struct {
	message  string
	priority journal.Priority
	fields   map[string]string
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journalEntry
}

func (f *fakeJournal) transport(enabled bool) journalTransport {
	return journalTransport{
		enabled: func() bool { return enabled },
		send: func(message string, priority journal.Priority, vars map[string]string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.entries = append(f.entries, journalEntry{message: message, priority: priority, fields: vars})
			return nil
		},
	}
}

func (f *fakeJournal) all() []journalEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]journalEntry(nil), f.entries...)
}

func TestJournalHandlerUnavailable(t *testing.T) {
	var fj fakeJournal
	_, err := newJournalHandler(fj.transport(false), "")
	assert.ErrorIs(t, err, ErrJournalUnavailable)
}

func TestJournalHandlerFields(t *testing.T) {
	var fj fakeJournal
	h, err := newJournalHandler(fj.transport(true), "myid")
	require.NoError(t, err)
	assert.Equal(t, "myid", h.Identifier())

	logger := slog.New(h).With("module", "worker").WithGroup("req")
	logger.Info("handled", "user-id", 7)

	entries := fj.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "handled", e.message)
	assert.Equal(t, journal.PriNotice, e.priority)
	assert.Equal(t, "myid", e.fields["SYSLOG_IDENTIFIER"])
	assert.Equal(t, "INFO", e.fields["LEVEL"])
	assert.Equal(t, "worker", e.fields["MODULE"])
	assert.Equal(t, "worker", e.fields["TARGET"])
	assert.Equal(t, "7", e.fields["REQ_USER_ID"])
}

func TestJournalHandlerDefaultIdentifier(t *testing.T) {
	var fj fakeJournal
	h, err := newJournalHandler(fj.transport(true), "")
	require.NoError(t, err)
	assert.Equal(t, defaultSyslogIdentifier(), h.Identifier())
	assert.NotEmpty(t, h.Identifier())
}

func TestMapLevelToPriority(t *testing.T) {
	assert.Equal(t, journal.PriErr, mapLevelToPriority(LevelError))
	assert.Equal(t, journal.PriWarning, mapLevelToPriority(LevelWarn))
	assert.Equal(t, journal.PriNotice, mapLevelToPriority(LevelInfo))
	assert.Equal(t, journal.PriInfo, mapLevelToPriority(LevelDebug))
	assert.Equal(t, journal.PriDebug, mapLevelToPriority(LevelTrace))
}

func TestJournalFieldName(t *testing.T) {
	assert.Equal(t, "USER_ID", journalFieldName("user-id"))
	assert.Equal(t, "PRIVATE", journalFieldName("_private"))
	assert.Equal(t, "F_1ST", journalFieldName("1st"))
	assert.Equal(t, "A_B_C", journalFieldName("a.b c"))
}
