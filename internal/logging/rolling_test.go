package logging

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRollingFileName(t *testing.T) {
	dir := t.TempDir()
	clock := &testClock{t: time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)}

	rf, err := newRollingFile(dir, "app", 5, 1, clock.now)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("line\n"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "app.2024-03-09.log"), rf.Path())
	data, err := os.ReadFile(rf.Path())
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestRollingFileKeepsFiveFiles(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &testClock{t: start}

	rf, err := newRollingFile(dir, "app", DefaultMaxLogFiles, 1, clock.now)
	require.NoError(t, err)
	defer rf.Close()

	for day := 0; day < 6; day++ {
		clock.t = start.AddDate(0, 0, day)
		_, err := rf.Write([]byte("entry\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"app.2024-01-02.log",
		"app.2024-01-03.log",
		"app.2024-01-04.log",
		"app.2024-01-05.log",
		"app.2024-01-06.log",
	}, listDir(t, dir))
}

func TestRollingFileIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.2023-01-01.log"), nil, 0o644))
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	rf, err := newRollingFile(dir, "app", 1, 1, clock.now)
	require.NoError(t, err)
	defer rf.Close()

	for day := 0; day < 3; day++ {
		clock.t = clock.t.AddDate(0, 0, 1)
		_, err := rf.Write([]byte("x\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"app.2024-01-04.log", "other.2023-01-01.log"}, listDir(t, dir))
}

func TestRollingFileKeepsSamePrefixForeignFiles(t *testing.T) {
	dir := t.TempDir()
	foreign := []string{"app.audit.2020-01-01.log", "app.log", "app.notes.log", "app.2019-13-45.log"}
	for _, name := range foreign {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.2023-12-30.log"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.2023-12-31-2023-12-31T10-00-00.000.log"), nil, 0o644))
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	rf, err := newRollingFile(dir, "app", 2, 1, clock.now)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.Write([]byte("x\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"app.2019-13-45.log",
		"app.2023-12-31-2023-12-31T10-00-00.000.log",
		"app.2024-01-01.log",
		"app.audit.2020-01-01.log",
		"app.log",
		"app.notes.log",
	}, listDir(t, dir))
}

func TestIsRotatedName(t *testing.T) {
	r := &RollingFile{prefix: "app", suffix: DefaultFileSuffix}
	tests := []struct {
		name string
		want bool
	}{
		{"app.2024-01-01.log", true},
		{"app.2024-01-01-2024-01-01T08-00-00.000.log", true},
		{"app.log", false},
		{"app.audit.2020-01-01.log", false},
		{"app.2024-02-30.log", false},
		{"app.2024-01-01.txt", false},
		{"other.2024-01-01.log", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.isRotated(tt.name))
		})
	}
}

func TestRollingFileUnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewRollingFile(filepath.Join(blocker, "logs"), "app", 5, 1)
	assert.Error(t, err)
}
