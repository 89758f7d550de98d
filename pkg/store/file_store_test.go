package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ops/eventgate/pkg/telemetry"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "events.json"))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestFileStore_AppendAndSnapshot(t *testing.T) {
	s := newTestStore(t)

	size, err := s.Append([]telemetry.Event{{TraceID: "a"}, {TraceID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	doc, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.NotEmpty(t, doc.UpdatedAt)
	require.Len(t, doc.Events, 2)
	assert.Equal(t, "a", doc.Events[0].TraceID)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")

	first := NewFileStore(path)
	_, err := first.Append([]telemetry.Event{{TraceID: "x"}})
	require.NoError(t, err)

	second := NewFileStore(path)
	doc, err := second.Snapshot()
	require.NoError(t, err)
	require.Len(t, doc.Events, 1)
	assert.Equal(t, "x", doc.Events[0].TraceID)
}

func TestFileStore_CapEvictsOldest(t *testing.T) {
	s := newTestStore(t).WithMaxEntries(10)

	for i := 0; i < 25; i++ {
		_, err := s.Append([]telemetry.Event{{TraceID: fmt.Sprintf("t-%d", i)}})
		require.NoError(t, err)
	}

	doc, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, doc.Events, 10)
	assert.Equal(t, "t-15", doc.Events[0].TraceID)
	assert.Equal(t, "t-24", doc.Events[9].TraceID)
}

func TestFileStore_ReplaceDiscardsExisting(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append(makeEvents(50))
	require.NoError(t, err)

	size, err := s.Replace(makeEvents(5))
	require.NoError(t, err)
	assert.Equal(t, 5, size)

	doc, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, doc.Events, 5)
}

func TestFileStore_DocumentAlwaysParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	s := NewFileStore(path)

	_, err := s.Append(makeEvents(3))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.Len(t, doc.Events, 3)
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path)
	_, err := s.Size()
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestFileStore_ReplaceHonorsCap(t *testing.T) {
	s := newTestStore(t).WithMaxEntries(3)

	size, err := s.Replace(makeEvents(10))
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	doc, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "t-7", doc.Events[0].TraceID)
}

func makeEvents(n int) []telemetry.Event {
	events := make([]telemetry.Event, n)
	for i := range events {
		events[i] = telemetry.Event{TraceID: fmt.Sprintf("t-%d", i)}
	}
	return events
}
