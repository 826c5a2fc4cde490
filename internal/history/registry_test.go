package history

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateLocal_DoesNotActivate(t *testing.T) {
	r := NewRegistry()
	r.SetClock(fixedClock(time.UnixMilli(1700000000000)))

	id := r.CreateLocal()

	assert.Equal(t, "session-1700000000000", id)
	assert.Equal(t, 1, r.Len())
	_, ok := r.Active()
	assert.False(t, ok, "a freshly created session must not be active")

	require.NoError(t, r.SetActive(id))
	active, ok := r.Active()
	assert.True(t, ok)
	assert.Equal(t, id, active)
}

func TestCreateLocal_SameInstantStaysUnique(t *testing.T) {
	r := NewRegistry()
	r.SetClock(fixedClock(time.UnixMilli(42)))

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id := r.CreateLocal()
		assert.False(t, seen[id], "duplicate id %s", id)
		assert.True(t, strings.HasPrefix(id, "session-42"))
		seen[id] = true
	}
	assert.Equal(t, 5, r.Len())
}

func TestLoadRemote_ActivatesFirstWhenEmpty(t *testing.T) {
	r := NewRegistry()
	r.LoadRemote([]Session{{ID: "b"}, {ID: "a"}, {ID: "c"}})

	active, ok := r.Active()
	require.True(t, ok)
	assert.Equal(t, "b", active)

	ids := []string{}
	for _, s := range r.Sessions() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestLoadRemote_PreservesSelectionAndSkipsKnown(t *testing.T) {
	r := NewRegistry()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r.LoadRemote([]Session{{ID: "s1", CreatedAt: created}, {ID: "s2"}})
	require.NoError(t, r.SetActive("s2"))

	r.LoadRemote([]Session{{ID: "s1"}, {ID: "s3"}, {ID: "s3"}, {ID: ""}})

	active, _ := r.Active()
	assert.Equal(t, "s2", active)
	assert.Equal(t, 3, r.Len())

	s1, ok := r.Get("s1")
	require.True(t, ok)
	assert.Equal(t, created, s1.CreatedAt, "known sessions keep their entry")
}

func TestLoadRemote_NonEmptyRegistryDoesNotActivate(t *testing.T) {
	r := NewRegistry()
	r.CreateLocal()

	r.LoadRemote([]Session{{ID: "remote"}})

	_, ok := r.Active()
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestLoadRemote_EmptyList(t *testing.T) {
	r := NewRegistry()
	r.LoadRemote(nil)

	_, ok := r.Active()
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestLoadRemote_OnlyBlankIDs(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() {
		r.LoadRemote([]Session{{ID: ""}, {ID: ""}})
	})

	_, ok := r.Active()
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	// A later listing with real ids still activates its first entry.
	r.LoadRemote([]Session{{ID: ""}, {ID: "s1"}})
	active, ok := r.Active()
	assert.True(t, ok)
	assert.Equal(t, "s1", active)
}

func TestSetActive_UnknownKeepsPrevious(t *testing.T) {
	r := NewRegistry()
	r.LoadRemote([]Session{{ID: "s1"}})

	err := r.SetActive("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	active, ok := r.Active()
	assert.True(t, ok)
	assert.Equal(t, "s1", active)
}

func TestSession_Label(t *testing.T) {
	assert.Equal(t, "Session 123456", Session{ID: "session-1700000123456"}.Label())
	assert.Equal(t, "Session abc", Session{ID: "abc"}.Label())
}
