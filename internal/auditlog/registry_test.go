package auditlog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RoundTrip(t *testing.T) {
	for _, ev := range Default.Events() {
		id, err := GetEventID(ev.Name)
		require.NoError(t, err, ev.Name)

		got, err := Get(id)
		require.NoError(t, err, ev.Name)
		assert.Equal(t, ev.Name, got.Name)
		assert.Equal(t, ev.ID, got.ID)
	}
}

func TestDefault_StableIDs(t *testing.T) {
	// These IDs are stored in audit_log_entries.event and must never change.
	want := map[string]int{
		"ORG_EDIT":             11,
		"ORG_REMOVE":           12,
		"ORG_RESTORE":          13,
		"TEAM_REMOVE":          22,
		"PROJECT_EDIT":         31,
		"PROJECT_REMOVE":       32,
		"SSO_DISABLE":          61,
		"INTEGRATION_ADD":      110,
		"INTEGRATION_EDIT":     111,
		"INTEGRATION_REMOVE":   112,
		"SENTRY_APP_UNINSTALL": 117,
	}
	for name, id := range want {
		got, err := GetEventID(name)
		require.NoError(t, err)
		assert.Equal(t, id, got, name)
	}
}

func TestGetEventID_Unknown(t *testing.T) {
	id, err := GetEventID("NOT_AN_EVENT")
	assert.Zero(t, id)
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestGet_Unknown(t *testing.T) {
	ev, err := Get(9999)
	assert.Nil(t, ev)
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestGetByAPIName(t *testing.T) {
	ev, err := Default.GetByAPIName("project.edit")
	require.NoError(t, err)
	assert.Equal(t, "PROJECT_EDIT", ev.Name)

	_, err = Default.GetByAPIName("project.explode")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestMustHelpers_PanicOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Default.MustGetEventID("NOPE") })
	assert.Panics(t, func() { Default.MustGet(-1) })
	assert.NotPanics(t, func() { Default.MustGet(Default.MustGetEventID("ORG_ADD")) })
}

func TestNewRegistry_Duplicates(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry(Event{ID: 1, Name: "A"}, Event{ID: 2, Name: "A"})
	}, "duplicate name")
	assert.Panics(t, func() {
		NewRegistry(Event{ID: 1, Name: "A"}, Event{ID: 1, Name: "B"})
	}, "duplicate id")
	assert.Panics(t, func() {
		NewRegistry(Event{ID: 1, Name: "A", APIName: "a"}, Event{ID: 2, Name: "B", APIName: "a"})
	}, "duplicate api name")
}

func TestEvents_SortedByID(t *testing.T) {
	events := Default.Events()
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].ID, events[i].ID)
	}
}

func TestRender_NilSafe(t *testing.T) {
	ev := Default.MustGet(Default.MustGetEventID("TEAM_REMOVE"))
	assert.Equal(t, "", ev.Render(nil))
	assert.Equal(t, "", (&Event{ID: 1, Name: "X"}).Render(nil))
}
