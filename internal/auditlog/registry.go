// Package auditlog is the catalog of audit event kinds. Each event has a stable integer ID
// (persisted with every entry, so IDs are never reassigned), a symbolic name such as
// ORG_REMOVE, and a render function that turns a stored entry into a sentence.
//
// The catalog is closed: Default is built once at init and is read-only afterwards, so it is
// safe to share across request goroutines without locking.
package auditlog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/trailkeeper/trailkeeper/internal/db/models"
)

// ErrUnknownEvent is returned when a name or ID is not registered
var ErrUnknownEvent = errors.New("unknown audit log event")

type renderFunc func(entry *models.AuditLogEntry) string

// Event is a registered audit event kind
type Event struct {
	ID      int
	Name    string // e.g. "ORG_REMOVE"
	APIName string // e.g. "org.remove"
	render  renderFunc
}

// Render describes entry in human-readable form. It depends only on the entry's data and
// target, never on external state.
func (e *Event) Render(entry *models.AuditLogEntry) string {
	if e.render == nil || entry == nil {
		return ""
	}
	return e.render(entry)
}

// Registry maps event names and IDs to events in both directions
type Registry struct {
	byName    map[string]*Event
	byID      map[int]*Event
	byAPIName map[string]*Event
}

// NewRegistry builds a registry from events. Duplicate names, API names or IDs panic:
// the event set is fixed at compile time and a collision is a programming error.
func NewRegistry(events ...Event) *Registry {
	r := &Registry{
		byName:    make(map[string]*Event, len(events)),
		byID:      make(map[int]*Event, len(events)),
		byAPIName: make(map[string]*Event, len(events)),
	}
	for i := range events {
		ev := events[i]
		if _, dup := r.byName[ev.Name]; dup {
			panic(fmt.Sprintf("auditlog: duplicate event name %q", ev.Name))
		}
		if _, dup := r.byID[ev.ID]; dup {
			panic(fmt.Sprintf("auditlog: duplicate event id %d (%s)", ev.ID, ev.Name))
		}
		if _, dup := r.byAPIName[ev.APIName]; dup && ev.APIName != "" {
			panic(fmt.Sprintf("auditlog: duplicate api name %q", ev.APIName))
		}
		r.byName[ev.Name] = &ev
		r.byID[ev.ID] = &ev
		if ev.APIName != "" {
			r.byAPIName[ev.APIName] = &ev
		}
	}
	return r
}

// GetEventID resolves a symbolic name to its event ID
func (r *Registry) GetEventID(name string) (int, error) {
	ev, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: name %q", ErrUnknownEvent, name)
	}
	return ev.ID, nil
}

// Get resolves an event ID to its registry entry
func (r *Registry) Get(id int) (*Event, error) {
	ev, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownEvent, id)
	}
	return ev, nil
}

// GetByAPIName resolves an API name such as "project.edit"
func (r *Registry) GetByAPIName(apiName string) (*Event, error) {
	ev, ok := r.byAPIName[apiName]
	if !ok {
		return nil, fmt.Errorf("%w: api name %q", ErrUnknownEvent, apiName)
	}
	return ev, nil
}

// MustGetEventID is GetEventID for call sites naming a constant event; it panics when the
// name is not registered.
func (r *Registry) MustGetEventID(name string) int {
	id, err := r.GetEventID(name)
	if err != nil {
		panic(err)
	}
	return id
}

// MustGet is Get that panics on an unknown ID
func (r *Registry) MustGet(id int) *Event {
	ev, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return ev
}

// Events returns all registered events ordered by ID
func (r *Registry) Events() []*Event {
	events := make([]*Event, 0, len(r.byID))
	for _, ev := range r.byID {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

// Default holds every event known to this deployment
var Default = NewRegistry(defaultEvents()...)

// GetEventID resolves name against Default
func GetEventID(name string) (int, error) { return Default.GetEventID(name) }

// Get resolves id against Default
func Get(id int) (*Event, error) { return Default.Get(id) }
