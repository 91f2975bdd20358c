// Package kb is the satellite catalogue: the satellites a user can select,
// with the element sets the local propagator needs.
package kb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/model"
)

var (
	ErrSatelliteExists   = errors.New("satellite already exists")
	ErrSatelliteNotFound = errors.New("satellite not found")
	ErrInvalidSatellite  = errors.New("invalid satellite")
)

// EventType indicates what kind of change happened in the catalogue.
type EventType int

const (
	EventSatelliteAdded EventType = iota
	EventSatelliteUpdated
	EventSatelliteRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSatelliteAdded:
		return "added"
	case EventSatelliteUpdated:
		return "updated"
	case EventSatelliteRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// MarshalText encodes the event type as added, updated or removed.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is emitted to subscribers when the catalogue changes.
type Event struct {
	Type      EventType
	Satellite model.CatalogEntry
}

// KnowledgeBase is an in-memory, thread-safe satellite catalogue.
type KnowledgeBase struct {
	mu sync.RWMutex

	satellites map[int]*model.CatalogEntry

	nextSub int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty catalogue.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		satellites: make(map[int]*model.CatalogEntry),
		subs:       make(map[int]func(Event)),
	}
}

// AddSatellite adds a new entry. It fails if the ID is taken or the entry
// carries a malformed element set.
func (kb *KnowledgeBase) AddSatellite(e model.CatalogEntry) error {
	if err := validate(e); err != nil {
		return err
	}
	kb.mu.Lock()
	if _, exists := kb.satellites[e.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSatelliteExists, e.ID)
	}
	kb.satellites[e.ID] = &e
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteAdded, Satellite: e})
	return nil
}

// UpsertSatellite adds or replaces an entry, e.g. when fresher elements
// arrive.
func (kb *KnowledgeBase) UpsertSatellite(e model.CatalogEntry) error {
	if err := validate(e); err != nil {
		return err
	}
	kb.mu.Lock()
	typ := EventSatelliteAdded
	if _, exists := kb.satellites[e.ID]; exists {
		typ = EventSatelliteUpdated
	}
	kb.satellites[e.ID] = &e
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: typ, Satellite: e})
	return nil
}

// RemoveSatellite deletes the entry with the given ID.
func (kb *KnowledgeBase) RemoveSatellite(id int) error {
	kb.mu.Lock()
	e, ok := kb.satellites[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSatelliteNotFound, id)
	}
	delete(kb.satellites, id)
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSatelliteRemoved, Satellite: *e})
	return nil
}

// GetSatellite returns a copy of the entry with the given ID.
func (kb *KnowledgeBase) GetSatellite(id int) (model.CatalogEntry, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	e, ok := kb.satellites[id]
	if !ok {
		return model.CatalogEntry{}, false
	}
	return *e, true
}

// ListSatellites returns a snapshot of all entries ordered by ID.
func (kb *KnowledgeBase) ListSatellites() []model.CatalogEntry {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.CatalogEntry, 0, len(kb.satellites))
	for _, e := range kb.satellites {
		res = append(res, *e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of entries.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.satellites)
}

// Subscribe registers a callback for catalogue events. It returns an
// unsubscribe function. Callbacks run outside the catalogue lock.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

// LoadTLE reads element sets in the usual three-line layout (a name line
// followed by lines 1 and 2) and upserts each one. Bare two-line sets are
// named after their catalogue number. It returns the number of entries read.
func (kb *KnowledgeBase) LoadTLE(r io.Reader) (int, error) {
	entries, err := ParseTLE(r)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := kb.UpsertSatellite(e); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// ParseTLE parses a TLE file into catalogue entries.
func ParseTLE(r io.Reader) ([]model.CatalogEntry, error) {
	var (
		out  []model.CatalogEntry
		name string
		l1   string
		n    int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), " \r")
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, "1 ") && l1 == "":
			l1 = line
		case strings.HasPrefix(line, "2 ") && l1 != "":
			id, err := catalogNumber(l1)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n, err)
			}
			if name == "" {
				name = fmt.Sprintf("SAT %d", id)
			}
			out = append(out, model.CatalogEntry{ID: id, Name: name, Line1: l1, Line2: line})
			name, l1 = "", ""
		default:
			if l1 != "" {
				return nil, fmt.Errorf("line %d: %w: expected line 2 after line 1", n, ErrInvalidSatellite)
			}
			name = strings.TrimSpace(strings.TrimPrefix(line, "0 "))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tle: %w", err)
	}
	if l1 != "" {
		return nil, fmt.Errorf("%w: trailing line 1 without line 2", ErrInvalidSatellite)
	}
	return out, nil
}

func catalogNumber(line1 string) (int, error) {
	if len(line1) < 7 {
		return 0, fmt.Errorf("%w: line 1 too short", ErrInvalidSatellite)
	}
	id, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return 0, fmt.Errorf("%w: catalogue number: %v", ErrInvalidSatellite, err)
	}
	return id, nil
}

func validate(e model.CatalogEntry) error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidSatellite, e.ID)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: %d has no name", ErrInvalidSatellite, e.ID)
	}
	if e.Line1 == "" && e.Line2 == "" {
		return nil
	}
	if err := core.ValidateTLE(e.Line1, e.Line2); err != nil {
		return fmt.Errorf("%w: %d: %v", ErrInvalidSatellite, e.ID, err)
	}
	return nil
}

func (kb *KnowledgeBase) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(kb.subs))
	for _, fn := range kb.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
