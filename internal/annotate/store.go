package annotate

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrEmptyLabel is returned by AddCustom when the label is blank.
var ErrEmptyLabel = errors.New("custom label is empty")

// Store is the ordered collection of annotations for one video.
//
// Annotations are kept ascending by Timestamp; annotations with the same
// timestamp stay in insertion order. The order is re-established on every
// insert and never changes otherwise.
//
// Store is not safe for concurrent use; the session mutates it from a single
// goroutine.
type Store struct {
	items  []Annotation
	lastID int64
	now    func() time.Time
}

// NewStore returns an empty store whose ids come from the wall clock.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// nextID returns a nanosecond clock reading, bumped so ids strictly increase.
func (s *Store) nextID() int64 {
	id := s.now().UnixNano()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Add records an annotation for a predefined action.
func (s *Store) Add(action Action, timestamp float64, gameClock, team string) Annotation {
	a := Annotation{
		ID:        s.nextID(),
		Type:      action.ID,
		Label:     action.Label,
		Color:     action.Color,
		Timestamp: timestamp,
		GameClock: clockOrNA(gameClock),
		Team:      team,
	}
	s.insert(a)
	return a
}

// AddCustom records an annotation with a user-supplied label.
func (s *Store) AddCustom(label string, timestamp float64, gameClock, team string) (Annotation, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Annotation{}, ErrEmptyLabel
	}
	a := Annotation{
		ID:        s.nextID(),
		Type:      CustomType,
		Label:     label,
		Color:     CustomColor,
		Timestamp: timestamp,
		GameClock: clockOrNA(gameClock),
		Team:      team,
	}
	s.insert(a)
	return a, nil
}

func (s *Store) insert(a Annotation) {
	s.items = append(s.items, a)
	sort.SliceStable(s.items, func(i, j int) bool {
		return s.items[i].Timestamp < s.items[j].Timestamp
	})
}

// Remove deletes the annotation with the given id. It reports whether one
// was removed; removing an absent id is a no-op.
func (s *Store) Remove(id int64) bool {
	for i, a := range s.items {
		if a.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the annotation with the given id.
func (s *Store) Get(id int64) (Annotation, bool) {
	for _, a := range s.items {
		if a.ID == id {
			return a, true
		}
	}
	return Annotation{}, false
}

// List returns a copy of the annotations in store order.
func (s *Store) List() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of annotations.
func (s *Store) Len() int { return len(s.items) }

// Reset drops every annotation. Ids keep increasing across resets.
func (s *Store) Reset() {
	s.items = nil
}

func clockOrNA(clock string) string {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return NotAvailable
	}
	return clock
}
