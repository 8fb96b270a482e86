package calendar

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Draft is the content of the add-event form.
type Draft struct {
	Title string `json:"title" validate:"required"`
	Date  Date   `json:"date" validate:"required,civildate"`
	Time  string `json:"time" validate:"max=64"`
	Tag   Tag    `json:"tag" validate:"omitempty,eventtag"`
}

// Persister keeps local events across runs. External events are never handed
// to it; they are re-created on every sync.
type Persister interface {
	LoadEvents() ([]Event, error)
	SaveEvent(Event) error
	DeleteEvent(id string) error
}

// ConfirmFunc is asked before an event is deleted. Returning false aborts
// the deletion.
type ConfirmFunc func(Event) bool

// Confirmed is a ConfirmFunc for callers that already obtained the user's
// confirmation through their own prompt.
func Confirmed(Event) bool { return true }

type Store struct {
	mu        sync.RWMutex
	events    []Event
	persister Persister
	newID     func() string
	validate  *validator.Validate
}

type StoreOption func(*Store)

func WithPersister(p Persister) StoreOption {
	return func(s *Store) {
		s.persister = p
	}
}

// WithIDGenerator replaces the uuid generator for local events.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

func NewStore(opts ...StoreOption) (*Store, error) {
	s := &Store{
		events:   []Event{},
		newID:    uuid.NewString,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.persister != nil {
		loaded, err := s.persister.LoadEvents()
		if err != nil {
			return nil, errors.Wrap(err, "load persisted events")
		}
		for _, ev := range loaded {
			ev.Source = SourceLocal
			s.events = append(s.events, ev)
		}
	}
	return s, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.String()
		}
		return nil
	}, Date{})
	_ = v.RegisterValidation("eventtag", func(fl validator.FieldLevel) bool {
		return Tag(fl.Field().String()).Valid()
	})
	// dates reach validators as YYYY-MM-DD through the type func above;
	// ParseDate rejects days and months time.Date would roll over
	_ = v.RegisterValidation("civildate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func (s *Store) validateDraft(d Draft) error {
	err := s.validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fieldMessage(fe)})
	}
	return NewValidationError(flds...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "date" {
			return "no date selected"
		}
		return "this field is required"
	case "civildate":
		return fmt.Sprintf("%v is not a calendar date", fe.Value())
	case "eventtag":
		return fmt.Sprintf("unknown category %v", fe.Value())
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

// Add validates the draft and appends a new local event. A draft on a date
// that already has events is added as-is.
func (s *Store) Add(d Draft) (Event, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Time = strings.TrimSpace(d.Time)
	if err := s.validateDraft(d); err != nil {
		return Event{}, err
	}

	ev := Event{
		ID:     s.newID(),
		Title:  d.Title,
		Date:   d.Date,
		Time:   d.Time,
		Tag:    d.Tag,
		Source: SourceLocal,
	}
	if ev.Time == "" {
		ev.Time = AllDay
	}
	if ev.Tag == "" {
		ev.Tag = TagAssignment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveEvent(ev); err != nil {
			return Event{}, errors.Wrapf(err, "persist event %s", ev.ID)
		}
	}
	s.events = append(s.events, ev)
	return ev, nil
}

// Delete removes the event with id once confirm agrees. Unknown ids are a
// silent no-op and confirm is not consulted. A nil confirm counts as declined.
func (s *Store) Delete(id string, confirm ConfirmFunc) (bool, error) {
	s.mu.RLock()
	idx := s.indexOf(id)
	var ev Event
	if idx >= 0 {
		ev = s.events[idx]
	}
	s.mu.RUnlock()

	if idx < 0 || confirm == nil || !confirm(ev) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// the slice may have changed while confirm was running
	idx = s.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	if s.persister != nil && s.events[idx].Source == SourceLocal {
		if err := s.persister.DeleteEvent(id); err != nil {
			return false, errors.Wrapf(err, "delete persisted event %s", id)
		}
	}
	s.events = append(s.events[:idx], s.events[idx+1:]...)
	return true, nil
}

func (s *Store) indexOf(id string) int {
	for i, ev := range s.events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Get(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.events[idx], true
	}
	return Event{}, false
}

// EventsForDate returns the events on date in insertion order.
func (s *Store) EventsForDate(date Date) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, ev := range s.events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	return out
}

// All returns a copy of every event in insertion order.
func (s *Store) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Event(nil), s.events...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}

// ReplaceExternal swaps the external subset for incoming. Local events are
// kept, incoming events are marked external, and duplicate ids within
// incoming keep their first occurrence. It returns the number of external
// events now held.
func (s *Store) ReplaceExternal(incoming []Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Event, 0, len(s.events)+len(incoming))
	localIDs := make(map[string]struct{})
	for _, ev := range s.events {
		if ev.Source == SourceLocal {
			kept = append(kept, ev)
			localIDs[ev.ID] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(incoming))
	added := 0
	for _, ev := range incoming {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		if _, clash := localIDs[ev.ID]; clash {
			continue
		}
		seen[ev.ID] = struct{}{}
		ev.Source = SourceExternal
		kept = append(kept, ev)
		added++
	}

	s.events = kept
	return added
}
