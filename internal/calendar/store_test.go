package calendar

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	n := 0
	opts = append([]StoreOption{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("local-%d", n)
	})}, opts...)
	s, err := NewStore(opts...)
	require.NoError(t, err)
	return s
}

func TestStoreAddDefaults(t *testing.T) {
	s := newTestStore(t)
	date := Date{2024, time.August, 15}

	ev, err := s.Add(Draft{Title: "Quiz", Date: date})
	require.NoError(t, err)

	assert.Equal(t, "local-1", ev.ID)
	assert.Equal(t, AllDay, ev.Time)
	assert.Equal(t, TagAssignment, ev.Tag)
	assert.Equal(t, SourceLocal, ev.Source)
	assert.Equal(t, []Event{ev}, s.EventsForDate(date))
}

func TestStoreAddKeepsGivenFields(t *testing.T) {
	s := newTestStore(t)

	ev, err := s.Add(Draft{Title: "  SE Midterm ", Date: Date{2024, time.August, 27}, Time: "9:00 AM", Tag: TagExam})
	require.NoError(t, err)
	assert.Equal(t, "SE Midterm", ev.Title)
	assert.Equal(t, "9:00 AM", ev.Time)
	assert.Equal(t, TagExam, ev.Tag)
}

func TestStoreAddValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"empty title", Draft{Date: Date{2024, time.August, 15}}, "title"},
		{"blank title", Draft{Title: "   ", Date: Date{2024, time.August, 15}}, "title"},
		{"no date", Draft{Title: "Quiz"}, "date"},
		{"unknown tag", Draft{Title: "Quiz", Date: Date{2024, time.August, 15}, Tag: "Party"}, "tag"},
		{"february 30", Draft{Title: "Quiz", Date: Date{2023, time.February, 30}}, "date"},
		{"february 29 off a leap year", Draft{Title: "Quiz", Date: Date{2023, time.February, 29}}, "date"},
		{"month 13", Draft{Title: "Quiz", Date: Date{2024, 13, 1}}, "date"},
		{"day 0", Draft{Title: "Quiz", Date: Date{2024, time.August, 0}}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)

			_, err := s.Add(tt.draft)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want ValidationError, got %T", err)
			assert.NotEmpty(t, verr.Field(tt.field))
			assert.Zero(t, s.Len())
		})
	}
}

func TestStoreAddLeapDay(t *testing.T) {
	s := newTestStore(t)
	date := Date{2024, time.February, 29}

	ev, err := s.Add(Draft{Title: "Leap quiz", Date: date, Tag: TagQuiz})
	require.NoError(t, err)
	assert.Equal(t, []Event{ev}, s.EventsForDate(date))
}

func TestStoreAddDoesNotDeduplicate(t *testing.T) {
	s := newTestStore(t)
	date := Date{2024, time.August, 15}

	a, err := s.Add(Draft{Title: "Quiz", Date: date})
	require.NoError(t, err)
	b, err := s.Add(Draft{Title: "Quiz", Date: date})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.EventsForDate(date), 2)
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	date := Date{2024, time.August, 18}
	ev, err := s.Add(Draft{Title: "DB Project Submission", Date: date, Tag: TagDeadline})
	require.NoError(t, err)

	t.Run("declined", func(t *testing.T) {
		asked := 0
		ok, err := s.Delete(ev.ID, func(got Event) bool {
			asked++
			assert.Equal(t, ev, got)
			return false
		})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, asked)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("nil confirm counts as declined", func(t *testing.T) {
		ok, err := s.Delete(ev.ID, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("unknown id", func(t *testing.T) {
		ok, err := s.Delete("nonexistent", func(Event) bool {
			t.Fatal("confirm must not be asked for unknown ids")
			return true
		})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("confirmed", func(t *testing.T) {
		ok, err := s.Delete(ev.ID, Confirmed)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, s.EventsForDate(date))
		assert.Zero(t, s.Len())
	})
}

func TestStoreReplaceExternal(t *testing.T) {
	s := newTestStore(t)
	date := Date{2024, time.August, 15}
	local, err := s.Add(Draft{Title: "Study group", Date: date, Tag: TagMeeting})
	require.NoError(t, err)

	first := []Event{
		{ID: "g1", Title: "Networks Quiz", Date: date, Tag: TagQuiz},
		{ID: "g2", Title: "SE Midterm", Date: Date{2024, time.August, 27}, Tag: TagExam},
		{ID: "g1", Title: "Networks Quiz (dup)", Date: date, Tag: TagQuiz},
	}
	assert.Equal(t, 2, s.ReplaceExternal(first))
	assert.Equal(t, 3, s.Len())

	onDate := s.EventsForDate(date)
	require.Len(t, onDate, 2)
	assert.Equal(t, local, onDate[0])
	assert.Equal(t, "Networks Quiz", onDate[1].Title)
	assert.Equal(t, SourceExternal, onDate[1].Source)

	// a second sync with an overlapping id set does not duplicate
	second := []Event{
		{ID: "g1", Title: "Networks Quiz (moved)", Date: Date{2024, time.August, 16}, Tag: TagQuiz},
	}
	assert.Equal(t, 1, s.ReplaceExternal(second))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []Event{local}, s.EventsForDate(date))

	got, ok := s.Get("g1")
	require.True(t, ok)
	assert.Equal(t, "Networks Quiz (moved)", got.Title)

	// an empty sync clears externals but never local events
	assert.Zero(t, s.ReplaceExternal(nil))
	assert.Equal(t, []Event{local}, s.All())
}

func TestStoreReplaceExternalIgnoresLocalIDClash(t *testing.T) {
	s := newTestStore(t)
	local, err := s.Add(Draft{Title: "Mine", Date: Date{2024, time.August, 1}})
	require.NoError(t, err)

	s.ReplaceExternal([]Event{{ID: local.ID, Title: "Theirs", Date: Date{2024, time.August, 1}}})
	assert.Equal(t, []Event{local}, s.All())
}

type memPersister struct {
	events  map[string]Event
	order   []string
	failAdd bool
}

func newMemPersister(events ...Event) *memPersister {
	p := &memPersister{events: map[string]Event{}}
	for _, ev := range events {
		p.events[ev.ID] = ev
		p.order = append(p.order, ev.ID)
	}
	return p
}

func (p *memPersister) LoadEvents() ([]Event, error) {
	var out []Event
	for _, id := range p.order {
		if ev, ok := p.events[id]; ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (p *memPersister) SaveEvent(ev Event) error {
	if p.failAdd {
		return errors.New("disk full")
	}
	p.events[ev.ID] = ev
	p.order = append(p.order, ev.ID)
	return nil
}

func (p *memPersister) DeleteEvent(id string) error {
	delete(p.events, id)
	return nil
}

func TestStorePersister(t *testing.T) {
	saved := Event{ID: "kept", Title: "From last run", Date: Date{2024, time.August, 2}, Time: AllDay, Tag: TagQuiz}
	p := newMemPersister(saved)
	s := newTestStore(t, WithPersister(p))

	assert.Equal(t, []Event{saved}, s.All())

	ev, err := s.Add(Draft{Title: "New", Date: Date{2024, time.August, 3}})
	require.NoError(t, err)
	assert.Contains(t, p.events, ev.ID)

	_, err = s.Delete(saved.ID, Confirmed)
	require.NoError(t, err)
	assert.NotContains(t, p.events, saved.ID)

	s.ReplaceExternal([]Event{{ID: "ext", Title: "Synced", Date: Date{2024, time.August, 4}}})
	assert.NotContains(t, p.events, "ext")

	p.failAdd = true
	_, err = s.Add(Draft{Title: "Lost", Date: Date{2024, time.August, 5}})
	require.Error(t, err)
	assert.Equal(t, 2, s.Len())
}
