package calendar

import (
	"context"
	"errors"
	"sort"
	"time"
)

var (
	ErrFormClosed  = errors.New("add-event form is not open")
	ErrNoSyncer    = errors.New("no external calendar configured")
	ErrSyncRunning = errors.New("a sync is already running")
)

// DateRange is an inclusive span of dates.
type DateRange struct {
	From Date
	To   Date
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !r.To.Before(d)
}

// ExternalReplacer receives the events pulled by a sync.
type ExternalReplacer interface {
	ReplaceExternal([]Event) int
}

// Syncer pulls external events for rng and hands them to dst.
type Syncer interface {
	SyncNow(ctx context.Context, rng DateRange, dst ExternalReplacer) (int, error)
}

type ViewMode int

const (
	ViewGrid ViewMode = iota
	ViewList
)

type SyncState int

const (
	SyncIdle SyncState = iota
	SyncLoading
)

type FormState struct {
	Open  bool
	Draft Draft
	Err   error
}

type SyncResult struct {
	At    time.Time
	Count int
	Err   error
}

// Controller owns the state behind the calendar screen. Every mutation goes
// through its methods; rendering reads it and nothing else. It is not safe
// for concurrent use: callers drive it from one goroutine and run the slow
// part of a sync elsewhere.
type Controller struct {
	store  *Store
	syncer Syncer
	now    func() time.Time

	cursor       MonthCursor
	weekStart    time.Weekday
	pastMonths   int
	futureMonths int

	view          ViewMode
	selected      Date
	form          FormState
	syncState     SyncState
	lastSync      SyncResult
	pendingDelete string
}

type ControllerOption func(*Controller)

func WithSyncer(s Syncer) ControllerOption {
	return func(c *Controller) {
		c.syncer = s
	}
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

func WithControllerWeekStart(d time.Weekday) ControllerOption {
	return func(c *Controller) {
		c.weekStart = d
	}
}

// WithSyncWindow widens the synced range around the displayed month.
func WithSyncWindow(pastMonths, futureMonths int) ControllerOption {
	return func(c *Controller) {
		c.pastMonths = pastMonths
		c.futureMonths = futureMonths
	}
}

func NewController(store *Store, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:        store,
		now:          time.Now,
		weekStart:    time.Sunday,
		futureMonths: 3,
		pastMonths:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cursor = CursorOf(DateOf(c.now()))
	return c
}

func (c *Controller) Store() *Store { return c.store }
func (c *Controller) Cursor() MonthCursor { return c.cursor }
func (c *Controller) View() ViewMode { return c.view }
func (c *Controller) Form() FormState { return c.form }
func (c *Controller) SyncState() SyncState { return c.syncState }
func (c *Controller) LastSync() SyncResult { return c.lastSync }
func (c *Controller) WeekStart() time.Weekday { return c.weekStart }
func (c *Controller) HasSyncer() bool { return c.syncer != nil }
func (c *Controller) Today() Date { return DateOf(c.now()) }

// Selected returns the day the form was opened for.
func (c *Controller) Selected() (Date, bool) {
	return c.selected, !c.selected.IsZero()
}

func (c *Controller) NextMonth() { c.cursor = c.cursor.Next() }
func (c *Controller) PrevMonth() { c.cursor = c.cursor.Prev() }

func (c *Controller) GoToday() {
	c.cursor = CursorOf(c.Today())
}

func (c *Controller) GoTo(d Date) {
	c.cursor = CursorOf(d)
}

// Grid builds the month grid for the current cursor.
func (c *Controller) Grid() MonthGrid {
	return BuildMonthGrid(c.cursor, c.store.All(), WithWeekStart(c.weekStart))
}

func (c *Controller) ToggleView() {
	if c.view == ViewGrid {
		c.view = ViewList
	} else {
		c.view = ViewGrid
	}
}

// ListEvents returns every event ordered by date. Events on the same date
// keep their insertion order.
func (c *Controller) ListEvents() []Event {
	events := c.store.All()
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// TapDay opens the add-event form for a day of the displayed month. Days
// outside the month are not interactive and are ignored.
func (c *Controller) TapDay(day int) bool {
	if day < 1 || day > DaysIn(c.cursor.Year, c.cursor.Month) {
		return false
	}
	c.selected = Date{c.cursor.Year, c.cursor.Month, day}
	c.form = FormState{Open: true, Draft: Draft{Tag: TagAssignment}}
	return true
}

// TapCell is TapDay for a grid cell.
func (c *Controller) TapCell(cell Cell) bool {
	if !cell.Interactive() || CursorOf(cell.Date) != c.cursor {
		return false
	}
	return c.TapDay(cell.Day)
}

func (c *Controller) SetTitle(s string) { c.form.Draft.Title = s }
func (c *Controller) SetTime(s string) { c.form.Draft.Time = s }
func (c *Controller) SetTag(t Tag) { c.form.Draft.Tag = t }

// CycleTag moves the draft tag through Tags, wrapping around.
func (c *Controller) CycleTag(step int) {
	idx := 0
	for i, t := range Tags {
		if t == c.form.Draft.Tag {
			idx = i
			break
		}
	}
	n := len(Tags)
	c.form.Draft.Tag = Tags[((idx+step)%n+n)%n]
}

// Submit turns the draft into an event. On a validation error the form stays
// open with the error attached and the store is unchanged.
func (c *Controller) Submit() (Event, error) {
	if !c.form.Open {
		return Event{}, ErrFormClosed
	}
	d := c.form.Draft
	d.Date = c.selected

	ev, err := c.store.Add(d)
	if err != nil {
		c.form.Err = err
		return Event{}, err
	}
	c.CloseForm()
	return ev, nil
}

// CloseForm discards the draft and clears the selected day.
func (c *Controller) CloseForm() {
	c.form = FormState{}
	c.selected = Date{}
}

// RequestDelete stages id for deletion. Nothing is removed until
// ConfirmDelete is called.
func (c *Controller) RequestDelete(id string) bool {
	if _, ok := c.store.Get(id); !ok {
		return false
	}
	c.pendingDelete = id
	return true
}

func (c *Controller) PendingDelete() (Event, bool) {
	if c.pendingDelete == "" {
		return Event{}, false
	}
	return c.store.Get(c.pendingDelete)
}

func (c *Controller) ConfirmDelete() (bool, error) {
	id := c.pendingDelete
	c.pendingDelete = ""
	if id == "" {
		return false, nil
	}
	return c.store.Delete(id, Confirmed)
}

func (c *Controller) CancelDelete() {
	c.pendingDelete = ""
}

// DeleteEvent deletes id after asking confirm.
func (c *Controller) DeleteEvent(id string, confirm ConfirmFunc) (bool, error) {
	return c.store.Delete(id, confirm)
}

// SyncRange is the span pulled from external calendars: the displayed month
// widened by the configured window.
func (c *Controller) SyncRange() DateRange {
	return DateRange{
		From: c.cursor.AddMonths(-c.pastMonths).First(),
		To:   c.cursor.AddMonths(c.futureMonths).Last(),
	}
}

// StartSync moves idle to loading. It reports false when a sync is already
// in flight or no syncer is configured.
func (c *Controller) StartSync() bool {
	if c.syncer == nil || c.syncState == SyncLoading {
		return false
	}
	c.syncState = SyncLoading
	return true
}

// RunSync performs the sync itself. It touches only the store, so it may run
// off the controller's goroutine between StartSync and CompleteSync.
func (c *Controller) RunSync(ctx context.Context, rng DateRange) (int, error) {
	if c.syncer == nil {
		return 0, ErrNoSyncer
	}
	return c.syncer.SyncNow(ctx, rng, c.store)
}

// CompleteSync moves loading back to idle and records the outcome.
func (c *Controller) CompleteSync(n int, err error) {
	c.syncState = SyncIdle
	c.lastSync = SyncResult{At: c.now(), Count: n, Err: err}
}

// Sync runs a whole sync cycle synchronously.
func (c *Controller) Sync(ctx context.Context) (int, error) {
	if c.syncer == nil {
		return 0, ErrNoSyncer
	}
	if !c.StartSync() {
		return 0, ErrSyncRunning
	}
	n, err := c.RunSync(ctx, c.SyncRange())
	c.CompleteSync(n, err)
	return n, err
}
