package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"laplog/internal/amqp"
	"laplog/internal/cache"
	"laplog/internal/core"
	"laplog/internal/log"
	"laplog/internal/metrics"
	"laplog/internal/series"
	"laplog/internal/store"
)

// Publisher announces record changes to other processes.
type Publisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangeMessage) error
}

// Session is what an owner gets after entering a name: who they are and the
// month to show first.
type Session struct {
	Owner string         `json:"owner"`
	Month core.YearMonth `json:"month"`
}

// SaveInput is a logging form as the user filled it in.
type SaveInput struct {
	Owner     string
	Date      string
	Activity  string
	FieldLaps int
	GymLaps   int
}

// DeleteInput names what to delete. Empty Activity clears the whole day.
type DeleteInput struct {
	Owner    string
	Date     string
	Activity string
}

// MonthView is everything a month page renders.
type MonthView struct {
	Owner      string            `json:"owner"`
	Month      core.YearMonth    `json:"month"`
	Prev       core.YearMonth    `json:"prev"`
	Next       core.YearMonth    `json:"next"`
	Points     []series.DayPoint `json:"points"`
	Cumulative []series.DayPoint `json:"cumulative"`
	Totals     series.Totals     `json:"totals"`
}

// RecordService is the surface the UI and the CLI talk to. It validates raw
// input, drives the store, keeps the month view cache honest and publishes
// change notifications.
type RecordService struct {
	store     *store.Store
	publisher Publisher
	views     cache.Cache[MonthView]
	now       func() time.Time
	logger    *log.Logger

	// gens counts mutations per owner. A month view is only cached if no
	// mutation of its owner happened while it was being built.
	genMu sync.Mutex
	gens  map[string]uint64
}

type Option func(*RecordService)

// WithPublisher enables change notifications. Nil disables them.
func WithPublisher(p Publisher) Option {
	return func(s *RecordService) { s.publisher = p }
}

func WithViewCache(c cache.Cache[MonthView]) Option {
	return func(s *RecordService) { s.views = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *RecordService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *RecordService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewRecordService(st *store.Store, opts ...Option) *RecordService {
	s := &RecordService{
		store:  st,
		gens:   make(map[string]uint64),
		now:    time.Now,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentRecords),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.SetRecords(st.Len())
	return s
}

// Submit starts a session for owner on the current month.
func (s *RecordService) Submit(owner string) (Session, error) {
	owner, err := core.ValidateOwner(owner)
	if err != nil {
		return Session{}, err
	}
	return Session{Owner: owner, Month: core.CurrentYearMonth(s.now())}, nil
}

// Save validates the form, converts laps to meters and upserts the record.
func (s *RecordService) Save(ctx context.Context, in SaveInput) (core.Record, error) {
	owner, date, activity, err := parseKey(in.Owner, in.Date, in.Activity)
	if err != nil {
		metrics.RecordMutation(log.OpSave, metrics.OutcomeInvalid)
		return core.Record{}, err
	}
	distance, err := core.DistanceFromLaps(in.FieldLaps, in.GymLaps)
	if err != nil {
		metrics.RecordMutation(log.OpSave, metrics.OutcomeInvalid)
		return core.Record{}, err
	}

	r, err := s.store.Save(ctx, owner, date, activity, distance)
	s.afterMutation(ctx, log.OpSave, owner, err)
	if err != nil {
		return r, fmt.Errorf("save record: %w", err)
	}

	s.logger.InfoContext(ctx, "Record saved", log.NewFields().
		WithRecordKey(r.Owner, r.Date.String(), r.Activity.String()).
		WithDistance(r.Distance).
		ToSlice()...)
	s.publish(ctx, amqp.NewRecordChangeMessage(amqp.OpSave, owner, date, activity, s.store.Key()))
	return r, nil
}

// RequestDelete removes one activity's record when Activity is set and every
// record of the day otherwise. It returns how many records went away; zero
// is not an error.
func (s *RecordService) RequestDelete(ctx context.Context, in DeleteInput) (int, error) {
	owner, err := core.ValidateOwner(in.Owner)
	if err != nil {
		return 0, err
	}
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return 0, err
	}

	if in.Activity == "" {
		n, err := s.store.DeleteByDate(ctx, owner, date)
		s.afterDelete(ctx, log.OpDeleteDate, owner, n, err)
		if err != nil {
			return n, fmt.Errorf("delete %s on %s: %w", owner, date, err)
		}
		if n > 0 {
			s.publish(ctx, amqp.NewRecordChangeMessage(amqp.OpDeleteDate, owner, date, "", s.store.Key()))
		}
		return n, nil
	}

	activity, err := core.ParseActivity(in.Activity)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteByKey(ctx, owner, date, activity)
	n := 0
	if removed {
		n = 1
	}
	s.afterDelete(ctx, log.OpDeleteKey, owner, n, err)
	if err != nil {
		return n, fmt.Errorf("delete %s: %w", core.NewKey(owner, date, activity), err)
	}
	if removed {
		s.publish(ctx, amqp.NewRecordChangeMessage(amqp.OpDeleteKey, owner, date, activity, s.store.Key()))
	}
	return n, nil
}

// ViewMonth builds the dense series for the owner's month.
func (s *RecordService) ViewMonth(ctx context.Context, owner string, month core.YearMonth) (MonthView, error) {
	owner, err := core.ValidateOwner(owner)
	if err != nil {
		return MonthView{}, err
	}
	if _, err := core.NewYearMonth(month.Year, int(month.Month)); err != nil {
		return MonthView{}, err
	}

	key := viewKey(owner, month)
	if s.views != nil {
		if v, ok := s.views.Get(key); ok {
			return v, nil
		}
	}

	gen := s.generation(owner)
	start := time.Now()
	points := series.Aggregate(s.store.RecordsFor(owner), owner, month)
	metrics.ObserveAggregate(time.Since(start))

	v := MonthView{
		Owner:      owner,
		Month:      month,
		Prev:       month.Prev(),
		Next:       month.Next(),
		Points:     points,
		Cumulative: series.Cumulative(points),
		Totals:     series.Summarize(points),
	}
	if s.views != nil {
		s.views.Set(key, v)
		// A mutation that raced the build may already have invalidated the
		// owner; drop the view rather than serve it until it expires.
		if s.generation(owner) != gen {
			s.views.Delete(key)
		}
	}
	s.logger.DebugContext(ctx, "Month view built", log.FieldOwner, owner, log.FieldMonth, month.String())
	return v, nil
}

// Records returns the owner's records sorted by date.
func (s *RecordService) Records(ctx context.Context, owner string) ([]core.Record, error) {
	owner, err := core.ValidateOwner(owner)
	if err != nil {
		return nil, err
	}
	return s.store.RecordsFor(owner), nil
}

// Owners lists everyone with at least one record.
func (s *RecordService) Owners(ctx context.Context) []string {
	return s.store.Owners()
}

// Close releases the publisher when it holds a connection.
func (s *RecordService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}

func parseKey(owner, date, activity string) (string, core.Date, core.Activity, error) {
	o, err := core.ValidateOwner(owner)
	if err != nil {
		return "", core.Date{}, "", err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return "", core.Date{}, "", err
	}
	a, err := core.ParseActivity(activity)
	if err != nil {
		return "", core.Date{}, "", err
	}
	return o, d, a, nil
}

func (s *RecordService) generation(owner string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[owner]
}

func viewKey(owner string, month core.YearMonth) string {
	return owner + "|" + month.String()
}

func (s *RecordService) afterDelete(ctx context.Context, op, owner string, n int, err error) {
	if err == nil && n == 0 {
		metrics.RecordMutation(op, metrics.OutcomeSkipped)
		return
	}
	s.afterMutation(ctx, op, owner, err)
}

// afterMutation runs even when persistence failed, because the in-memory
// state may have changed anyway.
func (s *RecordService) afterMutation(ctx context.Context, op, owner string, err error) {
	s.genMu.Lock()
	s.gens[owner]++
	s.genMu.Unlock()
	if s.views != nil {
		s.views.DeletePrefix(owner + "|")
	}
	metrics.SetRecords(s.store.Len())

	switch {
	case err == nil:
		metrics.RecordMutation(op, metrics.OutcomeOK)
		metrics.RecordPersisted(s.now())
	case errors.Is(err, core.ErrIOFailure):
		metrics.RecordMutation(op, metrics.OutcomeIOError)
	case errors.Is(err, core.ErrInvalidInput):
		metrics.RecordMutation(op, metrics.OutcomeInvalid)
	default:
		metrics.RecordMutation(op, metrics.OutcomeError)
	}
}

func (s *RecordService) publish(ctx context.Context, msg *amqp.RecordChangeMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record change",
			"id", msg.ID,
			"op", msg.Op,
			log.FieldError, err)
	}
}
