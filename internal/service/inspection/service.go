// Package inspection runs NEO inspections: it fetches reports, owns one
// simulation session per inspection, streams updates and checkpoints state.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/freshness"
	"github.com/kromedia/neo/internal/neo"
	"github.com/kromedia/neo/internal/repository"
	"github.com/kromedia/neo/internal/session"
	"github.com/kromedia/neo/internal/simulation"
	"github.com/kromedia/neo/internal/ws"
)

var (
	// ErrNotActive indicates the inspection has no running session.
	ErrNotActive = errors.New("inspection: session not active")
	// ErrFetchInFlight indicates a report fetch is already running for the inspection.
	ErrFetchInFlight = errors.New("inspection: fetch already in flight")
	// ErrInvalidInterval indicates a non-positive tick interval.
	ErrInvalidInterval = errors.New("inspection: interval must be positive")
)

const (
	fetchOutcomeOK     = "ok"
	fetchOutcomeFailed = "failed"

	defaultListLimit    = 50
	maxListLimit        = 200
	defaultHistoryLimit = 100
	persistTimeout      = 2 * time.Second
)

// ReportFetcher produces reports for targets.
type ReportFetcher interface {
	FetchReport(ctx context.Context, target string) (*domain.Report, error)
}

// Config tunes sessions and checkpoints.
type Config struct {
	TickInterval    time.Duration
	MinTickInterval time.Duration
	MaxTickInterval time.Duration
	RefreshDelay    time.Duration
	RetentionWindow time.Duration
	CheckpointEvery time.Duration
}

// Service coordinates inspections.
type Service struct {
	repo    repository.InspectionRepository
	events  repository.OscillatorEventRepository
	fetcher ReportFetcher
	hub     *ws.Hub
	clock   clock.Clock
	cfg     Config
	metrics *Metrics
	logger  *slog.Logger
	newID   func() string
	source  func() simulation.Source

	mu        sync.RWMutex
	sessions  map[string]*entry
	runOnce   sync.Once
	closeOnce sync.Once
}

type entry struct {
	session   *session.Session
	target    string
	savedSeq  uint64
	createdAt time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock swaps the clock driving sessions and checkpoints.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSource swaps the random source factory used for new sessions.
func WithSource(fn func() simulation.Source) Option {
	return func(s *Service) { s.source = fn }
}

// WithIDGenerator swaps the identifier generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs an inspection service.
func New(repo repository.InspectionRepository, events repository.OscillatorEventRepository, fetcher ReportFetcher, hub *ws.Hub, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if hub == nil {
		hub = ws.NewHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = freshness.DefaultWindow
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 15 * time.Second
	}
	s := &Service{
		repo:     repo,
		events:   events,
		fetcher:  fetcher,
		hub:      hub,
		clock:    clock.New(),
		cfg:      cfg,
		logger:   logger.With("component", "inspection"),
		newID:    uuid.NewString,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = func() simulation.Source { return simulation.NewSource(s.clock.Now().UnixNano()) }
	}
	return s
}

// Hub exposes the stream hub for HTTP handlers.
func (s *Service) Hub() *ws.Hub {
	return s.hub
}

// Inspect creates an inspection, fetches its report and starts a live session.
func (s *Service) Inspect(ctx context.Context, operatorID, target string) (*domain.Inspection, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, neo.ErrEmptyTarget
	}
	now := s.clock.Now().UTC()
	inspection := &domain.Inspection{
		ID:           s.newID(),
		Target:       target,
		OperatorID:   operatorID,
		Status:       domain.InspectionPending,
		TickInterval: s.cfg.TickInterval,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateInspection(ctx, inspection); err != nil {
		return nil, fmt.Errorf("create inspection: %w", err)
	}

	sess := s.newSession(inspection.ID)
	sess.BeginFetch()
	report, err := s.fetch(ctx, inspection.ID, target)
	if err != nil {
		sess.Close()
		return nil, err
	}
	sess.Load(report)

	s.mu.Lock()
	s.sessions[inspection.ID] = &entry{session: sess, target: target, createdAt: now}
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.setSessions(count)

	s.checkpoint(ctx, inspection.ID)
	s.logger.Info("inspection started", "inspection_id", inspection.ID, "target", target, "operator_id", operatorID)
	return s.Get(ctx, inspection.ID)
}

// Reinspect fetches a fresh report for an existing inspection, replacing the
// held report wholesale and clearing the oscillator event ring. A failed fetch
// tears the session down, leaving the inspection failed.
func (s *Service) Reinspect(ctx context.Context, id string) (*domain.Inspection, error) {
	record, err := s.repo.GetInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	e, ok := s.lookup(id)
	if !ok {
		e = &entry{session: s.newSession(id), target: record.Target, createdAt: record.CreatedAt}
		s.mu.Lock()
		if existing, found := s.sessions[id]; found {
			e = existing
		} else {
			s.sessions[id] = e
		}
		count := len(s.sessions)
		s.mu.Unlock()
		s.metrics.setSessions(count)
	}
	if !e.session.BeginFetch() {
		return nil, ErrFetchInFlight
	}

	report, err := s.fetch(ctx, id, record.Target)
	if err != nil {
		s.drop(id)
		return nil, err
	}
	e.session.Load(report)
	s.checkpoint(ctx, id)
	s.logger.Info("inspection refreshed", "inspection_id", id, "target", record.Target)
	return s.Get(ctx, id)
}

func (s *Service) fetch(ctx context.Context, id, target string) (*domain.Report, error) {
	report, err := s.fetcher.FetchReport(ctx, target)
	if err != nil {
		s.metrics.observeFetch(fetchOutcomeFailed)
		msg := neo.UserMessage(err)
		s.logger.Warn("report fetch failed", "inspection_id", id, "target", target, "error", err)
		persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if markErr := s.repo.MarkInspectionFailed(persistCtx, id, msg); markErr != nil {
			s.logger.Error("failed to record fetch failure", "inspection_id", id, "error", markErr)
		}
		var fe *neo.FetchError
		if !errors.As(err, &fe) {
			err = &neo.FetchError{Target: target, Err: err}
		}
		return nil, err
	}
	s.metrics.observeFetch(fetchOutcomeOK)
	return freshness.Filter(report, s.clock.Now(), s.cfg.RetentionWindow), nil
}

// Get returns the inspection record overlaid with its live session state.
func (s *Service) Get(ctx context.Context, id string) (*domain.Inspection, error) {
	inspection, err := s.repo.GetInspection(ctx, id)
	if err != nil {
		return nil, err
	}
	s.overlay(inspection)
	return inspection, nil
}

// List returns inspections newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Inspection, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	inspections, err := s.repo.ListInspections(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range inspections {
		s.overlay(&inspections[i])
	}
	return inspections, nil
}

func (s *Service) overlay(inspection *domain.Inspection) {
	e, ok := s.lookup(inspection.ID)
	if !ok {
		return
	}
	report, _ := e.session.Snapshot()
	state := e.session.State()
	if report != nil {
		inspection.Report = report
		inspection.Status = domain.InspectionReady
		inspection.Error = ""
	}
	inspection.Live = state.Live
	inspection.TickInterval = state.Interval
	inspection.TickCount = state.Ticks
}

// Report returns the current snapshot and its sequence number. Closed
// inspections fall back to their last checkpoint.
func (s *Service) Report(ctx context.Context, id string) (*domain.Report, uint64, error) {
	if e, ok := s.lookup(id); ok {
		if report, seq := e.session.Snapshot(); report != nil {
			return report, seq, nil
		}
		return nil, 0, ErrFetchInFlight
	}
	inspection, err := s.repo.GetInspection(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if inspection.Report == nil {
		return nil, 0, ErrNotActive
	}
	return inspection.Report, 0, nil
}

// SetLive toggles live mode of an inspection.
func (s *Service) SetLive(id string, live bool) (session.State, error) {
	e, ok := s.lookup(id)
	if !ok {
		return session.State{}, ErrNotActive
	}
	e.session.SetLive(live)
	return e.session.State(), nil
}

// SetInterval changes the tick interval; the session clamps it to its bounds.
func (s *Service) SetInterval(id string, interval time.Duration) (session.State, error) {
	if interval <= 0 {
		return session.State{}, ErrInvalidInterval
	}
	e, ok := s.lookup(id)
	if !ok {
		return session.State{}, ErrNotActive
	}
	e.session.SetInterval(interval)
	return e.session.State(), nil
}

// State reports the session clock state of an inspection.
func (s *Service) State(id string) (session.State, error) {
	e, ok := s.lookup(id)
	if !ok {
		return session.State{}, ErrNotActive
	}
	return e.session.State(), nil
}

// RequestIntegrityRefresh starts the delayed memory integrity refresh.
// A rejected request is not an error: it reports false.
func (s *Service) RequestIntegrityRefresh(id string) (bool, error) {
	e, ok := s.lookup(id)
	if !ok {
		return false, ErrNotActive
	}
	return e.session.RequestIntegrityRefresh(), nil
}

// OscillatorEvents returns the in-memory ring, or persisted history when
// history is set.
func (s *Service) OscillatorEvents(ctx context.Context, id string, history bool, limit int) ([]domain.OscillatorEvent, error) {
	if !history {
		e, ok := s.lookup(id)
		if !ok {
			return nil, ErrNotActive
		}
		return e.session.Events(), nil
	}
	if s.events == nil {
		return nil, ErrNotActive
	}
	if _, err := s.repo.GetInspection(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	stored, err := s.events.ListOscillatorEvents(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OscillatorEvent, 0, len(stored))
	for _, st := range stored {
		out = append(out, st.Event)
	}
	return out, nil
}

// Subscribe registers a stream subscriber and sends it the current snapshot.
func (s *Service) Subscribe(id string, sub ws.Subscriber) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrNotActive
	}
	s.hub.Register(id, sub)
	report, seq := e.session.Snapshot()
	if report == nil {
		return nil
	}
	payload, err := MarshalUpdate(session.Update{InspectionID: id, Seq: seq, Report: report})
	if err != nil {
		return err
	}
	return sub.Send(payload)
}

// Unsubscribe removes a stream subscriber.
func (s *Service) Unsubscribe(id string, sub ws.Subscriber) {
	s.hub.Unregister(id, sub)
}

// Close tears down the session of an inspection after a final checkpoint.
func (s *Service) Close(ctx context.Context, id string) error {
	if _, ok := s.lookup(id); !ok {
		if _, err := s.repo.GetInspection(ctx, id); err != nil {
			return err
		}
		return ErrNotActive
	}
	s.checkpoint(ctx, id)
	s.drop(id)
	if err := s.repo.MarkInspectionClosed(ctx, id); err != nil {
		return fmt.Errorf("close inspection: %w", err)
	}
	s.logger.Info("inspection closed", "inspection_id", id)
	return nil
}

// Resume restores sessions for ready inspections from their checkpoints.
func (s *Service) Resume(ctx context.Context, limit int) (int, error) {
	inspections, err := s.repo.ListInspections(ctx, max(limit, 1), 0)
	if err != nil {
		return 0, fmt.Errorf("list inspections: %w", err)
	}
	restored := 0
	for _, inspection := range inspections {
		if inspection.Status != domain.InspectionReady || inspection.Report == nil {
			continue
		}
		if _, ok := s.lookup(inspection.ID); ok {
			continue
		}
		var ring []domain.OscillatorEvent
		if s.events != nil {
			stored, err := s.events.ListOscillatorEvents(ctx, inspection.ID, simulation.MaxOscillatorEvents)
			if err != nil {
				s.logger.Warn("failed to load oscillator history", "inspection_id", inspection.ID, "error", err)
			}
			for _, st := range stored {
				ring = append(ring, st.Event)
			}
		}
		sess := s.newSession(inspection.ID)
		if inspection.TickInterval > 0 {
			sess.SetInterval(inspection.TickInterval)
		}
		sess.Restore(inspection.Report, ring, inspection.Live)
		_, seq := sess.Snapshot()

		s.mu.Lock()
		s.sessions[inspection.ID] = &entry{session: sess, target: inspection.Target, savedSeq: seq, createdAt: inspection.CreatedAt}
		s.mu.Unlock()
		restored++
	}
	s.mu.RLock()
	count := len(s.sessions)
	s.mu.RUnlock()
	s.metrics.setSessions(count)
	if restored > 0 {
		s.logger.Info("sessions resumed", "count", restored)
	}
	return restored, nil
}

// Shutdown checkpoints and stops every session and the hub.
func (s *Service) Shutdown(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.checkpointAll(ctx)
		s.mu.Lock()
		for id, e := range s.sessions {
			e.session.Close()
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		s.metrics.setSessions(0)
		s.hub.Close()
	})
}

func (s *Service) newSession(id string) *session.Session {
	return session.New(session.Options{
		ID:           id,
		Clock:        s.clock,
		Rand:         s.source(),
		Publisher:    session.PublisherFunc(s.publish),
		Logger:       s.logger,
		Interval:     s.cfg.TickInterval,
		MinInterval:  s.cfg.MinTickInterval,
		MaxInterval:  s.cfg.MaxTickInterval,
		RefreshDelay: s.cfg.RefreshDelay,
		NewID:        s.newID,
		OnTick:       s.metrics.observeTick,
	})
}

func (s *Service) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Service) drop(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()
	if ok {
		e.session.Close()
		s.hub.Drop(id)
	}
	s.metrics.setSessions(count)
}

func (s *Service) publish(u session.Update) {
	payload, err := MarshalUpdate(u)
	if err != nil {
		s.logger.Warn("failed to marshal stream payload", "inspection_id", u.InspectionID, "error", err)
		return
	}
	s.hub.Broadcast(u.InspectionID, payload)

	if u.Event == nil || s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.events.InsertOscillatorEvent(ctx, domain.StoredOscillatorEvent{
		InspectionID: u.InspectionID,
		Event:        *u.Event,
		RecordedAt:   s.clock.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to persist oscillator event", "inspection_id", u.InspectionID, "error", err)
	}
}
