// Package session owns one live inspection: the held report snapshot, the
// oscillator event ring, the simulation clock and the integrity refresh timer.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/simulation"
)

// Default timing used when Options leaves a field zero.
const (
	DefaultInterval     = 2500 * time.Millisecond
	DefaultMinInterval  = time.Second
	DefaultMaxInterval  = 10 * time.Second
	DefaultRefreshDelay = 3 * time.Second
)

// Update is one outbound change: a new snapshot or a new oscillator event.
type Update struct {
	InspectionID string
	Seq          uint64
	Report       *domain.Report
	Event        *domain.OscillatorEvent
}

// Publisher receives updates in commit order.
type Publisher interface {
	Publish(Update)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Update)

// Publish calls f.
func (f PublisherFunc) Publish(u Update) { f(u) }

// Options configures a Session.
type Options struct {
	ID           string
	Clock        clock.Clock
	Rand         simulation.Source
	Publisher    Publisher
	Logger       *slog.Logger
	Interval     time.Duration
	MinInterval  time.Duration
	MaxInterval  time.Duration
	RefreshDelay time.Duration
	NewID        func() string
	OnTick       func(simulation.Result)
}

// State summarises the clock and bookkeeping of a session.
type State struct {
	Live     bool
	Interval time.Duration
	Fetching bool
	Running  bool
	Loaded   bool
	Ticks    int64
	Seq      uint64
}

// Session serializes every transition of one inspection behind a mutex.
// Snapshots handed out are immutable: each transition commits a new one.
type Session struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	id        string
	clock     clock.Clock
	rand      simulation.Source
	publisher Publisher
	log       *slog.Logger
	newID     func() string
	onTick    func(simulation.Result)

	report   *domain.Report
	events   []domain.OscillatorEvent
	live     bool
	fetching bool
	closed   bool
	interval time.Duration
	minIvl   time.Duration
	maxIvl   time.Duration
	refresh  time.Duration

	tickTimer    *clock.Timer
	tickGen      uint64
	refreshTimer *clock.Timer
	refreshGen   uint64

	seq   uint64
	ticks int64
}

// New constructs an idle session. Nothing ticks until a report is loaded.
func New(opts Options) *Session {
	s := &Session{
		id:        opts.ID,
		clock:     opts.Clock,
		rand:      opts.Rand,
		publisher: opts.Publisher,
		log:       opts.Logger,
		newID:     opts.NewID,
		onTick:    opts.OnTick,
		live:      true,
		minIvl:    opts.MinInterval,
		maxIvl:    opts.MaxInterval,
		refresh:   opts.RefreshDelay,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.rand == nil {
		s.rand = simulation.NewSource(time.Now().UnixNano())
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("inspection_id", s.id)
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.minIvl <= 0 {
		s.minIvl = DefaultMinInterval
	}
	if s.maxIvl < s.minIvl {
		s.maxIvl = max(DefaultMaxInterval, s.minIvl)
	}
	if s.refresh <= 0 {
		s.refresh = DefaultRefreshDelay
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.interval = s.clamp(interval)
	return s
}

// ID returns the inspection identifier.
func (s *Session) ID() string { return s.id }

// Load replaces the held report wholesale, clears the oscillator event ring,
// cancels any pending refresh, ends the fetch and turns live mode on.
func (s *Session) Load(report *domain.Report) {
	s.Restore(report, nil, true)
}

// Restore installs a report and event ring, for example from a checkpoint,
// with the given live mode. Any pending fetch is abandoned. A report that
// arrives mid-refresh gets a fresh completion timer.
func (s *Session) Restore(report *domain.Report, events []domain.OscillatorEvent, live bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cancelRefresh()
	s.report = report.Clone()
	if s.report != nil && s.report.MemoryIntegrity.Status == domain.IntegrityRefreshing {
		s.scheduleRefresh()
	}
	s.events = nil
	for i := len(events) - 1; i >= 0; i-- {
		s.events = simulation.PrependEvent(s.events, events[i])
	}
	s.fetching = false
	s.live = live
	s.arm()
	s.log.Info("report loaded", "interval", s.interval, "live", live, "events", len(s.events))
	s.commit([]Update{s.snapshotUpdate()})
}

// BeginFetch suspends the clock while a new report is in flight. It reports
// false when a fetch is already running.
func (s *Session) BeginFetch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.fetching {
		return false
	}
	s.fetching = true
	s.arm()
	return true
}

// SetLive toggles live mode. Turning it off reverts autonomous patchwork at once.
func (s *Session) SetLive(live bool) {
	s.mu.Lock()
	if s.closed || s.live == live {
		s.mu.Unlock()
		return
	}
	s.live = live
	s.arm()
	var updates []Update
	if !live && s.report != nil {
		if next := simulation.Settle(s.report); next != s.report {
			s.report = next
			updates = append(updates, s.snapshotUpdate())
		}
	}
	s.commit(updates)
	s.log.Info("live mode changed", "live", live)
}

// SetInterval changes the tick interval, clamped to the configured bounds,
// and restarts the clock. It returns the interval in effect.
func (s *Session) SetInterval(d time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d = s.clamp(d)
	if d != s.interval {
		s.interval = d
		s.arm()
	}
	return s.interval
}

// RequestIntegrityRefresh starts the delayed integrity refresh. It reports
// whether the request was accepted; requests while UNDER_ASSAULT or already
// REFRESHING are ignored.
func (s *Session) RequestIntegrityRefresh() bool {
	s.mu.Lock()
	if s.closed || s.report == nil || !simulation.CanRefresh(s.report.MemoryIntegrity.Status) {
		s.mu.Unlock()
		return false
	}
	s.report = simulation.BeginRefresh(s.report)
	s.scheduleRefresh()
	s.commit([]Update{s.snapshotUpdate()})
	return true
}

// Snapshot returns the current report and its sequence number. The report
// must be treated as read-only.
func (s *Session) Snapshot() (*domain.Report, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.seq
}

// Events returns the oscillator event ring, newest first.
func (s *Session) Events() []domain.OscillatorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OscillatorEvent, len(s.events))
	copy(out, s.events)
	return out
}

// State reports the clock state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Live:     s.live,
		Interval: s.interval,
		Fetching: s.fetching,
		Running:  s.tickTimer != nil,
		Loaded:   s.report != nil,
		Ticks:    s.ticks,
		Seq:      s.seq,
	}
}

// Close stops every timer. The last committed snapshot stays readable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTick()
	s.cancelRefresh()
}

func (s *Session) clamp(d time.Duration) time.Duration {
	return min(s.maxIvl, max(s.minIvl, d))
}

// arm tears down the tick timer and, when the session may run, starts a new
// one. Callers hold s.mu.
func (s *Session) arm() {
	s.stopTick()
	if s.closed || s.report == nil || s.fetching || !s.live {
		return
	}
	gen := s.tickGen
	s.tickTimer = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
}

func (s *Session) stopTick() {
	s.tickGen++
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
}

// scheduleRefresh replaces any pending completion with one due after the
// refresh delay. Callers hold s.mu.
func (s *Session) scheduleRefresh() {
	s.cancelRefresh()
	gen := s.refreshGen
	s.refreshTimer = s.clock.AfterFunc(s.refresh, func() { s.completeRefresh(gen) })
}

func (s *Session) cancelRefresh() {
	s.refreshGen++
	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
		s.refreshTimer = nil
	}
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.tickGen {
		s.mu.Unlock()
		return
	}
	s.tickTimer = nil

	res := simulation.Step(s.report, simulation.Env{
		Rand:  s.rand,
		Now:   s.clock.Now,
		NewID: s.newID,
		Live:  true,
	})
	s.report = res.Report
	s.ticks++

	updates := []Update{s.snapshotUpdate()}
	if res.Event != nil {
		s.events = simulation.PrependEvent(s.events, *res.Event)
		s.seq++
		ev := *res.Event
		updates = append(updates, Update{InspectionID: s.id, Seq: s.seq, Event: &ev})
	}
	s.arm()
	s.commit(updates)

	if s.onTick != nil {
		s.onTick(res)
	}
}

func (s *Session) completeRefresh(gen uint64) {
	s.mu.Lock()
	if gen != s.refreshGen || s.report == nil {
		s.mu.Unlock()
		return
	}
	s.refreshTimer = nil
	s.report = simulation.CompleteRefresh(s.report)
	s.commit([]Update{s.snapshotUpdate()})
	s.log.Info("integrity refresh completed")
}

// snapshotUpdate bumps the sequence for the current report. Callers hold s.mu.
func (s *Session) snapshotUpdate() Update {
	s.seq++
	return Update{InspectionID: s.id, Seq: s.seq, Report: s.report}
}

// commit releases s.mu and publishes updates in order without holding the
// state lock. Callers hold s.mu.
func (s *Session) commit(updates []Update) {
	if s.publisher == nil || len(updates) == 0 {
		s.mu.Unlock()
		return
	}
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()
	for _, u := range updates {
		s.publisher.Publish(u)
	}
}
