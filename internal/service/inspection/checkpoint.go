package inspection

import (
	"context"
	"errors"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/repository"
)

// Run checkpoints dirty sessions periodically. It blocks until ctx is
// cancelled, then flushes every session one last time.
func (s *Service) Run(ctx context.Context) {
	s.runOnce.Do(func() {
		s.logger.Info("checkpoint loop started", "every", s.cfg.CheckpointEvery)
	})
	ticker := s.clock.Ticker(s.cfg.CheckpointEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.checkpointAll(context.Background())
			s.logger.Info("checkpoint loop stopped")
			return
		case <-ticker.C:
			s.checkpointAll(ctx)
		}
	}
}

func (s *Service) checkpointAll(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		s.checkpoint(ctx, id)
	}
}

// checkpoint persists the session snapshot when it changed since the last save.
func (s *Service) checkpoint(ctx context.Context, id string) {
	e, ok := s.lookup(id)
	if !ok {
		return
	}
	report, seq := e.session.Snapshot()
	if report == nil {
		return
	}
	s.mu.RLock()
	saved := e.savedSeq
	s.mu.RUnlock()
	if seq == saved {
		return
	}
	state := e.session.State()
	err := s.repo.SaveInspectionReport(ctx, domain.InspectionCheckpoint{
		InspectionID: id,
		Report:       report,
		Live:         state.Live,
		TickInterval: state.Interval,
		TickCount:    state.Ticks,
		UpdatedAt:    s.clock.Now().UTC(),
	})
	if err != nil {
		level := s.logger.Warn
		if errors.Is(err, repository.ErrNotFound) {
			level = s.logger.Error
		}
		level("checkpoint failed", "inspection_id", id, "error", err)
		return
	}
	s.mu.Lock()
	if seq > e.savedSeq {
		e.savedSeq = seq
	}
	s.mu.Unlock()
}
