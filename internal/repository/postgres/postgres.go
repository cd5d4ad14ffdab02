package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.InspectionRepository      = (*Repository)(nil)
	_ repository.OscillatorEventRepository = (*Repository)(nil)
)

const inspectionColumns = `id, target, operator_id, status, error, report, live, tick_interval_ms, tick_count, created_at, updated_at`

// CreateInspection inserts a pending inspection.
func (r *Repository) CreateInspection(ctx context.Context, inspection *domain.Inspection) error {
	report, err := encodeReport(inspection.Report)
	if err != nil {
		return err
	}
	const query = `INSERT INTO inspections (` + inspectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.pool.Exec(ctx, query,
		inspection.ID,
		inspection.Target,
		inspection.OperatorID,
		inspection.Status,
		inspection.Error,
		report,
		inspection.Live,
		inspection.TickInterval.Milliseconds(),
		inspection.TickCount,
		inspection.CreatedAt,
		inspection.UpdatedAt,
	)
	return mapError(err)
}

// GetInspection fetches an inspection by identifier.
func (r *Repository) GetInspection(ctx context.Context, id string) (*domain.Inspection, error) {
	const query = `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = $1`
	inspection, err := scanInspection(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, mapError(err)
	}
	return inspection, nil
}

// ListInspections returns inspections newest first.
func (r *Repository) ListInspections(ctx context.Context, limit, offset int) ([]domain.Inspection, error) {
	const query = `SELECT ` + inspectionColumns + ` FROM inspections
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inspections := make([]domain.Inspection, 0)
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		inspections = append(inspections, *inspection)
	}
	return inspections, rows.Err()
}

// SaveInspectionReport checkpoints the live session onto its inspection row.
func (r *Repository) SaveInspectionReport(ctx context.Context, checkpoint domain.InspectionCheckpoint) error {
	report, err := encodeReport(checkpoint.Report)
	if err != nil {
		return err
	}
	const query = `UPDATE inspections
		SET status = $2, error = '', report = $3, live = $4, tick_interval_ms = $5, tick_count = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		checkpoint.InspectionID,
		domain.InspectionReady,
		report,
		checkpoint.Live,
		checkpoint.TickInterval.Milliseconds(),
		checkpoint.TickCount,
		checkpoint.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkInspectionFailed records a fetch failure.
func (r *Repository) MarkInspectionFailed(ctx context.Context, id, message string) error {
	return r.setStatus(ctx, id, domain.InspectionFailed, message)
}

// MarkInspectionClosed records that the session was torn down.
func (r *Repository) MarkInspectionClosed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.InspectionClosed, "")
}

func (r *Repository) setStatus(ctx context.Context, id, status, message string) error {
	const query = `UPDATE inspections SET status = $2, error = $3, live = FALSE, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status, message)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// InsertOscillatorEvent appends an event to the inspection history.
func (r *Repository) InsertOscillatorEvent(ctx context.Context, event domain.StoredOscillatorEvent) error {
	const query = `INSERT INTO oscillator_events
		(id, inspection_id, source_space, intensity, fibonacci_step, threat_actor, trace_vector, label, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`
	e := event.Event
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		event.InspectionID,
		e.SourceSpace,
		e.Intensity,
		e.FibonacciSequenceStep,
		e.ThreatActor,
		e.TraceVector,
		e.Timestamp,
		event.RecordedAt,
	)
	return mapError(err)
}

// ListOscillatorEvents returns the most recent events of an inspection, newest first.
func (r *Repository) ListOscillatorEvents(ctx context.Context, inspectionID string, limit int) ([]domain.StoredOscillatorEvent, error) {
	const query = `SELECT id, inspection_id, source_space, intensity, fibonacci_step, threat_actor, trace_vector, label, recorded_at
		FROM oscillator_events WHERE inspection_id = $1
		ORDER BY recorded_at DESC, seq DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, inspectionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.StoredOscillatorEvent
	for rows.Next() {
		var stored domain.StoredOscillatorEvent
		e := &stored.Event
		if err := rows.Scan(&e.ID, &stored.InspectionID, &e.SourceSpace, &e.Intensity, &e.FibonacciSequenceStep,
			&e.ThreatActor, &e.TraceVector, &e.Timestamp, &stored.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, stored)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*domain.Inspection, error) {
	var (
		inspection domain.Inspection
		report     []byte
		operator   sql.NullString
		intervalMs int64
	)
	if err := row.Scan(
		&inspection.ID,
		&inspection.Target,
		&operator,
		&inspection.Status,
		&inspection.Error,
		&report,
		&inspection.Live,
		&intervalMs,
		&inspection.TickCount,
		&inspection.CreatedAt,
		&inspection.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inspection.OperatorID = operator.String
	inspection.TickInterval = time.Duration(intervalMs) * time.Millisecond
	if len(report) > 0 {
		var decoded domain.Report
		if err := json.Unmarshal(report, &decoded); err != nil {
			return nil, fmt.Errorf("decode report for inspection %s: %w", inspection.ID, err)
		}
		inspection.Report = &decoded
	}
	return &inspection, nil
}

func encodeReport(report *domain.Report) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return raw, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return repository.ErrNotFound
		case "23514", "22P02", "23505":
			return repository.ErrInvalidArgument
		}
	}
	return err
}
