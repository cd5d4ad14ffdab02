package repository

import (
	"context"

	"github.com/kromedia/neo/internal/domain"
)

// InspectionRepository persists inspections and their session checkpoints.
type InspectionRepository interface {
	CreateInspection(ctx context.Context, inspection *domain.Inspection) error
	GetInspection(ctx context.Context, id string) (*domain.Inspection, error)
	ListInspections(ctx context.Context, limit, offset int) ([]domain.Inspection, error)
	SaveInspectionReport(ctx context.Context, checkpoint domain.InspectionCheckpoint) error
	MarkInspectionFailed(ctx context.Context, id, message string) error
	MarkInspectionClosed(ctx context.Context, id string) error
}

// OscillatorEventRepository keeps oscillator history beyond the in-memory ring.
type OscillatorEventRepository interface {
	InsertOscillatorEvent(ctx context.Context, event domain.StoredOscillatorEvent) error
	ListOscillatorEvents(ctx context.Context, inspectionID string, limit int) ([]domain.StoredOscillatorEvent, error)
}
