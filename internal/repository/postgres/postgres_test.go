package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kromedia/neo/internal/domain"
	"github.com/kromedia/neo/internal/repository"
)

type fakeRow struct {
	values []any
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = f.values[i].(string)
		case *[]byte:
			if f.values[i] != nil {
				*p = f.values[i].([]byte)
			}
		case *bool:
			*p = f.values[i].(bool)
		case *int64:
			*p = f.values[i].(int64)
		case *time.Time:
			*p = f.values[i].(time.Time)
		default:
			if ns, ok := d.(interface{ Scan(any) error }); ok {
				if err := ns.Scan(f.values[i]); err != nil {
					return err
				}
				continue
			}
			return errors.New("unsupported destination")
		}
	}
	return nil
}

func TestScanInspectionDecodesReport(t *testing.T) {
	raw, err := encodeReport(&domain.Report{Summary: "hostile", KeyStats: domain.KeyStats{LatencyMs: 42}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"insp-1", "kromedia.example", "op-1", domain.InspectionReady, "", raw, true, int64(2500), int64(12), created, created,
	}}

	inspection, err := scanInspection(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if inspection.Report == nil || inspection.Report.KeyStats.LatencyMs != 42 || inspection.Report.Summary != "hostile" {
		t.Fatalf("unexpected report %+v", inspection.Report)
	}
	if inspection.TickInterval != 2500*time.Millisecond || inspection.TickCount != 12 || inspection.OperatorID != "op-1" {
		t.Fatalf("unexpected inspection %+v", inspection)
	}
}

func TestScanInspectionWithoutReport(t *testing.T) {
	row := fakeRow{values: []any{
		"insp-2", "target", nil, domain.InspectionPending, "", nil, false, int64(0), int64(0), time.Time{}, time.Time{},
	}}
	inspection, err := scanInspection(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if inspection.Report != nil || inspection.OperatorID != "" {
		t.Fatalf("unexpected inspection %+v", inspection)
	}
}

func TestMapError(t *testing.T) {
	if !errors.Is(mapError(&pgconn.PgError{Code: "23503"}), repository.ErrNotFound) {
		t.Fatal("expected foreign key violation mapped to not found")
	}
	if !errors.Is(mapError(&pgconn.PgError{Code: "23505"}), repository.ErrInvalidArgument) {
		t.Fatal("expected unique violation mapped to invalid argument")
	}
	other := errors.New("boom")
	if mapError(other) != other || mapError(nil) != nil {
		t.Fatal("unexpected passthrough")
	}
}
