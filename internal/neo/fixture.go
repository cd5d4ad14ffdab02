package neo

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/kromedia/neo/internal/domain"
)

//go:embed fixtures/report.json
var defaultFixture []byte

// FixtureFetcher serves a canned report, for offline runs and tests.
type FixtureFetcher struct {
	raw []byte
}

// NewFixtureFetcher loads the report at path, or the built-in report when path is empty.
func NewFixtureFetcher(path string) (*FixtureFetcher, error) {
	if path == "" {
		return &FixtureFetcher{raw: defaultFixture}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report fixture: %w", err)
	}
	if _, err := decodeReport(string(raw)); err != nil {
		return nil, fmt.Errorf("load report fixture %s: %w", path, err)
	}
	return &FixtureFetcher{raw: raw}, nil
}

// FetchReport decodes a fresh copy of the fixture and stamps the target on it.
func (f *FixtureFetcher) FetchReport(ctx context.Context, target string) (*domain.Report, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &FetchError{Target: target, Err: ErrEmptyTarget}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Target: target, Err: err}
	}
	report, err := decodeReport(string(f.raw))
	if err != nil {
		return nil, &FetchError{Target: target, Err: err}
	}
	if report.SystemInfo.Hostname == "" {
		report.SystemInfo.Hostname = target
	}
	return report, nil
}
