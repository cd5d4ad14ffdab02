package neo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kromedia/neo/internal/domain"
)

// Fetcher produces a full report for a target.
type Fetcher interface {
	FetchReport(ctx context.Context, target string) (*domain.Report, error)
}

// decodeReport parses a model answer, tolerating a fenced code block around it.
func decodeReport(raw string) (*domain.Report, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedReport)
	}
	var report domain.Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	return &report, nil
}
