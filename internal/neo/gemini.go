package neo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kromedia/neo/internal/domain"
)

// DefaultModel is the model used for report generation.
const DefaultModel = "gemini-2.5-flash"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiFetcher generates reports with structured output from the Gemini API.
type GeminiFetcher struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	log     *slog.Logger
}

// NewGeminiFetcher builds a fetcher backed by the Gemini API.
func NewGeminiFetcher(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*GeminiFetcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrInvalidAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiFetcher(client.Models, model, timeout, logger), nil
}

func newGeminiFetcher(models contentGenerator, model string, timeout time.Duration, logger *slog.Logger) *GeminiFetcher {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiFetcher{models: models, model: model, timeout: timeout, log: logger.With("component", "gemini")}
}

// FetchReport asks the model for a report on target.
func (g *GeminiFetcher) FetchReport(ctx context.Context, target string) (*domain.Report, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, &FetchError{Target: target, Err: ErrEmptyTarget}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(target)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reportSchema,
	})
	if err != nil {
		g.log.Warn("report generation failed", "target", target, "error", err)
		return nil, &FetchError{Target: target, Err: classify(err)}
	}

	report, err := decodeReport(responseText(resp))
	if err != nil {
		g.log.Warn("report decoding failed", "target", target, "error", err)
		return nil, &FetchError{Target: target, Err: err}
	}
	g.log.Info("report generated", "target", target, "model", g.model, "duration_ms", time.Since(start).Milliseconds())
	return report, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func buildPrompt(target string) string {
	return fmt.Sprintf(`You are NEO, the analytical core of KR0M3D1A CORP.
Perform a simulated deep-system inspection of the target: %q.
Generate a comprehensive, fictional cybersecurity report for this target.
The tone is professional, technical and covert. Populate ALL fields of the provided JSON schema
with diverse, thematically consistent data: higher risk scores mean more critical vulnerabilities
and higher-risk threat actors. Include at least one firewall vulnerability, a mix of human, AI and
unknown-entity dossiers with varied statuses, and ISO-8601 timestamps for system events.`, target)
}
