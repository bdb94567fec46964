package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"github.com/papercomputeco/pitwall/pkg/artifact"
)

// ErrEmptySummary is returned when the model answers without a summary.
var ErrEmptySummary = errors.New("model returned an empty summary")

const summaryPrompt = `You are a Formula 1 performance analyst.

Write a short analysis (at most two paragraphs) of %s's performance at the
%d %s Grand Prix, based only on these chart captions:

%s
Respond with a JSON object with a single key "summary" holding the analysis
as plain text.`

// Summarizer writes the text summary that accompanies a set of charts.
type Summarizer struct {
	call   CallFunc
	logger *slog.Logger
}

// NewSummarizer creates a Summarizer that prompts through call.
func NewSummarizer(call CallFunc, opts ...Option) *Summarizer {
	o := applyOptions(opts)
	return &Summarizer{call: call, logger: o.logger}
}

// Summarize returns a summary of refs for the driver and race in p.
func (s *Summarizer) Summarize(ctx context.Context, p Params, refs []artifact.Ref) (string, error) {
	var captions strings.Builder
	for _, ref := range refs {
		fmt.Fprintf(&captions, "- %s: %s\n", ref.Kind, ref.Description)
	}

	out, err := s.call(ctx, fmt.Sprintf(summaryPrompt, p.Pilot, p.Year, p.Track, captions.String()))
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripFences(out)), &resp); err != nil {
		return "", fmt.Errorf("decoding summary: %w", err)
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return "", ErrEmptySummary
	}

	s.logger.Debug("summarized charts", "pilot", p.Pilot, "charts", len(refs))
	return summary, nil
}
