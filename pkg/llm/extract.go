package llm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/papercomputeco/pitwall/pkg/logger"
	"github.com/papercomputeco/pitwall/pkg/utils"
)

// Params is the structured query pulled out of a user's question.
type Params struct {
	Pilot string `json:"pilot" validate:"required"`
	Year  int    `json:"year" validate:"gte=1950,lte=2100"`
	Track string `json:"track" validate:"required"`
}

// Option configures an Extractor or a Summarizer.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(opts []Option) options {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const extractPrompt = `You extract Formula 1 analysis requests from chat messages.

From the message below, identify:
- "pilot": the driver the user asks about, exactly as written (surname, first name or three-letter code)
- "year": the season as a four digit number
- "track": the circuit or Grand Prix name, without the words "Grand Prix"

Respond with a JSON object with exactly the keys "pilot", "year" and "track".
If any of the three is missing or the message is not about a driver's
performance at a race, respond with the JSON value null.

Message:
%s`

// Extractor turns free text into Params using a language model.
type Extractor struct {
	call     CallFunc
	validate *validator.Validate
	logger   *slog.Logger
}

// NewExtractor creates an Extractor that prompts through call.
func NewExtractor(call CallFunc, opts ...Option) *Extractor {
	o := applyOptions(opts)
	return &Extractor{
		call:     call,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   o.logger,
	}
}

// Extract returns the query in text, or nil when the model could not find a
// complete one. An error means the model could not be reached.
func (e *Extractor) Extract(ctx context.Context, text string) (*Params, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	out, err := e.call(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("extracting parameters: %w", err)
	}

	params, err := parseParams(out)
	if err != nil {
		e.logger.Debug("discarding extraction output", "output", utils.Truncate(out, 200), "error", err)
		return nil, nil
	}
	if params == nil {
		return nil, nil
	}

	if err := e.validate.Struct(params); err != nil {
		e.logger.Debug("extracted parameters failed validation", "params", params, "error", err)
		return nil, nil
	}
	return params, nil
}

// rawParams accepts the year as a JSON number or a numeric string.
type rawParams struct {
	Pilot *string     `json:"pilot"`
	Year  json.Number `json:"year"`
	Track *string     `json:"track"`
}

func parseParams(out string) (*Params, error) {
	data := bytes.TrimSpace([]byte(stripFences(out)))
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raw rawParams
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw.Pilot == nil || raw.Track == nil || raw.Year == "" {
		return nil, nil
	}

	year, err := strconv.Atoi(strings.TrimSpace(raw.Year.String()))
	if err != nil {
		return nil, fmt.Errorf("year %q: %w", raw.Year, err)
	}

	return &Params{
		Pilot: strings.TrimSpace(*raw.Pilot),
		Year:  year,
		Track: strings.TrimSpace(*raw.Track),
	}, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
