// Package telemetry fetches race, qualifying and lap timing data from an
// Ergast-compatible REST API (https://api.jolpi.ca/ergast/f1 by default).
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/papercomputeco/pitwall/pkg/logger"
)

const (
	// DefaultBaseURL is the public Jolpica mirror of the Ergast API.
	DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

	defaultTimeout = 20 * time.Second

	// maxPageSize is the largest page the upstream will serve.
	maxPageSize = 100

	breakerName = "telemetry-api"
)

// Client is a circuit-broken client for the upstream timing API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
	pageSize   int
	onState    func(name string, from, to gobreaker.State)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPageSize sets the page size used for paginated lap requests.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= maxPageSize {
			c.pageSize = n
		}
	}
}

// WithStateHook is called on every circuit breaker transition.
func WithStateHook(fn func(name string, from, to gobreaker.State)) Option {
	return func(c *Client) { c.onState = fn }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.Nop(),
		pageSize:   maxPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 404 means the session does not exist. The upstream is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("telemetry circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if c.onState != nil {
				c.onState(name, from, to)
			}
		},
	})

	return c
}

// Races returns the schedule of a season.
func (c *Client) Races(ctx context.Context, season int) ([]Race, error) {
	var resp mrResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/%d.json", season), nil, &resp); err != nil {
		return nil, err
	}

	races := make([]Race, 0, len(resp.MRData.RaceTable.Races))
	for _, r := range resp.MRData.RaceTable.Races {
		races = append(races, r.race())
	}
	return races, nil
}

// FindRace returns the race of season whose name, circuit, locality or
// country matches track.
func (c *Client) FindRace(ctx context.Context, season int, track string) (*Race, error) {
	races, err := c.Races(ctx, season)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, &SessionError{Season: season, Track: track, Session: "season", Err: ErrNoSession}
		}
		return nil, err
	}

	race, ok := MatchRace(races, track)
	if !ok {
		return nil, &SessionError{Season: season, Track: track, Session: "race", Reason: "no matching grand prix", Err: ErrNoSession}
	}
	return &race, nil
}

// Race loads the classification and lap timing of the race matching track.
func (c *Client) Race(ctx context.Context, season int, track string) (*RaceSession, error) {
	race, err := c.FindRace(ctx, season, track)
	if err != nil {
		return nil, err
	}

	var resp mrResponse
	path := fmt.Sprintf("/%d/%d/results.json", race.Season, race.Round)
	if err := c.getJSON(ctx, path, url.Values{"limit": {strconv.Itoa(maxPageSize)}}, &resp); err != nil {
		return nil, c.sessionErr(err, season, track, "race")
	}

	session := &RaceSession{Race: *race, Laps: make(map[string][]DriverLap)}
	byID := make(map[string]string)
	for _, wr := range raceOrEmpty(resp).Results {
		ref := wr.Driver.ref(wr.Number)
		byID[ref.ID] = ref.Code
		session.Results = append(session.Results, Result{
			Driver:   ref,
			Position: atoi(wr.Position),
			Grid:     atoi(wr.Grid),
			Laps:     atoi(wr.Laps),
			Status:   wr.Status,
		})
	}
	if len(session.Results) == 0 {
		return nil, &SessionError{Season: season, Track: track, Session: "race", Reason: "no results published", Err: ErrNoSession}
	}

	laps, err := c.laps(ctx, race.Season, race.Round)
	if err != nil {
		return nil, c.sessionErr(err, season, track, "race")
	}
	for _, lap := range laps {
		n := atoi(lap.Number)
		for _, t := range lap.Timings {
			code, ok := byID[t.DriverID]
			if !ok {
				continue
			}
			session.Laps[code] = append(session.Laps[code], DriverLap{
				Lap:      n,
				Position: atoi(t.Position),
				Time:     lapTimeOrZero(t.Time),
			})
		}
	}

	return session, nil
}

// Qualifying loads the qualifying classification of the race matching track.
func (c *Client) Qualifying(ctx context.Context, season int, track string) (*QualifyingSession, error) {
	race, err := c.FindRace(ctx, season, track)
	if err != nil {
		return nil, err
	}

	var resp mrResponse
	path := fmt.Sprintf("/%d/%d/qualifying.json", race.Season, race.Round)
	if err := c.getJSON(ctx, path, url.Values{"limit": {strconv.Itoa(maxPageSize)}}, &resp); err != nil {
		return nil, c.sessionErr(err, season, track, "qualifying")
	}

	session := &QualifyingSession{Race: *race}
	for _, wq := range raceOrEmpty(resp).QualifyingResults {
		session.Results = append(session.Results, QualifyingResult{
			Driver:   wq.Driver.ref(wq.Number),
			Position: atoi(wq.Position),
			Q1:       lapTimeOrZero(wq.Q1),
			Q2:       lapTimeOrZero(wq.Q2),
			Q3:       lapTimeOrZero(wq.Q3),
		})
	}
	if len(session.Results) == 0 {
		return nil, &SessionError{Season: season, Track: track, Session: "qualifying", Reason: "no results published", Err: ErrNoSession}
	}

	return session, nil
}

// laps pages through the lap timing of one round. A lap may be split across
// two pages, so timings are merged by lap number.
func (c *Client) laps(ctx context.Context, season, round int) ([]wireLap, error) {
	var (
		out    []wireLap
		index  = make(map[string]int)
		offset = 0
	)

	for {
		var resp mrResponse
		q := url.Values{
			"limit":  {strconv.Itoa(c.pageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		if err := c.getJSON(ctx, fmt.Sprintf("/%d/%d/laps.json", season, round), q, &resp); err != nil {
			return nil, err
		}

		for _, lap := range raceOrEmpty(resp).Laps {
			if i, ok := index[lap.Number]; ok {
				out[i].Timings = append(out[i].Timings, lap.Timings...)
				continue
			}
			index[lap.Number] = len(out)
			out = append(out, lap)
		}

		offset += c.pageSize
		if offset >= atoi(resp.MRData.Total) {
			return out, nil
		}
	}
}

func (c *Client) sessionErr(err error, season int, track, session string) error {
	if errors.Is(err, errNotFound) {
		return &SessionError{Season: season, Track: track, Session: session, Err: ErrNoSession}
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, u)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("telemetry API unavailable: %w", err)
		}
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("telemetry request", "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", errNotFound, u)
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

func raceOrEmpty(resp mrResponse) wireRace {
	if len(resp.MRData.RaceTable.Races) == 0 {
		return wireRace{}
	}
	return resp.MRData.RaceTable.Races[0]
}

// MatchRace picks the race whose locality, country, circuit or name matches
// track. Exact matches win over substring matches, and earlier rounds win
// ties.
func MatchRace(races []Race, track string) (Race, bool) {
	needle := strings.ToLower(strings.TrimSpace(track))
	if needle == "" {
		return Race{}, false
	}

	fields := func(r Race) []string {
		return []string{
			strings.ToLower(r.Locality),
			strings.ToLower(r.CircuitID),
			strings.ToLower(r.Country),
			strings.ToLower(r.CircuitName),
			strings.ToLower(strings.TrimSuffix(r.Name, " Grand Prix")),
			strings.ToLower(r.Name),
		}
	}

	for _, r := range races {
		for _, f := range fields(r) {
			if f == needle {
				return r, true
			}
		}
	}
	for _, r := range races {
		for _, f := range fields(r) {
			if f != "" && strings.Contains(f, needle) {
				return r, true
			}
		}
	}
	return Race{}, false
}
