package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Race is one round of a championship season.
type Race struct {
	Season      int
	Round       int
	Name        string
	CircuitID   string
	CircuitName string
	Locality    string
	Country     string
	Date        string
}

// DriverRef identifies a driver inside a session.
type DriverRef struct {
	ID     string
	Code   string
	Number int
	Name   string
}

// Result is one classified race finisher.
type Result struct {
	Driver   DriverRef
	Position int
	Grid     int
	Laps     int
	Status   string
}

// QualifyingResult is one driver's qualifying classification.
type QualifyingResult struct {
	Driver   DriverRef
	Position int
	Q1       time.Duration
	Q2       time.Duration
	Q3       time.Duration
}

// Best returns the fastest of the driver's segment times, or zero when the
// driver set no time.
func (q QualifyingResult) Best() time.Duration {
	var best time.Duration
	for _, t := range []time.Duration{q.Q1, q.Q2, q.Q3} {
		if t > 0 && (best == 0 || t < best) {
			best = t
		}
	}
	return best
}

// DriverLap is one timed lap of a single driver.
type DriverLap struct {
	Lap      int
	Position int
	Time     time.Duration
}

// RaceSession holds a race's classification and its lap-by-lap timing keyed
// by driver code.
type RaceSession struct {
	Race    Race
	Results []Result
	Laps    map[string][]DriverLap
}

// Result returns the classification of the driver with the given code.
func (s *RaceSession) Result(code string) (Result, bool) {
	for _, r := range s.Results {
		if strings.EqualFold(r.Driver.Code, code) {
			return r, true
		}
	}
	return Result{}, false
}

// Drivers returns every classified driver.
func (s *RaceSession) Drivers() []DriverRef {
	refs := make([]DriverRef, 0, len(s.Results))
	for _, r := range s.Results {
		refs = append(refs, r.Driver)
	}
	return refs
}

// QualifyingSession holds a qualifying classification.
type QualifyingSession struct {
	Race    Race
	Results []QualifyingResult
}

// Drivers returns every driver in the classification.
func (s *QualifyingSession) Drivers() []DriverRef {
	refs := make([]DriverRef, 0, len(s.Results))
	for _, r := range s.Results {
		refs = append(refs, r.Driver)
	}
	return refs
}

// Ergast wire format. Every number is transported as a string.

type mrResponse struct {
	MRData struct {
		Limit     string    `json:"limit"`
		Offset    string    `json:"offset"`
		Total     string    `json:"total"`
		RaceTable raceTable `json:"RaceTable"`
	} `json:"MRData"`
}

type raceTable struct {
	Season string     `json:"season"`
	Races  []wireRace `json:"Races"`
}

type wireRace struct {
	Season   string `json:"season"`
	Round    string `json:"round"`
	RaceName string `json:"raceName"`
	Date     string `json:"date"`
	Circuit  struct {
		CircuitID   string `json:"circuitId"`
		CircuitName string `json:"circuitName"`
		Location    struct {
			Locality string `json:"locality"`
			Country  string `json:"country"`
		} `json:"Location"`
	} `json:"Circuit"`
	Results           []wireResult     `json:"Results"`
	QualifyingResults []wireQualifying `json:"QualifyingResults"`
	Laps              []wireLap        `json:"Laps"`
}

type wireDriver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber"`
	Code            string `json:"code"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
}

type wireResult struct {
	Number   string     `json:"number"`
	Position string     `json:"position"`
	Grid     string     `json:"grid"`
	Laps     string     `json:"laps"`
	Status   string     `json:"status"`
	Driver   wireDriver `json:"Driver"`
}

type wireQualifying struct {
	Number   string     `json:"number"`
	Position string     `json:"position"`
	Driver   wireDriver `json:"Driver"`
	Q1       string     `json:"Q1"`
	Q2       string     `json:"Q2"`
	Q3       string     `json:"Q3"`
}

type wireLap struct {
	Number  string       `json:"number"`
	Timings []wireTiming `json:"Timings"`
}

type wireTiming struct {
	DriverID string `json:"driverId"`
	Position string `json:"position"`
	Time     string `json:"time"`
}

func (w wireRace) race() Race {
	return Race{
		Season:      atoi(w.Season),
		Round:       atoi(w.Round),
		Name:        w.RaceName,
		CircuitID:   w.Circuit.CircuitID,
		CircuitName: w.Circuit.CircuitName,
		Locality:    w.Circuit.Location.Locality,
		Country:     w.Circuit.Location.Country,
		Date:        w.Date,
	}
}

func (w wireDriver) ref(number string) DriverRef {
	n := atoi(number)
	if n == 0 {
		n = atoi(w.PermanentNumber)
	}
	return DriverRef{
		ID:     w.DriverID,
		Code:   w.Code,
		Number: n,
		Name:   strings.TrimSpace(w.GivenName + " " + w.FamilyName),
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseLapTime parses Ergast lap times such as "1:22.113" or "59.870".
func ParseLapTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty lap time")
	}

	var minutes int
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		m, err := strconv.Atoi(s[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid lap time %q: %w", s, err)
		}
		minutes = m
		s = s[idx+1:]
	}

	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid lap time %q: %w", s, err)
	}

	return time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second)).Round(time.Millisecond), nil
}

func lapTimeOrZero(s string) time.Duration {
	d, err := ParseLapTime(s)
	if err != nil {
		return 0
	}
	return d
}
