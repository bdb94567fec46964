package render

import (
	"context"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/papercomputeco/pitwall/pkg/telemetry"
)

const (
	// quickLapFactor drops in and out laps, safety car laps and other
	// outliers slower than 107% of the session's fastest lap.
	quickLapFactor = 1.07

	// minTrendLaps is the number of laps required before a trend line is fitted.
	minTrendLaps = 20

	// pointFinishers is the number of classified drivers shown in the
	// distribution chart besides the subject.
	pointFinishers = 10
)

var (
	highlight = color.RGBA{R: 0xe1, G: 0x06, B: 0x00, A: 0xff}
	field     = color.RGBA{R: 0x9a, G: 0x9a, B: 0xa8, A: 0xff}
	trend     = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

func (r *Renderer) positionsChanges(ctx context.Context, spec Spec) (*plot.Plot, string, error) {
	session, err := r.source.Race(ctx, spec.Season, spec.GP)
	if err != nil {
		return nil, "", err
	}
	spec = matchDriver(spec, session.Drivers())

	own := session.Laps[spec.DriverCode]
	if len(own) == 0 {
		return nil, "", noData(spec, "race", spec.DriverCode+" has no timed laps")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s position changes in the %d %s Grand Prix", spec.DriverCode, spec.Season, spec.GP)
	p.X.Label.Text = "Lap"
	p.Y.Label.Text = "Position"

	maxPos := max(20, len(session.Results))
	for _, res := range session.Results {
		code := res.Driver.Code
		laps := session.Laps[code]
		if len(laps) == 0 || code == spec.DriverCode {
			continue
		}
		line, err := plotter.NewLine(positionXYs(laps))
		if err != nil {
			return nil, "", fmt.Errorf("plotting %s positions: %w", code, err)
		}
		line.Color = field
		line.Width = vg.Points(1)
		p.Add(line)
	}

	// The subject is drawn last so it sits on top of the field.
	line, err := plotter.NewLine(positionXYs(own))
	if err != nil {
		return nil, "", fmt.Errorf("plotting %s positions: %w", spec.DriverCode, err)
	}
	line.Color = highlight
	line.Width = vg.Points(2.5)
	p.Add(line)
	p.Legend.Add(spec.DriverCode, line)
	p.Legend.Top = true

	p.Y.Min, p.Y.Max = 0.5, float64(maxPos)+0.5
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Y.Tick.Marker = positionTicks(maxPos)

	description := fmt.Sprintf("%s driver started in position %d and finished in position %d",
		spec.DriverCode, own[0].Position, own[len(own)-1].Position)

	return p, description, nil
}

func (r *Renderer) lapTimes(ctx context.Context, spec Spec) (*plot.Plot, string, error) {
	session, err := r.source.Race(ctx, spec.Season, spec.GP)
	if err != nil {
		return nil, "", err
	}
	spec = matchDriver(spec, session.Drivers())

	laps := quickLaps(session, spec.DriverCode)
	if len(laps) == 0 {
		return nil, "", noData(spec, "race", spec.DriverCode+" has no representative laps")
	}

	xys := make(plotter.XYs, len(laps))
	for i, l := range laps {
		xys[i] = plotter.XY{X: float64(l.Lap), Y: l.Time.Seconds()}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Laptimes in the %d %s Grand Prix", spec.DriverCode, spec.Season, spec.GP)
	p.X.Label.Text = "Lap Number"
	p.Y.Label.Text = "Lap Time (s)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, "", fmt.Errorf("plotting lap times: %w", err)
	}
	scatter.GlyphStyle.Color = highlight
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(plotter.NewGrid(), scatter)

	if len(xys) > minTrendLaps {
		xs := make([]float64, len(xys))
		ys := make([]float64, len(xys))
		for i, xy := range xys {
			xs[i], ys[i] = xy.X, xy.Y
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)

		first, last := xs[0], xs[len(xs)-1]
		line, err := plotter.NewLine(plotter.XYs{
			{X: first, Y: alpha + beta*first},
			{X: last, Y: alpha + beta*last},
		})
		if err != nil {
			return nil, "", fmt.Errorf("plotting trend: %w", err)
		}
		line.Color = trend
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("trend", line)
	}

	description := fmt.Sprintf("%s driver lap times in the %d %s Grand Prix", spec.DriverCode, spec.Season, spec.GP)
	return p, description, nil
}

func (r *Renderer) lapTimesDistribution(ctx context.Context, spec Spec) (*plot.Plot, string, error) {
	session, err := r.source.Race(ctx, spec.Season, spec.GP)
	if err != nil {
		return nil, "", err
	}
	spec = matchDriver(spec, session.Drivers())

	if _, ok := session.Result(spec.DriverCode); !ok {
		return nil, "", noData(spec, "race", spec.DriverCode+" is not classified")
	}

	var codes []string
	for i, res := range session.Results {
		if i >= pointFinishers {
			break
		}
		codes = append(codes, res.Driver.Code)
	}
	if !contains(codes, spec.DriverCode) {
		codes = append(codes, spec.DriverCode)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d %s Grand Prix Lap Time Distributions", spec.Season, spec.GP)
	p.X.Label.Text = "Driver"
	p.Y.Label.Text = "Lap Time (s)"

	var (
		names []string
		drawn int
	)
	for _, code := range codes {
		laps := quickLaps(session, code)
		if len(laps) == 0 {
			continue
		}

		values := make(plotter.Values, len(laps))
		for i, l := range laps {
			values[i] = l.Time.Seconds()
		}

		box, err := plotter.NewBoxPlot(vg.Points(18), float64(drawn), values)
		if err != nil {
			return nil, "", fmt.Errorf("plotting %s distribution: %w", code, err)
		}
		if code == spec.DriverCode {
			box.FillColor = highlight
		}
		p.Add(box)
		names = append(names, code)
		drawn++
	}
	if !contains(names, spec.DriverCode) {
		return nil, "", noData(spec, "race", spec.DriverCode+" has no representative laps")
	}
	p.NominalX(names...)

	description := fmt.Sprintf("%s driver lap time distribution in the %d %s Grand Prix", spec.DriverCode, spec.Season, spec.GP)
	return p, description, nil
}

func (r *Renderer) qualifyingResults(ctx context.Context, spec Spec) (*plot.Plot, string, error) {
	session, err := r.source.Qualifying(ctx, spec.Season, spec.GP)
	if err != nil {
		return nil, "", err
	}
	spec = matchDriver(spec, session.Drivers())

	type entry struct {
		code string
		best time.Duration
	}
	var entries []entry
	for _, q := range session.Results {
		if best := q.Best(); best > 0 {
			entries = append(entries, entry{code: q.Driver.Code, best: best})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].best < entries[j].best })

	subject := -1
	for i, e := range entries {
		if e.code == spec.DriverCode {
			subject = i
		}
	}
	if subject < 0 {
		return nil, "", noData(spec, "qualifying", spec.DriverCode+" set no qualifying time")
	}

	pole := entries[0]
	others := make(plotter.Values, len(entries))
	own := make(plotter.Values, len(entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		delta := (e.best - pole.best).Seconds()
		if i == subject {
			own[i] = delta
		} else {
			others[i] = delta
		}
		names[i] = e.code
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %d Qualifying\nFastest Lap: %s (%s)",
		session.Race.Name, session.Race.Season, formatLapTime(pole.best), pole.code)
	p.X.Label.Text = "Gap to pole (s)"

	for _, set := range []struct {
		values plotter.Values
		color  color.Color
	}{
		{values: others, color: field},
		{values: own, color: highlight},
	} {
		bars, err := plotter.NewBarChart(set.values, vg.Points(10))
		if err != nil {
			return nil, "", fmt.Errorf("plotting qualifying gaps: %w", err)
		}
		bars.Horizontal = true
		bars.Color = set.color
		bars.LineStyle.Width = 0
		p.Add(bars)
	}

	p.NominalY(names...)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	description := fmt.Sprintf("%s driver qualy results in the %d %s Grand Prix.", spec.DriverCode, spec.Season, spec.GP)
	return p, description, nil
}

// quickLaps returns code's laps no slower than quickLapFactor times the
// fastest lap of the whole session.
// matchDriver returns spec with the code the session knows the subject by.
// Sessions key laps and results by code; when the code is missing the
// permanent number is tried instead.
func matchDriver(spec Spec, refs []telemetry.DriverRef) Spec {
	for _, d := range refs {
		if strings.EqualFold(d.Code, spec.DriverCode) {
			return spec
		}
	}
	if spec.DriverNumber <= 0 {
		return spec
	}
	for _, d := range refs {
		if d.Number == spec.DriverNumber && d.Code != "" {
			spec.DriverCode = strings.ToUpper(d.Code)
			return spec
		}
	}
	return spec
}

func quickLaps(session *telemetry.RaceSession, code string) []telemetry.DriverLap {
	var fastest time.Duration
	for _, laps := range session.Laps {
		for _, l := range laps {
			if l.Time > 0 && (fastest == 0 || l.Time < fastest) {
				fastest = l.Time
			}
		}
	}
	if fastest == 0 {
		return nil
	}

	limit := time.Duration(float64(fastest) * quickLapFactor)
	var out []telemetry.DriverLap
	for _, l := range session.Laps[code] {
		if l.Time > 0 && l.Time <= limit {
			out = append(out, l)
		}
	}
	return out
}

func positionXYs(laps []telemetry.DriverLap) plotter.XYs {
	xys := make(plotter.XYs, len(laps))
	for i, l := range laps {
		xys[i] = plotter.XY{X: float64(l.Lap), Y: float64(l.Position)}
	}
	return xys
}

func positionTicks(maxPos int) plot.ConstantTicks {
	ticks := plot.ConstantTicks{{Value: 1, Label: "1"}}
	for pos := 5; pos <= maxPos; pos += 5 {
		ticks = append(ticks, plot.Tick{Value: float64(pos), Label: strconv.Itoa(pos)})
	}
	return ticks
}

// formatLapTime renders d as m:ss.mmm.
func formatLapTime(d time.Duration) string {
	d = d.Round(time.Millisecond)
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, d/time.Millisecond)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
