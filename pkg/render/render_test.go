package render_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/render"
	"github.com/papercomputeco/pitwall/pkg/telemetry"
)

// fakeSource serves one synthetic Imola 2025 weekend.
type fakeSource struct {
	raceCalls  int
	qualyCalls int
	err        error
}

func (f *fakeSource) Race(_ context.Context, season int, track string) (*telemetry.RaceSession, error) {
	f.raceCalls++
	if f.err != nil {
		return nil, f.err
	}

	drivers := []string{"VER", "NOR", "PIA", "HAM", "LEC", "RUS", "SAI", "ALB", "GAS", "TSU", "ALO", "COL"}
	session := &telemetry.RaceSession{
		Race: telemetry.Race{Season: season, Round: 7, Name: "Emilia Romagna Grand Prix", Locality: track},
		Laps: make(map[string][]telemetry.DriverLap),
	}
	for i, code := range drivers {
		session.Results = append(session.Results, telemetry.Result{
			Driver:   telemetry.DriverRef{Code: code, Number: i + 1},
			Position: i + 1,
			Grid:     len(drivers) - i,
		})
		for lap := 1; lap <= 30; lap++ {
			t := 80*time.Second + time.Duration(i*100+lap*10)*time.Millisecond
			if lap == 1 {
				// Standing start, filtered out as a slow lap.
				t = 2 * time.Minute
			}
			session.Laps[code] = append(session.Laps[code], telemetry.DriverLap{
				Lap:      lap,
				Position: positionOf(code, lap, i),
				Time:     t,
			})
		}
	}
	return session, nil
}

func positionOf(code string, lap, finish int) int {
	if code == "COL" {
		if lap == 1 {
			return 15
		}
		return 12
	}
	return finish + 1
}

func (f *fakeSource) Qualifying(_ context.Context, season int, _ string) (*telemetry.QualifyingSession, error) {
	f.qualyCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &telemetry.QualifyingSession{
		Race: telemetry.Race{Season: season, Name: "Emilia Romagna Grand Prix"},
		Results: []telemetry.QualifyingResult{
			{Driver: telemetry.DriverRef{Code: "PIA"}, Position: 1, Q1: 75049 * time.Millisecond, Q3: 74670 * time.Millisecond},
			{Driver: telemetry.DriverRef{Code: "VER"}, Position: 2, Q1: 75100 * time.Millisecond, Q3: 74704 * time.Millisecond},
			{Driver: telemetry.DriverRef{Code: "COL"}, Position: 16, Q1: 75670 * time.Millisecond},
			{Driver: telemetry.DriverRef{Code: "STR"}, Position: 20},
		},
	}, nil
}

var _ = Describe("Renderer", func() {
	var (
		source   *fakeSource
		mediaDir string
		renderer *render.Renderer
		ctx      context.Context
	)

	BeforeEach(func() {
		source = &fakeSource{}
		mediaDir = filepath.Join(GinkgoT().TempDir(), "media")
		renderer = render.New(source, mediaDir)
		ctx = context.Background()
	})

	spec := func(kind artifact.Kind, driver string) render.Spec {
		return render.Spec{Kind: kind, Season: 2025, GP: "Imola", DriverCode: driver, DriverNumber: 43}
	}

	DescribeTable("renders each kind to its deterministic path",
		func(kind artifact.Kind, description string) {
			out, err := renderer.Render(ctx, spec(kind, "COL"))
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Description).To(Equal(description))
			Expect(out.FilePath).To(Equal(artifact.FilePath(mediaDir, kind, "COL", "Imola", 2025)))
			Expect(filepath.Base(out.FilePath)).To(HavePrefix(fmt.Sprintf("%s_COL_Imola_2025_", kind)))

			data, err := os.ReadFile(out.FilePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(data[:8]).To(Equal([]byte("\x89PNG\r\n\x1a\n")))
		},
		Entry("positions", artifact.RacePositionsChanges, "COL driver started in position 15 and finished in position 12"),
		Entry("lap times", artifact.RaceLapsTimes, "COL driver lap times in the 2025 Imola Grand Prix"),
		Entry("distribution", artifact.RaceLaptimesDistribution, "COL driver lap time distribution in the 2025 Imola Grand Prix"),
		Entry("qualifying", artifact.QualyResults, "COL driver qualy results in the 2025 Imola Grand Prix."),
	)

	It("normalizes the driver code", func() {
		out, err := renderer.Render(ctx, spec(artifact.QualyResults, "col"))
		Expect(err).NotTo(HaveOccurred())
		Expect(out.FilePath).To(Equal(renderer.Path(spec(artifact.QualyResults, "COL"))))
	})

	It("finds a driver by number when the session does not list the code", func() {
		s := render.Spec{Kind: artifact.RaceLapsTimes, Season: 2025, GP: "Imola", DriverCode: "FRA", DriverNumber: 12}

		out, err := renderer.Render(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Description).To(Equal("COL driver lap times in the 2025 Imola Grand Prix"))
		Expect(out.FilePath).To(Equal(renderer.Path(s)))
	})

	It("reports no data when neither code nor number match", func() {
		s := render.Spec{Kind: artifact.RaceLapsTimes, Season: 2025, GP: "Imola", DriverCode: "FRA", DriverNumber: 99}

		_, err := renderer.Render(ctx, s)
		Expect(err).To(MatchError(render.ErrNoData))
	})

	It("overwrites the same file on a second render without leaving temp files", func() {
		first, err := renderer.Render(ctx, spec(artifact.QualyResults, "COL"))
		Expect(err).NotTo(HaveOccurred())
		second, err := renderer.Render(ctx, spec(artifact.QualyResults, "COL"))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))

		entries, err := os.ReadDir(mediaDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("gives distinct subjects distinct paths", func() {
		a := renderer.Path(spec(artifact.QualyResults, "COL"))
		b := renderer.Path(render.Spec{Kind: artifact.QualyResults, Season: 2024, GP: "Imola", DriverCode: "COL"})
		c := renderer.Path(render.Spec{Kind: artifact.QualyResults, Season: 2025, GP: "Monaco", DriverCode: "COL"})
		d := renderer.Path(spec(artifact.RaceLapsTimes, "COL"))
		Expect([]string{a, b, c, d}).To(HaveLen(4))
		Expect(a).NotTo(Equal(b))
		Expect(a).NotTo(Equal(c))
		Expect(a).NotTo(Equal(d))
	})

	It("reports a driver missing from the session as no data", func() {
		_, err := renderer.Render(ctx, spec(artifact.QualyResults, "HUL"))
		Expect(errors.Is(err, render.ErrNoData)).To(BeTrue())

		_, err = renderer.Render(ctx, spec(artifact.RaceLapsTimes, "HUL"))
		Expect(errors.Is(err, render.ErrNoData)).To(BeTrue())

		_, err = os.Stat(mediaDir)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("passes upstream session errors through", func() {
		source.err = &telemetry.SessionError{Season: 2030, Track: "Imola", Session: "race", Err: telemetry.ErrNoSession}

		_, err := renderer.Render(ctx, spec(artifact.RacePositionsChanges, "COL"))
		Expect(errors.Is(err, render.ErrNoSession)).To(BeTrue())
	})

	It("rejects unknown kinds before fetching data", func() {
		_, err := renderer.Render(ctx, spec(artifact.Kind("tyre_strategy"), "COL"))
		Expect(err).To(MatchError(ContainSubstring("unknown artifact kind")))
		Expect(source.raceCalls + source.qualyCalls).To(Equal(0))
	})
})
