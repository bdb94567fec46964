package llm_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/llm"
)

func answer(out string) llm.CallFunc {
	return func(context.Context, string) (string, error) {
		return out, nil
	}
}

var _ = Describe("Extractor", func() {
	ctx := context.Background()

	It("extracts the three parameters", func() {
		var prompt string
		call := func(_ context.Context, p string) (string, error) {
			prompt = p
			return `{"pilot": "Colapinto", "year": 2025, "track": "Imola"}`, nil
		}

		params, err := llm.NewExtractor(call).Extract(ctx, "Cómo le fue a Colapinto en Imola 2025")
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(Equal(&llm.Params{Pilot: "Colapinto", Year: 2025, Track: "Imola"}))
		Expect(prompt).To(ContainSubstring("Colapinto en Imola 2025"))
	})

	DescribeTable("tolerated output shapes",
		func(out string, expected *llm.Params) {
			params, err := llm.NewExtractor(answer(out)).Extract(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(Equal(expected))
		},
		Entry("year as a string", `{"pilot":"franco","year":"2024","track":"Monaco"}`,
			&llm.Params{Pilot: "franco", Year: 2024, Track: "Monaco"}),
		Entry("fenced JSON", "```json\n{\"pilot\":\"COL\",\"year\":2025,\"track\":\"Imola\"}\n```",
			&llm.Params{Pilot: "COL", Year: 2025, Track: "Imola"}),
		Entry("padded values", `{"pilot":" COL ","year":2025,"track":" Imola "}`,
			&llm.Params{Pilot: "COL", Year: 2025, Track: "Imola"}),
	)

	DescribeTable("could not parse",
		func(out string) {
			params, err := llm.NewExtractor(answer(out)).Extract(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(params).To(BeNil())
		},
		Entry("null", `null`),
		Entry("empty", ``),
		Entry("prose", `I could not find a driver in that message.`),
		Entry("missing track", `{"pilot":"COL","year":2025}`),
		Entry("null pilot", `{"pilot":null,"year":2025,"track":"Imola"}`),
		Entry("empty pilot", `{"pilot":"","year":2025,"track":"Imola"}`),
		Entry("year too early", `{"pilot":"COL","year":1900,"track":"Imola"}`),
		Entry("year not a number", `{"pilot":"COL","year":"last","track":"Imola"}`),
	)

	It("does not call the model for blank text", func() {
		called := false
		call := func(context.Context, string) (string, error) {
			called = true
			return "", nil
		}

		params, err := llm.NewExtractor(call).Extract(ctx, "   ")
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(BeNil())
		Expect(called).To(BeFalse())
	})

	It("returns transport errors", func() {
		boom := errors.New("connection refused")
		call := func(context.Context, string) (string, error) { return "", boom }

		_, err := llm.NewExtractor(call).Extract(ctx, "question")
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("Summarizer", func() {
	ctx := context.Background()
	params := llm.Params{Pilot: "Colapinto", Year: 2025, Track: "Imola"}
	refs := []artifact.Ref{
		{Kind: artifact.QualyResults, Description: "COL driver qualy results in the 2025 Imola Grand Prix."},
	}

	It("prompts with every caption and returns the summary", func() {
		var prompt string
		call := func(_ context.Context, p string) (string, error) {
			prompt = p
			return `{"summary":"  Solid weekend.  "}`, nil
		}

		summary, err := llm.NewSummarizer(call).Summarize(ctx, params, refs)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(Equal("Solid weekend."))
		Expect(prompt).To(ContainSubstring("qualy_results: COL driver qualy results"))
		Expect(prompt).To(ContainSubstring("2025 Imola Grand Prix"))
	})

	It("rejects an empty summary", func() {
		_, err := llm.NewSummarizer(answer(`{"summary":""}`)).Summarize(ctx, params, refs)
		Expect(err).To(MatchError(llm.ErrEmptySummary))
	})

	It("rejects output that is not JSON", func() {
		_, err := llm.NewSummarizer(answer(`Solid weekend.`)).Summarize(ctx, params, refs)
		Expect(err).To(MatchError(ContainSubstring("decoding summary")))
	})
})
