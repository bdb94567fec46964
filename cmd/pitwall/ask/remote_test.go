package askcmder

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/api"
	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/dispatch"
	"github.com/papercomputeco/pitwall/pkg/sse"
)

var _ = Describe("ask --remote", func() {
	var (
		out    bytes.Buffer
		events []sse.Event
		status int
		got    dispatch.Query
		server *httptest.Server
	)

	event := func(typ string, v any) sse.Event {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return sse.Event{Type: typ, Data: string(data)}
	}

	BeforeEach(func() {
		out.Reset()
		events = nil
		status = http.StatusOK
		got = dispatch.Query{}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/queries/stream"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())

			if status != http.StatusOK {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "slow down", Kind: "throttled"})
				return
			}

			w.Header().Set("Content-Type", sse.ContentType)
			for _, ev := range events {
				Expect(sse.Write(w, ev)).To(Succeed())
			}
		}))
		DeferCleanup(server.Close)
	})

	run := func(args ...string) error {
		cmd := newAskCmd(&askCommander{})
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.PersistentFlags().Bool("debug", false, "")
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config-dir", GinkgoT().TempDir(), "--remote", server.URL + "/"}, args...))
		return cmd.Execute()
	}

	It("follows the stages and prints the reply", func() {
		events = []sse.Event{
			event(api.EventStage, api.StageEvent{Stage: dispatch.StageAnalyzing}),
			event(api.EventStage, api.StageEvent{Stage: dispatch.StageGenerating}),
			event(api.EventReply, api.QueryResponse{
				Summary: "Solid weekend.",
				Artifacts: []api.ArtifactResponse{{
					Kind: artifact.QualyResults,
					URL:  "/v1/media/qualy_results_COL_imola_2025.png",
				}},
			}),
		}

		Expect(run("colapinto", "imola", "2025")).To(Succeed())
		Expect(got.Text).To(Equal("colapinto imola 2025"))
		Expect(got.SessionID).To(Equal("cli"))
		Expect(out.String()).To(ContainSubstring("Analyzing question"))
		Expect(out.String()).To(ContainSubstring("Generating charts"))
		Expect(out.String()).To(ContainSubstring("Solid weekend."))
		Expect(out.String()).To(ContainSubstring(server.URL + "/v1/media/qualy_results_COL_imola_2025.png"))
	})

	It("reports an error event", func() {
		events = []sse.Event{
			event(api.EventStage, api.StageEvent{Stage: dispatch.StageAnalyzing}),
			event(api.EventError, api.ErrorResponse{Error: `I don't know the driver "hamilton".`, Kind: "unknown_driver"}),
		}

		err := run("hamilton imola 2024")
		var remoteErr *RemoteError
		Expect(err).To(BeAssignableToTypeOf(remoteErr))
		Expect(err.(*RemoteError).Kind).To(Equal("unknown_driver"))
		Expect(out.String()).To(ContainSubstring(`"hamilton"`))
	})

	It("reports a rejected request", func() {
		status = http.StatusTooManyRequests

		err := run("colapinto imola 2025")
		Expect(err).To(MatchError("throttled: slow down"))
		Expect(out.String()).To(ContainSubstring("slow down"))
	})

	It("fails when the stream ends without a reply", func() {
		events = []sse.Event{event(api.EventStage, api.StageEvent{Stage: dispatch.StageAnalyzing})}

		Expect(run("colapinto imola 2025")).To(MatchError(ContainSubstring("without a reply")))
	})
})
