package eventscmder_test

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	eventscmder "github.com/papercomputeco/pitwall/cmd/pitwall/events"
	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/storage/sqlite"
)

var _ = Describe("events command", func() {
	var (
		dir string
		out bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := eventscmder.NewEventsCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--config-dir", dir}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out.Reset()
	})

	It("reports an empty cache", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No cached events."))
	})

	It("lists events with their charts", func() {
		ctx := context.Background()
		store, err := sqlite.NewDriver(ctx, filepath.Join(dir, "pitwall.sqlite"))
		Expect(err).NotTo(HaveOccurred())
		id, err := store.InsertEvent(ctx, 2024, "imola", "COL")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.InsertArtifact(ctx, id, artifact.RaceLapsTimes, "/media/lap.png", "Lap times")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Close()).To(Succeed())

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("2024 imola"))
		Expect(out.String()).To(ContainSubstring("/media/lap.png"))

		out.Reset()
		Expect(run("--json")).To(Succeed())

		var listing []struct {
			Driver    string `json:"driver"`
			Artifacts []struct {
				Name string `json:"name"`
			} `json:"artifacts"`
		}
		Expect(json.Unmarshal(out.Bytes(), &listing)).To(Succeed())
		Expect(listing).To(HaveLen(1))
		Expect(listing[0].Driver).To(Equal("COL"))
		Expect(listing[0].Artifacts[0].Name).To(Equal(string(artifact.RaceLapsTimes)))
	})

	It("rejects positional arguments", func() {
		cmd := eventscmder.NewEventsCmd()
		cmd.SetArgs([]string{"extra"})
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
