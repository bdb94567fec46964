package servecmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	servecmder "github.com/papercomputeco/pitwall/cmd/pitwall/serve"
)

var _ = Describe("serve command", func() {
	newCmd := func(args ...string) *cobra.Command {
		cmd := servecmder.NewServeCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.PersistentFlags().Bool("debug", false, "")
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config-dir", GinkgoT().TempDir()}, args...))
		return cmd
	}

	It("defaults flags from the config registry", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8081"))
		Expect(cmd.Flags().Lookup("event-stream").DefValue).To(Equal("none"))
	})

	It("fails on an unknown storage backend", func() {
		err := newCmd("--storage", "mysql").Execute()
		Expect(err).To(MatchError(ContainSubstring("unsupported storage backend")))
	})

	It("fails on a kafka stream without brokers", func() {
		err := newCmd("--storage", "memory", "--event-stream", "kafka").Execute()
		Expect(err).To(MatchError(ContainSubstring("at least one broker")))
	})

	It("fails when the log file cannot be opened", func() {
		path := filepath.Join(GinkgoT().TempDir(), "missing", "serve.log")
		err := newCmd("--storage", "memory", "--log-file", path).Execute()
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})

	It("appends JSON records to the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")
		err := newCmd("--storage", "memory", "--provider", "ollama", "--listen", "127.0.0.1:-1", "--log-file", path).Execute()
		Expect(err).To(HaveOccurred())

		data, readErr := os.ReadFile(path)
		Expect(readErr).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"starting API server"`))
		Expect(string(data)).To(ContainSubstring(`"source"`))
	})

	It("returns the listener error instead of blocking", func() {
		err := newCmd("--storage", "memory", "--provider", "ollama", "--listen", "127.0.0.1:-1").Execute()
		Expect(err).To(MatchError(ContainSubstring("API server error")))
	})
})
