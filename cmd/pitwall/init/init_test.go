package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/pitwall/cmd/pitwall/init"
	"github.com/papercomputeco/pitwall/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "pitwall-init-test-*")
		Expect(err).NotTo(HaveOccurred())
		// Resolve symlinks (macOS /var -> /private/var) so paths compare.
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		out.Reset()
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{}, args...))
		return cmd.Execute()
	}

	readConfig := func() config.Config {
		var cfg config.Config
		_, err := toml.DecodeFile(filepath.Join(tmpDir, ".pitwall", "config.toml"), &cfg)
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	It("creates .pitwall with a media directory and default config", func() {
		Expect(execute()).To(Succeed())

		Expect(filepath.Join(tmpDir, ".pitwall", "media")).To(BeADirectory())
		cfg := readConfig()
		Expect(cfg.Storage.Backend).To(Equal("sqlite"))
		Expect(cfg.LLM.Provider).To(Equal("openai"))
		Expect(cfg.Throttle.Interval).To(Equal("30s"))
		Expect(out.String()).To(ContainSubstring("Initialized"))
	})

	It("writes the preset's LLM settings", func() {
		Expect(execute("--preset", "ollama")).To(Succeed())

		cfg := readConfig()
		Expect(cfg.LLM.Provider).To(Equal("ollama"))
		Expect(cfg.LLM.Model).To(Equal("llama3.2"))
		Expect(cfg.LLM.BaseURL).To(Equal("http://localhost:11434"))
	})

	It("rejects an unknown preset before creating anything", func() {
		Expect(execute("--preset", "gemini")).To(MatchError(ContainSubstring("unknown preset")))
		Expect(filepath.Join(tmpDir, ".pitwall")).NotTo(BeADirectory())
	})

	It("never overwrites an existing config", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".pitwall"), 0o755)).To(Succeed())
		data := []byte("[llm]\nprovider = \"anthropic\"\n")
		Expect(os.WriteFile(filepath.Join(tmpDir, ".pitwall", "config.toml"), data, 0o600)).To(Succeed())

		Expect(execute("--preset", "ollama")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))
		Expect(readConfig().LLM.Provider).To(Equal("anthropic"))
	})
})
