package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.openai]
api_key = "sk-test-key"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("openai", credentials.ProviderKey{APIKey: "sk-test-key"}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("SetKey", func() {
		It("persists the key with restricted permissions", func() {
			Expect(mgr.SetKey("openai", "sk-new-key")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new-key"))

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("preserves other provider keys", func() {
			Expect(mgr.SetKey("openai", "sk-openai")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "sk-anthropic")).To(Succeed())

			Expect(mgr.ListProviders()).To(Equal([]string{"anthropic", "openai"}))
		})

		It("rejects unsupported providers", func() {
			Expect(mgr.SetKey("ollama", "x")).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("rejects an empty key", func() {
			Expect(mgr.SetKey("openai", "")).NotTo(Succeed())
		})
	})

	It("treats provider names case-insensitively", func() {
		Expect(mgr.SetKey(" Anthropic ", " sk-ant ")).To(Succeed())

		Expect(mgr.GetKey("anthropic")).To(Equal("sk-ant"))
		Expect(mgr.ListProviders()).To(Equal([]string{"anthropic"}))
	})

	It("folds mixed-case provider tables written by hand", func() {
		data := `version = 0

[providers.OpenAI]
api_key = "sk-hand"
`
		Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

		Expect(mgr.GetKey("openai")).To(Equal("sk-hand"))
		Expect(mgr.ListProviders()).To(Equal([]string{"openai"}))
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("is a no-op for a provider with no key", func() {
			Expect(mgr.RemoveKey("anthropic")).To(Succeed())
		})
	})

	Describe("Save", func() {
		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).NotTo(Succeed())
		})
	})
})

var _ = Describe("ResolveKey", func() {
	var mgr *credentials.Manager

	BeforeEach(func() {
		var err error
		mgr, err = credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-env")
	})

	It("prefers the explicit key", func() {
		Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
		Expect(credentials.ResolveKey(mgr, "openai", "sk-explicit")).To(Equal("sk-explicit"))
	})

	It("falls back to the stored key", func() {
		Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())
		Expect(credentials.ResolveKey(mgr, "openai", "")).To(Equal("sk-stored"))
	})

	It("falls back to the environment", func() {
		Expect(credentials.ResolveKey(mgr, "openai", "")).To(Equal("sk-env"))
		Expect(credentials.ResolveKey(nil, "openai", "")).To(Equal("sk-env"))
	})

	It("returns empty for providers without keys", func() {
		Expect(credentials.ResolveKey(mgr, "ollama", "")).To(BeEmpty())
	})
})

var _ = Describe("EnvVarForProvider", func() {
	DescribeTable("maps providers to environment variables",
		func(provider, env string) {
			Expect(credentials.EnvVarForProvider(provider)).To(Equal(env))
		},
		Entry("openai", "openai", "OPENAI_API_KEY"),
		Entry("anthropic", "anthropic", "ANTHROPIC_API_KEY"),
		Entry("unknown", "unknown", ""),
	)
})

var _ = Describe("Credentials", func() {
	It("reads nothing from nil credentials", func() {
		var c *credentials.Credentials
		Expect(c.Key("openai")).To(BeEmpty())
		Expect(c.Stored()).To(BeEmpty())
	})

	It("lists only providers with a key, sorted", func() {
		c := &credentials.Credentials{Providers: map[string]credentials.ProviderKey{
			"openai":    {APIKey: "sk-o"},
			"anthropic": {APIKey: "sk-a"},
			"ollama":    {},
		}}
		Expect(c.Stored()).To(Equal([]string{"anthropic", "openai"}))
	})

	It("drops a provider when set to an empty key", func() {
		var c credentials.Credentials
		c.Set("OpenAI", "sk-o")
		Expect(c.Key("openai")).To(Equal("sk-o"))

		c.Set("openai", "")
		Expect(c.Providers).NotTo(HaveKey("openai"))
	})
})
