package authcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/pitch/cmd/pitch/auth"
	"github.com/papercomputeco/pitch/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := authcmder.NewAuthCmd()
		cmd.SetOut(out)
		cmd.PersistentFlags().String("config-dir", "", "Override path to .pitch/ config directory")
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Short).NotTo(BeEmpty())
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	It("stores a piped key", func() {
		cmd := newCmd("groq")
		cmd.SetIn(bytes.NewBufferString("gsk-test\n"))
		Expect(cmd.Execute()).To(Succeed())

		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey("groq")
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal("gsk-test"))
		Expect(out.String()).To(ContainSubstring("GROQ_API_KEY"))
	})

	It("rejects an empty key", func() {
		cmd := newCmd("openai")
		cmd.SetIn(bytes.NewBufferString("   \n"))
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("cannot be empty")))
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			Expect(newCmd("--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("qdrant", "qd-test")).To(Succeed())

			Expect(newCmd("--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("QDRANT_API_KEY"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			Expect(newCmd("--remove", "openai").Execute()).To(Succeed())

			key, err := mgr.GetKey("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("provider argument validation", func() {
		It("returns error when no provider given", func() {
			err := newCmd().Execute()
			Expect(err).To(MatchError(ContainSubstring("provider argument required")))
		})

		It("returns error for unsupported provider", func() {
			cmd := newCmd("ollama")
			cmd.SetIn(bytes.NewBufferString("sk-test\n"))
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("unsupported provider")))
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf(credentials.SupportedProviders()))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, _ := cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
			Expect(completions).To(BeNil())
		})
	})
})
