package clientcmd_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd/clientcmdtest"
	"github.com/papercomputeco/pitch/pkg/dotdir"
)

var _ = Describe("Env", func() {
	var (
		fixture   *clientcmdtest.Fixture
		configDir string
		cmd       *cobra.Command
		target    string
	)

	BeforeEach(func() {
		fixture = clientcmdtest.Start()
		configDir = GinkgoT().TempDir()

		cmd = &cobra.Command{Use: "probe"}
		cmd.Flags().String("config-dir", "", "")
		clientcmd.AddTargetFlag(cmd, &target)
		Expect(cmd.Flags().Parse([]string{"--config-dir", configDir, "--api-target", fixture.URL})).To(Succeed())
	})

	It("prefers the flag over config", func() {
		env, err := clientcmd.Load(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Target).To(Equal(fixture.URL))
		Expect(env.ConfigDir).To(Equal(configDir))
	})

	It("opens, reuses and forgets the active session", func() {
		ctx := context.Background()
		env, err := clientcmd.Load(cmd)
		Expect(err).NotTo(HaveOccurred())

		id, greeting, err := env.Session(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(greeting).NotTo(BeEmpty())

		again, greeting, err := env.Session(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal(id))
		Expect(greeting).To(BeEmpty())

		fresh, _, err := env.Session(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh).NotTo(Equal(id))

		Expect(env.ForgetSession()).To(Succeed())
		state, err := dotdir.NewManager().LoadSession(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("does not reuse a session from another server", func() {
		Expect(dotdir.NewManager().SaveSession(&dotdir.SessionState{
			ID: "elsewhere", Target: "http://other:8080",
		}, configDir)).To(Succeed())

		env, err := clientcmd.Load(cmd)
		Expect(err).NotTo(HaveOccurred())

		id, _, err := env.Session(context.Background(), false)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(Equal("elsewhere"))
	})
})
