// Package clientcmdtest runs a real pitch API server over mocks for client
// command tests.
package clientcmdtest

import (
	"bytes"
	"context"
	"net/http/httptest"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/pitch/pkg/utils/test"
	"github.com/papercomputeco/pitch/pkg/worker"
)

// Fixture is a running server and the mocks behind it.
type Fixture struct {
	URL       string
	ConfigDir string
	Sessions  *rag.Sessions
	Index     *testutils.MockVectorDriver
	Completer *testutils.MockCompleter
	Store     *inmemory.Driver
}

// Start launches a server and registers its cleanup with ginkgo.
func Start() *Fixture {
	f := &Fixture{
		ConfigDir: ginkgo.GinkgoT().TempDir(),
		Index:     testutils.NewMockVectorDriver(3),
		Completer: testutils.NewMockCompleter(),
		Store:     inmemory.NewDriver(),
	}

	pool, err := worker.NewPool(&worker.Config{Driver: f.Store, Logger: logger.Nop()})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	ginkgo.DeferCleanup(pool.Close)

	f.Sessions, err = rag.New(context.Background(), &rag.Config{
		Embedder:  testutils.NewMockEmbedder(),
		Index:     f.Index,
		Completer: f.Completer,
		Worker:    pool,
		Logger:    logger.Nop(),
	})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	server, err := api.NewServer(api.Config{
		Assistant:   f.Sessions,
		Transcripts: f.Store,
		NoMCP:       true,
	}, logger.Nop())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	ts := httptest.NewServer(server.Handler())
	ginkgo.DeferCleanup(ts.Close)
	f.URL = ts.URL

	return f
}

// Execute runs cmd against the fixture with a private config dir and
// returns what it printed.
func (f *Fixture) Execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.PersistentFlags().String("config-dir", "", "")
	cmd.SetArgs(append(args, "--config-dir", f.ConfigDir, "--api-target", f.URL))
	err := cmd.Execute()
	return out.String(), err
}
