package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/api/client"
	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/insights"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/rag"
	"github.com/papercomputeco/pitch/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/pitch/pkg/utils/test"
	"github.com/papercomputeco/pitch/pkg/worker"
)

func saleRow() chunk.Row {
	return chunk.Row{
		"Invoice ID": "750-67-8428", "Branch": "A", "City": "Yangon",
		"Customer type": "Member", "Gender": "Female", "Product line": "Health and beauty",
		"Unit price": "74.69", "Quantity": "7", "Tax 5%": "26.1415", "Total": "548.9715",
		"Date": "1/5/2019", "Time": "13:08", "Payment": "Ewallet", "cogs": "522.83",
		"gross margin percentage": "4.761904762", "gross income": "26.1415", "Rating": "9.1",
	}
}

var _ = Describe("Client", func() {
	var (
		ctx       context.Context
		c         *client.Client
		index     *testutils.MockVectorDriver
		completer *testutils.MockCompleter
		store     *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		index = testutils.NewMockVectorDriver(3)
		completer = testutils.NewMockCompleter()
		store = inmemory.NewDriver()

		pool, err := worker.NewPool(&worker.Config{Driver: store, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		sessions, err := rag.New(ctx, &rag.Config{
			Embedder:  testutils.NewMockEmbedder(),
			Index:     index,
			Completer: completer,
			Worker:    pool,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err := api.NewServer(api.Config{
			Assistant:   sessions,
			Transcripts: store,
			NoMCP:       true,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ts := httptest.NewServer(server.Handler())
		DeferCleanup(ts.Close)

		c, err = client.New(ts.URL + "/")
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a target without a scheme", func() {
		_, err := client.New("localhost:8080")
		Expect(err).To(HaveOccurred())
	})

	It("pings", func() {
		Expect(c.Ping(ctx)).To(Succeed())
	})

	It("runs a conversation", func() {
		session, err := c.NewSession(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(session.Greeting).To(Equal(rag.DefaultGreeting))

		completer.Reply = "Call the top three accounts."
		answer, err := c.Ask(ctx, session.SessionID, "what now?")
		Expect(err).NotTo(HaveOccurred())
		Expect(answer.Text).To(Equal("Call the top three accounts."))

		history, err := c.History(ctx, session.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history.Count).To(Equal(2))

		_, err = c.ResetSession(ctx, session.SessionID)
		Expect(err).NotTo(HaveOccurred())

		history, err = c.History(ctx, session.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history.Count).To(BeZero())

		Eventually(func() int {
			out, err := c.Exchanges(ctx, session.SessionID, 0)
			Expect(err).NotTo(HaveOccurred())
			return out.Count
		}).Should(Equal(1))
	})

	It("surfaces the server's error message", func() {
		_, err := c.Ask(ctx, "s1", "   ")
		Expect(err).To(HaveOccurred())

		var se *client.StatusError
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(err.Error()).To(ContainSubstring("400"))
	})

	It("ingests rows and searches them", func() {
		rows := []chunk.Row{saleRow()}

		out, err := c.Ingest(ctx, "s1", "sales.csv", rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.RecordsUpserted).To(Equal(1))
		Expect(out.Failures).To(BeEmpty())

		results, err := c.Search(ctx, "Yangon health", 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(results.Count).To(Equal(1))
		Expect(results.Results[0].Kind).To(Equal("chunk"))
	})

	It("keeps the outcome of a partially failed ingest", func() {
		index.FailUpsert = true

		out, err := c.Ingest(ctx, "s1", "", []chunk.Row{saleRow(), {"Invoice ID": "x"}})
		Expect(err).To(MatchError(ContainSubstring("502")))
		Expect(out).NotTo(BeNil())
		Expect(out.ChunksCreated).To(Equal(1))
		Expect(out.RecordsUpserted).To(BeZero())
		Expect(out.Failures).To(HaveLen(1))
	})

	It("uploads a CSV file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "notes.csv")
		Expect(os.WriteFile(path, []byte("Invoice ID,Branch\n1,A\n"), 0o644)).To(Succeed())

		out, err := c.Upload(ctx, "s1", path)
		Expect(out).NotTo(BeNil())
		Expect(out.Source).To(Equal("notes.csv"))
		// The default sales schema rejects a row missing most fields.
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Failures).To(HaveLen(1))
	})

	It("adds notes", func() {
		note, err := c.AddNote(ctx, "Q3 promo: 10% off health products.")
		Expect(err).NotTo(HaveOccurred())
		Expect(note.ID).To(HavePrefix(rag.NoteIDPrefix))
		Expect(index.Len()).To(Equal(1))
	})

	It("runs insights", func() {
		out, err := c.Insight(ctx, insights.KindRecommendations, "Acme", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Query).To(ContainSubstring("Acme"))
		Expect(out.SessionID).NotTo(BeEmpty())

		_, err = c.Insight(ctx, insights.KindRecommendations, "", "")
		Expect(err).To(HaveOccurred())
	})

	It("recognises not found errors", func() {
		Expect(client.IsNotFound(&client.StatusError{StatusCode: http.StatusNotFound})).To(BeTrue())
		Expect(client.IsNotFound(&client.StatusError{StatusCode: http.StatusBadRequest})).To(BeFalse())
		Expect(client.IsNotFound(nil)).To(BeFalse())
	})
})
