package rag_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/chunk"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/rag"
	testutils "github.com/papercomputeco/pitch/pkg/utils/test"
	"github.com/papercomputeco/pitch/pkg/vector"
)

var invoiceSchema = chunk.Schema{
	Name:    "invoices",
	IDField: "Invoice ID",
	Fields: []chunk.Field{
		{Name: "Invoice ID", Type: chunk.TypeText},
		{Name: "Branch", Type: chunk.TypeText},
		{Name: "Total", Type: chunk.TypeNumber},
	},
}

func invoiceRows() []chunk.Row {
	return []chunk.Row{
		{"Invoice ID": "750-67-8428", "Branch": "A", "Total": "548.97"},
		{"Invoice ID": "226-31-3081", "Branch": "C", "Total": "80.22"},
		{"Invoice ID": "631-41-3108", "Branch": "A", "Total": "340.53"},
	}
}

var _ = Describe("Ingest", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		index    *testutils.MockVectorDriver
		sessions *rag.Sessions
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockVectorDriver(3)

		var err error
		sessions, err = rag.New(ctx, &rag.Config{
			Embedder:  embedder,
			Index:     index,
			Completer: testutils.NewMockCompleter(),
			Schema:    &invoiceSchema,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("writes one chunk per row in a single upsert", func() {
		outcome, err := sessions.Ingest(ctx, "s1", invoiceRows())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.ChunksCreated).To(Equal(3))
		Expect(outcome.RecordsUpserted).To(Equal(3))
		Expect(outcome.Failures).To(BeEmpty())

		upserts, _ := index.Counts()
		Expect(upserts).To(Equal(1))

		records, err := index.Get(ctx, []string{"chunk-750-67-8428", "chunk-226-31-3081", "chunk-631-41-3108"})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))
		for i, row := range invoiceRows() {
			for _, v := range row {
				Expect(records[i].Text()).To(ContainSubstring(v))
			}
		}
		Expect(records[0].Text()).To(Equal("Invoice ID: 750-67-8428, Branch: A, Total: 548.97"))
	})

	It("is idempotent across repeated batches", func() {
		_, err := sessions.Ingest(ctx, "s1", invoiceRows())
		Expect(err).NotTo(HaveOccurred())
		_, err = sessions.Ingest(ctx, "s1", invoiceRows())
		Expect(err).NotTo(HaveOccurred())

		Expect(index.Len()).To(Equal(3))
	})

	It("records a malformed row and keeps the rest", func() {
		rows := invoiceRows()
		delete(rows[1], "Branch")

		outcome, err := sessions.Ingest(ctx, "s1", rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.RecordsUpserted).To(Equal(2))
		Expect(outcome.ChunksCreated).To(Equal(2))
		Expect(outcome.Failures).To(HaveLen(1))
		Expect(outcome.Failures[0].RecordIndex).To(Equal(1))
		Expect(outcome.Failures[0].Reason).To(ContainSubstring("Branch"))
		Expect(outcome.Failures[0].IsSchemaFailure()).To(BeTrue())

		var schemaErr *rag.SchemaError
		Expect(errors.As(outcome.Failures[0].Err, &schemaErr)).To(BeTrue())
		Expect(schemaErr.Missing).To(Equal([]string{"Branch"}))
	})

	It("stops without writing when a chunk fails to embed", func() {
		embedder.FailOn = "Invoice ID: 226-31-3081, Branch: C, Total: 80.22"

		outcome, err := sessions.Ingest(ctx, "s1", invoiceRows())
		var embErr *rag.EmbeddingError
		Expect(errors.As(err, &embErr)).To(BeTrue())
		Expect(embErr.Op).To(Equal("ingest"))
		Expect(outcome).NotTo(BeNil())
		Expect(outcome.ChunksCreated).To(Equal(2))
		Expect(outcome.RecordsUpserted).To(Equal(0))
		Expect(outcome.Failures).To(BeEmpty())

		upserts, _ := index.Counts()
		Expect(upserts).To(Equal(0))
		Expect(index.Len()).To(Equal(0))
	})

	It("rejects a row that repeats an earlier invoice id", func() {
		rows := invoiceRows()
		rows = append(rows, chunk.Row{"Invoice ID": "750-67-8428", "Branch": "B", "Total": "12.00"})

		outcome, err := sessions.Ingest(ctx, "s1", rows)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.ChunksCreated).To(Equal(3))
		Expect(outcome.RecordsUpserted).To(Equal(3))
		Expect(outcome.Failures).To(HaveLen(1))
		Expect(outcome.Failures[0].RecordIndex).To(Equal(3))
		Expect(outcome.Failures[0].IsSchemaFailure()).To(BeTrue())
		Expect(outcome.Failures[0].Reason).To(ContainSubstring("Invoice ID"))
		Expect(outcome.ChunksCreated + len(outcome.Failures)).To(Equal(len(rows)))

		records, err := index.Get(ctx, []string{"chunk-750-67-8428"})
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].Text()).To(ContainSubstring("Branch: A"))
	})

	It("returns the outcome with a retrieval error when the upsert fails", func() {
		index.FailUpsert = true

		outcome, err := sessions.Ingest(ctx, "s1", invoiceRows())
		var retErr *rag.RetrievalError
		Expect(errors.As(err, &retErr)).To(BeTrue())
		Expect(outcome).NotTo(BeNil())
		Expect(outcome.ChunksCreated).To(Equal(3))
		Expect(outcome.RecordsUpserted).To(Equal(0))
	})

	It("skips the upsert when nothing survived", func() {
		outcome, err := sessions.Ingest(ctx, "s1", []chunk.Row{{"Branch": "A"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.RecordsUpserted).To(Equal(0))

		upserts, _ := index.Counts()
		Expect(upserts).To(Equal(0))
	})

	It("stops when the caller cancels", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		probed := embedder.CallCount()

		_, err := sessions.Ingest(cctx, "s1", invoiceRows())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())

		var embErr *rag.EmbeddingError
		Expect(errors.As(err, &embErr)).To(BeFalse())
		Expect(embedder.CallCount()).To(Equal(probed))
	})
})

var _ = Describe("UpdateKnowledge", func() {
	var (
		ctx      context.Context
		index    *testutils.MockVectorDriver
		sessions *rag.Sessions
	)

	BeforeEach(func() {
		ctx = context.Background()
		index = testutils.NewMockVectorDriver(3)

		var err error
		sessions, err = rag.New(ctx, &rag.Config{
			Embedder:  testutils.NewMockEmbedder(),
			Index:     index,
			Completer: testutils.NewMockCompleter(),
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores the note under a content-derived id", func() {
		rec, err := sessions.UpdateKnowledge(ctx, "Focus on Food and beverages in Q3.")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.ID).To(Equal(rag.NoteIDPrefix + chunk.ContentHash("Focus on Food and beverages in Q3.")))
		Expect(rec.Text()).To(Equal("Focus on Food and beverages in Q3."))
		Expect(index.Len()).To(Equal(1))
	})

	It("keeps distinct notes apart and rewrites a repeated one", func() {
		a, err := sessions.UpdateKnowledge(ctx, "note one")
		Expect(err).NotTo(HaveOccurred())
		b, err := sessions.UpdateKnowledge(ctx, "note two")
		Expect(err).NotTo(HaveOccurred())
		_, err = sessions.UpdateKnowledge(ctx, "note one")
		Expect(err).NotTo(HaveOccurred())

		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(strings.HasPrefix(a.ID, rag.NoteIDPrefix)).To(BeTrue())
		Expect(index.Len()).To(Equal(2))
	})

	It("rejects a blank note", func() {
		_, err := sessions.UpdateKnowledge(ctx, "  ")
		Expect(err).To(MatchError(rag.ErrEmptyNote))
	})

	It("reports an unreachable index", func() {
		index.FailUpsert = true
		_, err := sessions.UpdateKnowledge(ctx, "note")
		Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
	})
})
