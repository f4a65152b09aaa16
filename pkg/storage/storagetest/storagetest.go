// Package storagetest holds behaviours shared by every storage.Driver test
// suite.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/storage"
)

// Exchange builds a test exchange completed at offset seconds after a fixed
// instant.
func Exchange(id, session string, offset int) *storage.Exchange {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return &storage.Exchange{
		ID:          id,
		SessionID:   session,
		Query:       "which branch sells most?",
		Answer:      "Branch C.",
		ContextIDs:  []string{"chunk-750-67-8428"},
		Provider:    "ollama",
		Model:       "llama3.1",
		StartedAt:   base.Add(time.Duration(offset) * time.Second),
		CompletedAt: base.Add(time.Duration(offset)*time.Second + 500*time.Millisecond),
	}
}

// DriverBehaviors declares the specs every driver must pass. newDriver is
// called before each spec.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("stores and retrieves an exchange", func() {
		ex := Exchange("ex-1", "s-1", 0)
		Expect(driver.PutExchange(ctx, ex)).To(Succeed())

		got, err := driver.GetExchange(ctx, "ex-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Query).To(Equal(ex.Query))
		Expect(got.Answer).To(Equal(ex.Answer))
		Expect(got.ContextIDs).To(Equal(ex.ContextIDs))
		Expect(got.CompletedAt.Equal(ex.CompletedAt)).To(BeTrue())
	})

	It("returns NotFoundError for unknown IDs", func() {
		_, err := driver.GetExchange(ctx, "missing")
		Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
	})

	It("replaces an exchange written twice", func() {
		ex := Exchange("ex-1", "s-1", 0)
		Expect(driver.PutExchange(ctx, ex)).To(Succeed())
		ex.Answer = "Branch A."
		Expect(driver.PutExchange(ctx, ex)).To(Succeed())

		all, err := driver.ListExchanges(ctx, storage.ExchangeQuery{})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
		Expect(all[0].Answer).To(Equal("Branch A."))
	})

	It("lists exchanges per session, oldest first, with limits", func() {
		Expect(driver.PutExchange(ctx, Exchange("b", "s-1", 2))).To(Succeed())
		Expect(driver.PutExchange(ctx, Exchange("a", "s-1", 1))).To(Succeed())
		Expect(driver.PutExchange(ctx, Exchange("c", "s-2", 3))).To(Succeed())

		s1, err := driver.ListExchanges(ctx, storage.ExchangeQuery{SessionID: "s-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s1).To(HaveLen(2))
		Expect(s1[0].ID).To(Equal("a"))
		Expect(s1[1].ID).To(Equal("b"))

		limited, err := driver.ListExchanges(ctx, storage.ExchangeQuery{Limit: 1, Offset: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(limited).To(HaveLen(1))
		Expect(limited[0].ID).To(Equal("b"))
	})

	It("records ingest runs newest first", func() {
		base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"r1", "r2", "r3"} {
			Expect(driver.PutIngestRun(ctx, &storage.IngestRun{
				ID:              id,
				SessionID:       "s-1",
				Source:          "sales.csv",
				Rows:            10,
				ChunksCreated:   9,
				RecordsUpserted: 9,
				Failures:        1,
				CompletedAt:     base.Add(time.Duration(i) * time.Minute),
			})).To(Succeed())
		}

		runs, err := driver.ListIngestRuns(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].ID).To(Equal("r3"))
		Expect(runs[1].ID).To(Equal("r2"))
		Expect(runs[0].Failures).To(Equal(1))
	})
}
