package qdrant_test

import (
	"context"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/vector"
	"github.com/papercomputeco/pitch/pkg/vector/qdrant"
)

var _ = Describe("ParseTarget", func() {
	DescribeTable("parses targets",
		func(target, host string, port int, tls bool) {
			ep, err := qdrant.ParseTarget(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(ep.Host).To(Equal(host))
			Expect(ep.Port).To(Equal(port))
			Expect(ep.UseTLS).To(Equal(tls))
		},
		Entry("bare host", "localhost", "localhost", qdrant.DefaultPort, false),
		Entry("host and port", "qdrant:7000", "qdrant", 7000, false),
		Entry("http URL", "http://qdrant:6334", "qdrant", 6334, false),
		Entry("https URL without port", "https://cloud.qdrant.io", "cloud.qdrant.io", qdrant.DefaultPort, true),
	)

	It("rejects an empty target", func() {
		_, err := qdrant.ParseTarget("")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a non-numeric port", func() {
		_, err := qdrant.ParseTarget("qdrant:abc")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("PointID", func() {
	It("is a deterministic UUID", func() {
		a := qdrant.PointID("chunk-1")
		Expect(qdrant.PointID("chunk-1")).To(Equal(a))
		Expect(qdrant.PointID("chunk-2")).NotTo(Equal(a))
		_, err := uuid.Parse(a)
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("NewDriver", func() {
	It("requires dimensions", func() {
		_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Target: "localhost"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("cannot be 0")))
	})
})

// Runs against a live server when PITCH_TEST_QDRANT is set, e.g. "localhost:6334".
var _ = Describe("Driver against a live server", func() {
	var driver *qdrant.Driver

	BeforeEach(func() {
		target := os.Getenv("PITCH_TEST_QDRANT")
		if target == "" {
			Skip("PITCH_TEST_QDRANT not set")
		}
		var err error
		driver, err = qdrant.NewDriver(context.Background(), qdrant.Config{
			Target:         target,
			CollectionName: "pitch_test_" + uuid.NewString()[:8],
			Dimensions:     3,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	It("upserts, queries and deletes", func(ctx SpecContext) {
		n, err := driver.Upsert(ctx, []vector.Record{
			vector.NewRecord("a", []float32{1, 0, 0}, "alpha"),
			vector.NewRecord("b", []float32{0, 1, 0}, "beta"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		results, err := driver.Query(ctx, []float32{1, 0, 0}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("a"))
		Expect(results[0].Text()).To(Equal("alpha"))

		Expect(driver.Delete(ctx, []string{"a"})).To(Succeed())
		got, err := driver.Get(ctx, []string{"a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})
})
