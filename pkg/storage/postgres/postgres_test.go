package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/storage/postgres"
	"github.com/papercomputeco/pitch/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("PITCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("PITCH_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	storagetest.DriverBehaviors(func() storage.Driver {
		ctx := context.Background()
		d, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		// Clean tables before each test for isolation.
		_, err = d.DB().ExecContext(ctx, `DELETE FROM exchanges`)
		Expect(err).NotTo(HaveOccurred())
		_, err = d.DB().ExecContext(ctx, `DELETE FROM ingest_runs`)
		Expect(err).NotTo(HaveOccurred())
		return d
	})
})
