package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/storage"
	"github.com/papercomputeco/pitwall/pkg/storage/postgres"
	"github.com/papercomputeco/pitwall/pkg/storage/storagetest"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("PITWALL_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("PITWALL_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

// truncate clears both tables so every spec starts from an empty store.
func truncate(dsn string) {
	db, err := sql.Open("pgx", dsn)
	Expect(err).NotTo(HaveOccurred())
	defer db.Close()

	_, err = db.Exec("TRUNCATE artifacts, events RESTART IDENTITY")
	Expect(err).NotTo(HaveOccurred())
}

var _ = storagetest.DescribeDriver("postgres", func() storage.Driver {
	dsn := connStr()

	d, err := postgres.NewDriver(context.Background(), dsn)
	Expect(err).NotTo(HaveOccurred())
	truncate(dsn)

	return d
})

var _ = Describe("NewDriver", func() {
	It("returns an error for an unreachable server", func() {
		connStr()
		_, err := postgres.NewDriver(context.Background(), "host=invalid port=9999 user=bad dbname=bad sslmode=disable connect_timeout=1")
		Expect(err).To(HaveOccurred())
		fmt.Fprintf(GinkgoWriter, "expected error: %v\n", err)
	})
})
