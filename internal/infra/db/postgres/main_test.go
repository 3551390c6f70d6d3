//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

var testPool *pgxpool.Pool

// TestMain expects TEST_DATABASE_URL to point at a disposable database.
func TestMain(m *testing.M) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		log.Println("TEST_DATABASE_URL not set, skipping postgres integration tests")
		os.Exit(0)
	}

	var err error
	testPool, err = NewPgxPool(ctx, dsn, 10)
	if err != nil {
		log.Fatalf("Unable to connect to test database: %v", err)
	}

	logger := zerolog.New(os.Stderr)
	if err := Migrate(ctx, testPool, &logger); err != nil {
		testPool.Close()
		log.Fatalf("could not apply schema: %s", err)
	}
	log.Println("Test database is ready.")

	exitCode := m.Run()

	testPool.Close()
	os.Exit(exitCode)
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE
			payments, subscriptions, profiles, discount_codes, plans, memberships
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}
