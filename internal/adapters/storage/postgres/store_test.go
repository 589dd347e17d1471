package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/adapters/storage/postgres"
	"github.com/okian/generosity/internal/adapters/storage/storagetest"
)

// These tests need a disposable database: GENEROSITY_TEST_POSTGRES_DSN.
func TestStore_Contract(t *testing.T) {
	dsn := os.Getenv("GENEROSITY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GENEROSITY_TEST_POSTGRES_DSN not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		s, err := postgres.Connect(ctx, dsn)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		// Each run gets a clean table.
		if err := s.Reset(ctx); err != nil {
			t.Fatalf("reset: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
