package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/bagboard/internal/common"
	tcommon "github.com/bobmcallan/bagboard/tests/common"
	surreal "github.com/surrealdb/surrealdb.go"
)

// testDB starts the shared SurrealDB container and returns a connected *surreal.DB
// using a unique database name per test to ensure isolation.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	cfg := tcommon.StartSurrealDB(t).StorageConfig(t)
	ctx := context.Background()

	db, err := surreal.New(cfg.Address)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}
	if err := defineTables(ctx, db); err != nil {
		t.Fatalf("define tables: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
