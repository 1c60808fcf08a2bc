package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	versions, err := ValidateFS(Embedded(), embeddedDir)
	if err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if len(versions) < 5 {
		t.Fatalf("expected at least 5 migrations, got %v", versions)
	}
}

func TestOrdersMigrationEnforcesIdempotencyKey(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders.sql"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("orders migration not found: %v", err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT orders_payment_authorization_id_key UNIQUE (payment_authorization_id)",
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"capture_state capture_state NOT NULL DEFAULT 'authorized'",
		"delivery_state delivery_state NOT NULL DEFAULT 'pending'",
		"DROP TABLE IF EXISTS orders",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"m/001_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"m/20260101000000_init.sql": {Data: []byte("-- +goose Up\n")},
		},
		"down first": {
			"m/20260101000000_init.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		if _, err := ValidateFS(fsys, "m"); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Courier Rating!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260304050607_add_courier_rating.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := CreateSQLMigration(dir, "add courier rating", now); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
	if _, err := ValidateFS(os.DirFS(dir), "."); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
