package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestVariantsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_products_and_variants.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS variants",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (quantity >= 0)",
		"DROP TABLE IF EXISTS variants",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrdersMigrationGuardsPaymentReplay(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_provider_payment_id ON orders (provider_payment_id)",
		"'Processing', 'Shipped', 'Delivered', 'Cancelled'",
		"CREATE TABLE IF NOT EXISTS order_line_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsApplyOnSQLite(t *testing.T) {
	dsn := "file:migrate_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	dialect := migrate.DialectFor(config.DBDriverSQLite)
	if err := migrate.Run(ctx, sqlDB, dialect, "migrations", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	for _, table := range []string{"users", "products", "variants", "orders", "order_line_items", "outbox_events"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s after migrate up", table)
		}
	}

	productID := uuid.NewString()
	if err := conn.Exec("INSERT INTO products (id, name) VALUES (?, ?)", productID, "Turmeric").Error; err != nil {
		t.Fatalf("insert product: %v", err)
	}
	err = conn.Exec("INSERT INTO variants (id, product_id, weight, price, quantity) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), productID, "100g", "49.00", -1).Error
	if err == nil {
		t.Fatal("expected negative quantity to violate check constraint")
	}

	if err := migrate.Run(ctx, sqlDB, dialect, "migrations", "reset"); err != nil {
		t.Fatalf("migrate reset: %v", err)
	}
	if conn.Migrator().HasTable("orders") {
		t.Fatal("expected orders table to be dropped after reset")
	}
}

func TestDialectFor(t *testing.T) {
	if got := migrate.DialectFor(config.DBDriverPostgres); got != migrate.DialectPostgres {
		t.Fatalf("expected postgres dialect, got %s", got)
	}
	if got := migrate.DialectFor(""); got != migrate.DialectPostgres {
		t.Fatalf("expected default postgres dialect, got %s", got)
	}
	if got := migrate.DialectFor(config.DBDriverSQLite); got != migrate.DialectSQLite {
		t.Fatalf("expected sqlite dialect, got %s", got)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
