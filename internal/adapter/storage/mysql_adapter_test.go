package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/port"
)

func getMySQLDSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/coffeecart?parseTime=true"
	}
	return dsn
}

func getMySQLDB(t *testing.T) *sql.DB {
	db, err := sql.Open("mysql", getMySQLDSN())
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := MigrateCatalog(context.Background(), getMySQLDSN()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func TestMySQLCatalog_SeedAndFind(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	catalog := NewMySQLCatalog(db)

	// Setup
	db.ExecContext(ctx, `DELETE FROM products WHERE id >= 9000`)
	defer db.ExecContext(ctx, `DELETE FROM products WHERE id >= 9000`)

	products := []domain.Product{
		{ID: 9001, Name: "Test Coffee", Description: "test", Price: decimal.RequireFromString("12.50"), Image: "t.png", Tags: []string{"teste"}},
		{ID: 9002, Name: "Other Coffee", Description: "test", Price: decimal.RequireFromString("7.00"), Image: "o.png"},
	}
	if err := SeedCatalog(ctx, db, products); err != nil {
		t.Fatalf("SeedCatalog failed: %v", err)
	}

	// Reseed to verify upsert
	products[0].Name = "Renamed Coffee"
	if err := SeedCatalog(ctx, db, products); err != nil {
		t.Fatalf("SeedCatalog upsert failed: %v", err)
	}

	p, err := catalog.FindByID(ctx, 9001)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Name != "Renamed Coffee" {
		t.Errorf("expected upserted name, got %q", p.Name)
	}
	if !p.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("expected price 12.50, got %s", p.Price)
	}
	if len(p.Tags) != 1 || p.Tags[0] != "teste" {
		t.Errorf("unexpected tags %v", p.Tags)
	}

	list, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var found int
	for _, item := range list {
		if item.ID >= 9000 {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected 2 seeded products in list, got %d", found)
	}
}

func TestMySQLCatalog_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM products WHERE id = 9999`)

	_, err := NewMySQLCatalog(db).FindByID(ctx, 9999)
	if !errors.Is(err, port.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got: %v", err)
	}
}
