package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rl1809/coffee-cart/internal/core/domain"
	"github.com/rl1809/coffee-cart/internal/port"
)

// MySQLCatalog reads products from the products table. The table is
// read-only at runtime; SeedCatalog fills it from a product list.
type MySQLCatalog struct {
	db *sql.DB
}

func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (m *MySQLCatalog) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, image, tags
		FROM products WHERE id = ?`, id,
	)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return p, nil
}

func (m *MySQLCatalog) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, price, image, tags
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var p domain.Product
	var tags []byte
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &tags); err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

// SeedCatalog upserts products in one transaction.
func SeedCatalog(ctx context.Context, db *sql.DB, products []domain.Product) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encode tags for product %d: %w", p.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, name, description, price, image, tags)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name), description = VALUES(description),
				price = VALUES(price), image = VALUES(image), tags = VALUES(tags)`,
			p.ID, p.Name, p.Description, p.Price, p.Image, tags,
		)
		if err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
