// Package repository provides persistence implementations for the blob service:
// a PostgreSQL table and an in-memory map for development.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/models"
)

// PostgresBlobRepository implements blob persistence against a PostgreSQL database.
type PostgresBlobRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresBlobRepository creates a new PostgresBlobRepository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance with the blobs table in place.
func NewPostgresBlobRepository(db *sql.DB) *PostgresBlobRepository {
	return &PostgresBlobRepository{DB: db}
}

// UpsertBlob inserts the blob or replaces the data stored under the same public key.
func (r *PostgresBlobRepository) UpsertBlob(ctx context.Context, blob models.Blob) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO blobs (public_key, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (public_key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, blob.PublicKey, blob.Data, blob.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	return nil
}

// GetBlob fetches the blob stored at publicKey.
//
// Returns common.ErrNotFound if there is none.
func (r *PostgresBlobRepository) GetBlob(ctx context.Context, publicKey string) (*models.Blob, error) {
	blob := models.Blob{PublicKey: publicKey}
	err := r.DB.QueryRowContext(ctx, `
		SELECT data, updated_at FROM blobs WHERE public_key = $1
	`, publicKey).Scan(&blob.Data, &blob.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", publicKey, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	return &blob, nil
}
