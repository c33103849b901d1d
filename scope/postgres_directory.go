package scope

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDirectory implements Directory backed by PostgreSQL.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Create(ctx context.Context, id, displayName string) (Record, error) {
	var rec Record
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO scopes (id, display_name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, display_name, created_at, updated_at
	`, id, displayName).Scan(&rec.ID, &rec.DisplayName, &rec.CreatedAt, &rec.UpdatedAt)
	if isUniqueViolation(err) {
		return Record{}, ErrAlreadyExists
	}
	if err != nil {
		return Record{}, fmt.Errorf("scope: inserting %q: %w", id, err)
	}
	return rec, nil
}

func (d *PostgresDirectory) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := d.db.QueryRowContext(ctx, `
		SELECT id, display_name, created_at, updated_at FROM scopes WHERE id = $1
	`, id).Scan(&rec.ID, &rec.DisplayName, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scope: getting %q: %w", id, err)
	}
	return rec, nil
}

func (d *PostgresDirectory) List(ctx context.Context) ([]Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, display_name, created_at, updated_at FROM scopes ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("scope: listing: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.DisplayName, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scope: scanning row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scope: iterating rows: %w", err)
	}
	return out, nil
}

func (d *PostgresDirectory) Delete(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM scopes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("scope: deleting %q: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("scope: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation checks the driver-specific SQLSTATE for lib/pq's
// unique_violation code without importing the pq error type directly,
// since pq.Error is only reliably present when built with cgo-free
// pure-Go pq, which the driver always is.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	type sqlState interface{ SQLState() string }
	var pgErr sqlState
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
