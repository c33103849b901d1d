// Package scope manages the directory of scopes (sites, homes, tenants —
// whatever a deployment calls its top-level rule namespaces) and hands out
// one engine.Engine per scope. It has nothing to do with rule execution:
// the engine package never imports it.
package scope

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a scope identifier has no directory entry.
var ErrNotFound = errors.New("scope: not found")

// ErrAlreadyExists is returned by Create when the identifier is taken.
var ErrAlreadyExists = errors.New("scope: already exists")

// Record describes a single scope's directory entry.
type Record struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Directory persists which scopes exist. It says nothing about whether an
// engine is currently running for a scope; that is Manager's job.
type Directory interface {
	Create(ctx context.Context, id, displayName string) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
