package scope_test

import (
	"context"
	"testing"

	"github.com/openhab-automation/ruleengine/scope"
)

func TestInMemoryDirectory_CreateGetList(t *testing.T) {
	ctx := context.Background()
	dir := scope.NewInMemoryDirectory()

	rec, err := dir.Create(ctx, "kitchen", "Kitchen")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != "kitchen" || rec.DisplayName != "Kitchen" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := dir.Get(ctx, "kitchen")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "kitchen" {
		t.Fatalf("expected kitchen, got %+v", got)
	}

	list, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 scope, got %d", len(list))
	}
}

func TestInMemoryDirectory_DuplicateCreateFails(t *testing.T) {
	ctx := context.Background()
	dir := scope.NewInMemoryDirectory()

	if _, err := dir.Create(ctx, "kitchen", "Kitchen"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := dir.Create(ctx, "kitchen", "Kitchen Again"); err != scope.ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestInMemoryDirectory_GetMissingFails(t *testing.T) {
	ctx := context.Background()
	dir := scope.NewInMemoryDirectory()

	if _, err := dir.Get(ctx, "missing"); err != scope.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryDirectory_DeleteRemovesEntry(t *testing.T) {
	ctx := context.Background()
	dir := scope.NewInMemoryDirectory()
	dir.Create(ctx, "kitchen", "Kitchen")

	if err := dir.Delete(ctx, "kitchen"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := dir.Get(ctx, "kitchen"); err != scope.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := dir.Delete(ctx, "kitchen"); err != scope.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
