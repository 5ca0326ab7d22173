package services_test

import (
	"context"
	"testing"

	"fileconv/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithRecipe(ctx, "pdf-to-jpg")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if recipe, ok := services.RecipeFromContext(ctx); !ok || recipe != "pdf-to-jpg" {
		t.Fatalf("unexpected recipe: %v %v", recipe, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "")
	ctx = services.WithRecipe(ctx, "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.RecipeFromContext(ctx); ok {
		t.Fatal("expected no recipe value")
	}
}
