package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	recipeKey    contextKey = "recipe"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the conversion job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecipe annotates context with the converter slug being executed.
func WithRecipe(ctx context.Context, slug string) context.Context {
	if slug == "" {
		return ctx
	}
	return context.WithValue(ctx, recipeKey, slug)
}

// RecipeFromContext returns the converter slug if present.
func RecipeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recipeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
