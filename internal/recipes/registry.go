package recipes

import (
	"errors"
	"fmt"
	"strings"
)

// HandlerSet reports which families have a conversion routine.
type HandlerSet interface {
	Supports(Family) bool
}

// Registry is the validated, read-only recipe table.
type Registry struct {
	bySlug map[string]Recipe
	order  []string
}

// New validates recipes against handlers and builds a registry. A nil
// handler set skips the handler check.
func New(recipes []Recipe, handlers HandlerSet) (*Registry, error) {
	reg := &Registry{bySlug: make(map[string]Recipe, len(recipes))}
	var problems []error
	for _, r := range recipes {
		if err := validate(r, handlers); err != nil {
			problems = append(problems, err)
			continue
		}
		if _, dup := reg.bySlug[r.Slug]; dup {
			problems = append(problems, fmt.Errorf("recipe %q: duplicate slug", r.Slug))
			continue
		}
		reg.bySlug[r.Slug] = r
		reg.order = append(reg.order, r.Slug)
	}
	if err := errors.Join(problems...); err != nil {
		return nil, fmt.Errorf("invalid recipe registry: %w", err)
	}
	return reg, nil
}

// Default builds the registry from the built-in table.
func Default(handlers HandlerSet) (*Registry, error) {
	return New(Definitions(), handlers)
}

func validate(r Recipe, handlers HandlerSet) error {
	var problems []string
	if !slugPattern.MatchString(r.Slug) {
		problems = append(problems, "slug must be lowercase and hyphenated")
	}
	if len(r.Accept.Extensions) == 0 && len(r.Accept.MIMETypes) == 0 {
		problems = append(problems, "accept table is empty")
	}
	if strings.TrimSpace(r.OutputFormat) == "" {
		problems = append(problems, "output format is empty")
	}
	if r.Family == "" {
		problems = append(problems, "family is empty")
	} else if handlers != nil && !handlers.Supports(r.Family) {
		problems = append(problems, fmt.Sprintf("no handler for family %q", r.Family))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("recipe %q: %s", r.Slug, strings.Join(problems, "; "))
}

// Lookup finds a recipe by slug after normalizing it.
func (r *Registry) Lookup(slug string) (Recipe, bool) {
	recipe, ok := r.bySlug[NormalizeSlug(slug)]
	return recipe, ok
}

// All returns the recipes in registration order.
func (r *Registry) All() []Recipe {
	out := make([]Recipe, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.bySlug[slug])
	}
	return out
}

// Len reports the number of registered recipes.
func (r *Registry) Len() int {
	return len(r.order)
}
