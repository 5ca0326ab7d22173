package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fileconv/internal/recipes"
)

type recipeView struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Inputs      []string `json:"inputs"`
	Output      string   `json:"output"`
	Batch       bool     `json:"batch,omitempty"`
	MinInputs   int      `json:"minInputs,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
}

func newRecipesCommand(ctx *commandContext) *cobra.Command {
	var category string
	var featuredOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "recipes",
		Short:       "List the available converters",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := recipes.Default(nil)
			if err != nil {
				return err
			}
			list := filterRecipes(registry.All(), category, featuredOnly)
			if len(list) == 0 {
				return fmt.Errorf("no recipes match category %q", category)
			}

			if jsonOutput {
				views := make([]recipeView, 0, len(list))
				for _, r := range list {
					views = append(views, recipeView{
						Slug:        r.Slug,
						Title:       r.Title,
						Description: r.Description,
						Category:    r.Category,
						Inputs:      r.Accept.Extensions,
						Output:      r.OutputFormat,
						Batch:       r.Batch,
						MinInputs:   r.MinInputs,
						Featured:    r.Featured,
					})
				}
				return writeJSON(cmd, views)
			}

			upper := cases.Upper(language.Und)
			rows := make([][]string, 0, len(list))
			for _, r := range list {
				rows = append(rows, []string{
					r.Slug,
					r.Title,
					strings.Join(r.Accept.Extensions, " "),
					upper.String(r.OutputFormat),
					r.Category,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Slug", "Title", "Inputs", "Output", "Category"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list recipes in this category (case-insensitive)")
	cmd.Flags().BoolVar(&featuredOnly, "featured", false, "Only list featured recipes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	return cmd
}

// filterRecipes keeps registry order within a category and sorts categories
// alphabetically.
func filterRecipes(all []recipes.Recipe, category string, featuredOnly bool) []recipes.Recipe {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(category))
	out := make([]recipes.Recipe, 0, len(all))
	for _, r := range all {
		if want != "" && fold.String(r.Category) != want {
			continue
		}
		if featuredOnly && !r.Featured {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b recipes.Recipe) int {
		return strings.Compare(a.Category, b.Category)
	})
	return out
}
