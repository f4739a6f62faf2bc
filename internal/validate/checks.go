package validate

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/recipe-miner/internal/model"
)

// QuickCheck runs the deterministic checks that need no model call. It
// returns the reason for the first failed check, or "" when all pass.
func QuickCheck(r *model.Recipe) string {
	if r == nil {
		return "Missing required field: recipe"
	}
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "Missing required field: title"
	case strings.TrimSpace(r.Description) == "":
		return "Missing required field: description"
	case len(r.Ingredients) == 0:
		return "Missing required field: ingredients"
	case len(r.Steps) == 0:
		return "Missing required field: steps"
	}

	if len(r.Ingredients) < model.MinIngredients {
		return fmt.Sprintf("Recipe has too few ingredients (minimum %d required)", model.MinIngredients)
	}
	if len(r.Steps) < model.MinSteps {
		return fmt.Sprintf("Recipe has too few steps (minimum %d required)", model.MinSteps)
	}
	if r.PrepTimeMinutes < 0 || r.CookTimeMinutes < 0 {
		return "Negative time values are not allowed"
	}
	if r.TotalMinutes() > model.MaxTotalMinutes {
		return "Total cooking time exceeds 8 hours"
	}
	if r.Servings < model.MinServings || r.Servings > model.MaxServings {
		return fmt.Sprintf("Number of servings must be between %d and %d", model.MinServings, model.MaxServings)
	}
	return ""
}

// PostCheck runs the deterministic checks applied after a PASS from the
// judge: duplicate ingredient names under case folding, then step order
// and uniqueness.
func PostCheck(r *model.Recipe) string {
	if dups := duplicateIngredients(r.Ingredients); len(dups) > 0 {
		return "Duplicate ingredients: " + strings.Join(dups, ", ")
	}

	orders := make([]int, len(r.Steps))
	for i, s := range r.Steps {
		orders[i] = s.Order
	}
	if !slices.IsSorted(orders) {
		return "Steps are not in sequential order"
	}
	if len(slices.Compact(orders)) != len(orders) {
		return "Duplicate step numbers"
	}
	return ""
}

// duplicateIngredients returns each repeated name once, in the casing of its
// first occurrence, sorted.
func duplicateIngredients(ings []model.Ingredient) []string {
	fold := cases.Fold()
	first := make(map[string]string, len(ings))
	count := make(map[string]int, len(ings))
	for _, ing := range ings {
		key := fold.String(strings.TrimSpace(ing.Item))
		if _, ok := first[key]; !ok {
			first[key] = strings.TrimSpace(ing.Item)
		}
		count[key]++
	}

	var dups []string
	for key, n := range count {
		if n > 1 {
			dups = append(dups, first[key])
		}
	}
	sort.Strings(dups)
	return dups
}
