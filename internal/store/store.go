// Package store persists uploaded recipes and answers the reference
// lookups the uploader needs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/model"
)

// ErrNotFound is returned by single-row reads when the row does not exist.
var ErrNotFound = eris.New("store: not found")

// UnitField selects the column a unit lookup matches against.
type UnitField string

const (
	UnitByName         UnitField = "name"
	UnitByAbbreviation UnitField = "abbreviation"
)

// FoodSourceMiner tags foods created on behalf of the miner.
const FoodSourceMiner = "ai_miner"

// FoodRequest asks the store to find a food by name within a space, or to
// create it.
type FoodRequest struct {
	Name    string
	SpaceID string
	UserID  string
	Source  string
}

// RecipeWriter is the write surface used by the upload saga. Each call is
// its own unit of work; the caller compensates on partial failure.
type RecipeWriter interface {
	// InsertRecipe returns the new row id, or "" when the store accepted the
	// request without returning a row.
	InsertRecipe(ctx context.Context, row *model.RecipeRow) (string, error)
	InsertIngredients(ctx context.Context, rows []model.IngredientRow) error
	InsertSteps(ctx context.Context, rows []model.StepRow) error
	DeleteIngredients(ctx context.Context, recipeID string) error
	DeleteSteps(ctx context.Context, recipeID string) error
	DeleteRecipe(ctx context.Context, recipeID string) error
}

// Lookup resolves reference data for ingredients.
type Lookup interface {
	// FindUnit returns the id of the unit whose field matches value
	// case-insensitively, or "" when there is none.
	FindUnit(ctx context.Context, field UnitField, value string) (string, error)
	FindOrCreateFood(ctx context.Context, req FoodRequest) (string, error)
}

// Reader serves the status command and round-trip checks.
type Reader interface {
	GetRecipe(ctx context.Context, id string) (*model.RecipeRow, error)
	ListIngredients(ctx context.Context, recipeID string) ([]model.IngredientRow, error)
	ListSteps(ctx context.Context, recipeID string) ([]model.StepRow, error)
	GetSpaceName(ctx context.Context, spaceID string) (string, error)
	ListRecentRecipes(ctx context.Context, spaceID string, limit int) ([]model.RecipeSummary, error)
}

// Ledger remembers which validated batch files were already uploaded.
type Ledger interface {
	HasUpload(ctx context.Context, contentHash string) (bool, error)
	RecordUpload(ctx context.Context, rec model.UploadRecord) error
}

// Store is the full persistence boundary.
type Store interface {
	RecipeWriter
	Lookup
	Reader
	Ledger

	Migrate(ctx context.Context) error
	Close() error
}

// Unit is a measurement unit seeded into development stores.
type Unit struct {
	Name         string
	Abbreviation string
}

// DefaultUnits are seeded by Migrate on the SQL backends so the resolver's
// "piece" fallback always has a target.
var DefaultUnits = []Unit{
	{"piece", "pc"},
	{"gram", "g"},
	{"kilogram", "kg"},
	{"milliliter", "ml"},
	{"liter", "l"},
	{"cup", "cup"},
	{"tablespoon", "tbsp"},
	{"teaspoon", "tsp"},
	{"ounce", "oz"},
	{"pound", "lb"},
	{"clove", ""},
	{"pinch", ""},
}
