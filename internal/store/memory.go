package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/recipe-miner/internal/model"
)

// Op names a store operation for failure injection and call counting.
type Op string

const (
	OpInsertRecipe      Op = "InsertRecipe"
	OpInsertIngredients Op = "InsertIngredients"
	OpInsertSteps       Op = "InsertSteps"
	OpDeleteIngredients Op = "DeleteIngredients"
	OpDeleteSteps       Op = "DeleteSteps"
	OpDeleteRecipe      Op = "DeleteRecipe"
	OpFindUnit          Op = "FindUnit"
	OpFindOrCreateFood  Op = "FindOrCreateFood"
	OpHasUpload         Op = "HasUpload"
	OpRecordUpload      Op = "RecordUpload"
)

type memUnit struct {
	id, name, abbreviation string
}

type memFood struct {
	id, name, spaceID, userID, source string
}

// MemoryStore is an in-process Store used by tests and dry runs. Failures
// can be injected per operation.
type MemoryStore struct {
	mu sync.Mutex

	recipes     map[string]model.RecipeRow
	order       []string
	ingredients map[string][]model.IngredientRow
	steps       map[string][]model.StepRow
	units       []memUnit
	foods       []memFood
	spaces      map[string]string
	uploads     map[string]model.UploadRecord

	failures map[Op]error
	calls    map[Op]int

	// OmitRecipeID makes InsertRecipe succeed without returning an id.
	OmitRecipeID bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		recipes:     make(map[string]model.RecipeRow),
		ingredients: make(map[string][]model.IngredientRow),
		steps:       make(map[string][]model.StepRow),
		spaces:      make(map[string]string),
		uploads:     make(map[string]model.UploadRecord),
		failures:    make(map[Op]error),
		calls:       make(map[Op]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (m *MemoryStore) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns how many times op has been invoked.
func (m *MemoryStore) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// AddUnit seeds a unit and returns its id.
func (m *MemoryStore) AddUnit(name, abbreviation string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.units = append(m.units, memUnit{id: id, name: name, abbreviation: abbreviation})
	return id
}

// AddSpace seeds a space name.
func (m *MemoryStore) AddSpace(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[id] = name
}

// Counts returns the number of stored recipe, ingredient and step rows.
func (m *MemoryStore) Counts() (recipes, ingredients, steps int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rows := range m.ingredients {
		ingredients += len(rows)
	}
	for _, rows := range m.steps {
		steps += len(rows)
	}
	return len(m.recipes), ingredients, steps
}

// FoodCount returns the number of stored foods.
func (m *MemoryStore) FoodCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.foods)
}

func (m *MemoryStore) enter(op Op) error {
	m.calls[op]++
	return m.failures[op]
}

func (m *MemoryStore) InsertRecipe(_ context.Context, row *model.RecipeRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpInsertRecipe); err != nil {
		return "", err
	}
	if m.OmitRecipeID {
		return "", nil
	}
	r := *row
	r.ID = uuid.NewString()
	r.Tags = slices.Clone(row.Tags)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.recipes[r.ID] = r
	m.order = append(m.order, r.ID)
	return r.ID, nil
}

func (m *MemoryStore) InsertIngredients(_ context.Context, rows []model.IngredientRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpInsertIngredients); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = uuid.NewString()
		m.ingredients[r.RecipeID] = append(m.ingredients[r.RecipeID], r)
	}
	return nil
}

func (m *MemoryStore) InsertSteps(_ context.Context, rows []model.StepRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpInsertSteps); err != nil {
		return err
	}
	for _, r := range rows {
		r.ID = uuid.NewString()
		m.steps[r.RecipeID] = append(m.steps[r.RecipeID], r)
	}
	return nil
}

func (m *MemoryStore) DeleteIngredients(_ context.Context, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteIngredients); err != nil {
		return err
	}
	delete(m.ingredients, recipeID)
	return nil
}

func (m *MemoryStore) DeleteSteps(_ context.Context, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteSteps); err != nil {
		return err
	}
	delete(m.steps, recipeID)
	return nil
}

func (m *MemoryStore) DeleteRecipe(_ context.Context, recipeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDeleteRecipe); err != nil {
		return err
	}
	delete(m.recipes, recipeID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == recipeID })
	return nil
}

func (m *MemoryStore) FindUnit(_ context.Context, field UnitField, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpFindUnit); err != nil {
		return "", err
	}
	for _, u := range m.units {
		candidate := u.name
		if field == UnitByAbbreviation {
			candidate = u.abbreviation
		}
		if candidate != "" && strings.EqualFold(candidate, value) {
			return u.id, nil
		}
	}
	return "", nil
}

func (m *MemoryStore) FindOrCreateFood(_ context.Context, req FoodRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpFindOrCreateFood); err != nil {
		return "", err
	}
	name := strings.TrimSpace(req.Name)
	for _, f := range m.foods {
		if f.spaceID == req.SpaceID && strings.EqualFold(f.name, name) {
			return f.id, nil
		}
	}
	f := memFood{id: uuid.NewString(), name: name, spaceID: req.SpaceID, userID: req.UserID, source: req.Source}
	m.foods = append(m.foods, f)
	return f.id, nil
}

func (m *MemoryStore) GetRecipe(_ context.Context, id string) (*model.RecipeRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recipes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) ListIngredients(_ context.Context, recipeID string) ([]model.IngredientRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := slices.Clone(m.ingredients[recipeID])
	slices.SortStableFunc(rows, func(a, b model.IngredientRow) int { return a.OrderIndex - b.OrderIndex })
	return rows, nil
}

func (m *MemoryStore) ListSteps(_ context.Context, recipeID string) ([]model.StepRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := slices.Clone(m.steps[recipeID])
	slices.SortStableFunc(rows, func(a, b model.StepRow) int { return a.OrderIndex - b.OrderIndex })
	return rows, nil
}

func (m *MemoryStore) GetSpaceName(_ context.Context, spaceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.spaces[spaceID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

func (m *MemoryStore) ListRecentRecipes(_ context.Context, spaceID string, limit int) ([]model.RecipeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RecipeSummary
	for i := len(m.order) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		r := m.recipes[m.order[i]]
		if r.SpaceID != spaceID {
			continue
		}
		out = append(out, model.RecipeSummary{ID: r.ID, Title: r.Title, QAStatus: r.QAStatus, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (m *MemoryStore) HasUpload(_ context.Context, contentHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpHasUpload); err != nil {
		return false, err
	}
	_, ok := m.uploads[contentHash]
	return ok, nil
}

func (m *MemoryStore) RecordUpload(_ context.Context, rec model.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpRecordUpload); err != nil {
		return err
	}
	m.uploads[rec.ContentHash] = rec
	return nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
