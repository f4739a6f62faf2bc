package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/store"
)

func sagaRows() (*model.RecipeRow, []model.IngredientRow, []model.StepRow) {
	return &model.RecipeRow{Title: "Elote", SpaceID: "space-1"},
		[]model.IngredientRow{{FoodName: "Corn", OrderIndex: 1}, {FoodName: "Mayo", OrderIndex: 2}},
		[]model.StepRow{{Instruction: "Grill", OrderIndex: 1}, {Instruction: "Slather", OrderIndex: 2}}
}

func TestSaga_Success(t *testing.T) {
	mem := store.NewMemory()
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	id, err := s.Run(context.Background(), recipe, ings, steps)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, StateStepsWritten, s.State())
	assert.Equal(t, id, s.RecipeID())
	assert.Equal(t, []Transition{
		{From: StatePending, To: StateRecipeWritten, Action: "insert recipe"},
		{From: StateRecipeWritten, To: StateIngredientsWritten, Action: "insert ingredients"},
		{From: StateIngredientsWritten, To: StateStepsWritten, Action: "insert steps"},
	}, s.History())

	got, err := mem.ListIngredients(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, id, got[0].RecipeID)
}

func TestSaga_RecipeInsertError(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertRecipe, errors.New("permission denied"))
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	_, err := s.Run(context.Background(), recipe, ings, steps)

	require.ErrorIs(t, err, ErrRecipeInsert)
	assert.Equal(t, StatePending, s.State())
	assert.Empty(t, s.History())
	assert.Equal(t, 0, mem.Calls(store.OpInsertIngredients))
	assert.Equal(t, 0, mem.Calls(store.OpDeleteRecipe))
}

func TestSaga_RecipeInsertNoID(t *testing.T) {
	mem := store.NewMemory()
	mem.OmitRecipeID = true
	recipe, ings, steps := sagaRows()

	_, err := NewSaga(mem).Run(context.Background(), recipe, ings, steps)

	require.ErrorIs(t, err, ErrRecipeInsert)
	assert.Contains(t, err.Error(), "recipe insert failed")
	assert.Equal(t, 0, mem.Calls(store.OpInsertIngredients))
}

func TestSaga_IngredientFailureRollsBackRecipe(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertIngredients, errors.New("fk violation"))
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	_, err := s.Run(context.Background(), recipe, ings, steps)

	require.ErrorIs(t, err, ErrIngredientInsert)
	assert.Contains(t, err.Error(), "fk violation")
	assert.Equal(t, StatePending, s.State())
	assert.Equal(t, StateRecipeWritten, s.History()[0].To)
	assert.Equal(t, Transition{From: StateRecipeWritten, To: StatePending, Action: "rollback recipe"}, s.History()[1])
	assert.Equal(t, 1, mem.Calls(store.OpDeleteRecipe))
	assert.Equal(t, 0, mem.Calls(store.OpInsertSteps))

	recipes, ingredients, stepCount := mem.Counts()
	assert.Zero(t, recipes)
	assert.Zero(t, ingredients)
	assert.Zero(t, stepCount)
}

func TestSaga_StepFailureRollsBackEverything(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertSteps, errors.New("check constraint"))
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	_, err := s.Run(context.Background(), recipe, ings, steps)

	require.ErrorIs(t, err, ErrStepInsert)
	assert.Equal(t, StatePending, s.State())
	assert.Empty(t, s.RecipeID())
	assert.Equal(t, Transition{From: StateIngredientsWritten, To: StatePending, Action: "rollback ingredients and recipe"}, s.History()[2])

	attempted := s.History()[0]
	assert.Equal(t, StateRecipeWritten, attempted.To)

	recipes, ingredients, stepCount := mem.Counts()
	assert.Zero(t, recipes)
	assert.Zero(t, ingredients)
	assert.Zero(t, stepCount)
	assert.Equal(t, 1, mem.Calls(store.OpDeleteIngredients))
	assert.Equal(t, 1, mem.Calls(store.OpDeleteRecipe))
}

func TestSaga_StepFailureRollbackQueriesReturnNothing(t *testing.T) {
	mem := store.NewMemory()
	recipe, ings, steps := sagaRows()

	// Capture the id the store hands out before the step insert fails.
	var attemptedID string
	s := NewSaga(&idSpy{RecipeWriter: mem, id: &attemptedID})
	mem.FailOn(store.OpInsertSteps, errors.New("boom"))

	_, err := s.Run(context.Background(), recipe, ings, steps)
	require.Error(t, err)
	require.NotEmpty(t, attemptedID)

	_, err = mem.GetRecipe(context.Background(), attemptedID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := mem.ListIngredients(context.Background(), attemptedID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaga_RollbackFailureReported(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertSteps, errors.New("boom"))
	mem.FailOn(store.OpDeleteIngredients, errors.New("delete timed out"))
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	_, err := s.Run(context.Background(), recipe, ings, steps)

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	require.Error(t, ue.Rollback)
	assert.Contains(t, err.Error(), "rollback: delete timed out")
	assert.Equal(t, 1, mem.Calls(store.OpDeleteRecipe))
	assert.NotEmpty(t, s.RecipeID())

	assert.Equal(t, StateRollbackFailed, s.State())
	h := s.History()
	assert.Equal(t, Transition{
		From:   StateIngredientsWritten,
		To:     StateRollbackFailed,
		Action: "rollback ingredients and recipe (incomplete)",
	}, h[len(h)-1])
}

func TestSaga_IngredientRollbackFailureState(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertIngredients, errors.New("boom"))
	mem.FailOn(store.OpDeleteRecipe, errors.New("delete refused"))
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()

	_, err := s.Run(context.Background(), recipe, ings, steps)
	require.Error(t, err)

	assert.Equal(t, StateRollbackFailed, s.State())
	assert.Equal(t, Transition{From: StateRecipeWritten, To: StateRollbackFailed, Action: "rollback recipe (incomplete)"}, s.History()[1])
	recipes, _, _ := mem.Counts()
	assert.Equal(t, 1, recipes)
}

func TestSaga_RunTwice(t *testing.T) {
	mem := store.NewMemory()
	s := NewSaga(mem)
	recipe, ings, steps := sagaRows()
	_, err := s.Run(context.Background(), recipe, ings, steps)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), recipe, ings, steps)
	assert.ErrorContains(t, err, "already run")
}

func TestSaga_RollbackSurvivesCancellation(t *testing.T) {
	mem := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	failing := &cancelOnSteps{RecipeWriter: mem, cancel: cancel}
	recipe, ings, steps := sagaRows()

	_, err := NewSaga(failing).Run(ctx, recipe, ings, steps)

	require.ErrorIs(t, err, ErrStepInsert)
	recipes, ingredients, _ := mem.Counts()
	assert.Zero(t, recipes)
	assert.Zero(t, ingredients)
}

type idSpy struct {
	store.RecipeWriter
	id *string
}

func (s *idSpy) InsertRecipe(ctx context.Context, row *model.RecipeRow) (string, error) {
	id, err := s.RecipeWriter.InsertRecipe(ctx, row)
	*s.id = id
	return id, err
}

type cancelOnSteps struct {
	store.RecipeWriter
	cancel context.CancelFunc
}

func (c *cancelOnSteps) InsertSteps(context.Context, []model.StepRow) error {
	c.cancel()
	return context.Canceled
}
