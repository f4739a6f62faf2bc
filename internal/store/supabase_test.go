package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resilience"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSupabase(srv.URL, "service-key")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSupabase_InsertRecipe(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/recipes", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["is_public"])
		assert.Equal(t, "space", body["privacy_level"])
		assert.Equal(t, []any{"#QA_PASS"}, body["tags"])
		assert.Nil(t, body["image_url"])
		assert.NotContains(t, body, "id")

		writeJSON(w, http.StatusCreated, []map[string]any{{"id": "rec-42"}})
	})

	id, err := s.InsertRecipe(context.Background(), sampleRecipeRow())
	require.NoError(t, err)
	assert.Equal(t, "rec-42", id)
}

func TestSupabase_InsertRecipe_EmptyRepresentation(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, []any{})
	})

	id, err := s.InsertRecipe(context.Background(), sampleRecipeRow())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSupabase_InsertIngredients_Error(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"order_index":1`)
		assert.Contains(t, string(body), `"food_id":null`)
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "violates foreign key"})
	})

	err := s.InsertIngredients(context.Background(), []model.IngredientRow{{RecipeID: "r", FoodName: "Salt", OrderIndex: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert ingredients")
	assert.Contains(t, err.Error(), "status 400")
	assert.False(t, resilience.IsTransient(err))
}

func TestSupabase_InsertSteps_HostedColumns(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/steps", r.URL.Path)
		assert.Contains(t, r.Header.Get("Prefer"), "count=exact")

		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 2)
		assert.Equal(t, map[string]any{
			"recipe_id":        "r1",
			"instruction":      "Boil.",
			"order_number":     float64(1),
			"duration_minutes": float64(10),
		}, body[0])
		assert.NotContains(t, body[1], "order_index")

		w.Header().Set("Content-Range", "*/2")
		w.WriteHeader(http.StatusCreated)
	})

	err := s.InsertSteps(context.Background(), []model.StepRow{
		{RecipeID: "r1", Instruction: "Boil.", OrderIndex: 1, DurationMinutes: 10},
		{RecipeID: "r1", Instruction: "Serve.", OrderIndex: 2},
	})
	require.NoError(t, err)
}

func TestSupabase_ListSteps_OrderNumber(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "order_number.asc", r.URL.Query().Get("order"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "s1", "recipe_id": "r1", "instruction": "Boil.", "order_number": 1, "duration_minutes": 10},
			{"id": "s2", "recipe_id": "r1", "instruction": "Serve.", "order_number": 2, "duration_minutes": 0},
		})
	})

	steps, err := s.ListSteps(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].OrderIndex)
	assert.Equal(t, 2, steps[1].OrderIndex)
	assert.Equal(t, "Serve.", steps[1].Instruction)
}

func TestSupabase_InsertIngredients_RowCount(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr string
	}{
		{"all rows", "*/2", ""},
		{"rows dropped", "*/1", "wrote 1 of 2 rows"},
		{"no count", "", "no row count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
				if tt.header != "" {
					w.Header().Set("Content-Range", tt.header)
				}
				w.WriteHeader(http.StatusCreated)
			})

			err := s.InsertIngredients(context.Background(), []model.IngredientRow{
				{RecipeID: "r", FoodName: "Salt", OrderIndex: 1},
				{RecipeID: "r", FoodName: "Lime", OrderIndex: 2},
			})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRangeTotal(t *testing.T) {
	n, ok := rangeTotal("*/3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	n, ok = rangeTotal("0-2/3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = rangeTotal("*/*")
	assert.False(t, ok)
	_, ok = rangeTotal("")
	assert.False(t, ok)
}

func TestSupabase_DeleteUsesFilter(t *testing.T) {
	var got []string
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		got = append(got, r.URL.Path+"?"+r.URL.RawQuery)
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	require.NoError(t, s.DeleteIngredients(ctx, "r1"))
	require.NoError(t, s.DeleteRecipe(ctx, "r1"))
	assert.Equal(t, []string{
		"/rest/v1/ingredients?recipe_id=eq.r1",
		"/rest/v1/recipes?id=eq.r1",
	}, got)
}

func TestSupabase_FindUnit(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/units", r.URL.Path)
		if r.URL.Query().Get("abbreviation") == "ilike.tbsp" {
			writeJSON(w, http.StatusOK, []map[string]string{{"id": "u-tbsp"}})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	})
	ctx := context.Background()

	id, err := s.FindUnit(ctx, UnitByAbbreviation, "tbsp")
	require.NoError(t, err)
	assert.Equal(t, "u-tbsp", id)

	id, err = s.FindUnit(ctx, UnitByName, "handful")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSupabase_FindOrCreateFood(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/find_or_create_food", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"p_name": "Masa", "p_space_id": "s", "p_user_id": "u", "p_source": "ai_miner",
		}, body)
		writeJSON(w, http.StatusOK, "food-1")
	})

	id, err := s.FindOrCreateFood(context.Background(), FoodRequest{Name: "Masa", SpaceID: "s", UserID: "u", Source: FoodSourceMiner})
	require.NoError(t, err)
	assert.Equal(t, "food-1", id)
}

func TestSupabase_TransientStatus(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.HasUpload(context.Background(), "h")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestSupabase_GetSpaceNameAndRecent(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/spaces":
			writeJSON(w, http.StatusOK, []map[string]string{{"name": "QA Staging"}})
		case "/rest/v1/recipes":
			assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, []map[string]string{
				{"id": "a", "title": "Mole", "qa_status": "flag", "created_at": "2026-01-02T03:04:05Z"},
			})
		}
	})
	ctx := context.Background()

	name, err := s.GetSpaceName(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "QA Staging", name)

	recent, err := s.ListRecentRecipes(ctx, "s", 3)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "flag", recent[0].QAStatus)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% cream`, escapeLike("50% cream"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
}
