package store

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resilience"
)

// SupabaseStore implements Store over the PostgREST API of a Supabase
// project. Food resolution goes through the find_or_create_food RPC.
type SupabaseStore struct {
	client *resty.Client
}

// SupabaseOption configures a SupabaseStore.
type SupabaseOption func(*SupabaseStore)

// WithRestyClient replaces the underlying resty client. The base URL and
// auth headers are still applied.
func WithRestyClient(c *resty.Client) SupabaseOption {
	return func(s *SupabaseStore) { s.client = c }
}

// NewSupabase creates a store for the project at projectURL
// (e.g. https://abc.supabase.co) authenticated with key.
func NewSupabase(projectURL, key string, opts ...SupabaseOption) *SupabaseStore {
	s := &SupabaseStore{client: resty.New().SetTimeout(30 * time.Second)}
	for _, o := range opts {
		o(s)
	}
	s.client.
		SetBaseURL(strings.TrimRight(projectURL, "/")+"/rest/v1").
		SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json")
	return s
}

// Migrate is a no-op: the hosted schema is managed outside this tool.
func (s *SupabaseStore) Migrate(context.Context) error { return nil }

func (s *SupabaseStore) Close() error { return nil }

func (s *SupabaseStore) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return eris.Wrapf(err, "supabase: %s", op)
	}
	if resp.IsError() {
		return eris.Wrapf(resilience.StatusError("supabase", resp.StatusCode(), resp.String()), "supabase: %s", op)
	}
	return nil
}

func (s *SupabaseStore) InsertRecipe(ctx context.Context, row *model.RecipeRow) (string, error) {
	var out []model.RecipeRow
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(row).
		SetResult(&out).
		Post("/recipes")
	if err := s.check(resp, err, "insert recipe"); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", nil
	}
	return out[0].ID, nil
}

func (s *SupabaseStore) InsertIngredients(ctx context.Context, rows []model.IngredientRow) error {
	return s.insertCounted(ctx, "ingredients", rows, len(rows))
}

// supabaseStep is a steps row as the hosted schema names it; the hosted
// table orders steps by order_number.
type supabaseStep struct {
	ID              string `json:"id,omitempty"`
	RecipeID        string `json:"recipe_id"`
	Instruction     string `json:"instruction"`
	OrderNumber     int    `json:"order_number"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (s *SupabaseStore) InsertSteps(ctx context.Context, rows []model.StepRow) error {
	body := make([]supabaseStep, len(rows))
	for i, r := range rows {
		body[i] = supabaseStep{
			RecipeID:        r.RecipeID,
			Instruction:     r.Instruction,
			OrderNumber:     r.OrderIndex,
			DurationMinutes: r.DurationMinutes,
		}
	}
	return s.insertCounted(ctx, "steps", body, len(rows))
}

// insertCounted posts rows and fails unless PostgREST reports exactly want
// inserted rows in Content-Range.
func (s *SupabaseStore) insertCounted(ctx context.Context, table string, rows any, want int) error {
	op := "insert " + table
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal, count=exact").
		SetBody(rows).
		Post("/" + table)
	if err := s.check(resp, err, op); err != nil {
		return err
	}
	n, ok := rangeTotal(resp.Header().Get("Content-Range"))
	if !ok {
		return eris.Errorf("supabase: %s: response has no row count", op)
	}
	if n != want {
		return eris.Errorf("supabase: %s wrote %d of %d rows", op, n, want)
	}
	return nil
}

// rangeTotal parses the total of a Content-Range header such as "*/3".
func rangeTotal(h string) (int, bool) {
	_, total, found := strings.Cut(h, "/")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *SupabaseStore) deleteWhere(ctx context.Context, table, column, id string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam(column, "eq."+id).
		Delete("/" + table)
	return s.check(resp, err, "delete from "+table)
}

func (s *SupabaseStore) DeleteIngredients(ctx context.Context, recipeID string) error {
	return s.deleteWhere(ctx, "ingredients", "recipe_id", recipeID)
}

func (s *SupabaseStore) DeleteSteps(ctx context.Context, recipeID string) error {
	return s.deleteWhere(ctx, "steps", "recipe_id", recipeID)
}

func (s *SupabaseStore) DeleteRecipe(ctx context.Context, recipeID string) error {
	return s.deleteWhere(ctx, "recipes", "id", recipeID)
}

// FindUnit uses ilike without wildcards, i.e. a case-insensitive equality.
func (s *SupabaseStore) FindUnit(ctx context.Context, field UnitField, value string) (string, error) {
	var out []struct {
		ID string `json:"id"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":      "id",
			string(field): "ilike." + escapeLike(value),
			"limit":       "1",
		}).
		SetResult(&out).
		Get("/units")
	if err := s.check(resp, err, "find unit"); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", nil
	}
	return out[0].ID, nil
}

func (s *SupabaseStore) FindOrCreateFood(ctx context.Context, req FoodRequest) (string, error) {
	var id *string
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"p_name":     req.Name,
			"p_space_id": req.SpaceID,
			"p_user_id":  req.UserID,
			"p_source":   req.Source,
		}).
		SetResult(&id).
		Post("/rpc/find_or_create_food")
	if err := s.check(resp, err, "find_or_create_food"); err != nil {
		return "", err
	}
	if id == nil {
		return "", nil
	}
	return *id, nil
}

func (s *SupabaseStore) GetRecipe(ctx context.Context, id string) (*model.RecipeRow, error) {
	var out []model.RecipeRow
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"id": "eq." + id, "select": "*"}).
		SetResult(&out).
		Get("/recipes")
	if err := s.check(resp, err, "get recipe"); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *SupabaseStore) ListIngredients(ctx context.Context, recipeID string) ([]model.IngredientRow, error) {
	var out []model.IngredientRow
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"recipe_id": "eq." + recipeID, "order": "order_index.asc"}).
		SetResult(&out).
		Get("/ingredients")
	return out, s.check(resp, err, "list ingredients")
}

func (s *SupabaseStore) ListSteps(ctx context.Context, recipeID string) ([]model.StepRow, error) {
	var out []supabaseStep
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"recipe_id": "eq." + recipeID, "order": "order_number.asc"}).
		SetResult(&out).
		Get("/steps")
	if err := s.check(resp, err, "list steps"); err != nil {
		return nil, err
	}
	rows := make([]model.StepRow, len(out))
	for i, st := range out {
		rows[i] = model.StepRow{
			ID:              st.ID,
			RecipeID:        st.RecipeID,
			Instruction:     st.Instruction,
			OrderIndex:      st.OrderNumber,
			DurationMinutes: st.DurationMinutes,
		}
	}
	return rows, nil
}

func (s *SupabaseStore) GetSpaceName(ctx context.Context, spaceID string) (string, error) {
	var out []struct {
		Name string `json:"name"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"id": "eq." + spaceID, "select": "name"}).
		SetResult(&out).
		Get("/spaces")
	if err := s.check(resp, err, "get space"); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrNotFound
	}
	return out[0].Name, nil
}

func (s *SupabaseStore) ListRecentRecipes(ctx context.Context, spaceID string, limit int) ([]model.RecipeSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []model.RecipeSummary
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"space_id": "eq." + spaceID,
			"select":   "id,title,qa_status,created_at",
			"order":    "created_at.desc",
			"limit":    strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/recipes")
	return out, s.check(resp, err, "list recent recipes")
}

func (s *SupabaseStore) HasUpload(ctx context.Context, contentHash string) (bool, error) {
	var out []struct {
		ContentHash string `json:"content_hash"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"content_hash": "eq." + contentHash, "select": "content_hash"}).
		SetResult(&out).
		Get("/upload_ledger")
	if err := s.check(resp, err, "check upload ledger"); err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

func (s *SupabaseStore) RecordUpload(ctx context.Context, rec model.UploadRecord) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(map[string]any{
			"content_hash": rec.ContentHash,
			"input_file":   rec.InputFile,
			"batch_id":     rec.BatchID,
			"space_id":     rec.SpaceID,
			"success":      rec.Stats.Success,
			"failed":       rec.Stats.Failed,
			"skipped":      rec.Stats.Skipped,
			"uploaded_at":  rec.Timestamp.UTC(),
		}).
		Post("/upload_ledger")
	if resp != nil && resp.StatusCode() == http.StatusNotFound {
		return eris.New("supabase: upload_ledger table is missing")
	}
	return s.check(resp, err, "record upload")
}

// escapeLike escapes LIKE metacharacters so ilike matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
