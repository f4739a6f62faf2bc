package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/db"
	"github.com/sells-group/recipe-miner/internal/model"
)

// PostgresStore implements Store against a PostgreSQL database that carries
// the recipe schema directly.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a small connection pool. Batches
// run sequentially so a handful of connections is enough.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS spaces (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipes (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title                TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	image_url            TEXT,
	prep_time_minutes    INTEGER NOT NULL DEFAULT 0,
	cook_time_minutes    INTEGER NOT NULL DEFAULT 0,
	servings             INTEGER NOT NULL DEFAULT 1,
	difficulty           TEXT NOT NULL,
	calories_per_serving INTEGER,
	user_id              TEXT NOT NULL,
	space_id             TEXT NOT NULL,
	is_public            BOOLEAN NOT NULL DEFAULT false,
	privacy_level        TEXT NOT NULL DEFAULT 'space',
	batch_id             TEXT NOT NULL DEFAULT '',
	qa_status            TEXT NOT NULL DEFAULT '',
	tags                 TEXT[] NOT NULL DEFAULT '{}',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingredients (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	recipe_id   TEXT NOT NULL REFERENCES recipes(id),
	food_id     TEXT,
	unit_id     TEXT,
	food_name   TEXT NOT NULL,
	unit_name   TEXT NOT NULL DEFAULT '',
	amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
	order_index INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	recipe_id        TEXT NOT NULL REFERENCES recipes(id),
	instruction      TEXT NOT NULL,
	order_index      INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS units (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL UNIQUE,
	abbreviation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS foods (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	space_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS upload_ledger (
	content_hash TEXT PRIMARY KEY,
	input_file   TEXT NOT NULL,
	batch_id     TEXT NOT NULL,
	space_id     TEXT NOT NULL,
	success      INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	uploaded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recipes_space ON recipes(space_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ingredients_recipe ON ingredients(recipe_id);
CREATE INDEX IF NOT EXISTS idx_steps_recipe ON steps(recipe_id);
CREATE INDEX IF NOT EXISTS idx_foods_space_name ON foods(space_id, lower(name));
`

const seedUnits = `
INSERT INTO units (name, abbreviation)
SELECT * FROM unnest($1::text[], $2::text[])
ON CONFLICT (name) DO NOTHING`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	names := make([]string, len(DefaultUnits))
	abbrevs := make([]string, len(DefaultUnits))
	for i, u := range DefaultUnits {
		names[i], abbrevs[i] = u.Name, u.Abbreviation
	}
	_, err := s.pool.Exec(ctx, seedUnits, names, abbrevs)
	return eris.Wrap(err, "postgres: seed units")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertRecipe(ctx context.Context, row *model.RecipeRow) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO recipes (title, description, image_url, prep_time_minutes, cook_time_minutes, servings,
			difficulty, calories_per_serving, user_id, space_id, is_public, privacy_level, batch_id, qa_status, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		row.Title, row.Description, row.ImageURL, row.PrepTimeMinutes, row.CookTimeMinutes, row.Servings,
		string(row.Difficulty), row.CaloriesPerServing, row.UserID, row.SpaceID, row.IsPublic,
		row.PrivacyLevel, row.BatchID, row.QAStatus, row.Tags,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert recipe")
	}
	return id, nil
}

var (
	ingredientColumns = []string{"recipe_id", "food_id", "unit_id", "food_name", "unit_name", "amount", "order_index"}
	stepColumns       = []string{"recipe_id", "instruction", "order_index", "duration_minutes"}
)

// InsertIngredients copies all rows in one COPY, which is atomic.
func (s *PostgresStore) InsertIngredients(ctx context.Context, rows []model.IngredientRow) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.RecipeID, r.FoodID, r.UnitID, r.FoodName, r.UnitName, r.Amount, r.OrderIndex}
	}
	return eris.Wrap(db.CopyRows(ctx, s.pool, "ingredients", ingredientColumns, data), "postgres: insert ingredients")
}

// InsertSteps copies all rows in one COPY, which is atomic.
func (s *PostgresStore) InsertSteps(ctx context.Context, rows []model.StepRow) error {
	data := make([][]any, len(rows))
	for i, r := range rows {
		data[i] = []any{r.RecipeID, r.Instruction, r.OrderIndex, r.DurationMinutes}
	}
	return eris.Wrap(db.CopyRows(ctx, s.pool, "steps", stepColumns, data), "postgres: insert steps")
}

func (s *PostgresStore) DeleteIngredients(ctx context.Context, recipeID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ingredients WHERE recipe_id = $1`, recipeID)
	return eris.Wrapf(err, "postgres: delete ingredients of %s", recipeID)
}

func (s *PostgresStore) DeleteSteps(ctx context.Context, recipeID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM steps WHERE recipe_id = $1`, recipeID)
	return eris.Wrapf(err, "postgres: delete steps of %s", recipeID)
}

func (s *PostgresStore) DeleteRecipe(ctx context.Context, recipeID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, recipeID)
	return eris.Wrapf(err, "postgres: delete recipe %s", recipeID)
}

func (s *PostgresStore) FindUnit(ctx context.Context, field UnitField, value string) (string, error) {
	query := `SELECT id FROM units WHERE lower(name) = lower($1) LIMIT 1`
	if field == UnitByAbbreviation {
		query = `SELECT id FROM units WHERE abbreviation <> '' AND lower(abbreviation) = lower($1) LIMIT 1`
	}
	var id string
	err := s.pool.QueryRow(ctx, query, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: find unit %s=%s", field, value)
	}
	return id, nil
}

// FindOrCreateFood matches case-insensitively within the space and inserts
// the food when nothing matches.
func (s *PostgresStore) FindOrCreateFood(ctx context.Context, req FoodRequest) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM foods WHERE space_id = $1 AND lower(name) = lower($2) LIMIT 1`,
		req.SpaceID, req.Name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(err, "postgres: find food %s", req.Name)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO foods (name, space_id, user_id, source) VALUES ($1, $2, $3, $4) RETURNING id`,
		req.Name, req.SpaceID, req.UserID, req.Source,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: create food %s", req.Name)
	}
	return id, nil
}

func (s *PostgresStore) GetRecipe(ctx context.Context, id string) (*model.RecipeRow, error) {
	var (
		r          model.RecipeRow
		difficulty string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, image_url, prep_time_minutes, cook_time_minutes, servings,
			difficulty, calories_per_serving, user_id, space_id, is_public, privacy_level, batch_id,
			qa_status, tags, created_at
		FROM recipes WHERE id = $1`, id,
	).Scan(&r.ID, &r.Title, &r.Description, &r.ImageURL, &r.PrepTimeMinutes, &r.CookTimeMinutes, &r.Servings,
		&difficulty, &r.CaloriesPerServing, &r.UserID, &r.SpaceID, &r.IsPublic, &r.PrivacyLevel, &r.BatchID,
		&r.QAStatus, &r.Tags, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get recipe %s", id)
	}
	r.Difficulty = model.Difficulty(difficulty)
	return &r, nil
}

func (s *PostgresStore) ListIngredients(ctx context.Context, recipeID string) ([]model.IngredientRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipe_id, food_id, unit_id, food_name, unit_name, amount, order_index
		FROM ingredients WHERE recipe_id = $1 ORDER BY order_index`, recipeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingredients")
	}
	defer rows.Close()

	var out []model.IngredientRow
	for rows.Next() {
		var r model.IngredientRow
		if err := rows.Scan(&r.ID, &r.RecipeID, &r.FoodID, &r.UnitID, &r.FoodName, &r.UnitName, &r.Amount, &r.OrderIndex); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingredient")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate ingredients")
}

func (s *PostgresStore) ListSteps(ctx context.Context, recipeID string) ([]model.StepRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipe_id, instruction, order_index, duration_minutes
		FROM steps WHERE recipe_id = $1 ORDER BY order_index`, recipeID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list steps")
	}
	defer rows.Close()

	var out []model.StepRow
	for rows.Next() {
		var r model.StepRow
		if err := rows.Scan(&r.ID, &r.RecipeID, &r.Instruction, &r.OrderIndex, &r.DurationMinutes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan step")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate steps")
}

func (s *PostgresStore) GetSpaceName(ctx context.Context, spaceID string) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM spaces WHERE id = $1`, spaceID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, eris.Wrapf(err, "postgres: get space %s", spaceID)
}

func (s *PostgresStore) ListRecentRecipes(ctx context.Context, spaceID string, limit int) ([]model.RecipeSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, qa_status, created_at FROM recipes
		WHERE space_id = $1 ORDER BY created_at DESC LIMIT $2`, spaceID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recent recipes")
	}
	defer rows.Close()

	var out []model.RecipeSummary
	for rows.Next() {
		var r model.RecipeSummary
		if err := rows.Scan(&r.ID, &r.Title, &r.QAStatus, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recipe summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate recipes")
}

func (s *PostgresStore) HasUpload(ctx context.Context, contentHash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM upload_ledger WHERE content_hash = $1)`, contentHash,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: check upload ledger")
	}
	return exists, nil
}

func (s *PostgresStore) RecordUpload(ctx context.Context, rec model.UploadRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO upload_ledger (content_hash, input_file, batch_id, space_id, success, failed, skipped, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (content_hash) DO UPDATE SET batch_id = EXCLUDED.batch_id, uploaded_at = EXCLUDED.uploaded_at`,
		rec.ContentHash, rec.InputFile, rec.BatchID, rec.SpaceID,
		rec.Stats.Success, rec.Stats.Failed, rec.Stats.Skipped, rec.Timestamp,
	)
	return eris.Wrap(err, "postgres: record upload")
}
