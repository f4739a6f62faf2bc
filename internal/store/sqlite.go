package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/recipe-miner/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS spaces (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipes (
	id                   TEXT PRIMARY KEY,
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
	is_public            INTEGER NOT NULL DEFAULT 0,
	privacy_level        TEXT NOT NULL DEFAULT 'space',
	batch_id             TEXT NOT NULL DEFAULT '',
	qa_status            TEXT NOT NULL DEFAULT '',
	tags                 TEXT NOT NULL DEFAULT '[]',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingredients (
	id          TEXT PRIMARY KEY,
	recipe_id   TEXT NOT NULL REFERENCES recipes(id),
	food_id     TEXT,
	unit_id     TEXT,
	food_name   TEXT NOT NULL,
	unit_name   TEXT NOT NULL DEFAULT '',
	amount      REAL NOT NULL DEFAULT 0,
	order_index INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS steps (
	id               TEXT PRIMARY KEY,
	recipe_id        TEXT NOT NULL REFERENCES recipes(id),
	instruction      TEXT NOT NULL,
	order_index      INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS units (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	abbreviation TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS foods (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	space_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS upload_ledger (
	content_hash TEXT PRIMARY KEY,
	input_file   TEXT NOT NULL,
	batch_id     TEXT NOT NULL,
	space_id     TEXT NOT NULL,
	success      INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	uploaded_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recipes_space ON recipes(space_id, created_at);
CREATE INDEX IF NOT EXISTS idx_ingredients_recipe ON ingredients(recipe_id);
CREATE INDEX IF NOT EXISTS idx_steps_recipe ON steps(recipe_id);
CREATE INDEX IF NOT EXISTS idx_foods_space_name ON foods(space_id, name COLLATE NOCASE);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	for _, u := range DefaultUnits {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO units (id, name, abbreviation) VALUES (?, ?, ?)`,
			uuid.NewString(), u.Name, u.Abbreviation,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed unit %s", u.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddSpace upserts a space name.
func (s *SQLiteStore) AddSpace(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spaces (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		id, name,
	)
	return eris.Wrap(err, "sqlite: add space")
}

func (s *SQLiteStore) InsertRecipe(ctx context.Context, row *model.RecipeRow) (string, error) {
	tags, err := json.Marshal(row.Tags)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal tags")
	}
	id := uuid.NewString()
	created := row.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, title, description, image_url, prep_time_minutes, cook_time_minutes,
			servings, difficulty, calories_per_serving, user_id, space_id, is_public, privacy_level,
			batch_id, qa_status, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, row.Title, row.Description, row.ImageURL, row.PrepTimeMinutes, row.CookTimeMinutes,
		row.Servings, string(row.Difficulty), row.CaloriesPerServing, row.UserID, row.SpaceID,
		row.IsPublic, row.PrivacyLevel, row.BatchID, row.QAStatus, string(tags), created,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert recipe")
	}
	return id, nil
}

// InsertIngredients writes all rows in one transaction.
func (s *SQLiteStore) InsertIngredients(ctx context.Context, rows []model.IngredientRow) error {
	return s.inTx(ctx, "insert ingredients", func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO ingredients (id, recipe_id, food_id, unit_id, food_name, unit_name, amount, order_index)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), r.RecipeID, r.FoodID, r.UnitID, r.FoodName, r.UnitName, r.Amount, r.OrderIndex,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertSteps writes all rows in one transaction.
func (s *SQLiteStore) InsertSteps(ctx context.Context, rows []model.StepRow) error {
	return s.inTx(ctx, "insert steps", func(tx *sql.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO steps (id, recipe_id, instruction, order_index, duration_minutes)
				VALUES (?, ?, ?, ?, ?)`,
				uuid.NewString(), r.RecipeID, r.Instruction, r.OrderIndex, r.DurationMinutes,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin %s", what)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return eris.Wrapf(err, "sqlite: %s", what)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", what)
}

func (s *SQLiteStore) DeleteIngredients(ctx context.Context, recipeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id = ?`, recipeID)
	return eris.Wrapf(err, "sqlite: delete ingredients of %s", recipeID)
}

func (s *SQLiteStore) DeleteSteps(ctx context.Context, recipeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM steps WHERE recipe_id = ?`, recipeID)
	return eris.Wrapf(err, "sqlite: delete steps of %s", recipeID)
}

func (s *SQLiteStore) DeleteRecipe(ctx context.Context, recipeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, recipeID)
	return eris.Wrapf(err, "sqlite: delete recipe %s", recipeID)
}

func (s *SQLiteStore) FindUnit(ctx context.Context, field UnitField, value string) (string, error) {
	query := `SELECT id FROM units WHERE name = ? COLLATE NOCASE LIMIT 1`
	if field == UnitByAbbreviation {
		query = `SELECT id FROM units WHERE abbreviation != '' AND abbreviation = ? COLLATE NOCASE LIMIT 1`
	}
	var id string
	err := s.db.QueryRowContext(ctx, query, value).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: find unit %s=%s", field, value)
	}
	return id, nil
}

func (s *SQLiteStore) FindOrCreateFood(ctx context.Context, req FoodRequest) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM foods WHERE space_id = ? AND name = ? COLLATE NOCASE LIMIT 1`,
		req.SpaceID, req.Name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(err, "sqlite: find food %s", req.Name)
	}

	id = uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO foods (id, name, space_id, user_id, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, req.Name, req.SpaceID, req.UserID, req.Source, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: create food %s", req.Name)
	}
	return id, nil
}

func (s *SQLiteStore) GetRecipe(ctx context.Context, id string) (*model.RecipeRow, error) {
	var (
		r        model.RecipeRow
		image    sql.NullString
		calories sql.NullInt64
		tags     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, image_url, prep_time_minutes, cook_time_minutes, servings,
			difficulty, calories_per_serving, user_id, space_id, is_public, privacy_level, batch_id,
			qa_status, tags, created_at
		FROM recipes WHERE id = ?`, id,
	).Scan(&r.ID, &r.Title, &r.Description, &image, &r.PrepTimeMinutes, &r.CookTimeMinutes, &r.Servings,
		&r.Difficulty, &calories, &r.UserID, &r.SpaceID, &r.IsPublic, &r.PrivacyLevel, &r.BatchID,
		&r.QAStatus, &tags, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get recipe %s", id)
	}
	if image.Valid {
		r.ImageURL = &image.String
	}
	if calories.Valid {
		c := int(calories.Int64)
		r.CaloriesPerServing = &c
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tags")
	}
	return &r, nil
}

func (s *SQLiteStore) ListIngredients(ctx context.Context, recipeID string) ([]model.IngredientRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, food_id, unit_id, food_name, unit_name, amount, order_index
		FROM ingredients WHERE recipe_id = ? ORDER BY order_index`, recipeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingredients")
	}
	defer rows.Close()

	var out []model.IngredientRow
	for rows.Next() {
		var (
			r            model.IngredientRow
			food, unitID sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RecipeID, &food, &unitID, &r.FoodName, &r.UnitName, &r.Amount, &r.OrderIndex); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingredient")
		}
		r.FoodID = nullString(food)
		r.UnitID = nullString(unitID)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate ingredients")
}

func (s *SQLiteStore) ListSteps(ctx context.Context, recipeID string) ([]model.StepRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, instruction, order_index, duration_minutes
		FROM steps WHERE recipe_id = ? ORDER BY order_index`, recipeID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list steps")
	}
	defer rows.Close()

	var out []model.StepRow
	for rows.Next() {
		var r model.StepRow
		if err := rows.Scan(&r.ID, &r.RecipeID, &r.Instruction, &r.OrderIndex, &r.DurationMinutes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan step")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate steps")
}

func (s *SQLiteStore) GetSpaceName(ctx context.Context, spaceID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM spaces WHERE id = ?`, spaceID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, eris.Wrapf(err, "sqlite: get space %s", spaceID)
}

func (s *SQLiteStore) ListRecentRecipes(ctx context.Context, spaceID string, limit int) ([]model.RecipeSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, qa_status, created_at FROM recipes
		WHERE space_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, spaceID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recent recipes")
	}
	defer rows.Close()

	var out []model.RecipeSummary
	for rows.Next() {
		var r model.RecipeSummary
		if err := rows.Scan(&r.ID, &r.Title, &r.QAStatus, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recipe summary")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate recipes")
}

func (s *SQLiteStore) HasUpload(ctx context.Context, contentHash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM upload_ledger WHERE content_hash = ?`, contentHash).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check upload ledger")
	}
	return n > 0, nil
}

func (s *SQLiteStore) RecordUpload(ctx context.Context, rec model.UploadRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_ledger (content_hash, input_file, batch_id, space_id, success, failed, skipped, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET batch_id = excluded.batch_id, uploaded_at = excluded.uploaded_at`,
		rec.ContentHash, rec.InputFile, rec.BatchID, rec.SpaceID,
		rec.Stats.Success, rec.Stats.Failed, rec.Stats.Skipped, rec.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: record upload")
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
