package batchfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-miner/internal/model"
)

var at = time.Date(2026, 2, 14, 9, 5, 7, 0, time.UTC)

func TestNames(t *testing.T) {
	assert.Equal(t, filepath.Join("draft_recipes", "batch_1771059907.json"), DraftName("draft_recipes", at))
	assert.Equal(t,
		filepath.Join("validated_recipes", "checked_20260214_090507_batch_1771059907.json"),
		ValidatedName("validated_recipes", "draft_recipes/batch_1771059907.json", at))
	assert.Equal(t, filepath.Join("upload_records", "upload_20260214_090507.json"), RecordName("upload_records", at))
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"batch_100.json", "batch_300.json", "batch_200.json", "batch_999.txt", "other_500.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
	}

	got, err := Latest(dir, DraftPrefix)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batch_300.json"), got)
}

func TestLatest_None(t *testing.T) {
	_, err := Latest(t.TempDir(), ValidatedPrefix)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = Latest(filepath.Join(t.TempDir(), "missing"), ValidatedPrefix)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestWriteJSON_ReadDraft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "batch_1.json")
	recipes := []*model.Recipe{
		{Title: "Flan", Difficulty: model.DifficultyMedium, Servings: 8},
		nil,
	}

	require.NoError(t, WriteJSON(path, recipes))

	got, err := ReadDraft(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Flan", got[0].Title)
	assert.Nil(t, got[1])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestReadValidated_Lenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checked.json")
	body := `[
	  {"recipe": {"title": "Sopes"}, "qa_meta": {"status": "PASS", "reason": "OK", "validated_at": "2026-02-14T09:05:07Z"}},
	  {"qa_meta": {"status": "FLAG", "reason": "x"}},
	  {"recipe": {"title": "Gorditas"}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	items, err := ReadValidated(path)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Sopes", items[0].Recipe.Title)
	assert.Equal(t, model.Pass(), items[0].QAMeta.Verdict())
	assert.Nil(t, items[1].Recipe)
	assert.Equal(t, model.QAStatusFlag, items[2].QAMeta.Verdict().Status)
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))

	_, err := ReadDraft(empty)
	assert.ErrorContains(t, err, "is empty")
	_, err = ReadValidated(bad)
	assert.ErrorContains(t, err, "decode bad.json")
	_, err = ReadDraft(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	path := RecordName(t.TempDir(), at)
	rec := model.UploadRecord{
		Timestamp:   at,
		InputFile:   "validated_recipes/checked_x.json",
		BatchID:     "b1",
		SpaceID:     "s1",
		ContentHash: "abc",
		Stats:       model.UploadStats{Success: 2, Failed: 1},
	}
	require.NoError(t, WriteJSON(path, rec))

	got, err := ReadRecord(path)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
}

func TestContentHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("[1]"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("[2]"), 0o644))

	ha, err := ContentHash(a)
	require.NoError(t, err)
	hb, err := ContentHash(b)
	require.NoError(t, err)
	ha2, err := ContentHash(a)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, ha2)
	assert.NotEqual(t, ha, hb)

	_, err = ContentHash(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
