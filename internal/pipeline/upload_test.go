package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resolve"
	"github.com/sells-group/recipe-miner/internal/store"
	"github.com/sells-group/recipe-miner/internal/upload"
)

func newPublisher(t *testing.T, mem *store.MemoryStore) (*Publisher, string) {
	t.Helper()
	u := upload.New(mem, resolve.New(mem, "user-1"), upload.Options{UserID: "user-1", SpaceID: "space-1"})
	dir := t.TempDir()
	p := NewPublisher(u, mem, "space-1", dir)
	p.now = func() time.Time { return fixedNow }
	return p, dir
}

func writeValidated(t *testing.T, items []model.BatchItem) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checked_20250314_092653_batch_1.json")
	require.NoError(t, batchfile.WriteJSON(path, items))
	return path
}

func TestPublisher_Run(t *testing.T) {
	mem := store.NewMemory()
	p, recordsDir := newPublisher(t, mem)

	path := writeValidated(t, []model.BatchItem{
		{Recipe: sampleRecipe("Pozole Rojo"), QAMeta: model.QAMeta{Status: model.QAStatusPass, Reason: "OK"}},
		{Recipe: nil, QAMeta: model.QAMeta{Status: model.QAStatusPass, Reason: "OK"}},
		{Recipe: sampleRecipe("Tamales"), QAMeta: model.QAMeta{Status: model.QAStatusFlag, Reason: "too salty"}},
	})

	res, err := p.Run(context.Background(), path, false)
	require.NoError(t, err)

	assert.Equal(t, model.UploadStats{Success: 2, Failed: 0, Skipped: 1}, res.Record.Stats)
	assert.Equal(t, filepath.Join(recordsDir, "upload_20250314_092653.json"), res.RecordFile)
	assert.Equal(t, path, res.Record.InputFile)
	assert.Equal(t, "space-1", res.Record.SpaceID)
	assert.NotEmpty(t, res.Record.BatchID)

	rec, err := batchfile.ReadRecord(res.RecordFile)
	require.NoError(t, err)
	assert.Equal(t, res.Record.ContentHash, rec.ContentHash)

	recipes, ingredients, steps := mem.Counts()
	assert.Equal(t, 2, recipes)
	assert.Equal(t, 6, ingredients)
	assert.Equal(t, 6, steps)
	assert.Equal(t, 1, mem.Calls(store.OpRecordUpload))
}

func TestPublisher_Run_RefusesReupload(t *testing.T) {
	mem := store.NewMemory()
	p, _ := newPublisher(t, mem)
	path := writeValidated(t, []model.BatchItem{
		{Recipe: sampleRecipe("Pozole Rojo"), QAMeta: model.QAMeta{Status: model.QAStatusPass, Reason: "OK"}},
	})

	_, err := p.Run(context.Background(), path, false)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), path, false)
	require.ErrorIs(t, err, ErrAlreadyUploaded)

	recipes, _, _ := mem.Counts()
	assert.Equal(t, 1, recipes)

	res, err := p.Run(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Record.Stats.Success)
	recipes, _, _ = mem.Counts()
	assert.Equal(t, 2, recipes)
}

func TestPublisher_Run_NoSuccessRecordsNoMarker(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpInsertRecipe, errors.New("db down"))
	p, _ := newPublisher(t, mem)
	path := writeValidated(t, []model.BatchItem{
		{Recipe: sampleRecipe("Pozole Rojo"), QAMeta: model.QAMeta{Status: model.QAStatusPass, Reason: "OK"}},
	})

	res, err := p.Run(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Record.Stats.Failed)
	assert.Equal(t, 0, mem.Calls(store.OpRecordUpload))
}

func TestPublisher_Run_LedgerError(t *testing.T) {
	mem := store.NewMemory()
	mem.FailOn(store.OpHasUpload, errors.New("ledger offline"))
	p, _ := newPublisher(t, mem)
	path := writeValidated(t, []model.BatchItem{
		{Recipe: sampleRecipe("Pozole Rojo"), QAMeta: model.QAMeta{Status: model.QAStatusPass, Reason: "OK"}},
	})

	_, err := p.Run(context.Background(), path, false)
	require.Error(t, err)
	recipes, _, _ := mem.Counts()
	assert.Equal(t, 0, recipes)

	res, err := p.Run(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Record.Stats.Success)
}
