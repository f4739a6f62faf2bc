package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/resilience"
	"github.com/sells-group/recipe-miner/internal/store"
)

// StatusDirs are the local batch directories inspected by Status.
type StatusDirs struct {
	Drafts    string
	Validated string
	Records   string
}

// StatusReport describes the staging space and the newest local files.
type StatusReport struct {
	SpaceID         string
	SpaceName       string
	Recent          []model.RecipeSummary
	LatestDraft     string
	LatestValidated string
	LatestRecord    *model.UploadRecord
	LatestRecordAt  string
}

// Status reads the staging space and the local batch directories. Store
// reads are retried on transient errors.
func Status(ctx context.Context, r store.Reader, spaceID string, limit int, dirs StatusDirs, retry resilience.RetryConfig) (*StatusReport, error) {
	rep := &StatusReport{SpaceID: spaceID}

	retry.OnRetry = resilience.RetryLogger("store", "get_space_name")
	name, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return r.GetSpaceName(ctx, spaceID)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		rep.SpaceName = ""
	case err != nil:
		return nil, eris.Wrap(err, "status: space name")
	default:
		rep.SpaceName = name
	}

	retry.OnRetry = resilience.RetryLogger("store", "list_recent_recipes")
	rep.Recent, err = resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.RecipeSummary, error) {
		return r.ListRecentRecipes(ctx, spaceID, limit)
	})
	if err != nil {
		return nil, eris.Wrap(err, "status: recent recipes")
	}

	if rep.LatestDraft, err = latest(dirs.Drafts, batchfile.DraftPrefix); err != nil {
		return nil, err
	}
	if rep.LatestValidated, err = latest(dirs.Validated, batchfile.ValidatedPrefix); err != nil {
		return nil, err
	}
	recordPath, err := latest(dirs.Records, batchfile.RecordPrefix)
	if err != nil {
		return nil, err
	}
	if recordPath != "" {
		rec, err := batchfile.ReadRecord(recordPath)
		if err != nil {
			return nil, eris.Wrap(err, "status: latest upload record")
		}
		rep.LatestRecord = rec
		rep.LatestRecordAt = recordPath
	}
	return rep, nil
}

func latest(dir, prefix string) (string, error) {
	if dir == "" {
		return "", nil
	}
	p, err := batchfile.Latest(dir, prefix)
	if errors.Is(err, batchfile.ErrNoFiles) {
		return "", nil
	}
	return p, err
}
