package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recipe-miner/internal/batchfile"
	"github.com/sells-group/recipe-miner/internal/model"
	"github.com/sells-group/recipe-miner/internal/store"
	"github.com/sells-group/recipe-miner/internal/upload"
)

// ErrAlreadyUploaded is returned when a validated batch file with the same
// content was uploaded before and the run was not forced.
var ErrAlreadyUploaded = eris.New("batch already uploaded")

// BatchUploader uploads a validated batch.
type BatchUploader interface {
	UploadBatch(ctx context.Context, items []model.BatchItem) upload.BatchOutcome
}

// Publisher drives the upload stage.
type Publisher struct {
	uploader   BatchUploader
	ledger     store.Ledger
	spaceID    string
	recordsDir string
	now        func() time.Time
}

// NewPublisher creates a Publisher writing upload records to recordsDir.
func NewPublisher(u BatchUploader, ledger store.Ledger, spaceID, recordsDir string) *Publisher {
	return &Publisher{
		uploader:   u,
		ledger:     ledger,
		spaceID:    spaceID,
		recordsDir: recordsDir,
		now:        time.Now,
	}
}

// UploadResult is the outcome of one upload run.
type UploadResult struct {
	RecordFile string
	Record     model.UploadRecord
	Outcome    upload.BatchOutcome
}

// Run uploads the validated batch at path. A file whose content hash is
// already in the ledger is refused unless force is set.
func (p *Publisher) Run(ctx context.Context, path string, force bool) (*UploadResult, error) {
	log := zap.L().With(zap.String("file", path))

	hash, err := batchfile.ContentHash(path)
	if err != nil {
		return nil, eris.Wrap(err, "upload: hash batch file")
	}

	seen, err := p.ledger.HasUpload(ctx, hash)
	switch {
	case err != nil && !force:
		return nil, eris.Wrap(err, "upload: check ledger")
	case err != nil:
		log.Warn("upload: ledger check failed, continuing (forced)", zap.Error(err))
	case seen && !force:
		return nil, eris.Wrapf(ErrAlreadyUploaded, "upload: %s (content hash %s)", path, hash)
	case seen:
		log.Warn("upload: batch was uploaded before, re-uploading (forced)", zap.String("content_hash", hash))
	}

	items, err := batchfile.ReadValidated(path)
	if err != nil {
		return nil, eris.Wrap(err, "upload: load validated batch")
	}

	out := p.uploader.UploadBatch(ctx, items)
	now := p.now()
	res := &UploadResult{
		RecordFile: batchfile.RecordName(p.recordsDir, now),
		Record:     out.Record(path, p.spaceID, hash, now),
		Outcome:    out,
	}

	if err := batchfile.WriteJSON(res.RecordFile, res.Record); err != nil {
		return res, eris.Wrap(err, "upload: save upload record")
	}
	log.Info("upload: saved upload record", zap.String("record", res.RecordFile))

	if out.Stats.Success > 0 {
		// The record file already exists; a lost ledger entry only weakens the
		// re-upload guard.
		if err := p.ledger.RecordUpload(context.WithoutCancel(ctx), res.Record); err != nil {
			log.Error("upload: failed to record upload in ledger", zap.Error(err))
		}
	}
	return res, nil
}
