// Package batchfile names, reads and writes the JSON files that hand work
// from one pipeline stage to the next.
package batchfile

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recipe-miner/internal/model"
)

// File name prefixes per stage.
const (
	DraftPrefix     = "batch_"
	ValidatedPrefix = "checked_"
	RecordPrefix    = "upload_"
)

const stampLayout = "20060102_150405"

// ErrNoFiles is returned by Latest when the directory has no matching file.
var ErrNoFiles = errors.New("no batch files found")

// DraftName returns dir/batch_<unix seconds>.json.
func DraftName(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.json", DraftPrefix, at.Unix()))
}

// ValidatedName returns dir/checked_<YYYYmmdd_HHMMSS>_<draft base name>.
func ValidatedName(dir, draftPath string, at time.Time) string {
	return filepath.Join(dir, ValidatedPrefix+at.Format(stampLayout)+"_"+filepath.Base(draftPath))
}

// RecordName returns dir/upload_<YYYYmmdd_HHMMSS>.json.
func RecordName(dir string, at time.Time) string {
	return filepath.Join(dir, RecordPrefix+at.Format(stampLayout)+".json")
}

// Latest returns the lexicographically last dir/<prefix>*.json.
func Latest(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.json"))
	if err != nil {
		return "", eris.Wrap(err, "batchfile: glob")
	}
	if len(matches) == 0 {
		return "", eris.Wrapf(ErrNoFiles, "batchfile: %s", filepath.Join(dir, prefix+"*.json"))
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// WriteJSON writes v as indented JSON, creating the directory if needed.
// The file is written to a temp name and renamed so readers never see a
// partial batch.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "batchfile: create dir")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "batchfile: encode")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "batchfile: create temp")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "batchfile: write")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "batchfile: close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "batchfile: rename")
	}
	return nil
}

// ReadDraft reads a draft batch. Null entries decode as nil recipes.
func ReadDraft(path string) ([]*model.Recipe, error) {
	var recipes []*model.Recipe
	if err := readJSON(path, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// ReadValidated reads a validated batch. Items without a recipe key decode
// with a nil Recipe; items without qa_meta decode with a zero QAMeta.
func ReadValidated(path string) ([]model.BatchItem, error) {
	var items []model.BatchItem
	if err := readJSON(path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ReadRecord reads an upload record.
func ReadRecord(path string) (*model.UploadRecord, error) {
	var rec model.UploadRecord
	if err := readJSON(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "batchfile: read")
	}
	if strings.TrimSpace(string(data)) == "" {
		return eris.Errorf("batchfile: %s is empty", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "batchfile: decode %s", filepath.Base(path))
	}
	return nil
}

// ContentHash returns the hex SHA-256 of a file's bytes.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrap(err, "batchfile: open")
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrap(err, "batchfile: hash")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
