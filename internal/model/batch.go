package model

import "time"

// BatchItem pairs a recipe with its QA verdict in a validated batch file.
// A nil Recipe means the item carried no recipe payload.
type BatchItem struct {
	Recipe *Recipe `json:"recipe"`
	QAMeta QAMeta  `json:"qa_meta"`
}

// UploadStats counts per-item outcomes of one upload run.
type UploadStats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Total returns the number of items accounted for.
func (s UploadStats) Total() int {
	return s.Success + s.Failed + s.Skipped
}

// UploadRecord summarizes one upload run.
type UploadRecord struct {
	Timestamp   time.Time   `json:"timestamp"`
	InputFile   string      `json:"input_file"`
	BatchID     string      `json:"batch_id"`
	SpaceID     string      `json:"space_id"`
	ContentHash string      `json:"content_hash,omitempty"`
	Stats       UploadStats `json:"stats"`
}

// ValidationStats counts verdicts of one validation run.
type ValidationStats struct {
	Pass int `json:"pass"`
	Flag int `json:"flag"`
}

// MineStats counts per-dish outcomes of one mining run.
type MineStats struct {
	Mined             int `json:"mined"`
	SkippedNoSources  int `json:"skipped_no_sources"`
	SkippedGeneration int `json:"skipped_generation"`
}
