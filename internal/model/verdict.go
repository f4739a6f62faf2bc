package model

import (
	"strings"
	"time"
)

// QAStatus is the validator's verdict on a recipe.
type QAStatus string

const (
	QAStatusPass QAStatus = "PASS"
	QAStatusFlag QAStatus = "FLAG"
)

// Valid reports whether s is PASS or FLAG.
func (s QAStatus) Valid() bool {
	return s == QAStatusPass || s == QAStatusFlag
}

// Tag returns the store tag for the status, e.g. "#QA_PASS".
func (s QAStatus) Tag() string {
	return "#QA_" + string(s)
}

// Lower returns the lowercase form persisted in the qa_status column.
func (s QAStatus) Lower() string {
	return strings.ToLower(string(s))
}

// ReasonOK is the only reason a PASS verdict carries.
const ReasonOK = "OK"

// ValidationResult is the outcome of validating one recipe.
type ValidationResult struct {
	Status QAStatus `json:"status"`
	Reason string   `json:"reason"`
}

// Pass returns a PASS verdict.
func Pass() ValidationResult {
	return ValidationResult{Status: QAStatusPass, Reason: ReasonOK}
}

// Flag returns a FLAG verdict with the given reason.
func Flag(reason string) ValidationResult {
	return ValidationResult{Status: QAStatusFlag, Reason: reason}
}

// IsPass reports whether the verdict is PASS.
func (v ValidationResult) IsPass() bool {
	return v.Status == QAStatusPass
}

// QAMeta is the verdict attached to a recipe in a validated batch file.
type QAMeta struct {
	Status      QAStatus  `json:"status"`
	Reason      string    `json:"reason"`
	ValidatedAt time.Time `json:"validated_at"`
}

// Verdict converts the metadata back into a ValidationResult. Metadata
// without a recognizable status is treated as flagged.
func (m QAMeta) Verdict() ValidationResult {
	if !m.Status.Valid() {
		return Flag("Missing QA verdict")
	}
	return ValidationResult{Status: m.Status, Reason: m.Reason}
}
