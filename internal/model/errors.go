package model

import (
	"errors"
	"fmt"
)

// ErrNoSources is returned by the collector when no source text could be
// obtained for a dish.
var ErrNoSources = errors.New("no sources found")

// SchemaError reports a recipe that does not match the expected shape.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s %s", e.Field, e.Reason)
}

// FailureKind classifies where in the pipeline a failure happened.
type FailureKind string

const (
	KindCollection       FailureKind = "collection"
	KindGeneration       FailureKind = "generation"
	KindValidationSystem FailureKind = "validation_system"
	KindUpload           FailureKind = "upload"
	KindConfiguration    FailureKind = "configuration"
)

// Failure is a pipeline failure tagged with its kind and the dish, recipe or
// setting it concerns.
type Failure struct {
	Kind    FailureKind
	Subject string
	Err     error
}

func (f *Failure) Error() string {
	if f.Subject == "" {
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s failure (%s): %v", f.Kind, f.Subject, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a Failure of the given kind.
func NewFailure(kind FailureKind, subject string, err error) *Failure {
	return &Failure{Kind: kind, Subject: subject, Err: err}
}

// KindOf returns the kind of the first Failure in err's chain, or "".
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err carries a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	return err != nil && KindOf(err) == kind
}
