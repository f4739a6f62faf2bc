package upload

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Reasons an upload of one recipe can fail.
var (
	ErrRecipeInsert            = eris.New("recipe insert failed")
	ErrIngredientInsert        = eris.New("ingredient insert failed")
	ErrStepInsert              = eris.New("step insert failed")
	ErrNoResolvableIngredients = eris.New("no resolvable ingredients")
)

// UploadError reports a failed recipe upload. Reason is one of the Err*
// values above; Cause is the store error, if any; Rollback holds errors from
// compensating deletes.
type UploadError struct {
	Reason   error
	Cause    error
	Rollback error
}

func (e *UploadError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason.Error())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Rollback != nil {
		b.WriteString(" (rollback: ")
		b.WriteString(e.Rollback.Error())
		b.WriteString(")")
	}
	return b.String()
}

func (e *UploadError) Unwrap() []error {
	errs := []error{e.Reason}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Rollback != nil {
		errs = append(errs, e.Rollback)
	}
	return errs
}
