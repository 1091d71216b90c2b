package skills

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for load- and query-level failures. Document-level
// problems (MalformedDocumentError) are recorded as warnings and never abort
// a load; load-level errors always abort so a half-built corpus is never
// published.
var (
	// ErrDuplicateSkillName indicates two documents resolved to the same id
	ErrDuplicateSkillName = errors.New("duplicate skill name")
	// ErrLoadTimeout indicates the load was cancelled by its deadline
	ErrLoadTimeout = errors.New("load timeout")
	// ErrInvalidQuery indicates a query rejected before scoring
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInternalConsistency indicates a selection/corpus mismatch, a bug
	ErrInternalConsistency = errors.New("internal consistency error")
)

// MalformedDocumentError describes a single document that failed validation
// and was skipped during load
type MalformedDocumentError struct {
	SourceID string
	Cause    string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %q: %s", e.SourceID, e.Cause)
}

// IsMalformedDocument reports whether err is a per-document validation error
func IsMalformedDocument(err error) bool {
	var m *MalformedDocumentError
	return errors.As(err, &m)
}
