package extract

import (
	"fmt"
)

// ExtractionError reports a required node that is missing or a field that
// cannot be interpreted. It wraps internalerr.ErrMissingNode or
// internalerr.ErrMalformedValue.
type ExtractionError struct {
	Path    string // Source document, empty when unknown
	Field   string // e.g. "measurementValue", "appellationValue"
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	location := e.Path
	if location == "" {
		location = "document"
	}
	msg := fmt.Sprintf("extract %s", location)
	if e.Field != "" {
		msg += fmt.Sprintf(" [field: %s]", e.Field)
	}
	return msg + ": " + e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Err }
