package pipeline

import "fmt"

type ErrorCode string

const (
	CodeUnsupportedType ErrorCode = "unsupported_type"
	CodeReadFailed      ErrorCode = "read_failed"
)

// ExtractionError is a failure the caller should report rather than recover from.
type ExtractionError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

func readFailed(format string, err error) error {
	return &ExtractionError{Code: CodeReadFailed, Message: "no se pudo leer el archivo " + format, Cause: err}
}
