package utils

import "fmt"

// StructuralError represents a fatal ingestion problem: the sheet layout is
// missing columns the tracker cannot work without. Data-quality problems in
// individual fields are recovered with defaults instead and never surface
// through this type.
type StructuralError struct {
	Message string
}

// Error returns the error message string.
func (e *StructuralError) Error() string {
	return e.Message
}

// NewStructuralError creates a new StructuralError with a specific message.
func NewStructuralError(message string) error {
	return &StructuralError{
		Message: message,
	}
}

// NewStructuralErrorf creates a new StructuralError with a formatted message.
func NewStructuralErrorf(format string, args ...interface{}) error {
	return &StructuralError{
		Message: fmt.Sprintf(format, args...),
	}
}
