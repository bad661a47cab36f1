package contract

import "fmt"

// MalformedRecordError reports an upstream record that lacks the identity or
// timestamps needed to reduce it. Such records are skipped, never fatal.
type MalformedRecordError struct {
	Kind   string // "run" or "job"
	ID     int64
	Reason string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s %d: %s", e.Kind, e.ID, e.Reason)
}
