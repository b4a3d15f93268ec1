package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady means a required input (duration, native or display extent)
	// has not been loaded yet. Callers wait for the matching load event.
	ErrNotReady = errors.New("editor not ready")

	// ErrInvalidRange is returned for selections outside [0,100] or with low > high
	ErrInvalidRange = errors.New("invalid selection range")

	// ErrUnknownResizeHandle is returned when a resize names no known handle.
	// The geometry is left untouched.
	ErrUnknownResizeHandle = errors.New("unknown resize handle")

	// ErrJobFailed is the engine-reported failure of a submitted job
	ErrJobFailed = errors.New("transcoding job failed")

	// ErrJobInFlight rejects a submit (or reset) while another job is pending
	ErrJobInFlight = errors.New("a transcoding job is already in flight")

	// ErrMetadataConflict rejects a second metadata load with different values
	ErrMetadataConflict = errors.New("media metadata already loaded with different values")

	// ErrInvalidMetadata rejects a negative or non-finite media duration
	ErrInvalidMetadata = errors.New("invalid media metadata")

	// ErrInvalidGeometry rejects overlay geometry that would collapse the overlay
	ErrInvalidGeometry = errors.New("invalid overlay geometry")
)

// JobError carries the engine's reason for a failed job
type JobError struct {
	JobID  string
	Reason string
	Err    error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Reason)
}

func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrJobFailed}
	}
	return []error{ErrJobFailed, e.Err}
}
