package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("session missing or invalid")
	ErrCancelled    = errors.New("operation cancelled")
)

// SubmissionError means the service (or the local preflight) rejected the
// payload. There is no retry at this layer: resubmitting duplicates
// server-side work, so the caller decides.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected (status %d): %s", e.StatusCode, e.Message)
}

// JobFailedError is the terminal server-reported failure of a job,
// surfaced verbatim.
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
}

// PlaybackError halts timeline synchronization until the caller retries
// loading the media.
type PlaybackError struct {
	Reason string
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback error: %s", e.Reason)
}
