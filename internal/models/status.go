package models

import (
	"encoding/json"
	"time"
)

// State is a step of the submission workflow.
type State string

const (
	StateIdle               State = "idle"
	StateValidating         State = "validating"
	StateEncrypting         State = "encrypting"
	StateSubmittingMetadata State = "submitting_metadata"
	StateUploadingFile      State = "uploading_file"
	StateSucceeded          State = "succeeded"
	StateFailed             State = "failed"
)

// Terminal reports whether the workflow stops in s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// StateEvent describes one transition of a submission attempt.
type StateEvent struct {
	AttemptID string
	State     State
	Error     string
	Timestamp time.Time
}

// UploadResponse keeps the raw upload reply. The service's format is not
// documented, so it is only logged and echoed back to the caller.
type UploadResponse struct {
	StatusCode int             `json:"status_code"`
	JSON       json.RawMessage `json:"json,omitempty"`
	Text       string          `json:"text,omitempty"`
}

// Result is returned after the metadata call was accepted. UploadErr is set
// when the best-effort upload failed.
type Result struct {
	AttemptID string          `json:"attempt_id"`
	Filename  string          `json:"filename"`
	Add       *APIResponse    `json:"add"`
	Upload    *UploadResponse `json:"upload,omitempty"`
	UploadErr string          `json:"upload_error,omitempty"`
}
