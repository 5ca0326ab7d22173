package jobstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a conversion job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether a job in status s may move to next.
// Repeating the current status is allowed; moving backwards or leaving a
// terminal state is not.
func (s Status) CanTransition(next Status) bool {
	if next.rank() < 0 {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Input is an uploaded file referenced by a job.
type Input struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Output is a published artifact.
type Output struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// Record is the persisted job document.
type Record struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	ConverterSlug string    `json:"converterSlug"`
	Inputs        []Input   `json:"inputs"`
	Outputs       []Output  `json:"outputs"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Error         *string   `json:"error"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ErrorMessage returns the stored failure message, or "".
func (r *Record) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

// Patch lists the fields an Update may change. Nil fields are left alone.
type Patch struct {
	Status *Status
	// Error sets the failure message; ClearError resets it to null.
	Error      *string
	ClearError bool
	// Outputs replaces the output list when non-nil.
	Outputs   []Output
	ExpiresAt *time.Time
}

// StatusPtr is a convenience for building patches.
func StatusPtr(s Status) *Status { return &s }

// StringPtr is a convenience for building patches.
func StringPtr(s string) *string { return &s }

// Key returns the object key holding the job document.
func Key(jobID string) string {
	return Prefix(jobID) + "job.json"
}

// Prefix returns the namespace every object of a job lives under.
func Prefix(jobID string) string {
	return "temp/" + strings.TrimSpace(jobID) + "/"
}

// UploadsPrefix returns the namespace holding a job's inputs.
func UploadsPrefix(jobID string) string {
	return Prefix(jobID) + "uploads/"
}

// ArtifactKey returns the key a published artifact is stored under.
func ArtifactKey(jobID, filename string) string {
	return Prefix(jobID) + "artifacts/" + filename
}
