package domain

import "errors"

// Status is the explicit outcome tag attached to every operation result
// returned across the driving adapters.
type Status string

// Outcome statuses.
const (
	StatusCreated      Status = "created"
	StatusDuplicate    Status = "duplicate"
	StatusRedirect     Status = "redirect"
	StatusSuccess      Status = "success"
	StatusSaved        Status = "saved"
	StatusUpdated      Status = "updated"
	StatusNoChange     Status = "no_change"
	StatusDeleted      Status = "deleted"
	StatusExists       Status = "exists"
	StatusArchived     Status = "archived"
	StatusRestored     Status = "restored"
	StatusPurged       Status = "purged"
	StatusPreview      Status = "preview"
	StatusCompleted    Status = "completed"
	StatusNotFound     Status = "not_found"
	StatusInvalidInput Status = "invalid_input"
	StatusConflict     Status = "conflict"
	StatusError        Status = "error"
)

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// IsFailure reports whether the status describes a failed operation.
func (s Status) IsFailure() bool {
	switch s {
	case StatusNotFound, StatusInvalidInput, StatusConflict, StatusError:
		return true
	default:
		return false
	}
}

// StatusOf maps an error to its outcome status. A nil error is a success.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return StatusInvalidInput
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyExists):
		return StatusConflict
	default:
		return StatusError
	}
}
