// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/curation-backend/internal/models"
)

// ErrAlreadySent is returned when a scraped product already has a draft.
var ErrAlreadySent = errors.New("scraped product already sent to curation")

// ErrValidation marks bad caller input. Wrapped validator errors travel
// alongside it.
var ErrValidation = errors.New("validation failed")

// PartialUploadError reports an image batch where some items failed.
// Successful items are still persisted by the caller.
type PartialUploadError struct {
	Total  int
	Failed int
	Errors []ImageError
}

func (e *PartialUploadError) Error() string {
	if e.Failed == e.Total {
		return fmt.Sprintf("all %d image uploads failed", e.Total)
	}
	return fmt.Sprintf("%d of %d image uploads failed", e.Failed, e.Total)
}

// TranslationError wraps a failed translation of a draft or review.
type TranslationError struct {
	DraftID  *uuid.UUID
	ReviewID *uuid.UUID
	Err      error
}

func (e *TranslationError) Error() string {
	switch {
	case e.DraftID != nil:
		return fmt.Sprintf("translation of draft %s failed: %v", e.DraftID, e.Err)
	case e.ReviewID != nil:
		return fmt.Sprintf("translation of review %s failed: %v", e.ReviewID, e.Err)
	default:
		return fmt.Sprintf("translation failed: %v", e.Err)
	}
}

func (e *TranslationError) Unwrap() error { return e.Err }

// DraftIncompleteError lists the required fields with no effective value.
type DraftIncompleteError struct {
	DraftID uuid.UUID
	Missing []string
}

func (e *DraftIncompleteError) Error() string {
	return fmt.Sprintf("draft %s is missing %s", e.DraftID, strings.Join(e.Missing, ", "))
}

// StateConflictError is returned for a transition the lifecycle forbids, or
// when another operation holds the entity. Kind is empty for drafts.
type StateConflictError struct {
	Kind   string
	ID     uuid.UUID
	From   models.DraftStatus
	To     models.DraftStatus
	Reason string
}

func (e *StateConflictError) Error() string {
	subject := "draft"
	if e.Kind != "" {
		subject = e.Kind
	}

	var msg string
	switch {
	case e.From == "" && e.To == "":
		msg = fmt.Sprintf("%s %s is busy", subject, e.ID)
	case e.To == "":
		msg = fmt.Sprintf("%s %s is %s", subject, e.ID, e.From)
	default:
		msg = fmt.Sprintf("%s %s cannot move from %s to %s", subject, e.ID, e.From, e.To)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
