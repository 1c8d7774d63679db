package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/admit/internal/adapters/repository"
	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/questions"
	"github.com/okian/admit/internal/domain/workflow"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrServe      = errors.New("api serve failed")
)

// NewKind tags kind with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with the failing operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func errMissing(field string) error {
	return errors.New(field + " is required")
}

// statusFor maps domain errors to an HTTP status and a short code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrMissingAnswer),
		errors.Is(err, workflow.ErrInvalidTarget),
		errors.Is(err, workflow.ErrNothingToApply),
		errors.Is(err, questions.ErrBadEntryID):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrCriterionNotFound),
		errors.Is(err, service.ErrApplicationNotFound),
		errors.Is(err, questions.ErrEntryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrDuplicateApplication),
		errors.Is(err, repository.ErrDuplicateEmail),
		errors.Is(err, repository.ErrDuplicateSlug),
		errors.Is(err, service.ErrSaveInProgress):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	}
	return http.StatusInternalServerError, "internal"
}
