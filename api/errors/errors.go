package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	er "github.com/mailgrove/mailgrove/internal/errors"
)

type MultiErrors struct {
	Errors map[string][]ErrorInfo
}

type ErrorInfo struct {
	Message  string
	RawError error
}

func NewMultiErrors() *MultiErrors {
	return &MultiErrors{
		Errors: make(map[string][]ErrorInfo),
	}
}

func (e *MultiErrors) Add(key, message string, err error) {
	e.Errors[key] = append(e.Errors[key], ErrorInfo{
		Message:  message,
		RawError: err,
	})
}

func (e *MultiErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *MultiErrors) Error() string {
	var parts []string
	for field, errors := range e.Errors {
		for _, err := range errors {
			parts = append(parts, fmt.Sprintf("%s: %s", field, err.Message))
		}
	}
	return strings.Join(parts, " | ")
}

// HTTPStatus maps domain sentinels onto response codes. Anything
// unrecognized is a 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, er.ErrConversationNotFound),
		errors.Is(err, er.ErrEmailNotFound):
		return http.StatusNotFound
	case errors.Is(err, er.ErrUserMissing):
		return http.StatusUnauthorized
	case errors.Is(err, er.ErrInvalidInput),
		errors.Is(err, er.ErrInvalidPagination),
		errors.Is(err, er.ErrUnknownBulkAction),
		errors.Is(err, er.ErrUnknownFolder),
		errors.Is(err, er.ErrMalformedEmail):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
