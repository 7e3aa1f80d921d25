package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrInvalidInput      = errors.New("invalid input parameters")
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	ErrUserMissing       = errors.New("user id is missing")

	// threading errors
	ErrMalformedEmail  = errors.New("email is malformed")
	ErrCrossUserThread = errors.New("thread key belongs to another user")

	// conversation errors
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmailNotFound        = errors.New("email not found")
	ErrUnknownBulkAction    = errors.New("unknown bulk action")
	ErrUnknownFolder        = errors.New("unknown folder")
)
