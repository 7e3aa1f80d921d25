package repository

import "errors"

var (
	ErrEmailNotFound        = errors.New("email not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidInput         = errors.New("invalid input parameters")
)
