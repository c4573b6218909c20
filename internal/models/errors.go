package models

import "errors"

var (
	// ErrConfiguration covers missing credentials and an unreadable
	// local catalog. Requests fail with a server error.
	ErrConfiguration = errors.New("configuration error")

	// ErrRetrievalTransport means the remote index stayed unreachable
	// after every retry.
	ErrRetrievalTransport = errors.New("retrieval transport error")

	ErrGenerationProvider = errors.New("generation provider error")
	ErrGenerationParse    = errors.New("generation parse error")

	// ErrValidation is returned when a request carries neither a query
	// nor a conversation.
	ErrValidation = errors.New("validation error")
)
