package models

import "errors"

// Domain errors that can be returned by repositories
var (
	// ErrNotFound indicates the requested entity was not found
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTokenValue indicates a generated token value collided with
	// an existing one
	ErrDuplicateTokenValue = errors.New("duplicate token value")
)
