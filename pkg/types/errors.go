package types

import "errors"

var (
	ErrEmptyIdentity   = errors.New("name is required")
	ErrIdentityTooLong = errors.New("name must be at most 20 characters")
)
