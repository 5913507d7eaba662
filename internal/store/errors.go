package store

import "errors"

var (
	ErrUnavailable  = errors.New("durable store is not available")
	ErrClosed       = errors.New("durable store is closed")
	ErrWriteTimeout = errors.New("durable store write timed out")
)
