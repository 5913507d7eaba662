package websocket

import "errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrInvalidPayload   = errors.New("payload cannot be encoded")
	ErrSendBufferFull   = errors.New("send buffer full")
)
