package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned by GetSchema when the table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrUnknownAdapter is returned when no adapter factory is registered for a type.
	ErrUnknownAdapter = errors.New("unknown adapter type")

	// ErrKeyNotFound is returned by KV stores for missing keys.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned by KV stores after Close.
	ErrStoreClosed = errors.New("kv store is closed")
)

// ConnectionErrorCode is the code carried by every ConnectionError.
const ConnectionErrorCode = 500

// ConnectionError reports that a backend connection could not be established.
// Message is the backend's own message.
type ConnectionError struct {
	Code    int
	Message string
	Err     error
}

// NewConnectionError wraps err, taking the message from the backend error.
func NewConnectionError(message string, err error) *ConnectionError {
	return &ConnectionError{Code: ConnectionErrorCode, Message: message, Err: err}
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%d): %s", e.Code, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
