package internal

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors for capture and storage operations.
var (
	ErrStoreUnavailable  = errors.New("storage unavailable")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrInvalidStoreType  = errors.New("invalid store type")
	ErrContainerNotFound = errors.New("chat container not found")
	ErrEngineStopped     = errors.New("engine stopped")
)

// StorageError represents errors accessing the key-value store
type StorageError struct {
	Key string
	Op  string // "get", "set", "open"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "kv", "html", "config"
	Key    string // storage key or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SuggestionErrorKind classifies suggestion API failures
type SuggestionErrorKind string

const (
	// SuggestionErrorNetwork covers transport failures, timeouts and aborts. Retried.
	SuggestionErrorNetwork SuggestionErrorKind = "network"
	// SuggestionErrorApplication covers non-2xx answers from the service. Not retried.
	SuggestionErrorApplication SuggestionErrorKind = "application"
)

// SuggestionError is the typed error surfaced to callers of the suggestion API
type SuggestionError struct {
	Kind   SuggestionErrorKind
	Status int
	Detail string
	Err    error
}

func (e *SuggestionError) Error() string {
	switch {
	case e.Kind == SuggestionErrorApplication && e.Detail != "":
		return fmt.Sprintf("suggestion error [%s] status %d: %s", e.Kind, e.Status, e.Detail)
	case e.Kind == SuggestionErrorApplication:
		return fmt.Sprintf("suggestion error [%s] status %d", e.Kind, e.Status)
	default:
		return fmt.Sprintf("suggestion error [%s]: %v", e.Kind, e.Err)
	}
}

func (e *SuggestionError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is a retryable transport failure
func IsNetworkError(err error) bool {
	var se *SuggestionError
	return errors.As(err, &se) && se.Kind == SuggestionErrorNetwork
}
