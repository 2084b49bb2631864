package services

import (
	"errors"
	"fmt"
)

// ErrFileNotFound is returned when a requested artifact does not exist in storage
var ErrFileNotFound = errors.New("file not found")

// ProviderError reports a failed call to a text generation provider:
// transport failure, timeout, missing credentials or a malformed response
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func providerErrorf(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// RenderError reports an I/O or encoding failure while producing artifact bytes
type RenderError struct {
	Kind string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
