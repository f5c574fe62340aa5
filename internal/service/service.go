// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glansab/backoffice/internal/repository"
)

// Service errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrForbidden        = errors.New("not allowed to change this record")
	ErrConflict         = errors.New("record is not in a state that allows this change")
)

// Mutation operation labels for metrics.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateError means a record with the same value already exists.
type DuplicateError struct {
	Entity string
	Field  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a %s with the same %s already exists", e.Entity, e.Field)
}

// mapStoreError translates repository sentinels into service errors.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrInvalidReference):
		return ErrInvalidReference
	default:
		return err
	}
}

// nullIfBlank returns nil for nil or whitespace-only strings.
func nullIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
