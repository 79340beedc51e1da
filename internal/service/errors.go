package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced at the HTTP boundary. Use errors.Is against these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream service failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStore        = errors.New("store unavailable")
)

var (
	ErrBlogNotFound    = fmt.Errorf("blog %w", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)
	// ErrInvalidCredentials 登录用户名或密码错误。
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
)

// ValidationError 描述一个字段级别的输入错误。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// upstreamError wraps a collaborator failure so it matches ErrUpstream.
func upstreamError(collaborator string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, collaborator, err)
}

// storeError wraps a persistence failure so it matches ErrStore.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
