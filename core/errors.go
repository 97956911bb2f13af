package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a tenant, user, automation or component
	// for the given identifier does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDisabled is returned when an operation targets a disabled automation.
	ErrDisabled = errors.New("automation disabled")

	// ErrAlreadyRegistered is returned when a component name collides in a
	// registry.
	ErrAlreadyRegistered = errors.New("component already registered")

	// ErrNotInvokable is returned when a registry dispatch targets a
	// component that has no execution entry point.
	ErrNotInvokable = errors.New("component is not invokable")
)

// DuplicateSlugError reports a tenant slug collision on provisioning.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("tenant slug %q already exists", e.Slug)
}

// DuplicateEmailError reports a user email collision within a tenant.
// Email uniqueness is scoped per tenant, not globally.
type DuplicateEmailError struct {
	TenantID string
	Email    string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %q already exists in tenant %s", e.Email, e.TenantID)
}

// QuotaError reports a breached plan limit. Resource identifies the budget
// ("users", "api_calls", "storage"); Limit and Current carry the structured
// detail a caller needs to render an actionable message.
type QuotaError struct {
	TenantID string
	Resource string
	Limit    int64
	Current  int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("tenant %s exceeded %s limit: %d/%d", e.TenantID, e.Resource, e.Current, e.Limit)
}

// DependencyError aborts boot when cross-references do not resolve. Missing
// carries every offending reference, not just the first.
type DependencyError struct {
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("unresolved component references: %s", strings.Join(e.Missing, ", "))
}

// ValidationError reports a rejected field value (e.g. an unrecognized
// schedule expression at automation creation time).
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ExecutionError wraps an action executor failure. It is carried on the
// execution record, never raised to the trigger source.
type ExecutionError struct {
	ActionID   string
	ActionType ActionType
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %s (%s) failed: %v", e.ActionID, e.ActionType, e.Err)
}

// Unwrap exposes the executor's underlying error for errors.Is/As.
func (e *ExecutionError) Unwrap() error { return e.Err }
