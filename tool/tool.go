// Package tool implements the capability subsystem that lets agents invoke
// structured functions (APIs, computations, side effects) with schema
// validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/automesh/logging"
)

// Context carries per-invocation information into a tool call.
type Context struct {
	ctx          context.Context
	tenantID     string
	automationID string
	logger       logging.Logger
}

// NewContext builds a tool invocation context. A nil logger is replaced by
// a no-op one.
func NewContext(ctx context.Context, tenantID, automationID string, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{ctx: ctx, tenantID: tenantID, automationID: automationID, logger: logger}
}

// Context returns the underlying context.Context for cancellation.
func (c *Context) Context() context.Context { return c.ctx }

// TenantID identifies the tenant on whose behalf the tool runs.
func (c *Context) TenantID() string { return c.tenantID }

// AutomationID identifies the automation run that triggered the call, or ""
// for direct invocations.
func (c *Context) AutomationID() string { return c.automationID }

// Logger returns the invocation logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// Tool is a structured capability an agent can invoke.
//
// Tool implementations should provide descriptive names (snake_case
// recommended), define a proper JSON schema for parameters, and be safe for
// concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, provided to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with schema-validated arguments.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
