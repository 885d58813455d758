// Package tool implements the callable-capability subsystem: a static,
// validated registry of tools and an executor that runs them with
// argument validation, timeouts, panic recovery and uniform error
// wrapping. The reasoning engine never sees a raw tool failure; every
// problem arrives as a *ToolError it can fold into an observation.
package tool

import (
	"context"
	"fmt"
)

// Tool is a schema-validated external capability the engine may invoke.
//
// Implementations should be safe for concurrent use; the executor may
// run the same tool from many sessions at once.
type Tool interface {
	// Name returns the unique identifier (snake_case) used in model
	// action lines and registry lookups.
	Name() string

	// Description is shown to the model so it can decide when to use
	// the tool.
	Description() string

	// InputSchema returns the JSON-Schema object the arguments must
	// satisfy before Call is invoked.
	InputSchema() map[string]any

	// OutputSchema returns the JSON-Schema object results are checked
	// against after Call returns.
	OutputSchema() map[string]any

	// Call executes the tool with already-validated arguments.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Descriptor is the read-only tool shape exposed by list_tools.
type Descriptor struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
}

// ToolError codes. VALIDATION_ERROR covers unknown tools and schema
// mismatches on input; OUTPUT_MISMATCH flags a tool returning data its
// own schema rejects.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeOutputMismatch  = "OUTPUT_MISMATCH"
)

// ToolError is the uniform wrapper for every tool execution failure.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
