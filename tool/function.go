package tool

import (
	"context"

	"github.com/chronicler-ai/chronicler/internal/schema"
)

// FunctionTool adapts a plain Go function into a Tool. It carries the
// declared schemas; validation itself happens in the Executor so there
// is a single enforcement point.
//
// A FunctionTool has no mutable state after construction and is safe
// for concurrent use.
type FunctionTool struct {
	name         string
	description  string
	inputSchema  map[string]any
	outputSchema map[string]any
	fn           func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schemas.
//
// Example:
//
//	sum := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "result": map[string]any{"type": "number"},
//	    },
//	  },
//	  func(ctx context.Context, args map[string]any) (map[string]any, error) {
//	    return map[string]any{"result": args["a"].(float64) + args["b"].(float64)}, nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	inputSchema, outputSchema map[string]any,
	fn func(ctx context.Context, args map[string]any) (map[string]any, error),
) *FunctionTool {
	return &FunctionTool{
		name:         name,
		description:  description,
		inputSchema:  inputSchema,
		outputSchema: outputSchema,
		fn:           fn,
	}
}

// NewFunctionToolFromStructs derives both schemas from struct types via
// reflection, for simple argument/result containers.
func NewFunctionToolFromStructs(
	name, description string,
	inputType, outputType any,
	fn func(ctx context.Context, args map[string]any) (map[string]any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, schema.FromStruct(inputType), schema.FromStruct(outputType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// InputSchema returns the declared argument schema.
func (t *FunctionTool) InputSchema() map[string]any { return t.inputSchema }

// OutputSchema returns the declared result schema.
func (t *FunctionTool) OutputSchema() map[string]any { return t.outputSchema }

// Call invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, args)
}
