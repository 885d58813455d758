package historical

import (
	"context"

	"github.com/chronicler-ai/chronicler/tool"
)

// Tools returns the five document-analysis tools bound to the toolset's
// provider, ready for registry construction.
func (t *Toolset) Tools() []tool.Tool {
	return []tool.Tool{
		t.searchTool(),
		t.timelineTool(),
		t.entitiesTool(),
		t.crossReferenceTool(),
		t.citationsTool(),
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (t *Toolset) searchTool() tool.Tool {
	return tool.NewFunctionTool(
		"search_documents",
		"Search through uploaded historical documents for relevant information",
		objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query with historical context",
			},
			"document_ids": map[string]any{
				"type":        "array",
				"description": "Optional list of document IDs to search within",
			},
		}, "query"),
		objectSchema(map[string]any{
			"query":           map[string]any{"type": "string"},
			"enhanced_query":  map[string]any{"type": "string"},
			"results":         map[string]any{"type": "array"},
			"total_results":   map[string]any{"type": "integer"},
			"search_strategy": map[string]any{"type": "string"},
		}, "query", "results", "total_results"),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return t.Search(ctx, argString(args, "query"), argStringSlice(args, "document_ids"))
		},
	)
}

func (t *Toolset) timelineTool() tool.Tool {
	return tool.NewFunctionTool(
		"build_timeline",
		"Extract and organize dates, events, and chronological information",
		objectSchema(map[string]any{
			"document_ids": map[string]any{
				"type":        "array",
				"description": "Optional list of document IDs to analyze",
			},
		}),
		objectSchema(map[string]any{
			"total_events":      map[string]any{"type": "integer"},
			"timeline_events":   map[string]any{"type": "array"},
			"grouped_by_period": map[string]any{"type": "object"},
			"timeline_summary":  map[string]any{"type": "string"},
			"date_range":        map[string]any{"type": "object"},
		}, "total_events", "timeline_events", "timeline_summary"),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return t.BuildTimeline(ctx, argStringSlice(args, "document_ids"))
		},
	)
}

func (t *Toolset) entitiesTool() tool.Tool {
	return tool.NewFunctionTool(
		"extract_entities",
		"Identify people, places, battles, and historical entities",
		objectSchema(map[string]any{
			"document_ids": map[string]any{
				"type":        "array",
				"description": "Optional list of document IDs to analyze",
			},
		}),
		objectSchema(map[string]any{
			"total_entities":       map[string]any{"type": "integer"},
			"entities_by_type":     map[string]any{"type": "object"},
			"entity_relationships": map[string]any{"type": "object"},
			"entity_summary":       map[string]any{"type": "string"},
			"extraction_method":    map[string]any{"type": "string"},
		}, "total_entities", "entities_by_type", "entity_summary"),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return t.ExtractEntities(ctx, argStringSlice(args, "document_ids"))
		},
	)
}

func (t *Toolset) crossReferenceTool() tool.Tool {
	return tool.NewFunctionTool(
		"cross_reference_documents",
		"Compare information across multiple documents",
		objectSchema(map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Topic to cross-reference across documents",
			},
			"document_ids": map[string]any{
				"type":        "array",
				"description": "Optional list of document IDs to compare",
			},
		}, "topic"),
		objectSchema(map[string]any{
			"topic":              map[string]any{"type": "string"},
			"documents_analyzed": map[string]any{"type": "integer"},
			"cross_references":   map[string]any{"type": "array"},
			"analysis":           map[string]any{"type": "object"},
			"summary":            map[string]any{"type": "string"},
		}, "topic", "documents_analyzed", "cross_references", "summary"),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return t.CrossReference(ctx, argString(args, "topic"), argStringSlice(args, "document_ids"))
		},
	)
}

func (t *Toolset) citationsTool() tool.Tool {
	return tool.NewFunctionTool(
		"generate_citations",
		"Create proper academic citations for sources",
		objectSchema(map[string]any{
			"search_results": map[string]any{
				"type":        "array",
				"description": "Search results to cite",
			},
			"style": map[string]any{
				"type":        "string",
				"description": "Citation style (chicago, mla, apa, academic)",
			},
		}, "search_results"),
		objectSchema(map[string]any{
			"citation_style":  map[string]any{"type": "string"},
			"total_citations": map[string]any{"type": "integer"},
			"citations":       map[string]any{"type": "array"},
			"bibliography":    map[string]any{"type": "array"},
		}, "citation_style", "total_citations", "citations", "bibliography"),
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return t.GenerateCitations(ctx, argResultSlice(args, "search_results"), argString(args, "style"))
		},
	)
}

// argResultSlice reads an array-of-objects argument in either its
// decoded ([]any) or native ([]map[string]any) shape.
func argResultSlice(args map[string]any, key string) []map[string]any {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	if ms, ok := raw.([]map[string]any); ok {
		return ms
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
