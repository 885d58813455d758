// Package historical provides the document-analysis toolset: search,
// timeline extraction, entity extraction, cross-referencing and
// citation generation over a corpus of historical documents.
//
// Tools are deterministic; all model calls belong to the reasoning
// engine. The corpus is abstracted behind Provider so the toolset works
// against any backing store.
package historical

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Chunk is one retrievable passage of a document.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Page    int    `json:"page"`
}

// Document is a corpus entry with its passage chunks.
type Document struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Author string  `json:"author"`
	Year   int     `json:"year"`
	Chunks []Chunk `json:"chunks"`
}

// Provider supplies documents to the toolset. An empty ids slice means
// the whole corpus.
type Provider interface {
	Documents(ctx context.Context, ids []string) ([]Document, error)
}

// MemoryStore is an in-memory Provider. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryStore constructs a store seeded with the given documents.
func NewMemoryStore(docs ...Document) *MemoryStore {
	s := &MemoryStore{}
	s.docs = append(s.docs, docs...)
	return s
}

// Add appends a document to the corpus.
func (s *MemoryStore) Add(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
}

// Len returns the corpus size.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents implements Provider.
func (s *MemoryStore) Documents(_ context.Context, ids []string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(ids) == 0 {
		docs := make([]Document, len(s.docs))
		copy(docs, s.docs)
		return docs, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var docs []Document
	for _, doc := range s.docs {
		if want[doc.ID] {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents found for ids %v", ids)
	}
	return docs, nil
}

// Toolset is the document-analysis tool collection bound to a corpus.
type Toolset struct {
	provider Provider
}

// NewToolset binds the tools to a document provider.
func NewToolset(provider Provider) *Toolset {
	return &Toolset{provider: provider}
}

// argString reads a required string argument. The executor has already
// schema-validated types, so a missing optional simply yields "".
func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// argStringSlice reads an optional string-array argument, tolerating
// the []any shape JSON decoding produces.
func argStringSlice(args map[string]any, key string) []string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		if ss, ok := raw.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// sortedKeys returns map keys in deterministic order for stable output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// excerpt trims a passage to at most n runes for compact observations.
func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
