package historical

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// entityPatterns map entity types to the extraction regexes. Each
// pattern captures the entity name in group 1.
var entityPatterns = map[string][]*regexp.Regexp{
	"person": {
		regexp.MustCompile(`\b(?:Emperor|King|Queen|General|Admiral|Senator|Consul)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\b`),
		regexp.MustCompile(`\b([A-Z][a-z]+\s[A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\s+(?:led|commanded|ruled|conquered)\b`),
		regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:the Great|the Elder|the Younger|Caesar|Augustus)\b`),
	},
	"place": {
		regexp.MustCompile(`\b(?:city|town|province|region|kingdom|empire)\s+of\s+([A-Z][a-z]+)\b`),
		regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:River|Sea|Mountain|Hill|Valley|Plain)\b`),
	},
	"battle": {
		regexp.MustCompile(`\b(?:Battle|Siege|War)\s+(?:of|at)\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\b`),
		regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\s+(?:Campaign|Expedition)\b`),
	},
	"organization": {
		regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:Legion|Senate|Republic|Empire)\b`),
		regexp.MustCompile(`\bthe\s+([A-Z][a-z]+(?:\s[A-Z][a-z]+)?)\s+(?:Alliance|League|Confederation)\b`),
	},
}

type entityRecord struct {
	Name      string
	Type      string
	Context   string
	Document  string
	Page      int
	Mentions  int
	CoOccurs  map[string]bool
}

// ExtractEntities identifies people, places, battles and organizations
// mentioned in the corpus, with mention counts and co-occurrence
// relationships (entities appearing in the same passage).
func (t *Toolset) ExtractEntities(ctx context.Context, documentIDs []string) (map[string]any, error) {
	docs, err := t.provider.Documents(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	records := map[string]*entityRecord{}
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			var inChunk []string
			for entityType, patterns := range entityPatterns {
				for _, re := range patterns {
					for _, m := range re.FindAllStringSubmatch(chunk.Content, -1) {
						name := strings.TrimSpace(m[1])
						if name == "" {
							continue
						}
						rec, ok := records[name]
						if !ok {
							rec = &entityRecord{
								Name:     name,
								Type:     entityType,
								Context:  excerpt(chunk.Content, 150),
								Document: doc.Name,
								Page:     chunk.Page,
								CoOccurs: map[string]bool{},
							}
							records[name] = rec
						}
						rec.Mentions++
						inChunk = append(inChunk, name)
					}
				}
			}
			for _, a := range inChunk {
				for _, b := range inChunk {
					if a != b {
						records[a].CoOccurs[b] = true
					}
				}
			}
		}
	}

	byType := map[string][]map[string]any{}
	relationships := map[string]any{}
	for _, name := range sortedKeys(records) {
		rec := records[name]
		byType[rec.Type] = append(byType[rec.Type], map[string]any{
			"name":            rec.Name,
			"entity_type":     rec.Type,
			"context":         rec.Context,
			"source_document": rec.Document,
			"page_number":     rec.Page,
			"mentions":        rec.Mentions,
		})
		if len(rec.CoOccurs) > 0 {
			related := sortedKeys(rec.CoOccurs)
			relationships[rec.Name] = related
		}
	}

	// Most-mentioned entities first within each type.
	for _, entities := range byType {
		sort.SliceStable(entities, func(i, j int) bool {
			return entities[i]["mentions"].(int) > entities[j]["mentions"].(int)
		})
	}

	return map[string]any{
		"total_entities":       len(records),
		"entities_by_type":     toAnyMap(byType),
		"entity_relationships": relationships,
		"entity_summary":       entitySummary(records, byType),
		"extraction_method":    "pattern_matching",
	}, nil
}

func entitySummary(records map[string]*entityRecord, byType map[string][]map[string]any) string {
	if len(records) == 0 {
		return "No historical entities found in the documents."
	}
	var parts []string
	for _, entityType := range sortedKeys(byType) {
		parts = append(parts, fmt.Sprintf("%d %s entities", len(byType[entityType]), entityType))
	}
	return fmt.Sprintf("Extracted %d entities: %s.", len(records), strings.Join(parts, ", "))
}
