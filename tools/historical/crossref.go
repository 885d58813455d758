package historical

import (
	"context"
	"fmt"
	"strings"
)

var contradictionMarkers = []string{
	"however", "contrary", "dispute", "disputed", "but ", "although",
	"whereas", "in contrast", "denies", "denied", "refutes",
}

// CrossReference compares how different documents discuss a topic:
// shared entities, supporting passages, and passages carrying
// contradiction markers.
func (t *Toolset) CrossReference(ctx context.Context, topic string, documentIDs []string) (map[string]any, error) {
	docs, err := t.provider.Documents(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	type docView struct {
		doc      Document
		passages []Chunk
		entities map[string]bool
	}

	var views []docView
	for _, doc := range docs {
		view := docView{doc: doc, entities: map[string]bool{}}
		for _, chunk := range doc.Chunks {
			if !mentionsTopic(chunk.Content, topic) {
				continue
			}
			view.passages = append(view.passages, chunk)
			for _, e := range quickEntities(chunk.Content) {
				view.entities[e] = true
			}
		}
		if len(view.passages) > 0 {
			views = append(views, view)
		}
	}

	var crossRefs []map[string]any
	totalAgreements, totalContradictions := 0, 0
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			a, b := views[i], views[j]
			common := intersect(a.entities, b.entities)
			similarity := jaccard(a.entities, b.entities)

			var supporting, contradictions []string
			for _, chunk := range append(a.passages, b.passages...) {
				passage := excerpt(chunk.Content, 150)
				if hasContradictionMarker(chunk.Content) {
					contradictions = append(contradictions, passage)
				} else {
					supporting = append(supporting, passage)
				}
			}
			totalAgreements += len(supporting)
			totalContradictions += len(contradictions)

			crossRefs = append(crossRefs, map[string]any{
				"topic":               topic,
				"document1":           a.doc.Name,
				"document2":           b.doc.Name,
				"similarity_score":    similarity,
				"common_entities":     common,
				"supporting_evidence": supporting,
				"contradictions":      contradictions,
			})
		}
	}

	return map[string]any{
		"topic":              topic,
		"documents_analyzed": len(views),
		"cross_references":   crossRefs,
		"analysis": map[string]any{
			"document_pairs":       len(crossRefs),
			"supporting_passages":  totalAgreements,
			"contradiction_count":  totalContradictions,
			"documents_with_topic": len(views),
		},
		"summary": crossRefSummary(topic, len(views), len(crossRefs), totalContradictions),
	}, nil
}

func mentionsTopic(content, topic string) bool {
	contentLower := strings.ToLower(content)
	for _, term := range strings.Fields(strings.ToLower(topic)) {
		term = strings.Trim(term, ".,;:!?\"'")
		if term != "" && strings.Contains(contentLower, term) {
			return true
		}
	}
	return false
}

func hasContradictionMarker(content string) bool {
	contentLower := strings.ToLower(content)
	for _, marker := range contradictionMarkers {
		if strings.Contains(contentLower, marker) {
			return true
		}
	}
	return false
}

func intersect(a, b map[string]bool) []string {
	var common []string
	for _, e := range sortedKeys(a) {
		if b[e] {
			common = append(common, e)
		}
	}
	if common == nil {
		common = []string{}
	}
	return common
}

// jaccard is the entity-set overlap between two documents.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for e := range a {
		if b[e] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func crossRefSummary(topic string, docCount, pairCount, contradictions int) string {
	if docCount == 0 {
		return fmt.Sprintf("No documents discuss %q.", topic)
	}
	if docCount == 1 {
		return fmt.Sprintf("Only one document discusses %q; nothing to cross-reference.", topic)
	}
	return fmt.Sprintf("%d documents discuss %q across %d pairings with %d contradiction signals.",
		docCount, topic, pairCount, contradictions)
}
