package historical

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// historicalTerms boost passages carrying period terminology: military,
// political, geographic and temporal vocabulary of the classical world.
var historicalTerms = map[string]bool{
	"legion": true, "cohort": true, "century": true, "maniple": true,
	"hastati": true, "principes": true, "triarii": true,
	"phalanx": true, "hoplite": true, "sarissa": true, "aspis": true,
	"dory": true, "xiphos": true,
	"cavalry": true, "infantry": true, "siege": true, "fortification": true,
	"camp": true, "battle": true,
	"consul": true, "praetor": true, "quaestor": true, "senate": true,
	"republic": true, "empire": true,
	"democracy": true, "oligarchy": true, "tyranny": true, "archon": true,
	"strategos": true,
	"mediterranean": true, "aegean": true, "adriatic": true, "tiber": true,
	"rubicon": true,
	"thermopylae": true, "marathon": true, "salamis": true, "cannae": true,
	"zama": true,
	"bc": true, "ad": true, "bce": true, "ce": true,
	"decade": true, "era": true, "period": true,
}

var (
	datePatternsRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,4}\s*(?:BC|AD|BCE|CE)\b`),
		regexp.MustCompile(`(?i)\b(?:first|second|third)\s+century\b`),
		regexp.MustCompile(`(?i)\b\d{1,4}\s*(?:st|nd|rd|th)\s+century\b`),
	}
	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	romanNameRe  = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+(?: [A-Z][a-z]+)?\b`)
	battleNameRe = regexp.MustCompile(`\b(?:Battle|Siege|War)\s+of\s+[A-Z][a-z]+\b`)
	placeWordRe  = regexp.MustCompile(`\b[A-Z][a-z]{3,}\b`)
)

// SearchResult is one scored passage.
type SearchResult struct {
	ChunkID         string   `json:"chunk_id"`
	Content         string   `json:"content"`
	DocumentID      string   `json:"document_id"`
	DocumentName    string   `json:"document_name"`
	Page            int      `json:"page"`
	RelevanceScore  float64  `json:"relevance_score"`
	HistoricalScore float64  `json:"historical_score"`
	Entities        []string `json:"historical_entities"`
}

const maxSearchResults = 15

// Search scores every passage against the query and returns the top
// results. The query is first enhanced by repeating its period-specific
// terms, mirroring the terminology-weighted retrieval strategy.
func (t *Toolset) Search(ctx context.Context, query string, documentIDs []string) (map[string]any, error) {
	docs, err := t.provider.Documents(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	enhanced := enhanceQuery(query)
	var results []SearchResult
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			relevance := termMatchScore(chunk.Content, enhanced)
			if relevance == 0 {
				continue
			}
			results = append(results, SearchResult{
				ChunkID:         chunk.ID,
				Content:         chunk.Content,
				DocumentID:      doc.ID,
				DocumentName:    doc.Name,
				Page:            chunk.Page,
				RelevanceScore:  relevance,
				HistoricalScore: historicalRelevance(chunk.Content, query),
				Entities:        quickEntities(chunk.Content),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		si := (results[i].HistoricalScore + results[i].RelevanceScore) / 2
		sj := (results[j].HistoricalScore + results[j].RelevanceScore) / 2
		return si > sj
	})
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	asMaps := make([]map[string]any, 0, len(results))
	for _, r := range results {
		asMaps = append(asMaps, map[string]any{
			"chunk_id":            r.ChunkID,
			"content":             r.Content,
			"document_id":         r.DocumentID,
			"document_name":       r.DocumentName,
			"page_number":         r.Page,
			"relevance_score":     r.RelevanceScore,
			"historical_score":    r.HistoricalScore,
			"historical_entities": r.Entities,
		})
	}

	return map[string]any{
		"query":           query,
		"enhanced_query":  enhanced,
		"results":         asMaps,
		"total_results":   len(results),
		"search_strategy": "historical_terminology_optimized",
	}, nil
}

// enhanceQuery appends the query's period-specific terms, doubling
// their weight in term matching.
func enhanceQuery(query string) string {
	var boosts []string
	for _, term := range strings.Fields(strings.ToLower(query)) {
		term = strings.Trim(term, ".,;:!?\"'")
		if historicalTerms[term] {
			boosts = append(boosts, term)
		}
	}
	if len(boosts) == 0 {
		return query
	}
	return query + " " + strings.Join(boosts, " ")
}

// termMatchScore is the fraction of query terms present in the content.
func termMatchScore(content, query string) float64 {
	contentLower := strings.ToLower(content)
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	matches := 0
	for _, term := range terms {
		term = strings.Trim(term, ".,;:!?\"'")
		if term != "" && strings.Contains(contentLower, term) {
			matches++
		}
	}
	score := float64(matches) / float64(len(terms))
	if score > 1 {
		score = 1
	}
	return score
}

// historicalRelevance blends the base term score with boosts for period
// terminology, temporal references and proper nouns, capped at 1.0.
func historicalRelevance(content, query string) float64 {
	contentLower := strings.ToLower(content)
	score := termMatchScore(content, query)

	termCount := 0
	for term := range historicalTerms {
		if strings.Contains(contentLower, term) {
			termCount++
		}
	}
	score += minF(float64(termCount)*0.1, 0.3)

	dateMatches := 0
	for _, re := range datePatternsRe {
		dateMatches += len(re.FindAllString(content, -1))
	}
	score += minF(float64(dateMatches)*0.05, 0.2)

	properNouns := len(properNounRe.FindAllString(content, -1))
	score += minF(float64(properNouns)*0.01, 0.15)

	return minF(score, 1.0)
}

// quickEntities does cheap pattern-based entity spotting for search
// result annotation. The full extractor lives in entities.go.
func quickEntities(text string) []string {
	seen := map[string]bool{}
	var entities []string
	add := func(names []string) {
		for _, name := range names {
			switch name {
			case "The", "This", "That", "They":
				continue
			}
			if !seen[name] {
				seen[name] = true
				entities = append(entities, name)
			}
		}
	}
	add(romanNameRe.FindAllString(text, -1))
	add(battleNameRe.FindAllString(text, -1))
	add(placeWordRe.FindAllString(text, -1))
	sort.Strings(entities)
	return entities
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
