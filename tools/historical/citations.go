package historical

import (
	"context"
	"fmt"
	"strings"
)

// Citation styles accepted by GenerateCitations. Unknown styles fall
// back to "academic".
const (
	StyleChicago  = "chicago"
	StyleMLA      = "mla"
	StyleAPA      = "apa"
	StyleAcademic = "academic"
)

const maxQuoteLen = 200

// GenerateCitations formats search results as citations and a
// deduplicated bibliography in the requested style. It needs no
// document provider; it works off the passed results.
func (t *Toolset) GenerateCitations(_ context.Context, searchResults []map[string]any, style string) (map[string]any, error) {
	switch style {
	case StyleChicago, StyleMLA, StyleAPA, StyleAcademic:
	default:
		style = StyleAcademic
	}

	var citations []map[string]any
	var bibliography []string
	seenBib := map[string]bool{}

	for _, result := range searchResults {
		docName, _ := result["document_name"].(string)
		if docName == "" {
			docName = "Unknown Document"
		}
		page := pageNumber(result)
		content, _ := result["content"].(string)
		quote := content
		if len(quote) > maxQuoteLen {
			quote = quote[:maxQuoteLen] + "..."
		}

		citations = append(citations, map[string]any{
			"citation":    formatCitation(style, docName, page),
			"quote":       quote,
			"page_number": page,
			"document":    docName,
		})

		bib := bibliographyEntry(style, docName)
		if !seenBib[bib] {
			seenBib[bib] = true
			bibliography = append(bibliography, bib)
		}
	}
	if citations == nil {
		citations = []map[string]any{}
	}
	if bibliography == nil {
		bibliography = []string{}
	}

	return map[string]any{
		"citation_style":   style,
		"total_citations":  len(citations),
		"citations":        citations,
		"bibliography":     bibliography,
		"citation_summary": citationSummary(citations, style),
		"usage_note":       fmt.Sprintf("Citations formatted in %s style for academic use", strings.ToUpper(style)),
	}, nil
}

// pageNumber tolerates the float64 shape JSON decoding produces.
func pageNumber(result map[string]any) int {
	switch v := result["page_number"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func formatCitation(style, docName string, page int) string {
	switch style {
	case StyleChicago:
		if page > 0 {
			return fmt.Sprintf("%s, %d.", docName, page)
		}
		return docName + "."
	case StyleMLA:
		if page > 0 {
			return fmt.Sprintf("(%s %d)", docName, page)
		}
		return fmt.Sprintf("(%s)", docName)
	case StyleAPA:
		if page > 0 {
			return fmt.Sprintf("(%s, p. %d)", docName, page)
		}
		return fmt.Sprintf("(%s)", docName)
	default:
		if page > 0 {
			return fmt.Sprintf("[%s, p. %d]", docName, page)
		}
		return fmt.Sprintf("[%s]", docName)
	}
}

func bibliographyEntry(style, docName string) string {
	switch style {
	case StyleChicago:
		return docName + ". Historical Document."
	case StyleMLA:
		return docName + ". Historical Document. PDF."
	case StyleAPA:
		return docName + ". Historical document."
	default:
		return docName + " - Historical Document"
	}
}

func citationSummary(citations []map[string]any, style string) string {
	if len(citations) == 0 {
		return "No citations generated."
	}
	uniqueDocs := map[string]bool{}
	withPages := 0
	for _, c := range citations {
		uniqueDocs[c["document"].(string)] = true
		if c["page_number"].(int) > 0 {
			withPages++
		}
	}
	return fmt.Sprintf("Generated %d citations in %s format: %d unique documents, %d with page references.",
		len(citations), strings.ToUpper(style), len(uniqueDocs), withPages)
}
