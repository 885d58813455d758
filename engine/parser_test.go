package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	decision, err := Parse("Thought: I should search the documents.\n" +
		"Action: search_documents\n" +
		"Action Input: {\"query\": \"Battle of Cannae\"}")
	require.NoError(t, err)

	assert.False(t, decision.IsFinal)
	assert.Equal(t, "I should search the documents.", decision.Thought)
	assert.Equal(t, "search_documents", decision.Action)
	assert.Equal(t, map[string]any{"query": "Battle of Cannae"}, decision.ActionInput)
}

func TestParseMultilineInput(t *testing.T) {
	decision, err := Parse("Thought: compare the sources.\n" +
		"Action: cross_reference_documents\n" +
		"Action Input: {\n  \"topic\": \"Cannae\",\n  \"document_ids\": [\"doc-livy\"]\n}")
	require.NoError(t, err)
	assert.Equal(t, "cross_reference_documents", decision.Action)
	assert.Equal(t, "Cannae", decision.ActionInput["topic"])
}

func TestParseFinalAnswer(t *testing.T) {
	decision, err := Parse("Thought: I have everything I need.\n" +
		"Final Answer: Rome lost the battle but won the war.")
	require.NoError(t, err)

	assert.True(t, decision.IsFinal)
	assert.Equal(t, "Rome lost the battle but won the war.", decision.FinalAnswer)
	assert.Empty(t, decision.Action)
}

func TestParseMultilineFinalAnswer(t *testing.T) {
	decision, err := Parse("Thought: done.\n" +
		"Final Answer: First line.\nSecond line.")
	require.NoError(t, err)
	assert.Equal(t, "First line.\nSecond line.", decision.FinalAnswer)
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name     string
		response string
		reason   string
	}{
		{"empty", "", "empty response"},
		{"no thought prefix", "Action: calculator\nAction Input: {}", "must start with"},
		{"thought only", "Thought: hmm", "must be followed by"},
		{"both forms", "Thought: x\nAction: calculator\nAction Input: {}\nFinal Answer: y", "both"},
		{"action without input", "Thought: x\nAction: calculator", "without"},
		{"invalid tool name", "Thought: x\nAction: Calculator!\nAction Input: {}", "invalid tool name"},
		{"non object input", "Thought: x\nAction: calculator\nAction Input: [1, 2]", "not a JSON object"},
		{"bad json", "Thought: x\nAction: calculator\nAction Input: {oops", "not a JSON object"},
		{"empty final answer", "Thought: x\nFinal Answer:", "empty final answer"},
		{"empty thought", "Thought:\nFinal Answer: y", "empty thought"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.response)
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Contains(t, perr.Reason, tc.reason)
		})
	}
}

func TestParseMarkerMidSentence(t *testing.T) {
	// "Action:" inside the thought text must not split the response;
	// only a marker at the start of a line counts.
	decision, err := Parse("Thought: the phrase Action: appears in the source text.\n" +
		"Final Answer: done.")
	require.NoError(t, err)
	assert.True(t, decision.IsFinal)
}
