package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/tool"
)

// PromptBuilder renders the prompts driving the reason-act-observe loop.
// The system preamble with the tool catalog is built once per engine;
// per-step prompts append the query and the accumulated step history.
type PromptBuilder struct {
	preamble string
}

// NewPromptBuilder renders the static preamble from the tool catalog.
func NewPromptBuilder(descriptors []tool.Descriptor) *PromptBuilder {
	var b strings.Builder

	b.WriteString("You are a research assistant that answers questions by reasoning step by step and calling tools.\n\n")
	b.WriteString("Available tools:\n\n")
	for _, d := range descriptors {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		if schemaJSON, err := json.Marshal(d.InputSchema); err == nil {
			fmt.Fprintf(&b, "  Input schema: %s\n", schemaJSON)
		}
	}

	b.WriteString(`
Respond in EXACTLY one of these two formats and nothing else.

To call a tool:

Thought: <your reasoning about what to do next>
Action: <tool name, exactly as listed above>
Action Input: <arguments as a single JSON object>

To finish:

Thought: <your reasoning about why you can answer now>
Final Answer: <the complete answer to the question>

Rules:
- Always start with "Thought:".
- Use "Action:" with "Action Input:" OR "Final Answer:", never both.
- "Action Input:" must be a valid JSON object matching the tool's input schema.
- Call one tool at a time and wait for its observation.
`)

	return &PromptBuilder{preamble: b.String()}
}

// Step renders the prompt for the next iteration: preamble, question,
// and the full history of prior thoughts, actions and observations.
func (p *PromptBuilder) Step(query string, steps []core.Step) string {
	var b strings.Builder
	b.WriteString(p.preamble)
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")

	for _, st := range steps {
		// A step without an action records a rejected response; only
		// its observation feeds the next prompt.
		if st.Action == "" {
			fmt.Fprintf(&b, "\nObservation: %s\n", st.Observation)
			continue
		}
		fmt.Fprintf(&b, "\nThought: %s\n", st.Thought)
		if st.Action == core.FinalAnswerAction {
			continue
		}
		fmt.Fprintf(&b, "Action: %s\n", st.Action)
		if inputJSON, err := json.Marshal(st.ActionInput); err == nil {
			fmt.Fprintf(&b, "Action Input: %s\n", inputJSON)
		}
		fmt.Fprintf(&b, "Observation: %s\n", st.Observation)
	}

	b.WriteString("\nContinue from here, starting with \"Thought:\".\n")
	return b.String()
}

// Corrective renders the one-shot re-prompt issued after a malformed
// response, quoting the violation so the model can repair its output.
func (p *PromptBuilder) Corrective(stepPrompt, response string, perr *ParseError) string {
	var b strings.Builder
	b.WriteString(stepPrompt)
	b.WriteString("\n\nYour previous response was rejected: ")
	b.WriteString(perr.Reason)
	b.WriteString("\n\nPrevious response:\n")
	b.WriteString(response)
	b.WriteString("\n\nRespond again, following the required format exactly, starting with \"Thought:\".\n")
	return b.String()
}

// Synthesis renders the best-effort final prompt issued when the
// iteration budget is exhausted without a final answer.
func (p *PromptBuilder) Synthesis(query string, steps []core.Step) string {
	var b strings.Builder
	b.WriteString("You ran out of reasoning steps while answering a question. ")
	b.WriteString("Summarize the best answer you can from the work done so far. ")
	b.WriteString("If the gathered information is insufficient, say what is known and what is missing.\n")
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n")
	for _, st := range steps {
		fmt.Fprintf(&b, "\nStep %d thought: %s\n", st.Number, st.Thought)
		if st.Action != "" && st.Action != core.FinalAnswerAction {
			fmt.Fprintf(&b, "Step %d action: %s\n", st.Number, st.Action)
			fmt.Fprintf(&b, "Step %d observation: %s\n", st.Number, st.Observation)
		}
	}
	b.WriteString("\nAnswer:")
	return b.String()
}
