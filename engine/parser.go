package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Decision is the parsed form of one model response: either a tool
// invocation (Action + ActionInput) or a final answer, always preceded
// by a thought.
type Decision struct {
	Thought     string
	Action      string
	ActionInput map[string]any
	FinalAnswer string
	IsFinal     bool
}

// ParseError reports a response that violates the grammar. The engine
// issues one corrective re-prompt per iteration before giving up.
type ParseError struct {
	Reason   string
	Response string
}

func (e *ParseError) Error() string {
	return "malformed model response: " + e.Reason
}

var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const (
	thoughtMarker     = "Thought:"
	actionMarker      = "Action:"
	actionInputMarker = "Action Input:"
	finalAnswerMarker = "Final Answer:"
)

// Parse applies the response grammar:
//
//	Thought: <free text>
//	Action: <tool_name>
//	Action Input: <JSON object>
//
// or
//
//	Thought: <free text>
//	Final Answer: <free text to end of response>
//
// The grammar is deliberately unforgiving: a response that mixes Action
// with Final Answer, omits the thought, names an invalid tool, or
// carries non-object action input is rejected whole. Accepting partial
// matches is how silent reasoning corruption starts.
func Parse(response string) (*Decision, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return nil, &ParseError{Reason: "empty response", Response: response}
	}
	if !strings.HasPrefix(text, thoughtMarker) {
		return nil, &ParseError{Reason: "response must start with \"Thought:\"", Response: response}
	}

	rest := text[len(thoughtMarker):]

	actionIdx := markerIndex(rest, actionMarker)
	finalIdx := markerIndex(rest, finalAnswerMarker)

	switch {
	case actionIdx >= 0 && finalIdx >= 0:
		return nil, &ParseError{Reason: "response contains both \"Action:\" and \"Final Answer:\"", Response: response}
	case finalIdx >= 0:
		return parseFinal(rest, finalIdx, response)
	case actionIdx >= 0:
		return parseAction(rest, actionIdx, response)
	default:
		return nil, &ParseError{Reason: "thought must be followed by \"Action:\" or \"Final Answer:\"", Response: response}
	}
}

func parseFinal(rest string, idx int, raw string) (*Decision, error) {
	thought := strings.TrimSpace(rest[:idx])
	if thought == "" {
		return nil, &ParseError{Reason: "empty thought", Response: raw}
	}
	answer := strings.TrimSpace(rest[idx+len(finalAnswerMarker):])
	if answer == "" {
		return nil, &ParseError{Reason: "empty final answer", Response: raw}
	}
	return &Decision{Thought: thought, FinalAnswer: answer, IsFinal: true}, nil
}

func parseAction(rest string, idx int, raw string) (*Decision, error) {
	thought := strings.TrimSpace(rest[:idx])
	if thought == "" {
		return nil, &ParseError{Reason: "empty thought", Response: raw}
	}
	after := rest[idx+len(actionMarker):]

	inputIdx := markerIndex(after, actionInputMarker)
	if inputIdx < 0 {
		return nil, &ParseError{Reason: "\"Action:\" without \"Action Input:\"", Response: raw}
	}

	name := strings.TrimSpace(after[:inputIdx])
	if !toolNameRe.MatchString(name) {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid tool name %q", name), Response: raw}
	}

	inputText := strings.TrimSpace(after[inputIdx+len(actionInputMarker):])
	if inputText == "" {
		return nil, &ParseError{Reason: "empty action input", Response: raw}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(inputText), &input); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("action input is not a JSON object: %v", err), Response: raw}
	}

	return &Decision{Thought: thought, Action: name, ActionInput: input}, nil
}

// markerIndex finds a marker at the start of a line, so tool output or
// thought text mentioning "Action:" mid-sentence does not split the
// response.
func markerIndex(s, marker string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], marker)
		if idx < 0 {
			return -1
		}
		abs := offset + idx
		if abs == 0 || s[abs-1] == '\n' {
			return abs
		}
		offset = abs + len(marker)
	}
}
