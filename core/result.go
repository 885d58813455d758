package core

import "time"

// StepTrace is the per-step entry of a result's detailed reasoning.
type StepTrace struct {
	Step        int      `json:"step"`
	Thought     string   `json:"thought"`
	Action      string   `json:"action"`
	Observation string   `json:"observation"`
	ToolsUsed   []string `json:"tools_used"`
}

// QueryResult is the synchronous response shape for submit_query and the
// payload of the terminal session_complete event.
type QueryResult struct {
	SessionID         string      `json:"session_id"`
	Query             string      `json:"query"`
	Answer            *string     `json:"answer"`
	Success           bool        `json:"success"`
	Error             *ErrorInfo  `json:"error"`
	ReasoningSteps    int         `json:"reasoning_steps"`
	ToolCalls         int         `json:"tool_calls"`
	SessionDuration   float64     `json:"session_duration"`
	DetailedReasoning []StepTrace `json:"detailed_reasoning"`
	Timestamp         time.Time   `json:"timestamp"`
}

// ResultFromSession assembles the wire result from a session snapshot.
// Step counts and traces cover the current run only, so a continued
// session still reports reasoning_steps within the iteration budget.
// Duration is measured from run start to the snapshot's last activity.
func ResultFromSession(snap SessionSnapshot, started time.Time) *QueryResult {
	runSteps := snap.Steps
	if snap.RunStart > 0 && snap.RunStart <= len(snap.Steps) {
		runSteps = snap.Steps[snap.RunStart:]
	}
	traces := make([]StepTrace, 0, len(runSteps))
	toolCalls := 0
	for _, st := range runSteps {
		toolsUsed := st.ToolsUsed
		if toolsUsed == nil {
			toolsUsed = []string{}
		}
		toolCalls += len(st.ToolsUsed)
		traces = append(traces, StepTrace{
			Step:        st.Number,
			Thought:     st.Thought,
			Action:      st.Action,
			Observation: st.Observation,
			ToolsUsed:   toolsUsed,
		})
	}
	return &QueryResult{
		SessionID:         snap.ID,
		Query:             snap.Query,
		Answer:            snap.Answer,
		Success:           snap.Status == StatusSucceeded,
		Error:             snap.Error,
		ReasoningSteps:    len(runSteps),
		ToolCalls:         toolCalls,
		SessionDuration:   snap.LastActivityAt.Sub(started).Seconds(),
		DetailedReasoning: traces,
		Timestamp:         started,
	}
}
