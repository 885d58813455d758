package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicler-ai/chronicler"
	"github.com/chronicler-ai/chronicler/completion"
	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/tool"
	"github.com/chronicler-ai/chronicler/tools/calculator"
)

func newTestServer(t *testing.T, script *completion.Script, extra ...tool.Tool) (*Server, *chronicler.Agent) {
	t.Helper()
	tools := append([]tool.Tool{calculator.New()}, extra...)
	registry, err := tool.NewRegistry(tools...)
	require.NoError(t, err)

	agent := chronicler.New(script, registry, func(o *chronicler.Options) {
		o.SessionIdleTTL = 0
	})
	t.Cleanup(agent.Close)
	return New(agent), agent
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorInfo {
	t.Helper()
	var body struct {
		Error core.ErrorInfo `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestHandleQuery(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: compute 25% of 1847.\n" +
		"Action: calculator\n" +
		"Action Input: {\"expression\": \"0.25 * 1847\"}")
	script.Push("Thought: done.\nFinal Answer: 25% of 1847 is 461.75.")

	s, _ := newTestServer(t, script)

	rec := doJSON(t, s, http.MethodPost, "/api/agent/query", `{"query": "What is 25% of 1847?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.NotNil(t, result.Answer)
	assert.Contains(t, *result.Answer, "461.75")
	assert.NotEmpty(t, result.SessionID)
}

func TestHandleQueryValidation(t *testing.T) {
	s, _ := newTestServer(t, completion.NewScript())

	t.Run("empty query", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/agent/query", `{"query": ""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, core.CodeValidation, decodeError(t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/agent/query", `{"query": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, core.CodeValidation, decodeError(t, rec).Code)
	})
}

func TestHandleGetSessionNotFound(t *testing.T) {
	s, _ := newTestServer(t, completion.NewScript())

	rec := doJSON(t, s, http.MethodGet, "/api/agent/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, core.CodeSessionNotFound, decodeError(t, rec).Code)
}

func TestHandleClearSessionConflict(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: hold.\n" +
		"Action: hold\n" +
		"Action Input: {\"token\": \"x\"}")
	script.Push("Thought: released.\nFinal Answer: done.")

	release := make(chan struct{})
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"token": map[string]any{"type": "string"},
		},
		"required": []string{"token"},
	}
	hold := tool.NewFunctionTool("hold", "waits for release", schema, schema,
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			select {
			case <-release:
				return map[string]any{"token": args["token"]}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	s, agent := newTestServer(t, script, hold)

	st, sessionID, err := agent.SubmitQueryStream(context.Background(), "wait", "")
	require.NoError(t, err)
	for ev := range st.Events() {
		if ev.Type == core.EventExecutingTools {
			break
		}
	}

	rec := doJSON(t, s, http.MethodDelete, "/api/agent/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, core.CodeAlreadyInProgress, decodeError(t, rec).Code)

	close(release)
	for range st.Events() {
	}
	assert.Eventually(t, func() bool {
		rec := doJSON(t, s, http.MethodDelete, "/api/agent/sessions/"+sessionID, "")
		return rec.Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
}

func TestHandleClearResponses(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: a.\nFinal Answer: one.")
	script.Push("Thought: b.\nFinal Answer: two.")

	s, agent := newTestServer(t, script)
	first, err := agent.SubmitQuery(context.Background(), "q1", "")
	require.NoError(t, err)
	_, err = agent.SubmitQuery(context.Background(), "q2", "")
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodDelete, "/api/agent/sessions/"+first.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Equal(t, first.SessionID, cleared.SessionID)
	assert.Contains(t, cleared.Message, "cleared")

	rec = doJSON(t, s, http.MethodDelete, "/api/agent/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Message         string `json:"message"`
		SessionsCleared int    `json:"sessions_cleared"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 1, all.SessionsCleared)
	assert.Contains(t, all.Message, "Cleared 1")
}

func TestHandleListSessions(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: t.\nFinal Answer: ok.")

	s, agent := newTestServer(t, script)
	_, err := agent.SubmitQuery(context.Background(), "q", "")
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, "/api/agent/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total_sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
}

func TestHandleCancelSession(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: t.\nFinal Answer: ok.")

	s, agent := newTestServer(t, script)
	result, err := agent.SubmitQuery(context.Background(), "q", "")
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/api/agent/sessions/"+result.SessionID+"/cancel", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/agent/sessions/missing/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTools(t *testing.T) {
	s, _ := newTestServer(t, completion.NewScript())

	rec := doJSON(t, s, http.MethodGet, "/api/agent/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Tools, 1)
	assert.Equal(t, "calculator", body.Tools[0].Name)
}

func TestHandleMonitoringAndHealth(t *testing.T) {
	s, _ := newTestServer(t, completion.NewScript())

	rec := doJSON(t, s, http.MethodGet, "/api/agent/monitoring", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Health struct {
			Status              string  `json:"status"`
			SuccessRate         float64 `json:"success_rate"`
			TotalSessions       int     `json:"total_sessions"`
			RecentErrors        int     `json:"recent_errors"`
			AverageResponseTime float64 `json:"average_response_time"`
		} `json:"health"`
		Statistics struct {
			Performance map[string]any `json:"performance"`
			ToolUsage   map[string]int `json:"tool_usage"`
		} `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Health.Status)
	assert.Equal(t, 1.0, body.Health.SuccessRate)
	assert.Equal(t, 0, body.Health.TotalSessions)
	assert.Contains(t, body.Statistics.Performance, "total_tool_calls")
	assert.NotNil(t, body.Statistics.ToolUsage)

	rec = doJSON(t, s, http.MethodGet, "/api/agent/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleQueryStream(t *testing.T) {
	script := completion.NewScript()
	script.Push("Thought: compute.\n" +
		"Action: calculator\n" +
		"Action Input: {\"expression\": \"2 + 2\"}")
	script.Push("Thought: got it.\nFinal Answer: 4.")

	s, _ := newTestServer(t, script)

	rec := doJSON(t, s, http.MethodPost, "/api/agent/query/stream", `{"query": "2+2?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Session-ID"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: session_start")
	assert.Contains(t, body, "event: executing_tools")
	assert.Contains(t, body, "event: session_complete")
	assert.Contains(t, body, "event: stream_complete")

	// The terminal event precedes the sentinel.
	assert.Less(t,
		strings.Index(body, "event: session_complete"),
		strings.Index(body, "event: stream_complete"))
}

func TestHandleQueryStreamValidation(t *testing.T) {
	s, _ := newTestServer(t, completion.NewScript())

	rec := doJSON(t, s, http.MethodPost, "/api/agent/query/stream", `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
