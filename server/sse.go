package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// streamCompleteEvent is the SSE sentinel written after the terminal
// session event so clients can distinguish a finished stream from a
// dropped connection.
const streamCompleteEvent = "stream_complete"

// handleQueryStream runs a query and streams its events as SSE. Each
// event is written as `event: <type>` plus a JSON data line. If the
// client disconnects only event delivery stops; the run itself keeps
// going to completion on its detached context.
func (s *Server) handleQueryStream(c echo.Context) error {
	req, err := s.bindQuery(c)
	if err != nil {
		return s.errorResponse(c, err)
	}

	ctx := c.Request().Context()
	st, sessionID, err := s.agent.SubmitQueryStream(ctx, req.Query, req.SessionID)
	if err != nil {
		return s.errorResponse(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Session-ID", sessionID)
	res.WriteHeader(http.StatusOK)

	flusher, canFlush := res.Writer.(http.Flusher)

	for {
		select {
		case <-ctx.Done():
			st.Cancel()
			s.logger.Info("stream client disconnected", "session_id", sessionID)
			return nil
		case ev, ok := <-st.Events():
			if !ok {
				writeSSE(res, streamCompleteEvent, map[string]any{
					"session_id": sessionID,
				})
				if canFlush {
					flusher.Flush()
				}
				return nil
			}
			if err := writeSSE(res, string(ev.Type), ev); err != nil {
				st.Cancel()
				return nil
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}

func writeSSE(res *echo.Response, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{}`)
	}
	_, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
