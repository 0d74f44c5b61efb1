package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	handler(c)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, map[string]string{"headline": "test"})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := parseResponse(t, w)
	if resp.Code != 0 || resp.Message != "ok" {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if !strings.Contains(w.Body.String(), `"headline":"test"`) {
		t.Errorf("data missing from body %s", w.Body.String())
	}
}

func TestOutcome(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Outcome(c, "no_activity")
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"data":{"status":"no_activity"}`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestFailHelpers(t *testing.T) {
	tests := []struct {
		name   string
		send   func(*gin.Context, string)
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden, http.StatusForbidden},
		{"too many requests", TooManyRequests, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) { tt.send(c, "nope") })

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := parseResponse(t, w)
			if resp.Code != tt.status || resp.Message != "nope" {
				t.Errorf("unexpected envelope %+v", resp)
			}
			if resp.Data != nil {
				t.Errorf("expected no data, got %v", resp.Data)
			}
		})
	}
}

func TestError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		logged  bool
	}{
		{"app error", NewBadRequest("days must be between 1 and 30"), http.StatusBadRequest, "days must be between 1 and 30", false},
		{"wrapped app error", fmt.Errorf("generate: %w", NewNotFound("Report not found")), http.StatusNotFound, "Report not found", false},
		{"bad gateway keeps cause private", NewBadGateway("Failed to reach GitHub", cause), http.StatusBadGateway, "Failed to reach GitHub", true},
		{"plain error", cause, http.StatusInternalServerError, "Internal server error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx *gin.Context
			w := performRequest(func(c *gin.Context) {
				ctx = c
				Error(c, tt.err)
			})

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			resp := parseResponse(t, w)
			if resp.Code != tt.status || resp.Message != tt.message {
				t.Errorf("unexpected envelope %+v", resp)
			}
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Errorf("cause leaked to client: %s", w.Body.String())
			}
			if got := len(ctx.Errors) > 0; got != tt.logged {
				t.Errorf("context errors recorded = %v, expected %v", got, tt.logged)
			}
		})
	}
}

func TestError_EchoesRequestID(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		c.Header(requestIDHeader, "req-123")
		Error(c, NewForbidden("private repositories need the repo scope"))
	})

	if resp := parseResponse(t, w); resp.RequestID != "req-123" {
		t.Errorf("expected request id req-123, got %q", resp.RequestID)
	}
}

func TestAppError(t *testing.T) {
	cause := errors.New("upstream timeout")
	err := NewBadGateway("Failed to generate report", cause)

	if err.Error() != "Failed to generate report: upstream timeout" {
		t.Errorf("unexpected Error() %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if NewUnauthorized("Not authenticated").Error() != "Not authenticated" {
		t.Error("expected message-only Error() without a cause")
	}
}
