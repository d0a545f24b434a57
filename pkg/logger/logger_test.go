package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromFallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected slog.Default fallback")
	}
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if From(With(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestNewWithWriter_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed in production, got %s", buf.String())
	}
	NewWithWriter("dev", &buf).Debug("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected debug output in dev")
	}
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := NewWithWriter("dev", &buf)

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		From(c.Request.Context()).Info("inside")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "rid-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	dec := json.NewDecoder(&buf)
	var lines int
	for dec.More() {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec["request_id"] != "rid-1" {
			t.Fatalf("expected request_id on every line, got %v", rec)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("expected handler line and summary line, got %d", lines)
	}
}

func TestStatusLevel(t *testing.T) {
	cases := []struct {
		status int
		errs   bool
		want   slog.Level
	}{
		{http.StatusOK, false, slog.LevelInfo},
		{http.StatusCreated, true, slog.LevelError},
		{http.StatusNotFound, false, slog.LevelWarn},
		{http.StatusForbidden, false, slog.LevelWarn},
		{http.StatusInternalServerError, false, slog.LevelError},
	}
	for _, tc := range cases {
		if got := statusLevel(tc.status, tc.errs); got != tc.want {
			t.Fatalf("status %d errs=%v: expected %v, got %v", tc.status, tc.errs, tc.want, got)
		}
	}
}

func TestFromGin_DefaultOutsideMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if FromGin(c) != slog.Default() {
		t.Fatalf("expected slog.Default fallback")
	}
}
