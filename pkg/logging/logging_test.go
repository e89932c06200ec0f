package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.With("crystal", "water").Warn("atom has no bonds",
		"atom", 2, "species", "H", "distance", 0.957912, "error", errors.New("boom"))

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[WARN]  "), line)
	assert.Contains(t, line, "atom has no bonds | crystal=water atom=2 species=H distance=0.9579")
	assert.Contains(t, line, `error="boom"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestCompactHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.Log(context.Background(), LevelTrace, "hidden too")
	assert.Empty(t, buf.String())

	l.Error("shown")
	assert.True(t, strings.HasPrefix(buf.String(), "[ERROR] "))
}

func TestCompactHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCompactHandler(&buf, nil))

	l.WithGroup("voronoi").Info("cell", "neighbors", 4)
	assert.Contains(t, buf.String(), "voronoi.neighbors=4")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  slog.Level
	}{
		{"debug", 0, slog.LevelDebug},
		{"WARN", 0, slog.LevelWarn},
		{"trace", 0, LevelTrace},
		{"", 0, slog.LevelInfo},
		{"", 1, slog.LevelDebug},
		{"", 3, LevelTrace},
		{"error", 2, slog.LevelError},
		{"bogus", 0, slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.name, tt.count), "%q/%d", tt.name, tt.count)
	}
}

func TestPackageLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel(slog.LevelInfo)
		SetOutput(&bytes.Buffer{})
	})

	Debug("quiet")
	Info("loud", "bonds", 2)
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud | bonds=2")

	SetLevel(slog.LevelDebug)
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	ctx := WithRequestID(context.Background(), "0123456789abcdef")
	assert.Equal(t, "0123456789abcdef", GetRequestID(ctx))
	InfoContext(ctx, "request")
	assert.Contains(t, buf.String(), "request | req=01234567")
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/bonds", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEqual(t, "not-a-uuid", seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "request rejected")

	id := "6f1c1a52-3f6e-4a8e-9d7c-0d1f2e3a4b5c"
	req = httptest.NewRequest(http.MethodGet, "/api/bonds", nil)
	req.Header.Set(RequestIDHeader, id)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, id, seen)
}
