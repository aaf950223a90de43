package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"off", LevelOff},
		{"", LevelOff},
		{"error", LevelError},
		{"info", LevelInfo},
		{"debug", LevelDebug},
		{"bogus", LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestRequestLogLevelOverrides(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/queue/status?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query log=1: %d", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/api/queue/status?log=error", nil)
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("query log=error: %d", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/api/queue/status", nil)
	r.Header.Set("X-Log-Level", "debug")
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("header override: %d", got)
	}
	// Query wins over header.
	r = httptest.NewRequest(http.MethodGet, "/api/queue/status?log=off", nil)
	r.Header.Set("X-Log-Level", "debug")
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("precedence: %d", got)
	}
}
