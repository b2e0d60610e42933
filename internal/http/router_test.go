package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"uniqiita/internal/auth"
	"uniqiita/internal/credentials"
)

func TestLivenessEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	get := srv.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if get.Code != http.StatusOK || get.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", get.Code, get.Body.String())
	}

	head := srv.do(httptest.NewRequest(http.MethodHead, "/healthz", nil))
	if head.Code != http.StatusOK || head.Body.Len() != 0 {
		t.Fatalf("expected 200 with empty body, got %d %q", head.Code, head.Body.String())
	}
}

func TestHealthReportsCredentialReadiness(t *testing.T) {
	tests := []struct {
		name   string
		state  credentials.State
		ready  bool
		reason string
	}{
		{name: "ready", state: readyCreds().state, ready: true},
		{name: "not ready", state: credentials.State{Reason: "no credentials configured"}, reason: "no credentials configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, withCredentials(tt.state))

			rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			var got healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode health: %v", err)
			}
			if got.Environment != "production" || got.Auth.Ready != tt.ready || got.Auth.Reason != tt.reason {
				t.Fatalf("unexpected health %+v", got)
			}
			if tt.ready && (got.Auth.Source == nil || got.Auth.Source.Kind != credentials.KindInlineJSON) {
				t.Fatalf("expected credential source to be reported, got %+v", got.Auth.Source)
			}
		})
	}
}

func TestHealthNeverExposesCredentialContent(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	if strings.Contains(rec.Body.String(), "private_key") {
		t.Fatalf("health must not expose credential content: %s", rec.Body.String())
	}
}

func TestArticlesPing(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/v1/articles/ping", nil))

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode ping: %v", err)
	}
	if got["ok"] != true || got["where"] != "/v1/articles/ping" {
		t.Fatalf("unexpected ping response %v", got)
	}
}

func TestMetricsEndpointCountsLogins(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.verifier.claims["uid-1"] = &auth.Claims{Sub: "uid-1", Email: "metrics@example.ac.jp"}

	srv.do(newJSONRequest(http.MethodPost, "/auth/firebase-login", `{"idToken": "`+signedToken(t, "uid-1")+`"}`))
	srv.do(newJSONRequest(http.MethodPost, "/auth/firebase-login", `{"idToken": ""}`))

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`uniqiita_auth_logins_total{outcome="success"} 1`,
		`uniqiita_auth_logins_total{outcome="missing"} 1`,
		`uniqiita_http_requests_total{method="POST",route="/auth/firebase-login",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics to contain %q", want)
		}
	}
}

func TestUnknownRouteReturnsDetail(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if detail := decodeDetail(t, rec.Body.Bytes()); detail != "Not Found" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestSecurityHeaders(t *testing.T) {
	prod := newTestServer(t, nil).do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if prod.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}
	if prod.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS outside development")
	}

	dev := newTestServer(t, nil, withEnvironment("development")).do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if dev.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("expected no HSTS in development")
	}
}

func TestCORSAllowsConfiguredAndPatternOrigins(t *testing.T) {
	srv := newTestServer(t, nil, withOriginPattern(`^https://uniqiita-[a-z0-9-]+\.vercel\.app$`))

	tests := []struct {
		origin  string
		allowed bool
	}{
		{origin: "https://uniqiita.example", allowed: true},
		{origin: "https://uniqiita-git-feature-x.vercel.app", allowed: true},
		{origin: "https://evil.example", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Origin", tt.origin)

			rec := srv.do(req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Fatalf("expected origin %q to be allowed, got %q", tt.origin, got)
			}
			if !tt.allowed && got != "" {
				t.Fatalf("expected origin %q to be rejected, got %q", tt.origin, got)
			}
			if tt.allowed && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Fatalf("expected credentials to be allowed")
			}
		})
	}
}
