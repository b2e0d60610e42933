package http

import (
	"net/http"

	"uniqiita/internal/credentials"
)

// CredentialStatus is the read-only view of the identity provider bootstrap.
type CredentialStatus interface {
	State() credentials.State
}

type healthResponse struct {
	Status      string                  `json:"status"`
	Environment string                  `json:"environment"`
	Auth        healthCredentialSection `json:"auth"`
}

type healthCredentialSection struct {
	Ready  bool                    `json:"ready"`
	Source *credentials.SourceInfo `json:"source,omitempty"`
	Reason string                  `json:"reason,omitempty"`
}

func livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte("ok"))
	}
}

func newHealthHandler(environment string, creds CredentialStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok", Environment: environment}
		if creds != nil {
			state := creds.State()
			resp.Auth = healthCredentialSection{Ready: state.Ready, Source: state.Source, Reason: state.Reason}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func articlesPingHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "where": "/v1/articles/ping"})
}
