package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TimurManjosov/godecide/internal/engine"
	"github.com/TimurManjosov/godecide/internal/rules"
	"github.com/TimurManjosov/godecide/internal/snapshot"
	"github.com/TimurManjosov/godecide/internal/telemetry"
)

// evaluateRequest represents the request body for POST /v1/rulesets/{key}/evaluate
type evaluateRequest struct {
	Params rules.Params `json:"params"`
}

// evaluateResponse represents the response for /v1/rulesets/{key}/evaluate
type evaluateResponse struct {
	Matched     bool            `json:"matched"`
	Result      json.RawMessage `json:"result,omitempty"`
	ETag        string          `json:"etag"`
	EvaluatedAt string          `json:"evaluatedAt"`
}

// handleEvaluate handles POST /v1/rulesets/{key}/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if req.Params == nil {
		req.Params = rules.Params{}
	}

	s.evaluateRuleSet(w, r, req.Params)
}

// handleEvaluateGET handles GET /v1/rulesets/{key}/evaluate; every query
// parameter becomes one entry of the parameter map.
func (s *Server) handleEvaluateGET(w http.ResponseWriter, r *http.Request) {
	params := make(rules.Params)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	s.evaluateRuleSet(w, r, params)
}

func (s *Server) evaluateRuleSet(w http.ResponseWriter, r *http.Request, params rules.Params) {
	key := chi.URLParam(r, "key")

	snap := snapshot.Load()
	view, ok := snap.RuleSets[key]
	if !ok {
		NotFoundError(w, r, "rule set not found: "+key)
		return
	}

	// Compiled once at snapshot build; no per-request parsing.
	rs := view.Compiled
	var (
		result  rules.Result
		matched bool
		outcome string
	)
	if i, hit := engine.FirstMatch(rs, params); hit {
		result, matched, outcome = rs.Rules[i].Then, true, "match"
	} else if rs.Fallback != nil {
		result, matched, outcome = *rs.Fallback, true, "fallback"
	} else {
		outcome = "none"
	}
	telemetry.Evaluations.WithLabelValues(outcome).Inc()

	resp := evaluateResponse{
		Matched:     matched,
		ETag:        snap.ETag,
		EvaluatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if matched {
		resp.Result = result.Raw()
	}

	writeJSON(w, http.StatusOK, resp)
}
