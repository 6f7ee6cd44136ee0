package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TimurManjosov/godecide/internal/store"
)

const chipDoc = `{
	"rules": [
		{
			"if": {
				"and": [
					{"field": "device_type", "op": "prefix", "value": "RTD"},
					{"field": "region", "op": "equals", "value": "cn"}
				]
			},
			"then": "chip_rtd_cn"
		}
	],
	"fallback": "default_chip"
}`

func newTestServer(env, adminKey string) (*Server, http.Handler) {
	s := NewServer(store.NewMemoryStore(), env, adminKey)
	return s, s.Router()
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, body)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")

	rr := doRequest(t, handler, "GET", "/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rr.Body.String())
	}
}

func TestUpsert_RequiresAuth(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")

	body := `{"key":"chip","document":` + chipDoc + `}`

	rr := doRequest(t, handler, "POST", "/v1/rulesets", body, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	rr = doRequest(t, handler, "POST", "/v1/rulesets", body, map[string]string{
		"Authorization": "Bearer wrong-key",
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("wrong token: status = %d, want 403", rr.Code)
	}
}

func TestUpsert_Success(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")
	auth := map[string]string{"Authorization": "Bearer admin-key"}

	rr := doRequest(t, handler, "POST", "/v1/rulesets",
		`{"key":"chip-selection","description":"Chip rules","document":`+chipDoc+`}`, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp upsertResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.ETag == "" {
		t.Errorf("response = %+v, want ok with etag", resp)
	}

	// Snapshot now serves the new rule set.
	snapRR := doRequest(t, handler, "GET", "/v1/rulesets/snapshot", "", nil)
	if snapRR.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", snapRR.Code)
	}
	var snap struct {
		ETag     string                     `json:"etag"`
		RuleSets map[string]json.RawMessage `json:"ruleSets"`
	}
	if err := json.Unmarshal(snapRR.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if _, ok := snap.RuleSets["chip-selection"]; !ok {
		t.Error("snapshot missing chip-selection")
	}
	if snap.ETag != resp.ETag {
		t.Errorf("snapshot etag %s != upsert etag %s", snap.ETag, resp.ETag)
	}
}

func TestUpsert_BadDocuments(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")
	auth := map[string]string{"Authorization": "Bearer admin-key"}

	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
		wantPath string
	}{
		{
			name:     "missing key",
			body:     `{"document":{"rules":[]}}`,
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "missing document",
			body:     `{"key":"x"}`,
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "body not json",
			body:     `{`,
			wantCode: ErrCodeInvalidJSON,
		},
		{
			name:     "schema violation",
			body:     `{"key":"x","document":{"rules":[{"then":"r"}]}}`,
			wantCode: ErrCodeSchemaViolation,
			wantPath: "rules[0].if",
		},
		{
			name:     "unknown operator",
			body:     `{"key":"x","document":{"rules":[{"if":{"field":"a","op":"between","value":"1"},"then":"r"}]}}`,
			wantCode: ErrCodeSchemaViolation,
			wantPath: "rules[0].if.op",
		},
		{
			name:     "invalid regex",
			body:     `{"key":"x","document":{"rules":[{"if":{"field":"a","op":"regex","value":"("},"then":"r"}]}}`,
			wantCode: ErrCodeValidation,
			wantPath: "rules[0].if.value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, handler, "POST", "/v1/rulesets", tt.body, auth)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rr.Code, rr.Body.String())
			}
			errResp := decodeError(t, rr.Body.Bytes())
			if errResp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", errResp.Code, tt.wantCode)
			}
			if tt.wantPath != "" && errResp.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", errResp.Path, tt.wantPath)
			}
		})
	}
}

func TestSnapshot_ETagNotModified(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")
	auth := map[string]string{"Authorization": "Bearer admin-key"}

	doRequest(t, handler, "POST", "/v1/rulesets",
		`{"key":"etag-test","document":`+chipDoc+`}`, auth)

	first := doRequest(t, handler, "GET", "/v1/rulesets/snapshot", "", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	second := doRequest(t, handler, "GET", "/v1/rulesets/snapshot", "", map[string]string{
		"If-None-Match": etag,
	})
	if second.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Code)
	}

	stale := doRequest(t, handler, "GET", "/v1/rulesets/snapshot", "", map[string]string{
		"If-None-Match": `W/"stale"`,
	})
	if stale.Code != http.StatusOK {
		t.Errorf("stale etag status = %d, want 200", stale.Code)
	}
}

func TestDelete(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")
	auth := map[string]string{"Authorization": "Bearer admin-key"}

	doRequest(t, handler, "POST", "/v1/rulesets",
		`{"key":"doomed","document":`+chipDoc+`}`, auth)

	rr := doRequest(t, handler, "DELETE", "/v1/rulesets/doomed", "", auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	snapRR := doRequest(t, handler, "GET", "/v1/rulesets/snapshot", "", nil)
	var snap struct {
		RuleSets map[string]json.RawMessage `json:"ruleSets"`
	}
	if err := json.Unmarshal(snapRR.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if _, ok := snap.RuleSets["doomed"]; ok {
		t.Error("deleted rule set still in snapshot")
	}

	// Deleting again is idempotent.
	rr = doRequest(t, handler, "DELETE", "/v1/rulesets/doomed", "", auth)
	if rr.Code != http.StatusOK {
		t.Errorf("second delete status = %d, want 200", rr.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	_, handler := newTestServer("test", "admin-key")

	rr := doRequest(t, handler, "POST", "/v1/rulesets/validate",
		`{"document":`+chipDoc+`}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp validateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Valid {
		t.Error("expected valid=true")
	}

	rr = doRequest(t, handler, "POST", "/v1/rulesets/validate",
		`{"document":{"rules":[{"if":{"field":"","op":"equals","value":"x"},"then":"r"}]}}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	errResp := decodeError(t, rr.Body.Bytes())
	if errResp.Code != ErrCodeValidation {
		t.Errorf("code = %s, want %s", errResp.Code, ErrCodeValidation)
	}
	if errResp.Path != "rules[0].if.field" {
		t.Errorf("path = %q, want rules[0].if.field", errResp.Path)
	}
}
