package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_PushSendsAuthAndBody(t *testing.T) {
	var gotAuth string
	var gotBody PushParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"etag":"W/\"abc\""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin-key")
	etag, err := c.Push(context.Background(), PushParams{
		Key:      "chip-selection",
		Document: json.RawMessage(`{"rules":[]}`),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if etag != `W/"abc"` {
		t.Errorf("etag = %q", etag)
	}
	if gotAuth != "Bearer admin-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody.Key != "chip-selection" {
		t.Errorf("pushed key = %q", gotBody.Key)
	}
}

func TestClient_ListSortsByKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"etag":"W/\"1\"","ruleSets":{
			"zeta":{"key":"zeta","document":{"rules":[]}},
			"alpha":{"key":"alpha","document":{"rules":[]}}
		}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ruleSets, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ruleSets) != 2 || ruleSets[0].Key != "alpha" || ruleSets[1].Key != "zeta" {
		t.Errorf("list = %+v", ruleSets)
	}
}

func TestClient_GetUnknownKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"etag":"W/\"1\"","ruleSets":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Get(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestClient_StructuredAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request","message":"unknown operator: between","code":"SCHEMA_VIOLATION","path":"rules[0].if.op"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Validate(context.Background(), json.RawMessage(`{"rules":[]}`))
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "SCHEMA_VIOLATION" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Path != "rules[0].if.op" {
		t.Errorf("path = %q", apiErr.Path)
	}
}

func TestClient_Evaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rulesets/chip-selection/evaluate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matched":true,"result":"chip_rtd_cn","etag":"W/\"1\"","evaluatedAt":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	result, err := c.Evaluate(context.Background(), "chip-selection", map[string]string{"region": "cn"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Matched || string(result.Result) != `"chip_rtd_cn"` {
		t.Errorf("result = %+v", result)
	}
}
