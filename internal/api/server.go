package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/godecide/internal/audit"
	"github.com/TimurManjosov/godecide/internal/rules"
	"github.com/TimurManjosov/godecide/internal/snapshot"
	"github.com/TimurManjosov/godecide/internal/store"
	"github.com/TimurManjosov/godecide/internal/telemetry"
)

type Server struct {
	store       store.Store
	env         string
	adminAPIKey string
	audit       *audit.Service
}

func NewServer(st store.Store, env, adminKey string) *Server {
	return &Server{
		store:       st,
		env:         env,
		adminAPIKey: adminKey,
		audit:       audit.NewService(audit.NewLogSink(), 256),
	}
}

// SetAudit swaps the audit service, e.g. for a durable sink.
func (s *Server) SetAudit(svc *audit.Service) {
	if s.audit != nil {
		_ = s.audit.Close()
	}
	s.audit = svc
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public: snapshot (ETag)
	r.Get("/v1/rulesets/snapshot", s.handleSnapshot)

	// public: validate a document without storing it
	r.Post("/v1/rulesets/validate", s.handleValidate)

	// public: evaluate one rule set
	r.Post("/v1/rulesets/{key}/evaluate", s.handleEvaluate)
	r.Get("/v1/rulesets/{key}/evaluate", s.handleEvaluateGET)

	// admin (protected): replace / delete rule sets
	r.Post("/v1/rulesets", s.authAdmin(s.handleUpsert))
	r.Delete("/v1/rulesets/{key}", s.authAdmin(s.handleDelete))

	return r
}

// ---- handlers ----

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := snapshot.Load()
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == snap.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", snap.ETag)
	writeJSON(w, http.StatusOK, snap)
}

type upsertRequest struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Env         *string         `json:"env,omitempty"` // defaults to s.env
	Document    json.RawMessage `json:"document"`
}

type upsertResponse struct {
	OK   bool   `json:"ok"`
	ETag string `json:"etag"`
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}

	// default env
	env := s.env
	if req.Env != nil && strings.TrimSpace(*req.Env) != "" {
		env = strings.TrimSpace(*req.Env)
	}

	if strings.TrimSpace(req.Key) == "" {
		BadRequestError(w, r, ErrCodeMissingField, "key is required")
		return
	}
	if len(req.Document) == 0 {
		BadRequestError(w, r, ErrCodeMissingField, "document is required")
		return
	}

	// documents must parse and validate before they are stored; the snapshot
	// build assumes stored documents are clean
	rs, err := rules.ParseRuleSet(req.Document)
	if err != nil {
		DocumentError(w, r, err)
		return
	}
	if err := rules.Validate(rs); err != nil {
		DocumentError(w, r, err)
		return
	}

	changeType := snapshot.ChangeCreated
	if _, err := s.store.GetByKey(r.Context(), req.Key, env); err == nil {
		changeType = snapshot.ChangeUpdated
	} else if !errors.Is(err, store.ErrNotFound) {
		InternalError(w, r, "store lookup failed")
		return
	}

	if _, err := s.store.Upsert(r.Context(), store.UpsertParams{
		Key:         req.Key,
		Description: req.Description,
		Env:         env,
		Document:    req.Document,
	}); err != nil {
		s.auditMutation(r, auditAction(changeType), req.Key, env, audit.StatusFailure, "store upsert failed")
		InternalError(w, r, "store upsert failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context(), env, snapshot.Change{Type: changeType, Key: req.Key, Env: env}); err != nil {
		InternalError(w, r, "snapshot rebuild failed")
		return
	}

	s.auditMutation(r, auditAction(changeType), req.Key, env, audit.StatusSuccess, "")
	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: snapshot.Load().ETag})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := s.store.Delete(r.Context(), key, s.env); err != nil {
		s.auditMutation(r, audit.ActionDeleted, key, s.env, audit.StatusFailure, "store delete failed")
		InternalError(w, r, "store delete failed")
		return
	}

	if err := s.RebuildSnapshot(r.Context(), s.env, snapshot.Change{Type: snapshot.ChangeDeleted, Key: key, Env: s.env}); err != nil {
		InternalError(w, r, "snapshot rebuild failed")
		return
	}

	s.auditMutation(r, audit.ActionDeleted, key, s.env, audit.StatusSuccess, "")
	writeJSON(w, http.StatusOK, upsertResponse{OK: true, ETag: snapshot.Load().ETag})
}

type validateRequest struct {
	Document json.RawMessage `json:"document"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return
	}
	if len(req.Document) == 0 {
		BadRequestError(w, r, ErrCodeMissingField, "document is required")
		return
	}

	rs, err := rules.ParseRuleSet(req.Document)
	if err != nil {
		DocumentError(w, r, err)
		return
	}
	if err := rules.Validate(rs); err != nil {
		DocumentError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}

// RebuildSnapshot loads rule sets for env and swaps the atomic snapshot.
func (s *Server) RebuildSnapshot(ctx context.Context, env string, change snapshot.Change) error {
	records, err := s.store.GetAll(ctx, env)
	if err != nil {
		return err
	}
	snap, err := snapshot.Build(records)
	if err != nil {
		return err
	}
	snapshot.Update(snap, change)
	telemetry.SnapshotRuleSets.Set(float64(len(snap.RuleSets)))
	return nil
}

// ---- middleware & helpers ----

func (s *Server) auditMutation(r *http.Request, action, key, env, status, errMsg string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Event{
		RequestID:    middleware.GetReqID(r.Context()),
		Action:       action,
		ResourceType: audit.ResourceTypeRuleSet,
		ResourceID:   key,
		Environment:  env,
		Status:       status,
		ErrorMessage: errMsg,
	})
}

func auditAction(changeType snapshot.ChangeType) string {
	if changeType == snapshot.ChangeCreated {
		return audit.ActionCreated
	}
	return audit.ActionUpdated
}

func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		// constant-time compare
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminAPIKey)) != 1 {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
