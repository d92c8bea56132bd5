package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxAuditedBody caps how much of a request body is copied into the audit log
const maxAuditedBody = 64 << 10

// entityTypes maps route segments to the entity type recorded in the audit log
var entityTypes = map[string]string{
	"clients":      "client",
	"developments": "development",
	"payments":     "payment",
	"orders":       "order",
	"leads":        "lead",
	"investors":    "investor_loan",
	"notices":      "notice",
}

// actionSegments maps trailing route segments of command endpoints to actions
var actionSegments = map[string]domain.AuditAction{
	"collect": domain.AuditActionCollect,
	"reverse": domain.AuditActionReverse,
	"convert": domain.AuditActionConvert,
	"import":  domain.AuditActionImport,
	"archive": domain.AuditActionExport,
}

var sensitiveFields = []string{"password", "secret", "token", "apiKey"}

// AuditLogger is the audit sink of the middleware
type AuditLogger interface {
	Log(ctx context.Context, r *http.Request, entry service.LogEntry) error
}

// AuditMiddleware records every successful modifying request in the audit log
type AuditMiddleware struct {
	audit  AuditLogger
	logger *zap.Logger
}

func NewAuditMiddleware(audit AuditLogger, logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{audit: audit, logger: logger}
}

func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}

		var body []byte
		if r.Body != nil && r.Method != http.MethodDelete {
			body, _ = io.ReadAll(io.LimitReader(r.Body, maxAuditedBody))
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < 200 || rw.statusCode >= 300 {
			return
		}
		// the entry outlives the request context
		go m.record(context.WithoutCancel(r.Context()), r, body)
	})
}

func (m *AuditMiddleware) record(ctx context.Context, r *http.Request, body []byte) {
	pattern := r.URL.Path
	var entityID *uuid.UUID
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
		if id, err := uuid.Parse(rctx.URLParam("id")); err == nil {
			entityID = &id
		}
	}

	entityType, action := classify(r.Method, pattern)
	entry := service.LogEntry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		NewValues:  redact(body),
	}
	if err := m.audit.Log(ctx, r, entry); err != nil {
		m.logger.Warn("failed to create audit log entry",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err))
	}
}

// classify derives the entity type and action from a route pattern such as
// /api/v1/payments/{id}/collect
func classify(method, pattern string) (string, domain.AuditAction) {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")

	entityType := "unknown"
	for _, part := range parts {
		if t, ok := entityTypes[part]; ok {
			entityType = t
		}
	}

	if last := parts[len(parts)-1]; actionSegments[last] != "" {
		return entityType, actionSegments[last]
	}

	switch method {
	case http.MethodPost:
		return entityType, domain.AuditActionCreate
	case http.MethodDelete:
		return entityType, domain.AuditActionDelete
	default:
		return entityType, domain.AuditActionUpdate
	}
}

func redact(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	for _, field := range sensitiveFields {
		delete(parsed, field)
	}
	return parsed
}
