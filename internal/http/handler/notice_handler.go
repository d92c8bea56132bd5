package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoticeHandler serves printable payment documents and CSV exports
type NoticeHandler struct {
	noticeService *service.NoticeService
	auditService  *service.AuditLogService
	logger        *zap.Logger
}

func NewNoticeHandler(noticeService *service.NoticeService, auditService *service.AuditLogService, logger *zap.Logger) *NoticeHandler {
	return &NoticeHandler{
		noticeService: noticeService,
		auditService:  auditService,
		logger:        logger,
	}
}

// documents are rendered fully before the first byte is written, so a failed
// render still gets a proper error status
func (h *NoticeHandler) writeRendered(w http.ResponseWriter, contentType, filename string, render func(io.Writer) error, fallback string) bool {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondServiceError(w, h.logger, err, fallback)
		return false
	}

	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return true
}

func (h *NoticeHandler) logExport(r *http.Request, entityType string, entityID *uuid.UUID, format string) {
	if h.auditService == nil {
		return
	}
	if err := h.auditService.LogExport(r.Context(), r, entityType, entityID, format); err != nil {
		h.logger.Warn("failed to audit export", zap.String("entity_type", entityType), zap.Error(err))
	}
}

// PaymentNotice godoc
// @Summary Payment notice
// @Description Printable HTML notice of a pending payment
// @Tags Documents
// @Produce html
// @Param id path string true "Payment ID" format(uuid)
// @Success 200 {string} string "HTML document"
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment is not pending"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/notice [get]
func (h *NoticeHandler) PaymentNotice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}
	h.writeRendered(w, "text/html; charset=utf-8", "", func(out io.Writer) error {
		return h.noticeService.RenderPaymentNotice(r.Context(), id, out)
	}, "Failed to render payment notice")
}

// Receipt godoc
// @Summary Payment receipt
// @Description Printable HTML receipt of a collected payment
// @Tags Documents
// @Produce html
// @Param id path string true "Payment ID" format(uuid)
// @Success 200 {string} string "HTML document"
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment has not been collected"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/receipt [get]
func (h *NoticeHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}
	h.writeRendered(w, "text/html; charset=utf-8", "", func(out io.Writer) error {
		return h.noticeService.RenderReceipt(r.Context(), id, out)
	}, "Failed to render receipt")
}

// Archive godoc
// @Summary Archive payment document
// @Description Renders the current notice or receipt of a payment and writes it to document storage
// @Tags Documents
// @Produce json
// @Param id path string true "Payment ID" format(uuid)
// @Success 201 {object} domain.ArchivedDocumentDTO
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Document storage not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/archive [post]
func (h *NoticeHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}

	doc, err := h.noticeService.ArchiveNotice(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to archive document")
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// Archived godoc
// @Summary Get archived document
// @Tags Documents
// @Produce html
// @Param id path string true "Payment ID" format(uuid)
// @Param kind path string true "Document kind" Enums(notice, receipt)
// @Success 200 {string} string "HTML document"
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 503 {object} domain.APIError "Document storage not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/documents/{kind} [get]
func (h *NoticeHandler) Archived(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}

	rc, err := h.noticeService.OpenArchived(r.Context(), id, chi.URLParam(r, "kind"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to read archived document")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream archived document", zap.String("payment_id", id.String()), zap.Error(err))
	}
}

// ExportSchedule godoc
// @Summary Export development schedule
// @Description Payment schedule of a development as CSV
// @Tags Documents
// @Produce text/csv
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {string} string "CSV file"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/schedule/export [get]
func (h *NoticeHandler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	filename := fmt.Sprintf("schedule-%s.csv", id)
	if h.writeRendered(w, "text/csv; charset=utf-8", filename, func(out io.Writer) error {
		return h.noticeService.ExportScheduleCSV(r.Context(), id, out)
	}, "Failed to export schedule") {
		h.logExport(r, "development", &id, "csv")
	}
}

// ExportInvestors godoc
// @Summary Export investor overview
// @Description Every investor loan with its projection as CSV
// @Tags Documents
// @Produce text/csv
// @Success 200 {string} string "CSV file"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /investors/export [get]
func (h *NoticeHandler) ExportInvestors(w http.ResponseWriter, r *http.Request) {
	if h.writeRendered(w, "text/csv; charset=utf-8", "investors.csv", func(out io.Writer) error {
		return h.noticeService.ExportInvestorCSV(r.Context(), out)
	}, "Failed to export investors") {
		h.logExport(r, "investor_overview", nil, "csv")
	}
}
