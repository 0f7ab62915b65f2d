package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
	"github.com/fjod/go_cart/shopping-cart/internal/report"
	"github.com/fjod/go_cart/shopping-cart/internal/service"
)

type CashierSectionDTO struct {
	HTML string `json:"additional_cashier_section_html"`
}

// POST /api/v1/cashier/rebook
func (h *Handler) ManualRebook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	var req service.RebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	echo, err := h.svc.ManualRebook(ctx, actor, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, echo)
}

// GET /api/v1/cashier/report?download=csv|pdf&page=&limit=
//
// Without download the page is returned as JSON. With it the rows are rendered
// as a file and, when an archiver is configured, copied to the bucket. A
// download without limit contains every row.
func (h *Handler) CashReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	query := r.URL.Query()
	_, download := query["download"]

	var format report.Format
	if download {
		var err error
		if format, err = report.ParseFormat(query.Get("download")); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_format", err.Error())
			return
		}
	}

	var rows []domain.CashReportRow
	if download && query.Get("limit") == "" {
		all, err := h.fullCashReport(ctx, actor)
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		rows = all
	} else {
		page, err := h.svc.CashReport(ctx, actor, queryInt(r, "page", 1), queryInt(r, "limit", service.DefaultReportLimit))
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		if !download {
			respondJSON(w, http.StatusOK, page)
			return
		}
		rows = page.Rows
	}

	generatedAt := h.now()
	var buf bytes.Buffer
	if err := report.Write(&buf, format, rows, generatedAt); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if h.archiver != nil {
		key := fmt.Sprintf("%s/%s-%d.%s", report.FileName, report.FileName, generatedAt.Unix(), format)
		location, err := h.archiver.Archive(ctx, key, buf.Bytes(), format.ContentType())
		if err != nil {
			h.logger.Warn("failed to archive cash report", zap.Error(err))
		} else {
			h.logger.Info("cash report archived", zap.String("location", location), zap.Int64("cashier_id", actor.UserID))
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write cash report", zap.Error(err))
	}
}

// fullCashReport walks the report in pages of MaxReportLimit rows.
func (h *Handler) fullCashReport(ctx context.Context, actor domain.Actor) ([]domain.CashReportRow, error) {
	var rows []domain.CashReportRow
	for page := 1; ; page++ {
		p, err := h.svc.CashReport(ctx, actor, page, service.MaxReportLimit)
		if err != nil {
			return nil, err
		}
		rows = append(rows, p.Rows...)
		if len(p.Rows) == 0 || len(rows) >= p.Total {
			return rows, nil
		}
	}
}

// GET /api/v1/cashier/section
func (h *Handler) CashierSection(w http.ResponseWriter, r *http.Request) {
	_, cancel, actor, ok := h.requestContext(w, r)
	if !ok {
		return
	}
	defer cancel()

	html, err := h.svc.CashierSection(actor)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, CashierSectionDTO{HTML: html})
}
