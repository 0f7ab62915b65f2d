package service

import (
	"context"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

const (
	DefaultReportLimit = 50
	MaxReportLimit     = 1000
)

type ReportSource interface {
	CashReport(ctx context.Context, limit, offset int) ([]domain.CashReportRow, error)
	CountCashReport(ctx context.Context) (int, error)
}

type CashReportPage struct {
	Rows  []domain.CashReportRow `json:"rows"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
	Total int                    `json:"total"`
}

// CashReport returns one page of successful payments. Pages start at 1; out of
// range values are clamped.
func (s *CartService) CashReport(ctx context.Context, actor domain.Actor, page, limit int) (CashReportPage, error) {
	if err := actor.Require(domain.CapabilityCashier); err != nil {
		return CashReportPage{}, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultReportLimit
	}
	if limit > MaxReportLimit {
		limit = MaxReportLimit
	}

	total, err := s.reports.CountCashReport(ctx)
	if err != nil {
		return CashReportPage{}, err
	}
	rows, err := s.reports.CashReport(ctx, limit, (page-1)*limit)
	if err != nil {
		return CashReportPage{}, err
	}

	return CashReportPage{Rows: rows, Page: page, Limit: limit, Total: total}, nil
}

// CashierSection returns the operator-configured HTML block for the cashier view.
func (s *CartService) CashierSection(actor domain.Actor) (string, error) {
	if err := actor.Require(domain.CapabilityCashier); err != nil {
		return "", err
	}
	return s.cfg.CashierSectionHTML, nil
}
