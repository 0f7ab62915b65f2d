package history

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

const cashReportFrom = `
	FROM shopping_cart_history sch
	LEFT JOIN users u ON u.id = sch.user_id
	LEFT JOIN users um ON um.id = sch.user_modified
	LEFT JOIN payments p ON p.identifier = sch.identifier
	WHERE sch.payment_status = $1`

// CashReport returns one page of successful payments, newest first.
func (r *Repository) CashReport(ctx context.Context, limit, offset int) ([]domain.CashReportRow, error) {
	query := `SELECT sch.identifier, sch.time_created, sch.time_modified, sch.price, sch.currency,
		COALESCE(u.last_name, ''), COALESCE(u.first_name, ''), sch.item_id, sch.item_name,
		sch.payment, sch.payment_status, COALESCE(p.gateway, ''), COALESCE(p.order_id, ''),
		COALESCE(TRIM(um.first_name || ' ' || um.last_name), '')` + cashReportFrom + `
		ORDER BY sch.time_created DESC, sch.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, int(domain.PaymentSuccess), limit, offset)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("query cash report: %w", err))
	}
	defer rows.Close()

	var report []domain.CashReportRow
	for rows.Next() {
		var row domain.CashReportRow
		var payment string
		var status int
		if err := rows.Scan(
			&row.Identifier,
			&row.TimeCreated,
			&row.TimeModified,
			&row.Price,
			&row.Currency,
			&row.LastName,
			&row.FirstName,
			&row.ItemID,
			&row.ItemName,
			&payment,
			&status,
			&row.Gateway,
			&row.OrderID,
			&row.UserModified,
		); err != nil {
			return nil, Error.Wrap(fmt.Errorf("scan cash report row: %w", err))
		}
		row.Payment = domain.PaymentMethod(payment)
		row.PaymentStatus = domain.PaymentStatus(status)
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(fmt.Errorf("row iteration error: %w", err))
	}
	return report, nil
}

func (r *Repository) CountCashReport(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COUNT(*)` + cashReportFrom
	if err := r.db.QueryRowContext(ctx, query, int(domain.PaymentSuccess)).Scan(&total); err != nil {
		return 0, Error.Wrap(fmt.Errorf("count cash report: %w", err))
	}
	return total, nil
}
