package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"

	// DefaultFormat is used for downloads that do not name a format.
	DefaultFormat = FormatPDF

	FileName   = "cash_report"
	timeLayout = "2006-01-02 15:04"
)

var Headers = []string{
	"Identifier",
	"Time created",
	"Time modified",
	"Price",
	"Currency",
	"Last name",
	"First name",
	"Item id",
	"Item name",
	"Payment",
	"Payment status",
	"Gateway",
	"Order id",
	"Modified by",
}

// column widths in mm for A4 landscape with 10mm margins
var pdfWidths = []float64{22, 26, 26, 16, 12, 20, 20, 12, 32, 18, 16, 16, 22, 19}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "":
		return DefaultFormat, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/pdf"
}

func (f Format) FileName() string {
	return FileName + "." + string(f)
}

func values(r domain.CashReportRow) []string {
	return []string{
		r.Identifier,
		r.TimeCreated.Format(timeLayout),
		r.TimeModified.Format(timeLayout),
		r.Price.StringFixed(2),
		r.Currency,
		r.LastName,
		r.FirstName,
		strconv.FormatInt(r.ItemID, 10),
		r.ItemName,
		string(r.Payment),
		r.PaymentStatus.String(),
		r.Gateway,
		r.OrderID,
		r.UserModified,
	}
}

func Write(w io.Writer, format Format, rows []domain.CashReportRow, generatedAt time.Time) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatPDF:
		return WritePDF(w, rows, generatedAt)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func WriteCSV(w io.Writer, rows []domain.CashReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(values(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WritePDF(w io.Writer, rows []domain.CashReportRow, generatedAt time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range Headers {
			pdf.CellFormat(pdfWidths[i], 6, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 7)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(200, 8, "Cash report", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 8, generatedAt.Format(timeLayout), "", 1, "R", false, 0, "")
		header()
	})

	pdf.AddPage()
	for _, r := range rows {
		for i, v := range values(r) {
			align := "L"
			if i == 3 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], 5, fit(pdf, tr(v), pdfWidths[i]-1), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(rows) == 0 {
		pdf.CellFormat(0, 6, "No payments recorded.", "", 1, "L", false, 0, "")
	}

	return pdf.Output(w)
}

// fit shortens s until it fits into width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"..") > width {
		s = s[:len(s)-1]
	}
	return s + ".."
}
