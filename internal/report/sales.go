package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SalesLine is one sold line item, priced as charged (VAT inclusive).
type SalesLine struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	OrderDate   string          `json:"order_date"`
	Vendor      string          `json:"vendor"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
}

type SalesTotals struct {
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

type SalesReport struct {
	Year        int         `json:"year"`
	Month       int         `json:"month"`
	Vendor      string      `json:"vendor,omitempty"`
	Currency    string      `json:"currency,omitempty"`
	GeneratedAt string      `json:"generated_at"`
	Lines       []SalesLine `json:"lines"`
	Totals      SalesTotals `json:"totals"`
}

// SalesReport lists what sold in one month, without any royalty math.
func (g *Generator) SalesReport(ctx context.Context, year, month int) (*SalesReport, error) {
	rows, err := g.store.MonthLineItems(ctx, year, month, g.policy.Vendor)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		Year:        year,
		Month:       month,
		Vendor:      g.policy.Vendor,
		GeneratedAt: g.clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Lines:       []SalesLine{},
	}
	for _, row := range rows {
		if report.Currency == "" {
			report.Currency = row.Currency
		}
		line := SalesLine{
			OrderID:     row.OrderID,
			OrderNumber: row.OrderNumber,
			Vendor:      row.Vendor,
			Title:       row.Title,
			Price:       row.Price,
			Quantity:    row.Quantity,
			Amount:      row.Price.Mul(decimal.NewFromInt(int64(row.Quantity))).RoundBank(2),
		}
		if row.OrderCreatedAt != nil {
			line.OrderDate = row.OrderCreatedAt.Format("2006-01-02")
		}
		report.Lines = append(report.Lines, line)
		report.Totals.Quantity += row.Quantity
		report.Totals.Amount = report.Totals.Amount.Add(line.Amount)
	}
	return report, nil
}

// WriteSalesReport writes sales_report_{year}-{mm} as JSON and PDF.
func (g *Generator) WriteSalesReport(ctx context.Context, year, month int) (string, string, error) {
	report, err := g.SalesReport(ctx, year, month)
	if err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("sales_report_%04d-%02d", year, month)
	jsonPath, err := g.writeJSON(base, report)
	if err != nil {
		return "", "", err
	}

	doc, err := salesPDF(report)
	if err != nil {
		return "", "", fmt.Errorf("sales pdf: %w", err)
	}
	pdfPath := filepath.Join(g.dir, base+".pdf")
	if err := os.WriteFile(pdfPath, doc, 0o644); err != nil {
		return "", "", err
	}

	g.log.Info("sales report written",
		zap.Int("year", year), zap.Int("month", month),
		zap.Int("lines", len(report.Lines)),
		zap.String("amount", report.Totals.Amount.StringFixed(2)))
	return jsonPath, pdfPath, nil
}
