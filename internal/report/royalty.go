// Package report produces the monthly royalty and sales reports from the
// mirrored store, as JSON plus a PDF rendition of each.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/smallbiznis/shopmirror/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// RoyaltyLine is one order line with its royalty computed.
type RoyaltyLine struct {
	OrderID         int64           `json:"order_id"`
	OrderNumber     int64           `json:"order_number"`
	OrderDate       string          `json:"order_date"`
	BuyerEmail      string          `json:"buyer_email,omitempty"`
	Vendor          string          `json:"vendor"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	GrossAmount     decimal.Decimal `json:"gross_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
	RoyaltyPercent  decimal.Decimal `json:"royalty_percent"`
	RoyaltyAmount   decimal.Decimal `json:"royalty_amount"`
}

type RoyaltyTotals struct {
	GrossSales    decimal.Decimal `json:"gross_sales"`
	NetSales      decimal.Decimal `json:"net_sales"`
	Deductions    decimal.Decimal `json:"deductions"`
	ShippingExVAT decimal.Decimal `json:"shipping_ex_vat"`
	RoyaltyDue    decimal.Decimal `json:"royalty_due"`
}

type RoyaltyReport struct {
	Year        int                  `json:"year"`
	Month       int                  `json:"month"`
	Vendor      string               `json:"vendor,omitempty"`
	Currency    string               `json:"currency,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	Policy      config.RoyaltyPolicy `json:"policy"`
	Lines       []RoyaltyLine        `json:"lines"`
	Totals      RoyaltyTotals        `json:"totals"`
}

// Generator builds the monthly reports and writes them under the report dir.
type Generator struct {
	store  *Store
	policy config.RoyaltyPolicy
	dir    string
	clock  clock.Clock
	log    *zap.Logger
}

func NewGenerator(db *gorm.DB, policy config.RoyaltyPolicy, dir string, c clock.Clock, log *zap.Logger) *Generator {
	return &Generator{
		store:  NewStore(db),
		policy: policy,
		dir:    dir,
		clock:  c,
		log:    log.Named("report"),
	}
}

// RoyaltyReport computes the royalty report for one month. Prices arrive VAT
// inclusive; the net amount strips VAT, the deduction comes off the net, and
// the royalty percent applies to what remains. Products without an
// operator-set percent use the policy default.
func (g *Generator) RoyaltyReport(ctx context.Context, year, month int) (*RoyaltyReport, error) {
	rows, err := g.store.MonthLineItems(ctx, year, month, g.policy.Vendor)
	if err != nil {
		return nil, err
	}

	vatDivisor := one.Add(decimal.NewFromFloat(g.policy.VATPercent).Div(hundred))
	deductPercent := decimal.NewFromFloat(g.policy.DeductionPercent)
	defaultPercent := decimal.NewFromFloat(g.policy.DefaultPercent)

	report := &RoyaltyReport{
		Year:        year,
		Month:       month,
		Vendor:      g.policy.Vendor,
		GeneratedAt: g.clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		Policy:      g.policy,
		Lines:       []RoyaltyLine{},
	}

	orderShipping := map[int64]decimal.Decimal{}
	for _, row := range rows {
		if report.Currency == "" {
			report.Currency = row.Currency
		}
		orderShipping[row.OrderID] = row.TotalShipping

		percent := defaultPercent
		if row.RoyaltyPercent != nil {
			percent = *row.RoyaltyPercent
		}

		gross := row.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		net := gross.Div(vatDivisor).RoundBank(2)
		deduction := net.Mul(deductPercent).Div(hundred).RoundBank(2)
		royalty := net.Sub(deduction).Mul(percent).Div(hundred).RoundBank(2)

		line := RoyaltyLine{
			OrderID:         row.OrderID,
			OrderNumber:     row.OrderNumber,
			BuyerEmail:      row.CustomerEmail,
			Vendor:          row.Vendor,
			Title:           row.Title,
			Quantity:        row.Quantity,
			GrossAmount:     gross.RoundBank(2),
			NetAmount:       net,
			DeductionAmount: deduction,
			RoyaltyPercent:  percent,
			RoyaltyAmount:   royalty,
		}
		if row.OrderCreatedAt != nil {
			line.OrderDate = row.OrderCreatedAt.Format("2006-01-02")
		}
		report.Lines = append(report.Lines, line)

		report.Totals.GrossSales = report.Totals.GrossSales.Add(line.GrossAmount)
		report.Totals.NetSales = report.Totals.NetSales.Add(net)
		report.Totals.Deductions = report.Totals.Deductions.Add(deduction)
		report.Totals.RoyaltyDue = report.Totals.RoyaltyDue.Add(royalty)
	}

	for _, shipping := range orderShipping {
		report.Totals.ShippingExVAT = report.Totals.ShippingExVAT.
			Add(shipping.Div(vatDivisor).RoundBank(2))
	}
	return report, nil
}

// WriteRoyaltyReport computes the month and writes royalty_report_{year}-{mm}
// as JSON and PDF. It returns both paths.
func (g *Generator) WriteRoyaltyReport(ctx context.Context, year, month int) (string, string, error) {
	report, err := g.RoyaltyReport(ctx, year, month)
	if err != nil {
		return "", "", err
	}

	base := fmt.Sprintf("royalty_report_%04d-%02d", year, month)
	jsonPath, err := g.writeJSON(base, report)
	if err != nil {
		return "", "", err
	}

	doc, err := royaltyPDF(report)
	if err != nil {
		return "", "", fmt.Errorf("royalty pdf: %w", err)
	}
	pdfPath := filepath.Join(g.dir, base+".pdf")
	if err := os.WriteFile(pdfPath, doc, 0o644); err != nil {
		return "", "", err
	}

	g.log.Info("royalty report written",
		zap.Int("year", year), zap.Int("month", month),
		zap.Int("lines", len(report.Lines)),
		zap.String("royalty_due", report.Totals.RoyaltyDue.StringFixed(2)))
	return jsonPath, pdfPath, nil
}

func (g *Generator) writeJSON(base string, v any) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", err
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.dir, base+".json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
