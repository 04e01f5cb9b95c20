package report

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func monthTitle(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

func newDocument(o orientation.Type) core.Maroto {
	cfg := config.NewBuilder().
		WithOrientation(o).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func addTitle(m core.Maroto, title, subtitle string) {
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	if subtitle != "" {
		m.AddRow(8,
			text.NewCol(12, subtitle, props.Text{Size: 10, Align: align.Left}),
		)
	}
}

// royaltyPDF renders the royalty report in landscape so the full royalty
// breakdown fits on one row.
func royaltyPDF(r *RoyaltyReport) ([]byte, error) {
	m := newDocument(orientation.Horizontal)

	subtitle := monthTitle(r.Year, r.Month)
	if r.Vendor != "" {
		subtitle += " - " + r.Vendor
	}
	title := "Royalty Report"
	if r.Policy.CompanyName != "" {
		title = r.Policy.CompanyName + " - " + title
	}
	addTitle(m, title, subtitle)

	m.AddRow(8,
		text.NewCol(2, "Order", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Title", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Gross", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Net ex VAT", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Pct", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Royalty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range r.Lines {
		m.AddRow(7,
			text.NewCol(2, fmt.Sprintf("#%d", line.OrderNumber), props.Text{Size: 8}),
			text.NewCol(1, line.OrderDate, props.Text{Size: 8}),
			text.NewCol(3, line.Title, props.Text{Size: 8}),
			text.NewCol(1, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.GrossAmount.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.NetAmount.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.RoyaltyPercent.StringFixed(0)+"%", props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.RoyaltyAmount.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
		)
	}

	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Net sales", props.Text{Size: 9}),
		text.NewCol(2, r.Totals.NetSales.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Deductions", props.Text{Size: 9}),
		text.NewCol(2, r.Totals.Deductions.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Shipping ex VAT", props.Text{Size: 9}),
		text.NewCol(2, r.Totals.ShippingExVAT.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Royalty due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, r.Totals.RoyaltyDue.StringFixed(2), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func salesPDF(r *SalesReport) ([]byte, error) {
	m := newDocument(orientation.Vertical)

	subtitle := monthTitle(r.Year, r.Month)
	if r.Vendor != "" {
		subtitle += " - " + r.Vendor
	}
	addTitle(m, "Sales Report", subtitle)

	m.AddRow(8,
		text.NewCol(2, "Order", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Title", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(1, "Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range r.Lines {
		m.AddRow(7,
			text.NewCol(2, fmt.Sprintf("#%d", line.OrderNumber), props.Text{Size: 8}),
			text.NewCol(2, line.OrderDate, props.Text{Size: 8}),
			text.NewCol(4, line.Title, props.Text{Size: 8}),
			text.NewCol(1, fmt.Sprintf("%d", line.Quantity), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(1, line.Price.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, line.Amount.StringFixed(2), props.Text{Size: 8, Align: align.Right}),
		)
	}

	m.AddRow(9,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, r.Totals.Amount.StringFixed(2), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
