package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// lineRow is one order line joined with its order and, when the product still
// exists, the operator-maintained royalty percent.
type lineRow struct {
	OrderID         int64
	OrderNumber     int64
	OrderCreatedAt  *time.Time
	FinancialStatus string
	Currency        string
	CustomerEmail   string
	TotalShipping   decimal.Decimal
	Vendor          string
	Title           string
	Price           decimal.Decimal
	Quantity        int
	RoyaltyPercent  *decimal.Decimal
}

// Store reads reporting rows out of the mirrored tables.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// MonthLineItems returns every line item of orders created inside the given
// month, oldest order first. An empty vendor means no vendor filter.
func (s *Store) MonthLineItems(ctx context.Context, year, month int, vendor string) ([]lineRow, error) {
	from, to, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Table("line_items").
		Select(`line_items.order_id,
			orders.order_number,
			orders.created_at AS order_created_at,
			orders.financial_status,
			orders.currency,
			orders.customer_email,
			orders.total_shipping_price AS total_shipping,
			line_items.vendor,
			line_items.title,
			line_items.price,
			line_items.quantity,
			products.royalty_percent`).
		Joins("JOIN orders ON orders.id = line_items.order_id").
		Joins("LEFT JOIN products ON products.id = line_items.product_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", from, to)
	if vendor != "" {
		q = q.Where("line_items.vendor = ?", vendor)
	}

	var rows []lineRow
	if err := q.Order("orders.created_at, line_items.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("month line items: %w", err)
	}
	return rows, nil
}

// monthRange is a half-open UTC interval covering the month.
func monthRange(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("month out of range: %d", month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}
