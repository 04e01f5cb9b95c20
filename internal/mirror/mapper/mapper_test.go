package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection(t *testing.T) {
	raw := json.RawMessage(`{"id":101,"handle":"summer","title":"Summer","updated_at":"2025-06-01T10:00:00Z"}`)

	col, err := Collection(raw, domain.CollectionKindCustom)
	require.NoError(t, err)
	assert.Equal(t, int64(101), col.ID)
	assert.Equal(t, "summer", col.Handle)
	assert.Equal(t, "Summer", col.Title)
	assert.Equal(t, domain.CollectionKindCustom, col.Kind)
	require.NotNil(t, col.UpdatedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), *col.UpdatedAt)
	assert.JSONEq(t, string(raw), string(col.RawData))
}

func TestCollectionMissingID(t *testing.T) {
	_, err := Collection(json.RawMessage(`{"handle":"x"}`), domain.CollectionKindSmart)
	var merr *domain.MappingError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, domain.EntityCollection, merr.Entity)
}

func TestProductWithVariants(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 7,
		"title": "Poster",
		"handle": "poster",
		"product_type": "Print",
		"vendor": "Nordic Art",
		"status": "active",
		"created_at": "2025-01-01T00:00:00Z",
		"updated_at": "2025-02-01T12:30:00+02:00",
		"tags": "art, print",
		"variants": [
			{"id": 71, "sku": "P-A2", "price": "149.00", "inventory_quantity": 10},
			{"sku": "no-id"},
			{"id": 72, "sku": "P-A3", "price": "99.50", "inventory_quantity": 3}
		]
	}`)

	product, variants, errs := Product(raw)
	assert.Equal(t, int64(7), product.ID)
	assert.Equal(t, "Print", product.ProductType)
	assert.Equal(t, "Nordic Art", product.Vendor)
	require.NotNil(t, product.UpdatedAt)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC), *product.UpdatedAt, "zone offset normalized to UTC")
	assert.Nil(t, product.PublishedAt)
	assert.Nil(t, product.RoyaltyPercent, "royalty percent is operator-owned")

	require.Len(t, variants, 2)
	assert.Equal(t, int64(71), variants[0].ID)
	assert.Equal(t, int64(7), variants[0].ProductID)
	assert.True(t, variants[0].Price.Equal(decimal.RequireFromString("149.00")))
	assert.Equal(t, int64(10), variants[0].InventoryQuantity)

	require.Len(t, errs, 1, "the id-less variant is rejected alone")
	var merr *domain.MappingError
	require.ErrorAs(t, errs[0], &merr)
	assert.Equal(t, domain.EntityVariant, merr.Entity)
}

func TestProductMissingFieldsDegrade(t *testing.T) {
	product, variants, errs := Product(json.RawMessage(`{"id":8}`))
	assert.Empty(t, errs)
	assert.Empty(t, variants)
	assert.Equal(t, int64(8), product.ID)
	assert.Equal(t, "", product.Title)
	assert.Equal(t, "", product.Vendor)
	assert.Nil(t, product.CreatedAt)
}

func TestProductNaiveTimestampIsUTC(t *testing.T) {
	product, _, errs := Product(json.RawMessage(`{"id":9,"updated_at":"2025-03-04T05:06:07"}`))
	assert.Empty(t, errs)
	require.NotNil(t, product.UpdatedAt)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), *product.UpdatedAt)
}

func TestCustomer(t *testing.T) {
	raw := json.RawMessage(`{"id":21,"email":"a@b.se","first_name":"Anna","last_name":"Berg","phone":null}`)

	customer, err := Customer(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(21), customer.ID)
	require.NotNil(t, customer.Email)
	assert.Equal(t, "a@b.se", *customer.Email)
	assert.Equal(t, "Anna", customer.FirstName)
	assert.Nil(t, customer.Phone)
}

func TestOrderWithLineItems(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 9001,
		"order_number": 1042,
		"customer": {"id": 21},
		"created_at": "2025-05-10T08:00:00Z",
		"updated_at": "2025-05-10T09:00:00Z",
		"financial_status": "paid",
		"fulfillment_status": "fulfilled",
		"subtotal_price": "248.50",
		"total_shipping_price_set": {"shop_money": {"amount": "49.00", "currency_code": "SEK"}},
		"total_tax": "62.13",
		"total_price": "297.50",
		"currency": "SEK",
		"email": "a@b.se",
		"note": "",
		"line_items": [
			{"id": 1, "product_id": 7, "variant_id": 71, "vendor": "Nordic Art", "title": "Poster", "price": "149.00", "quantity": 1},
			{"id": 2, "title": "Card", "price": "99.50", "quantity": 2}
		]
	}`)

	order, items, errs := Order(raw)
	assert.Empty(t, errs)
	assert.Equal(t, int64(9001), order.ID)
	assert.Equal(t, int64(1042), order.OrderNumber)
	require.NotNil(t, order.CustomerID)
	assert.Equal(t, int64(21), *order.CustomerID)
	assert.True(t, order.TotalShippingPrice.Equal(decimal.RequireFromString("49.00")))
	assert.Equal(t, "paid", order.FinancialStatus)
	require.NotNil(t, order.FulfillmentStatus)
	assert.Equal(t, "a@b.se", order.CustomerEmail)

	require.Len(t, items, 2)
	assert.Equal(t, int64(9001), items[0].OrderID)
	require.NotNil(t, items[0].ProductID)
	assert.Equal(t, int64(7), *items[0].ProductID)
	assert.Nil(t, items[1].ProductID)
	assert.Equal(t, int64(2), items[1].Quantity)
}

func TestOrderGuestCheckout(t *testing.T) {
	order, _, errs := Order(json.RawMessage(`{"id":9002,"total_shipping_price":"0.00"}`))
	assert.Empty(t, errs)
	assert.Nil(t, order.CustomerID)
	assert.Nil(t, order.FulfillmentStatus)
	assert.True(t, order.TotalShippingPrice.IsZero())
}

func TestMoneyRoundsBankers(t *testing.T) {
	order, _, errs := Order(json.RawMessage(`{"id":1,"total_price":"10.005"}`))
	assert.Empty(t, errs)
	assert.Equal(t, "10", order.TotalPrice.StringFixed(0))
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("10.00")), "half-to-even at scale 2")
}

func TestRawDataPreservedVerbatim(t *testing.T) {
	raw := json.RawMessage(`{"id":5,"unknown_field":{"deep":[1,2,3]},"title":"Keep"}`)
	product, _, errs := Product(raw)
	assert.Empty(t, errs)
	assert.Equal(t, string(raw), string(product.RawData))
}

func TestLargeIDsSurvive(t *testing.T) {
	product, _, errs := Product(json.RawMessage(`{"id":9007199254740993}`))
	assert.Empty(t, errs)
	assert.Equal(t, int64(9007199254740993), product.ID, "ids above 2^53 must not pass through float64")
}
