// Package mapper normalizes raw API payloads into store rows. Every mapper is
// total over its payload: missing or malformed fields degrade to typed zeros
// or NULL, and only an absent or malformed id is an error. The untouched
// source payload always travels along in RawData.
package mapper

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shopmirror/internal/mirror/domain"
)

// Collection maps one custom or smart collection payload.
func Collection(raw json.RawMessage, kind domain.CollectionKind) (domain.Collection, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.Collection{}, &domain.MappingError{Entity: domain.EntityCollection, Detail: "payload is not a JSON object"}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.Collection{}, &domain.MappingError{Entity: domain.EntityCollection, Detail: "missing or malformed id"}
	}
	return domain.Collection{
		ID:        id,
		Handle:    objString(m, "handle"),
		Title:     objString(m, "title"),
		Kind:      kind,
		UpdatedAt: objTime(m, "updated_at"),
		RawData:   rawCopy(raw),
	}, nil
}

// Product maps one product payload together with its embedded variants.
// A variant with a bad id is dropped with its own MappingError; the product
// itself still maps.
func Product(raw json.RawMessage) (domain.Product, []domain.Variant, []error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.Product{}, nil, []error{&domain.MappingError{Entity: domain.EntityProduct, Detail: "payload is not a JSON object"}}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.Product{}, nil, []error{&domain.MappingError{Entity: domain.EntityProduct, Detail: "missing or malformed id"}}
	}

	product := domain.Product{
		ID:          id,
		Title:       objString(m, "title"),
		Handle:      objString(m, "handle"),
		ProductType: objString(m, "product_type"),
		Vendor:      objString(m, "vendor"),
		Status:      objString(m, "status"),
		CreatedAt:   objTime(m, "created_at"),
		UpdatedAt:   objTime(m, "updated_at"),
		PublishedAt: objTime(m, "published_at"),
		Tags:        objString(m, "tags"),
		RawData:     rawCopy(raw),
	}

	var children struct {
		Variants []json.RawMessage `json:"variants"`
	}
	_ = json.Unmarshal(raw, &children)

	var variants []domain.Variant
	var errs []error
	for _, vraw := range children.Variants {
		v, err := variant(vraw, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		variants = append(variants, v)
	}
	return product, variants, errs
}

func variant(raw json.RawMessage, productID int64) (domain.Variant, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.Variant{}, &domain.MappingError{Entity: domain.EntityVariant, Detail: "payload is not a JSON object"}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.Variant{}, &domain.MappingError{Entity: domain.EntityVariant, Detail: "missing or malformed id"}
	}
	qty, _ := objInt64(m, "inventory_quantity")
	return domain.Variant{
		ID:                id,
		ProductID:         productID,
		SKU:               objString(m, "sku"),
		Price:             objDecimal(m, "price"),
		InventoryQuantity: qty,
		RawData:           rawCopy(raw),
	}, nil
}

// Customer maps one customer payload.
func Customer(raw json.RawMessage) (domain.Customer, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.Customer{}, &domain.MappingError{Entity: domain.EntityCustomer, Detail: "payload is not a JSON object"}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.Customer{}, &domain.MappingError{Entity: domain.EntityCustomer, Detail: "missing or malformed id"}
	}
	return domain.Customer{
		ID:        id,
		Email:     objStringPtr(m, "email"),
		FirstName: objString(m, "first_name"),
		LastName:  objString(m, "last_name"),
		Phone:     objStringPtr(m, "phone"),
		RawData:   rawCopy(raw),
	}, nil
}

// Order maps one order payload with its embedded line items. Line items with
// a bad id are dropped with their own MappingError.
func Order(raw json.RawMessage) (domain.Order, []domain.LineItem, []error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.Order{}, nil, []error{&domain.MappingError{Entity: domain.EntityOrder, Detail: "payload is not a JSON object"}}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.Order{}, nil, []error{&domain.MappingError{Entity: domain.EntityOrder, Detail: "missing or malformed id"}}
	}

	orderNumber, _ := objInt64(m, "order_number")
	var customerID *int64
	if customer := objNested(m, "customer"); customer != nil {
		customerID = objInt64Ptr(customer, "id")
	}

	order := domain.Order{
		ID:                 id,
		OrderNumber:        orderNumber,
		CustomerID:         customerID,
		CreatedAt:          objTime(m, "created_at"),
		UpdatedAt:          objTime(m, "updated_at"),
		ProcessedAt:        objTime(m, "processed_at"),
		ClosedAt:           objTime(m, "closed_at"),
		FinancialStatus:    objString(m, "financial_status"),
		FulfillmentStatus:  objStringPtr(m, "fulfillment_status"),
		SubtotalPrice:      objDecimal(m, "subtotal_price"),
		TotalShippingPrice: shippingPrice(m),
		TotalTax:           objDecimal(m, "total_tax"),
		TotalPrice:         objDecimal(m, "total_price"),
		Currency:           objString(m, "currency"),
		CustomerEmail:      objString(m, "email"),
		Note:               objString(m, "note"),
		RawData:            rawCopy(raw),
	}

	var children struct {
		LineItems []json.RawMessage `json:"line_items"`
	}
	_ = json.Unmarshal(raw, &children)

	var items []domain.LineItem
	var errs []error
	for _, liraw := range children.LineItems {
		li, err := lineItem(liraw, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, li)
	}
	return order, items, errs
}

// shippingPrice reads total_shipping_price_set.shop_money.amount, falling
// back to the legacy flat field.
func shippingPrice(m map[string]any) decimal.Decimal {
	if set := objNested(m, "total_shipping_price_set"); set != nil {
		if money := objNested(set, "shop_money"); money != nil {
			return objDecimal(money, "amount")
		}
	}
	return objDecimal(m, "total_shipping_price")
}

func lineItem(raw json.RawMessage, orderID int64) (domain.LineItem, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return domain.LineItem{}, &domain.MappingError{Entity: domain.EntityLineItem, Detail: "payload is not a JSON object"}
	}
	id, ok := objInt64(m, "id")
	if !ok {
		return domain.LineItem{}, &domain.MappingError{Entity: domain.EntityLineItem, Detail: "missing or malformed id"}
	}
	qty, _ := objInt64(m, "quantity")
	return domain.LineItem{
		ID:        id,
		OrderID:   orderID,
		ProductID: objInt64Ptr(m, "product_id"),
		VariantID: objInt64Ptr(m, "variant_id"),
		Vendor:    objString(m, "vendor"),
		Title:     objString(m, "title"),
		Price:     objDecimal(m, "price"),
		Quantity:  qty,
		RawData:   rawCopy(raw),
	}, nil
}
