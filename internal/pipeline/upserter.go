package pipeline

import (
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
)

// Upserter buffers mapped rows per entity until the flush threshold. It does
// not talk to the store itself; the coordinator takes the buffer and owns
// flush, degrade and quarantine policy.
type Upserter struct {
	batchSize int
	buf       mirrordomain.Batch
}

func NewUpserter(batchSize int) *Upserter {
	return &Upserter{batchSize: batchSize}
}

// Add merges a mapped delta into the buffer.
func (u *Upserter) Add(delta mirrordomain.Batch) {
	u.buf.Collections = append(u.buf.Collections, delta.Collections...)
	u.buf.Products = append(u.buf.Products, delta.Products...)
	u.buf.Variants = append(u.buf.Variants, delta.Variants...)
	u.buf.Customers = append(u.buf.Customers, delta.Customers...)
	u.buf.Orders = append(u.buf.Orders, delta.Orders...)
	u.buf.LineItems = append(u.buf.LineItems, delta.LineItems...)
}

// Full reports whether the buffer reached the flush threshold.
func (u *Upserter) Full() bool {
	return u.buf.Len() >= u.batchSize
}

// Size reports the buffered row count.
func (u *Upserter) Size() int {
	return u.buf.Len()
}

// Take returns the buffered batch and resets the buffer.
func (u *Upserter) Take() mirrordomain.Batch {
	out := u.buf
	u.buf = mirrordomain.Batch{}
	return out
}

// splitBatch halves a batch for degraded flushing. Variants travel with their
// product and line items with their order, so a half never commits a child
// whose parent landed in the other half and got quarantined there.
func splitBatch(b mirrordomain.Batch) (mirrordomain.Batch, mirrordomain.Batch) {
	var left, right mirrordomain.Batch
	left.Collections, right.Collections = splitRows(b.Collections)
	left.Customers, right.Customers = splitRows(b.Customers)

	left.Products, right.Products = splitRows(b.Products)
	leftProducts := make(map[int64]bool, len(left.Products))
	for _, p := range left.Products {
		leftProducts[p.ID] = true
	}
	for _, v := range b.Variants {
		if leftProducts[v.ProductID] {
			left.Variants = append(left.Variants, v)
		} else {
			right.Variants = append(right.Variants, v)
		}
	}

	left.Orders, right.Orders = splitRows(b.Orders)
	leftOrders := make(map[int64]bool, len(left.Orders))
	for _, o := range left.Orders {
		leftOrders[o.ID] = true
	}
	for _, li := range b.LineItems {
		if leftOrders[li.OrderID] {
			left.LineItems = append(left.LineItems, li)
		} else {
			right.LineItems = append(right.LineItems, li)
		}
	}
	return left, right
}

func splitRows[T any](rows []T) ([]T, []T) {
	mid := len(rows) / 2
	return rows[:mid], rows[mid:]
}
