package domain

import "context"

// Batch groups rows destined for one flush. A flush commits in one
// transaction, parents before children.
type Batch struct {
	Collections []Collection
	Products    []Product
	Variants    []Variant
	Customers   []Customer
	Orders      []Order
	LineItems   []LineItem
}

// Len reports the total rows across all entities.
func (b Batch) Len() int {
	return len(b.Collections) + len(b.Products) + len(b.Variants) +
		len(b.Customers) + len(b.Orders) + len(b.LineItems)
}

// Empty reports whether the batch carries no rows.
func (b Batch) Empty() bool { return b.Len() == 0 }

// Repository persists mirrored rows, checkpoints and quarantine records.
type Repository interface {
	// FlushBatch upserts every row of the batch inside one transaction.
	// Conflict resolution is on the primary key; rows carrying a source
	// updated_at never overwrite a fresher stored row.
	FlushBatch(ctx context.Context, batch Batch) error

	SaveCheckpoint(ctx context.Context, cp SyncCheckpoint) error
	LoadCheckpoints(ctx context.Context) (map[string]SyncCheckpoint, error)

	Quarantine(ctx context.Context, rows []QuarantinedRow) error
}
