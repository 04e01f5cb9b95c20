package pipeline

import (
	"context"
	"encoding/json"

	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
)

// PageObserver receives every successfully mapped row as the run progresses.
// The on-disk archive hangs off this interface. Observer failures are logged
// and never fail the sync itself.
type PageObserver interface {
	ObserveShop(ctx context.Context, raw json.RawMessage) error
	ObserveCollection(ctx context.Context, col mirrordomain.Collection) error
	ObserveProduct(ctx context.Context, p mirrordomain.Product, variants []mirrordomain.Variant) error
	ObserveCustomer(ctx context.Context, c mirrordomain.Customer) error
	ObserveOrder(ctx context.Context, o mirrordomain.Order, items []mirrordomain.LineItem) error

	// Finalize runs once after the passes finish, with the run summary.
	Finalize(ctx context.Context, summary Summary) error
}
