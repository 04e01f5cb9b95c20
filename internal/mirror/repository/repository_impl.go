package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mirrorRepo struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

func Provide(gdb *gorm.DB, node *snowflake.Node, log *zap.Logger) mirrordomain.Repository {
	return &mirrorRepo{
		db:   gdb,
		node: node,
		log:  log.Named("mirror.repository"),
	}
}

var (
	collectionColumns = []string{"handle", "title", "kind", "updated_at", "raw_data"}
	// royalty_percent is operator-maintained and deliberately absent here.
	productColumns = []string{"title", "handle", "product_type", "vendor", "status",
		"created_at", "updated_at", "published_at", "tags", "raw_data"}
	variantColumns  = []string{"product_id", "sku", "price", "inventory_quantity", "raw_data"}
	customerColumns = []string{"email", "first_name", "last_name", "phone", "raw_data"}
	orderColumns    = []string{"order_number", "customer_id", "created_at", "updated_at",
		"processed_at", "closed_at", "financial_status", "fulfillment_status",
		"subtotal_price", "total_shipping_price", "total_tax", "total_price",
		"currency", "customer_email", "note", "raw_data"}
	lineItemColumns = []string{"order_id", "product_id", "variant_id", "vendor", "title",
		"price", "quantity", "raw_data"}
)

// FlushBatch commits the whole batch in one transaction, parents before
// children so foreign keys hold at every commit point.
func (r *mirrorRepo) FlushBatch(ctx context.Context, batch mirrordomain.Batch) error {
	if batch.Empty() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(batch.Collections) > 0 {
			rows := batch.Collections
			if err := tx.Clauses(r.guardedUpsert(tx, "collections", collectionColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityCollection, BatchLen: len(rows), Err: err}
			}
		}
		if len(batch.Products) > 0 {
			rows := batch.Products
			if err := tx.Clauses(r.guardedUpsert(tx, "products", productColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityProduct, BatchLen: len(rows), Err: err}
			}
		}
		if len(batch.Variants) > 0 {
			rows := batch.Variants
			if err := tx.Clauses(plainUpsert(variantColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityVariant, BatchLen: len(rows), Err: err}
			}
		}
		if len(batch.Customers) > 0 {
			rows := batch.Customers
			if err := tx.Clauses(plainUpsert(customerColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityCustomer, BatchLen: len(rows), Err: err}
			}
		}
		if len(batch.Orders) > 0 {
			rows := batch.Orders
			if err := tx.Clauses(r.guardedUpsert(tx, "orders", orderColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityOrder, BatchLen: len(rows), Err: err}
			}
		}
		if len(batch.LineItems) > 0 {
			rows := batch.LineItems
			if err := tx.Clauses(plainUpsert(lineItemColumns)).Create(&rows).Error; err != nil {
				return &mirrordomain.StorageError{Entity: mirrordomain.EntityLineItem, BatchLen: len(rows), Err: err}
			}
		}
		return nil
	})
}

// guardedUpsert resolves conflicts on id and refuses to let a stale payload
// overwrite a fresher stored row. Postgres and sqlite express the guard as a
// WHERE on the excluded alias; mysql has no such alias, so there every SET
// wraps the new value in an IF against VALUES(updated_at).
func (r *mirrorRepo) guardedUpsert(tx *gorm.DB, table string, columns []string) clause.OnConflict {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}
	switch tx.Dialector.Name() {
	case "postgres", "sqlite":
		conflict.Where = clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: fmt.Sprintf("%s.updated_at IS NULL OR excluded.updated_at >= %s.updated_at", table, table)},
		}}
	case "mysql":
		conflict.DoUpdates = mysqlGuardedAssignments(columns)
	}
	return conflict
}

// mysqlGuardedAssignments keeps the stored value for every column unless the
// incoming row is at least as fresh as the stored one.
func mysqlGuardedAssignments(columns []string) clause.Set {
	const fresh = "updated_at IS NULL OR VALUES(updated_at) >= updated_at"
	set := make(clause.Set, 0, len(columns))
	for _, col := range columns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("IF(%s, VALUES(%s), %s)", fresh, col, col)),
		})
	}
	return set
}

func plainUpsert(columns []string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}
}

func (r *mirrorRepo) SaveCheckpoint(ctx context.Context, cp mirrordomain.SyncCheckpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pass"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_cursor", "last_row_id", "updated_at"}),
	}).Create(&cp).Error
}

func (r *mirrorRepo) LoadCheckpoints(ctx context.Context) (map[string]mirrordomain.SyncCheckpoint, error) {
	var rows []mirrordomain.SyncCheckpoint
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]mirrordomain.SyncCheckpoint, len(rows))
	for _, cp := range rows {
		out[cp.Pass] = cp
	}
	return out, nil
}

func (r *mirrorRepo) Quarantine(ctx context.Context, rows []mirrordomain.QuarantinedRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == 0 {
			rows[i].ID = r.node.Generate()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	r.log.Warn("rows quarantined", zap.Int("count", len(rows)))
	return nil
}
