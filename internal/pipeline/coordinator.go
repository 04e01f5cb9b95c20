package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"github.com/smallbiznis/shopmirror/internal/mirror/mapper"
	"github.com/smallbiznis/shopmirror/internal/observability/metrics"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxFlushHalvings = 3

// Pass names double as checkpoint keys.
const (
	PassShop              = "shop"
	PassCustomCollections = "custom_collections"
	PassSmartCollections  = "smart_collections"
	PassProducts          = "products"
	PassCustomers         = "customers"
	PassOrders            = "orders"
)

// Config tunes one run.
type Config struct {
	BatchSize       int
	RunDeadline     time.Duration
	InitialSyncDays int
}

// Coordinator walks the passes in dependency order: shop, then collections,
// then products, then customers, then orders. A downstream pass only starts
// once everything it depends on finished cleanly.
type Coordinator struct {
	fetcher   *shopify.Fetcher
	repo      mirrordomain.Repository
	clock     clock.Clock
	log       *zap.Logger
	metrics   *metrics.SyncMetrics
	observers []PageObserver
	cfg       Config
}

func NewCoordinator(
	fetcher *shopify.Fetcher,
	repo mirrordomain.Repository,
	c clock.Clock,
	log *zap.Logger,
	m *metrics.SyncMetrics,
	observers []PageObserver,
	cfg Config,
) *Coordinator {
	return &Coordinator{
		fetcher:   fetcher,
		repo:      repo,
		clock:     c,
		log:       log.Named("pipeline"),
		metrics:   m,
		observers: observers,
		cfg:       cfg,
	}
}

type pass struct {
	name     string
	resource string
	envelope string
	entity   string
	deps     []string
	extra    func(c *Coordinator) url.Values
	mapRow   func(c *Coordinator, ctx context.Context, raw json.RawMessage, s *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64)
}

func (c *Coordinator) passes() []pass {
	return []pass{
		{
			name:     PassCustomCollections,
			resource: "custom_collections",
			envelope: "custom_collections",
			entity:   mirrordomain.EntityCollection,
			deps:     []string{PassShop},
			mapRow:   mapCollectionRow(mirrordomain.CollectionKindCustom),
		},
		{
			name:     PassSmartCollections,
			resource: "smart_collections",
			envelope: "smart_collections",
			entity:   mirrordomain.EntityCollection,
			deps:     []string{PassShop},
			mapRow:   mapCollectionRow(mirrordomain.CollectionKindSmart),
		},
		{
			name:     PassProducts,
			resource: "products",
			envelope: "products",
			entity:   mirrordomain.EntityProduct,
			deps:     []string{PassCustomCollections, PassSmartCollections},
			mapRow:   mapProductRow,
		},
		{
			name:     PassCustomers,
			resource: "customers",
			envelope: "customers",
			entity:   mirrordomain.EntityCustomer,
			deps:     []string{PassShop},
			extra:    initialWindowFilters,
			mapRow:   mapCustomerRow,
		},
		{
			name:     PassOrders,
			resource: "orders",
			envelope: "orders",
			entity:   mirrordomain.EntityOrder,
			deps:     []string{PassCustomers},
			extra:    orderFilters,
			mapRow:   mapOrderRow,
		},
	}
}

// initialWindowFilters limits a first sync to rows created inside the
// configured horizon. Applies to customers and orders alike.
func initialWindowFilters(c *Coordinator) url.Values {
	v := url.Values{}
	if c.cfg.InitialSyncDays > 0 {
		min := c.clock.Now().AddDate(0, 0, -c.cfg.InitialSyncDays)
		v.Set("created_at_min", min.Format(time.RFC3339))
	}
	return v
}

// orderFilters asks for every order regardless of status, inside the same
// initial window.
func orderFilters(c *Coordinator) url.Values {
	v := initialWindowFilters(c)
	v.Set("status", "any")
	return v
}

// Run executes a full sync and always returns a summary, even when aborted.
func (c *Coordinator) Run(ctx context.Context) Summary {
	start := c.clock.Now()
	if c.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunDeadline)
		defer cancel()
	}
	// Flushes and checkpoints in flight when cancellation fires still
	// complete; only page fetching observes the cancellation.
	flushCtx := context.WithoutCancel(ctx)

	s := newSummary()
	failed := map[string]bool{}

	checkpoints, err := c.repo.LoadCheckpoints(ctx)
	if err != nil {
		c.log.Error("cannot load checkpoints", zap.Error(err))
		s.State = RunAborted
		s.PassErrors = append(s.PassErrors, PassError{Pass: PassShop, Err: err})
		s.Duration = c.clock.Now().Sub(start)
		return *s
	}

	c.runShopPass(ctx, s, failed)

	for _, p := range c.passes() {
		if s.State == RunCancelled || s.State == RunAborted {
			break
		}
		if c.depsFailed(p, failed) {
			c.log.Warn("pass skipped, dependency failed", zap.String("pass", p.name))
			failed[p.name] = true
			s.demote()
			continue
		}
		c.runListPass(ctx, flushCtx, p, checkpoints[p.name], s, failed)
	}

	s.Duration = c.clock.Now().Sub(start)
	// Finalize may fetch more pages, so unlike flushes it stays cancellable.
	for _, obs := range c.observers {
		if err := obs.Finalize(ctx, *s); err != nil {
			c.log.Warn("observer finalize failed", zap.Error(err))
		}
	}

	c.log.Info("run finished",
		zap.String("state", string(s.State)),
		zap.Duration("duration", s.Duration),
		zap.Int("quarantined", len(s.QuarantinedIDs)),
	)
	return *s
}

func (c *Coordinator) depsFailed(p pass, failed map[string]bool) bool {
	for _, dep := range p.deps {
		if failed[dep] {
			return true
		}
	}
	return false
}

func (c *Coordinator) runShopPass(ctx context.Context, s *Summary, failed map[string]bool) {
	raw, err := c.fetcher.GetObject(ctx, "shop", "shop")
	if err != nil {
		if ctxDone(ctx, err) {
			s.State = RunCancelled
			return
		}
		c.log.Error("shop pass failed", zap.Error(err))
		s.PassErrors = append(s.PassErrors, PassError{Pass: PassShop, Err: err})
		failed[PassShop] = true
		s.demote()
		return
	}
	for _, obs := range c.observers {
		if err := obs.ObserveShop(ctx, raw); err != nil {
			c.log.Warn("shop observer failed", zap.Error(err))
		}
	}
	s.Checkpoints[PassShop] = ""
}

func (c *Coordinator) runListPass(ctx, flushCtx context.Context, p pass, cp mirrordomain.SyncCheckpoint, s *Summary, failed map[string]bool) {
	log := c.log.With(zap.String("pass", p.name))
	up := NewUpserter(c.cfg.BatchSize)
	cursor := cp.LastCursor
	lastRowID := cp.LastRowID
	if cursor != "" {
		log.Info("resuming from checkpoint", zap.String("cursor", cursor))
	}

	for {
		if ctx.Err() != nil {
			c.finishCancelled(flushCtx, p, up, cursor, lastRowID, s)
			return
		}

		var extra url.Values
		if p.extra != nil {
			extra = p.extra(c)
		}
		page, err := c.fetcher.ListPage(ctx, p.resource, p.envelope, cursor, extra)
		if err != nil {
			if ctxDone(ctx, err) {
				c.finishCancelled(flushCtx, p, up, cursor, lastRowID, s)
				return
			}
			log.Error("pass aborted", zap.Error(err))
			s.PassErrors = append(s.PassErrors, PassError{Pass: p.name, Err: err})
			failed[p.name] = true
			s.demote()
			// Keep what we already have; resume point stays at the
			// page that failed.
			if fatal := c.flushAndCheckpoint(flushCtx, p, up, cursor, lastRowID, s); fatal != nil {
				c.abort(p, fatal, s)
			}
			return
		}

		s.counts(p.entity).Fetched += len(page.Rows)
		var quarantine []mirrordomain.QuarantinedRow
		for _, raw := range page.Rows {
			delta, q, rowID := p.mapRow(c, ctx, raw, s)
			up.Add(delta)
			quarantine = append(quarantine, q...)
			if rowID != 0 {
				lastRowID = rowID
			}
		}
		if len(quarantine) > 0 {
			if fatal := c.recordQuarantine(flushCtx, quarantine, s); fatal != nil {
				c.abort(p, fatal, s)
				return
			}
		}

		if up.Full() || page.NextCursor == "" {
			if fatal := c.flushAndCheckpoint(flushCtx, p, up, page.NextCursor, lastRowID, s); fatal != nil {
				c.abort(p, fatal, s)
				return
			}
		}
		if page.NextCursor == "" {
			log.Info("pass done",
				zap.Int("fetched", s.counts(p.entity).Fetched),
				zap.Int("upserted", s.counts(p.entity).Upserted),
			)
			return
		}
		cursor = page.NextCursor
	}
}

// finishCancelled completes the in-flight work, checkpoints the resume
// cursor, and marks the run cancelled.
func (c *Coordinator) finishCancelled(flushCtx context.Context, p pass, up *Upserter, cursor string, lastRowID int64, s *Summary) {
	if fatal := c.flushAndCheckpoint(flushCtx, p, up, cursor, lastRowID, s); fatal != nil {
		c.abort(p, fatal, s)
		return
	}
	c.log.Info("run cancelled between pages", zap.String("pass", p.name))
	s.State = RunCancelled
}

func (c *Coordinator) abort(p pass, err error, s *Summary) {
	c.log.Error("store failure, aborting run", zap.String("pass", p.name), zap.Error(err))
	s.PassErrors = append(s.PassErrors, PassError{Pass: p.name, Err: err})
	s.State = RunAborted
}

// flushAndCheckpoint drains the buffer through the degrade policy and then
// records the resume cursor. A returned error means the store itself is gone.
func (c *Coordinator) flushAndCheckpoint(ctx context.Context, p pass, up *Upserter, nextCursor string, lastRowID int64, s *Summary) error {
	batch := up.Take()
	if !batch.Empty() {
		if err := c.flushDegrading(ctx, batch, 0, s); err != nil {
			return err
		}
	}
	if err := c.repo.SaveCheckpoint(ctx, mirrordomain.SyncCheckpoint{
		Pass:       p.name,
		LastCursor: nextCursor,
		LastRowID:  lastRowID,
	}); err != nil {
		return err
	}
	s.Checkpoints[p.name] = nextCursor
	return nil
}

// flushDegrading commits a batch, halving it on failure up to three times
// before quarantining whatever still refuses to commit.
func (c *Coordinator) flushDegrading(ctx context.Context, batch mirrordomain.Batch, halvings int, s *Summary) error {
	err := c.repo.FlushBatch(ctx, batch)
	if err == nil {
		c.countUpserted(batch, s)
		return nil
	}

	entity := "unknown"
	var serr *mirrordomain.StorageError
	if errors.As(err, &serr) {
		entity = serr.Entity
	}
	c.metrics.IncFlushFailure(entity)
	c.log.Warn("flush failed",
		zap.String("entity", entity),
		zap.Int("rows", batch.Len()),
		zap.Int("halvings", halvings),
		zap.Error(err),
	)

	if halvings < maxFlushHalvings && batch.Len() > 1 {
		left, right := splitBatch(batch)
		if !left.Empty() {
			if ferr := c.flushDegrading(ctx, left, halvings+1, s); ferr != nil {
				return ferr
			}
		}
		if !right.Empty() {
			if ferr := c.flushDegrading(ctx, right, halvings+1, s); ferr != nil {
				return ferr
			}
		}
		return nil
	}

	return c.recordQuarantine(ctx, quarantineBatch(batch, err), s)
}

// recordQuarantine persists sidelined rows. If even that write fails, the
// store is considered lost and the error is fatal.
func (c *Coordinator) recordQuarantine(ctx context.Context, rows []mirrordomain.QuarantinedRow, s *Summary) error {
	if len(rows) == 0 {
		return nil
	}
	if err := c.repo.Quarantine(ctx, rows); err != nil {
		return err
	}
	for _, row := range rows {
		s.counts(row.Entity).Quarantined++
		s.QuarantinedIDs = append(s.QuarantinedIDs, row.RowID)
		c.metrics.AddRowsQuarantined(row.Entity, 1)
	}
	s.demote()
	return nil
}

func (c *Coordinator) countUpserted(batch mirrordomain.Batch, s *Summary) {
	add := func(entity string, n int) {
		if n == 0 {
			return
		}
		s.counts(entity).Upserted += n
		c.metrics.AddRowsUpserted(entity, n)
	}
	add(mirrordomain.EntityCollection, len(batch.Collections))
	add(mirrordomain.EntityProduct, len(batch.Products))
	add(mirrordomain.EntityVariant, len(batch.Variants))
	add(mirrordomain.EntityCustomer, len(batch.Customers))
	add(mirrordomain.EntityOrder, len(batch.Orders))
	add(mirrordomain.EntityLineItem, len(batch.LineItems))
}

func ctxDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// quarantineBatch converts every row of a failed batch into quarantine
// records carrying the flush error.
func quarantineBatch(batch mirrordomain.Batch, err error) []mirrordomain.QuarantinedRow {
	reason := "flush failed: " + err.Error()
	var rows []mirrordomain.QuarantinedRow
	for _, r := range batch.Collections {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityCollection, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	for _, r := range batch.Products {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityProduct, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	for _, r := range batch.Variants {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityVariant, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	for _, r := range batch.Customers {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityCustomer, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	for _, r := range batch.Orders {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityOrder, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	for _, r := range batch.LineItems {
		rows = append(rows, mirrordomain.QuarantinedRow{Entity: mirrordomain.EntityLineItem, RowID: r.ID, Reason: reason, Payload: r.RawData})
	}
	return rows
}

func mapCollectionRow(kind mirrordomain.CollectionKind) func(*Coordinator, context.Context, json.RawMessage, *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64) {
	return func(c *Coordinator, ctx context.Context, raw json.RawMessage, s *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64) {
		col, err := mapper.Collection(raw, kind)
		if err != nil {
			return mirrordomain.Batch{}, []mirrordomain.QuarantinedRow{{
				Entity: mirrordomain.EntityCollection, Reason: err.Error(), Payload: datatypes.JSON(raw),
			}}, 0
		}
		s.counts(mirrordomain.EntityCollection).Mapped++
		c.metrics.AddRowsMapped(mirrordomain.EntityCollection, 1)
		for _, obs := range c.observers {
			if oerr := obs.ObserveCollection(ctx, col); oerr != nil {
				c.log.Warn("collection observer failed", zap.Error(oerr))
			}
		}
		return mirrordomain.Batch{Collections: []mirrordomain.Collection{col}}, nil, col.ID
	}
}

func mapProductRow(c *Coordinator, ctx context.Context, raw json.RawMessage, s *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64) {
	product, variants, errs := mapper.Product(raw)
	if product.ID == 0 {
		return mirrordomain.Batch{}, []mirrordomain.QuarantinedRow{{
			Entity: mirrordomain.EntityProduct, Reason: errs[0].Error(), Payload: datatypes.JSON(raw),
		}}, 0
	}

	var quarantine []mirrordomain.QuarantinedRow
	for _, err := range errs {
		quarantine = append(quarantine, mirrordomain.QuarantinedRow{
			Entity: mirrordomain.EntityVariant, RowID: product.ID, Reason: err.Error(), Payload: datatypes.JSON(raw),
		})
	}

	s.counts(mirrordomain.EntityProduct).Mapped++
	s.counts(mirrordomain.EntityVariant).Mapped += len(variants)
	c.metrics.AddRowsMapped(mirrordomain.EntityProduct, 1)
	c.metrics.AddRowsMapped(mirrordomain.EntityVariant, len(variants))
	for _, obs := range c.observers {
		if oerr := obs.ObserveProduct(ctx, product, variants); oerr != nil {
			c.log.Warn("product observer failed", zap.Error(oerr))
		}
	}
	return mirrordomain.Batch{
		Products: []mirrordomain.Product{product},
		Variants: variants,
	}, quarantine, product.ID
}

func mapCustomerRow(c *Coordinator, ctx context.Context, raw json.RawMessage, s *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64) {
	customer, err := mapper.Customer(raw)
	if err != nil {
		return mirrordomain.Batch{}, []mirrordomain.QuarantinedRow{{
			Entity: mirrordomain.EntityCustomer, Reason: err.Error(), Payload: datatypes.JSON(raw),
		}}, 0
	}
	s.counts(mirrordomain.EntityCustomer).Mapped++
	c.metrics.AddRowsMapped(mirrordomain.EntityCustomer, 1)
	for _, obs := range c.observers {
		if oerr := obs.ObserveCustomer(ctx, customer); oerr != nil {
			c.log.Warn("customer observer failed", zap.Error(oerr))
		}
	}
	return mirrordomain.Batch{Customers: []mirrordomain.Customer{customer}}, nil, customer.ID
}

func mapOrderRow(c *Coordinator, ctx context.Context, raw json.RawMessage, s *Summary) (mirrordomain.Batch, []mirrordomain.QuarantinedRow, int64) {
	order, items, errs := mapper.Order(raw)
	if order.ID == 0 {
		return mirrordomain.Batch{}, []mirrordomain.QuarantinedRow{{
			Entity: mirrordomain.EntityOrder, Reason: errs[0].Error(), Payload: datatypes.JSON(raw),
		}}, 0
	}

	var quarantine []mirrordomain.QuarantinedRow
	for _, err := range errs {
		quarantine = append(quarantine, mirrordomain.QuarantinedRow{
			Entity: mirrordomain.EntityLineItem, RowID: order.ID, Reason: err.Error(), Payload: datatypes.JSON(raw),
		})
	}

	s.counts(mirrordomain.EntityOrder).Mapped++
	s.counts(mirrordomain.EntityLineItem).Mapped += len(items)
	c.metrics.AddRowsMapped(mirrordomain.EntityOrder, 1)
	c.metrics.AddRowsMapped(mirrordomain.EntityLineItem, len(items))
	for _, obs := range c.observers {
		if oerr := obs.ObserveOrder(ctx, order, items); oerr != nil {
			c.log.Warn("order observer failed", zap.Error(oerr))
		}
	}
	return mirrordomain.Batch{
		Orders:    []mirrordomain.Order{order},
		LineItems: items,
	}, quarantine, order.ID
}
