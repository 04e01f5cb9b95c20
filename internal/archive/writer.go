// Package archive maintains the organized on-disk backup tree that mirrors a
// run: collections by kind, products by vendor, type and collection, orders
// by month and financial status, and the shop settings documents.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/shopmirror/internal/clock"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"github.com/smallbiznis/shopmirror/internal/pipeline"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"go.uber.org/zap"
)

const dirPerm = 0o755

type productRef struct {
	ID    int64
	Title string
}

// Writer lays the archive out under {root}/{YYYY-MM-DD} as rows stream past,
// then fills in shop settings, collection membership links, the backup report
// and the latest symlink during Finalize.
type Writer struct {
	root        string
	dir         string
	fetcher     *shopify.Fetcher
	clock       clock.Clock
	log         *zap.Logger
	concurrency int

	mu       sync.Mutex
	products []productRef
	files    map[string]int
	bytes    map[string]int64
}

func NewWriter(root string, fetcher *shopify.Fetcher, c clock.Clock, log *zap.Logger, concurrency int) (*Writer, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	dir := filepath.Join(root, c.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Writer{
		root:        root,
		dir:         dir,
		fetcher:     fetcher,
		clock:       c,
		log:         log.Named("archive"),
		concurrency: concurrency,
		files:       map[string]int{},
		bytes:       map[string]int64{},
	}, nil
}

// Dir returns the dated directory this run archives into.
func (w *Writer) Dir() string { return w.dir }

func (w *Writer) ObserveShop(_ context.Context, raw json.RawMessage) error {
	return w.writeJSON("shop_settings", filepath.Join("shop_settings", "shop_info.json"), raw)
}

func (w *Writer) ObserveCollection(_ context.Context, col mirrordomain.Collection) error {
	name := slugOr(col.Title, col.ID)
	rel := filepath.Join("collections", string(col.Kind), name, "collection_info.json")
	return w.writeJSON("collections", rel, col.RawData)
}

func (w *Writer) ObserveProduct(_ context.Context, p mirrordomain.Product, _ []mirrordomain.Variant) error {
	name := fmt.Sprintf("%d_%s", p.ID, slugOr(p.Title, p.ID))
	home := filepath.Join("products", "all_products", name)
	if err := w.writeJSON("products", filepath.Join(home, "product_info.json"), p.RawData); err != nil {
		return err
	}
	if p.Vendor != "" {
		if err := w.link(filepath.Join("products", "by_vendor", slug.Make(p.Vendor), name), home); err != nil {
			return err
		}
	}
	if p.ProductType != "" {
		if err := w.link(filepath.Join("products", "by_type", slug.Make(p.ProductType), name), home); err != nil {
			return err
		}
	}

	w.mu.Lock()
	w.products = append(w.products, productRef{ID: p.ID, Title: p.Title})
	w.mu.Unlock()
	return nil
}

func (w *Writer) ObserveCustomer(context.Context, mirrordomain.Customer) error {
	// Customer payloads stay in the relational store only.
	return nil
}

func (w *Writer) ObserveOrder(_ context.Context, o mirrordomain.Order, _ []mirrordomain.LineItem) error {
	name := fmt.Sprintf("order_%d_%d.json", o.OrderNumber, o.ID)
	home := filepath.Join("orders", "all_orders", name)
	if err := w.writeJSON("orders", home, o.RawData); err != nil {
		return err
	}
	if o.CreatedAt != nil {
		year := o.CreatedAt.Format("2006")
		month := o.CreatedAt.Format("01")
		if err := w.link(filepath.Join("orders", "by_year", year, month, name), home); err != nil {
			return err
		}
	}
	status := o.FinancialStatus
	if status == "" {
		status = "unknown"
	}
	return w.link(filepath.Join("orders", "by_status", slug.Make(status), name), home)
}

// Finalize fetches the remaining shop settings documents and the collection
// membership of every archived product, then writes the backup report and
// swaps the latest symlink.
func (w *Writer) Finalize(ctx context.Context, summary pipeline.Summary) error {
	w.fetchShopSettings(ctx)
	w.linkProductsByCollection(ctx)

	if err := w.writeReport(summary); err != nil {
		return err
	}
	return w.swapLatest()
}

func (w *Writer) fetchShopSettings(ctx context.Context) {
	for _, doc := range []string{"policies", "shipping_zones", "locations"} {
		raw, err := w.fetcher.GetObject(ctx, doc, doc)
		if err != nil {
			w.log.Warn("shop settings fetch failed", zap.String("doc", doc), zap.Error(err))
			continue
		}
		if err := w.writeJSON("shop_settings", filepath.Join("shop_settings", doc+".json"), raw); err != nil {
			w.log.Warn("shop settings write failed", zap.String("doc", doc), zap.Error(err))
		}
	}
}

// linkProductsByCollection asks the API which collections each product sits
// in and drops a link per membership. Lookups run on a small worker pool that
// still shares the one rate limiter.
func (w *Writer) linkProductsByCollection(ctx context.Context) {
	w.mu.Lock()
	products := make([]productRef, len(w.products))
	copy(products, w.products)
	w.mu.Unlock()

	jobs := make(chan productRef)
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				w.linkOneProduct(ctx, p)
			}
		}()
	}
	for _, p := range products {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
}

func (w *Writer) linkOneProduct(ctx context.Context, p productRef) {
	raw, err := w.fetcher.GetObject(ctx, fmt.Sprintf("products/%d/collections", p.ID), "collections")
	if err != nil {
		w.log.Warn("collection membership fetch failed",
			zap.Int64("product_id", p.ID), zap.Error(err))
		return
	}
	var memberships []struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &memberships); err != nil {
		w.log.Warn("collection membership unparseable", zap.Int64("product_id", p.ID))
		return
	}

	name := fmt.Sprintf("%d_%s", p.ID, slugOr(p.Title, p.ID))
	home := filepath.Join("products", "all_products", name)
	for _, m := range memberships {
		if m.Title == "" {
			continue
		}
		target := filepath.Join("products", "by_collection", slug.Make(m.Title), name)
		if err := w.link(target, home); err != nil {
			w.log.Warn("collection link failed", zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}
}

type backupReport struct {
	RunID       string           `json:"run_id"`
	GeneratedAt string           `json:"generated_at"`
	State       string           `json:"state"`
	DurationSec float64          `json:"duration_seconds"`
	Files       map[string]int   `json:"files_per_category"`
	Bytes       map[string]int64 `json:"bytes_per_category"`
}

func (w *Writer) writeReport(summary pipeline.Summary) error {
	w.mu.Lock()
	report := backupReport{
		RunID:       uuid.NewString(),
		GeneratedAt: w.clock.Now().Format("2006-01-02T15:04:05Z07:00"),
		State:       string(summary.State),
		DurationSec: summary.Duration.Seconds(),
		Files:       w.files,
		Bytes:       w.bytes,
	}
	w.mu.Unlock()

	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, "_metadata", "backup_report.json")
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func (w *Writer) swapLatest() error {
	latest := filepath.Join(w.root, "latest")
	if err := os.Remove(latest); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Symlink(filepath.Base(w.dir), latest)
}

// writeJSON pretty-prints a payload into the archive and counts it toward
// the category totals.
func (w *Writer) writeJSON(category, rel string, raw []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(raw)
	}

	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return err
	}

	w.mu.Lock()
	w.files[category]++
	w.bytes[category] += int64(pretty.Len())
	w.mu.Unlock()
	return nil
}

// link drops a relative symlink so categorical views share one copy of the
// data. Existing links are left alone.
func (w *Writer) link(rel, targetRel string) error {
	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	relTarget, err := filepath.Rel(filepath.Dir(path), filepath.Join(w.dir, targetRel))
	if err != nil {
		return err
	}
	if err := os.Symlink(relTarget, path); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

func slugOr(title string, id int64) string {
	s := slug.Make(title)
	if s == "" {
		return strconv.FormatInt(id, 10)
	}
	return s
}
