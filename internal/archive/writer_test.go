package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
	mirrordomain "github.com/smallbiznis/shopmirror/internal/mirror/domain"
	"github.com/smallbiznis/shopmirror/internal/pipeline"
	"github.com/smallbiznis/shopmirror/internal/ratelimit"
	"github.com/smallbiznis/shopmirror/internal/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// settingsTransport serves canned bodies keyed by a URL path fragment.
type settingsTransport struct {
	bodies map[string]string
}

func (t *settingsTransport) Get(_ context.Context, url string, _ map[string]string) (*shopify.Response, error) {
	for frag, body := range t.bodies {
		if strings.Contains(url, frag) {
			return &shopify.Response{StatusCode: 200, Header: http.Header{}, Body: []byte(body)}, nil
		}
	}
	return &shopify.Response{StatusCode: 404, Header: http.Header{}, Body: []byte(`{}`)}, nil
}

func newTestWriter(t *testing.T, bodies map[string]string) (*Writer, string) {
	t.Helper()
	root := t.TempDir()
	fc := clock.NewFakeClock(time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC))
	bucket, err := ratelimit.NewTokenBucket(fc, 1000, 100)
	require.NoError(t, err)
	fetcher := shopify.NewFetcher(&settingsTransport{bodies: bodies}, bucket, fc, zap.NewNop(), nil, shopify.Options{
		Host:        "test-shop.myshopify.com",
		AccessToken: "tok",
		APIVersion:  "2024-01",
		PageSize:    250,
		MaxAttempts: 3,
		BackoffBase: 10 * time.Millisecond,
		BackoffMax:  time.Second,
	})
	w, err := NewWriter(root, fetcher, fc, zap.NewNop(), 2)
	require.NoError(t, err)
	return w, root
}

func ts(s string) *time.Time {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	u := parsed.UTC()
	return &u
}

func TestWriterLaysOutDatedTree(t *testing.T) {
	w, root := newTestWriter(t, nil)
	assert.Equal(t, filepath.Join(root, "2026-05-10"), w.Dir())
}

func TestObserveCollection(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	ctx := context.Background()

	raw := json.RawMessage(`{"id":11,"title":"Summer Sale!","handle":"summer-sale"}`)
	require.NoError(t, w.ObserveCollection(ctx, mirrordomain.Collection{
		ID: 11, Title: "Summer Sale!", Kind: mirrordomain.CollectionKindCustom, RawData: []byte(raw),
	}))

	path := filepath.Join(w.Dir(), "collections", "custom", "summer-sale", "collection_info.json")
	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Summer Sale!", got["title"])
}

func TestObserveProductWritesHomeAndLinks(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	ctx := context.Background()

	p := mirrordomain.Product{
		ID:          42,
		Title:       "Blue Mug",
		Vendor:      "Acme Pottery",
		ProductType: "Mug",
		RawData:     []byte(`{"id":42,"title":"Blue Mug"}`),
	}
	require.NoError(t, w.ObserveProduct(ctx, p, nil))

	home := filepath.Join(w.Dir(), "products", "all_products", "42_blue-mug")
	_, err := os.Stat(filepath.Join(home, "product_info.json"))
	require.NoError(t, err)

	for _, link := range []string{
		filepath.Join(w.Dir(), "products", "by_vendor", "acme-pottery", "42_blue-mug"),
		filepath.Join(w.Dir(), "products", "by_type", "mug", "42_blue-mug"),
	} {
		target, err := os.Readlink(link)
		require.NoError(t, err)
		resolved := filepath.Join(filepath.Dir(link), target)
		_, err = os.Stat(filepath.Join(resolved, "product_info.json"))
		assert.NoError(t, err, link)
	}
}

func TestObserveOrderLinksByMonthAndStatus(t *testing.T) {
	w, _ := newTestWriter(t, nil)
	ctx := context.Background()

	o := mirrordomain.Order{
		ID:              900,
		OrderNumber:     1001,
		CreatedAt:       ts("2026-03-15T12:00:00Z"),
		FinancialStatus: "paid",
		RawData:         []byte(`{"id":900,"order_number":1001}`),
	}
	require.NoError(t, w.ObserveOrder(ctx, o, nil))

	name := "order_1001_900.json"
	_, err := os.Stat(filepath.Join(w.Dir(), "orders", "all_orders", name))
	require.NoError(t, err)

	for _, link := range []string{
		filepath.Join(w.Dir(), "orders", "by_year", "2026", "03", name),
		filepath.Join(w.Dir(), "orders", "by_status", "paid", name),
	} {
		_, err := os.Readlink(link)
		assert.NoError(t, err, link)
	}
}

func TestFinalizeFetchesSettingsMembershipAndReport(t *testing.T) {
	w, root := newTestWriter(t, map[string]string{
		"/policies.json":                `{"policies":[{"title":"Refund policy"}]}`,
		"/shipping_zones.json":          `{"shipping_zones":[{"id":1,"name":"Domestic"}]}`,
		"/locations.json":               `{"locations":[{"id":5,"name":"Warehouse"}]}`,
		"/products/42/collections.json": `{"collections":[{"id":11,"title":"Summer Sale!"}]}`,
	})
	ctx := context.Background()

	require.NoError(t, w.ObserveShop(ctx, json.RawMessage(`{"id":7,"name":"Test Shop"}`)))
	require.NoError(t, w.ObserveProduct(ctx, mirrordomain.Product{
		ID: 42, Title: "Blue Mug", RawData: []byte(`{"id":42}`),
	}, nil))

	require.NoError(t, w.Finalize(ctx, pipeline.Summary{State: pipeline.RunDone, Duration: 3 * time.Second}))

	for _, rel := range []string{
		filepath.Join("shop_settings", "shop_info.json"),
		filepath.Join("shop_settings", "policies.json"),
		filepath.Join("shop_settings", "shipping_zones.json"),
		filepath.Join("shop_settings", "locations.json"),
	} {
		_, err := os.Stat(filepath.Join(w.Dir(), rel))
		assert.NoError(t, err, rel)
	}

	// Membership link landed under by_collection.
	_, err := os.Readlink(filepath.Join(w.Dir(), "products", "by_collection", "summer-sale", "42_blue-mug"))
	assert.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(w.Dir(), "_metadata", "backup_report.json"))
	require.NoError(t, err)
	var report backupReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "Done", report.State)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Files["products"])
	assert.Equal(t, 4, report.Files["shop_settings"])
	assert.Greater(t, report.Bytes["shop_settings"], int64(0))

	// latest points at the dated directory.
	target, err := os.Readlink(filepath.Join(root, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-10", target)
}

func TestFinalizeSurvivesSettingsFailures(t *testing.T) {
	// Transport 404s everything: settings are skipped with a warning and the
	// report still lands.
	w, _ := newTestWriter(t, nil)
	ctx := context.Background()

	require.NoError(t, w.Finalize(ctx, pipeline.Summary{State: pipeline.RunPartialSuccess}))

	_, err := os.Stat(filepath.Join(w.Dir(), "_metadata", "backup_report.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(w.Dir(), "shop_settings", "policies.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFinalizeCancelledSkipsFetchesKeepsReport(t *testing.T) {
	w, root := newTestWriter(t, map[string]string{
		"/policies.json": `{"policies":[{"title":"Refund policy"}]}`,
	})
	require.NoError(t, w.ObserveProduct(context.Background(), mirrordomain.Product{
		ID: 42, Title: "Blue Mug", RawData: []byte(`{"id":42}`),
	}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Finalize(ctx, pipeline.Summary{State: pipeline.RunCancelled}))

	// No fetch went out: neither settings nor membership links exist.
	_, err := os.Stat(filepath.Join(w.Dir(), "shop_settings", "policies.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(w.Dir(), "products", "by_collection"))
	assert.True(t, os.IsNotExist(err))

	// The report and the latest link still land.
	body, err := os.ReadFile(filepath.Join(w.Dir(), "_metadata", "backup_report.json"))
	require.NoError(t, err)
	var report backupReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "Cancelled", report.State)

	target, err := os.Readlink(filepath.Join(root, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-10", target)
}

func TestLatestSymlinkSwaps(t *testing.T) {
	w, root := newTestWriter(t, nil)
	require.NoError(t, os.Symlink("2026-05-09", filepath.Join(root, "latest")))

	require.NoError(t, w.Finalize(context.Background(), pipeline.Summary{State: pipeline.RunDone}))

	target, err := os.Readlink(filepath.Join(root, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "2026-05-10", target)
}

func TestSlugFallsBackToID(t *testing.T) {
	assert.Equal(t, "blue-mug", slugOr("Blue Mug", 1))
	assert.Equal(t, "77", slugOr("!!!", 77))
	assert.Equal(t, "9", slugOr("", 9))
}
