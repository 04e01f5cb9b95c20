package shopify

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPageInfo(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
		{
			name:   "next only",
			header: `<https://x.myshopify.com/admin/api/2024-01/products.json?limit=250&page_info=abc123>; rel="next"`,
			want:   "abc123",
		},
		{
			name: "previous and next",
			header: `<https://x.myshopify.com/admin/api/2024-01/products.json?page_info=prev1&limit=250>; rel="previous", ` +
				`<https://x.myshopify.com/admin/api/2024-01/products.json?page_info=next2&limit=250>; rel="next"`,
			want: "next2",
		},
		{
			name:   "previous only",
			header: `<https://x.myshopify.com/admin/api/2024-01/orders.json?page_info=prev1>; rel="previous"`,
			want:   "",
		},
		{
			name:   "single quoted rel",
			header: `<https://x.myshopify.com/admin/api/2024-01/orders.json?page_info=q9>; rel='next'`,
			want:   "q9",
		},
		{
			name:   "extra whitespace",
			header: `  <https://x.myshopify.com/admin/api/2024-01/orders.json?page_info=ws> ;  rel="next"  `,
			want:   "ws",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextPageInfo(tc.header)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextPageInfoMalformed(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"no angle brackets", `https://x.myshopify.com/products.json?page_info=a; rel="next"`},
		{"missing rel segment", `<https://x.myshopify.com/products.json?page_info=a>`},
		{"next without page_info", `<https://x.myshopify.com/products.json?limit=250>; rel="next"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NextPageInfo(tc.header)
			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Input)
		})
	}
}

func TestPageURL(t *testing.T) {
	extra := url.Values{}
	extra.Set("status", "any")

	first := PageURL("x.myshopify.com", "2024-01", "orders", 250, "", extra)
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-01/orders.json?limit=250&status=any", first)

	// Cursored pages must drop the filter params.
	cursored := PageURL("x.myshopify.com", "2024-01", "orders", 250, "c1", extra)
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-01/orders.json?limit=250&page_info=c1", cursored)
}

func TestResourceURL(t *testing.T) {
	got := ResourceURL("x.myshopify.com", "2024-01", "shop")
	assert.Equal(t, "https://x.myshopify.com/admin/api/2024-01/shop.json", got)
}
