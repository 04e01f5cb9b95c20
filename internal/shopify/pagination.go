package shopify

import (
	"fmt"
	"net/url"
	"strings"
)

// NextPageInfo extracts the page_info cursor from a Link response header. The
// header is a comma-separated list of `<URL>; rel="relation"` tuples; only the
// rel="next" tuple matters here. Returns "" when there is no next page.
func NextPageInfo(linkHeader string) (string, error) {
	linkHeader = strings.TrimSpace(linkHeader)
	if linkHeader == "" {
		return "", nil
	}

	for _, part := range strings.Split(linkHeader, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			return "", &ProtocolError{Detail: "malformed Link header tuple", Input: linkHeader}
		}

		rawURL := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(rawURL, "<") || !strings.HasSuffix(rawURL, ">") {
			return "", &ProtocolError{Detail: "Link URL not angle-bracketed", Input: linkHeader}
		}
		rawURL = rawURL[1 : len(rawURL)-1]

		if !linkRelIsNext(segments[1:]) {
			continue
		}

		u, err := url.Parse(rawURL)
		if err != nil {
			return "", &ProtocolError{Detail: "unparseable next-page URL", Input: linkHeader}
		}
		cursor := u.Query().Get("page_info")
		if cursor == "" {
			return "", &ProtocolError{Detail: "next-page URL missing page_info", Input: linkHeader}
		}
		return cursor, nil
	}
	return "", nil
}

func linkRelIsNext(params []string) bool {
	for _, p := range params {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, "rel=") {
			continue
		}
		rel := strings.TrimPrefix(p, "rel=")
		rel = strings.Trim(rel, `"'`)
		if rel == "next" {
			return true
		}
	}
	return false
}

// PageURL builds the listing URL for one page of a resource. A cursored page
// may only carry limit and page_info; extra filters belong to the first page.
func PageURL(host, apiVersion, resource string, limit int, pageInfo string, extra url.Values) string {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	} else {
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	}
	return fmt.Sprintf("https://%s/admin/api/%s/%s.json?%s", host, apiVersion, resource, q.Encode())
}

// ResourceURL builds the URL for a single-object endpoint, e.g. shop.json or
// products/{id}/collections.json.
func ResourceURL(host, apiVersion, resource string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s.json", host, apiVersion, resource)
}
