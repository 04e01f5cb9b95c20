package shopify

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Response is a completed HTTP exchange. Non-2xx statuses are values here, not
// errors; classification happens in the fetcher.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single HTTP GET. Implementations return an error only
// when no response was obtained at all.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) (*Response, error)
}

type httpTransport struct {
	client *http.Client
}

// NewTransport returns a Transport backed by net/http with the given timeout.
func NewTransport(timeout time.Duration) Transport {
	return &httpTransport{
		client: &http.Client{Timeout: timeout},
	}
}

func (t *httpTransport) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
