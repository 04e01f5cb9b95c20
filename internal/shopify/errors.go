package shopify

import "fmt"

// TransportError wraps a request that could not complete at all: DNS, TLS,
// connect or read failures. These are retried like 5xx responses.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PermanentHTTPError is a non-retryable upstream response (4xx other than 429).
type PermanentHTTPError struct {
	StatusCode  int
	URL         string
	BodySnippet string
}

func (e *PermanentHTTPError) Error() string {
	return fmt.Sprintf("permanent HTTP %d from %s: %s", e.StatusCode, e.URL, e.BodySnippet)
}

// TransientHTTPError is a retryable upstream response: 429 throttling or a
// 5xx server error. It never surfaces on its own, only as the LastErr of a
// RetryBudgetExhausted.
type TransientHTTPError struct {
	StatusCode  int
	URL         string
	BodySnippet string
}

func (e *TransientHTTPError) Error() string {
	return fmt.Sprintf("transient HTTP %d from %s: %s", e.StatusCode, e.URL, e.BodySnippet)
}

// RetryBudgetExhausted reports that the attempt budget ran out. LastErr is the
// error from the final attempt.
type RetryBudgetExhausted struct {
	URL      string
	Attempts int
	LastErr  error
}

func (e *RetryBudgetExhausted) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts for %s: %v", e.Attempts, e.URL, e.LastErr)
}

func (e *RetryBudgetExhausted) Unwrap() error { return e.LastErr }

// ProtocolError reports an upstream response that violated the API contract:
// an unparseable Link header or a malformed JSON envelope.
type ProtocolError struct {
	Detail string
	Input  string
}

func (e *ProtocolError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("protocol error: %s", e.Detail)
	}
	return fmt.Sprintf("protocol error: %s: %q", e.Detail, e.Input)
}
