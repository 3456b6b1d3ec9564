package mollie

import "fmt"

// UpstreamError is a non-2xx answer from the Mollie API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("mollie: upstream status %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network or timeout failure talking to Mollie.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mollie: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
