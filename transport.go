package onvif

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/juju/errors"
)

// Transport delivers one built request and returns the reply body. Implementations
// must be safe for concurrent use.
type Transport interface {
	Exchange(ctx context.Context, req *Request) ([]byte, error)
}

// StatusError is returned when the camera answers with an HTTP error status.
// Body holds whatever the camera sent, usually a SOAP fault.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTP %d with empty response", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// Fault returns the SOAP fault carried in the body, if any
func (e *StatusError) Fault() error {
	return parseSOAPFault(e.Body)
}

// HTTPTransport opens a fresh connection for every request
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport builds a transport with the given dial and idle timeouts
func NewHTTPTransport(connectTimeout, requestTimeout time.Duration) *HTTPTransport {
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if requestTimeout == 0 {
		requestTimeout = DefaultRequestTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &HTTPTransport{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:       dialer.DialContext,
				DisableKeepAlives: true,
			},
		},
	}
}

// Exchange posts req and reads the whole reply
func (t *HTTPTransport) Exchange(ctx context.Context, req *Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewBufferString(req.Body))
	if err != nil {
		return nil, errors.Annotatef(err, "building %s request", req.Operation)
	}
	httpReq.Host = req.Host
	httpReq.Close = true
	httpReq.Header.Set("Content-Type", req.ContentType())
	httpReq.Header.Set("Charset", "utf-8")
	httpReq.Header.Set("SOAPAction", `"`+req.Action+`"`)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.Annotatef(err, "sending %s", req.Operation)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotatef(err, "reading %s reply", req.Operation)
	}

	// Some cameras answer errors with an empty body instead of a SOAP fault
	if resp.StatusCode >= 400 {
		return body, &StatusError{Code: resp.StatusCode, Body: body}
	}

	return body, nil
}
