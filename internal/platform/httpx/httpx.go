package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-resty/resty/v2"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// StatusError is returned by collaborator clients for non-2xx responses.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Status, body)
}

func (e *StatusError) HTTPStatusCode() int { return e.Status }

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	return false
}

// RetryCondition plugs the retry policy above into a resty client.
func RetryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return IsRetryableError(err)
	}
	return r != nil && IsRetryableHTTPStatus(r.StatusCode())
}

// CheckResponse converts transport failures and non-2xx responses into errors.
func CheckResponse(service string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s request: %w", service, err)
	}
	if resp == nil {
		return fmt.Errorf("%s request: empty response", service)
	}
	if resp.IsError() {
		return &StatusError{Service: service, Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
