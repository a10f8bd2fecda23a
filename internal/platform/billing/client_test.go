package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

func TestResolveCredential(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/customers/u1/payment-credential":
			if n == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"customerId":"cus_1","paymentMethodId":"pm_1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{BaseURL: srv.URL, MaxRetries: 2})
	require.NoError(t, err)

	cred, err := c.ResolveCredential(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", cred.CustomerID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "502 should be retried once")

	_, err = c.ResolveCredential(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoCredential)
}
