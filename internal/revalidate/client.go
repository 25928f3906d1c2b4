// Package revalidate pokes the frontend cache revalidation endpoint
// after plan mutations. Calls are fire-and-forget: a failed revalidation
// is logged and forgotten, the mutation already succeeded.
package revalidate

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const requestTimeout = 5 * time.Second

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns nil when no endpoint is configured; a nil client
// is safe to call.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		return nil
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   requestTimeout,
		},
	}
}

// Revalidate triggers the refresh in the background. The given reason
// ends up as a query param for frontend-side logging.
func (c *Client) Revalidate(reason string) {
	if c == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?reason="+reason, nil)
		if err != nil {
			log.Errorf("revalidate [%s]: create request: %s", reason, err)
			return
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warnf("revalidate [%s]: %s", reason, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			log.Warnf("revalidate [%s]: unexpected status %d", reason, resp.StatusCode)
		}
	}()
}
