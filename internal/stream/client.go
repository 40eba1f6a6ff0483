package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cebartling/flightloop/internal/metrics"
)

// writeTimeout bounds each individual SSE write so one stalled client
// cannot block its handler goroutine indefinitely.
const writeTimeout = 10 * time.Second

// client wraps an SSE connection with per-write deadlines and a send
// rate limiter.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	limiter *rate.Limiter
	ip      string
	logger  *slog.Logger
}

// sendJSON writes a single SSE data frame containing the JSON encoding of v.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}

	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("set write deadline failed", "remote_ip", c.ip, "error", err)
	}

	n, err := fmt.Fprintf(c.w, "data: %s\n\n", data)
	if err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	c.flusher.Flush()

	if err := c.rc.SetWriteDeadline(time.Time{}); err != nil {
		c.logger.Debug("clear write deadline failed", "remote_ip", c.ip, "error", err)
	}

	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))
	return nil
}

// sendKeepalive writes an SSE comment line to keep the connection open
// through idle periods.
func (c *client) sendKeepalive() error {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Debug("set write deadline failed", "remote_ip", c.ip, "error", err)
	}

	if _, err := fmt.Fprint(c.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	c.flusher.Flush()

	if err := c.rc.SetWriteDeadline(time.Time{}); err != nil {
		c.logger.Debug("clear write deadline failed", "remote_ip", c.ip, "error", err)
	}
	return nil
}
