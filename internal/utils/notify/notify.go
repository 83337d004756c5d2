package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

const requestTimeout = 10 * time.Second

// Event is the summary posted to the operator's webhook when a run
// finishes.
type Event struct {
	Event       string    `json:"event"`
	Total       int       `json:"total"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	DurationSec float64   `json:"duration_seconds"`
	Interrupted bool      `json:"interrupted,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client posts best effort completion notifications. Failures are logged
// and swallowed, a run never fails because its notification did.
type Client struct {
	client *resty.Client
	logger *logger.Logger
}

func New(l *logger.Logger) *Client {
	return &Client{
		client: resty.New().SetTimeout(requestTimeout),
		logger: l,
	}
}

// RunComplete posts the event to url. An empty url disables notification.
func (c *Client) RunComplete(ctx context.Context, url string, ev Event) {
	if url == "" {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(url)
	if err != nil {
		c.logger.Error("[RunComplete] notify webhook call failed", map[string]string{
			"url":   url,
			"event": ev.Event,
			"error": err.Error(),
		})
		return
	}

	if resp.StatusCode() >= 400 {
		c.logger.Warn("[RunComplete] notify webhook rejected the event", map[string]string{
			"url":        url,
			"event":      ev.Event,
			"statusCode": strconv.Itoa(resp.StatusCode()),
		})
		return
	}

	c.logger.Info("[RunComplete] notified", map[string]string{
		"url":        url,
		"event":      ev.Event,
		"statusCode": strconv.Itoa(resp.StatusCode()),
	})
}
