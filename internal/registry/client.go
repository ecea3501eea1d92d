// Package registry talks to the remote product registry: the register
// (Submission Service) and getdata (Query Service) endpoints.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vbonduro/productreg/internal/domain"
)

const (
	registerPath = "/register"
	getDataPath  = "/getdata"
)

// ErrUnexpectedStatus wraps non-2xx responses from the registry.
var ErrUnexpectedStatus = errors.New("registry: unexpected status")

// Client is a resty-backed registry client. It implements intake.Submitter
// and listing.Querier. Calls are single attempt; the timeout bounds each.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient builds a client for the registry rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	return &Client{
		http:   rc,
		logger: logger.With("component", "registry"),
	}
}

// Register posts rec to the register endpoint.
func (c *Client) Register(ctx context.Context, rec domain.Record) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rec).
		Post(registerPath)
	if err != nil {
		return fmt.Errorf("failed to call register: %w", err)
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return statusError(resp)
	}

	c.logger.Info("registry accepted registration",
		"serial_number", rec.SNumber,
		"status", resp.StatusCode(),
		"response", truncate(resp.String(), 512),
	)
	return nil
}

// Records fetches every submitted record from the getdata endpoint.
func (c *Client) Records(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&records).
		ForceContentType("application/json").
		Get(getDataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call getdata: %w", err)
	}
	if resp.IsError() || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, statusError(resp)
	}
	if records == nil {
		records = []domain.Record{}
	}

	c.logger.Debug("registry returned records", "records", len(records))
	return records, nil
}

func statusError(resp *resty.Response) error {
	return fmt.Errorf("%w %d from %s: %s",
		ErrUnexpectedStatus, resp.StatusCode(), resp.Request.URL, truncate(resp.String(), 256))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
