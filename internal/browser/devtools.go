// ABOUTME: Chrome remote-debugging backed Tabs using go-resty
// ABOUTME: Lists page targets from /json/list and opens tabs with PUT /json/new

package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// devtoolsTarget is one entry of the /json/list response.
type devtoolsTarget struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// DevTools talks to a browser started with --remote-debugging-port. The
// endpoint does not expose incognito targets, so every document it reports
// is non-private.
type DevTools struct {
	// client retries; it only serves idempotent reads.
	client *resty.Client
	// opener never retries. A PUT that times out may still have opened the
	// tab, and a retry would open it again.
	opener *resty.Client
	logger *slog.Logger
}

// NewDevTools creates a client for the endpoint at baseURL
// (e.g. http://127.0.0.1:9222).
func NewDevTools(baseURL string, timeout time.Duration, logger *slog.Logger) *DevTools {
	if logger == nil {
		logger = slog.Default()
	}
	newClient := func() *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "tabsaver/1.0")
	}

	return &DevTools{
		client: newClient().
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
			}),
		opener: newClient(),
		logger: logger.With("component", "devtools"),
	}
}

// QueryOpenDocuments returns page targets in the order the browser lists them.
func (d *DevTools) QueryOpenDocuments(ctx context.Context) ([]Document, error) {
	var targets []devtoolsTarget
	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(&targets).
		Get("/json/list")
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing targets: status %d", resp.StatusCode())
	}

	docs := make([]Document, 0, len(targets))
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		docs = append(docs, Document{Location: t.URL})
	}
	return docs, nil
}

// OpenWindow opens each location as a new target. The endpoint has no
// notion of windows, so tabs land in the browser's current window.
func (d *DevTools) OpenWindow(ctx context.Context, locations []string, focused bool) error {
	for _, loc := range locations {
		resp, err := d.opener.R().
			SetContext(ctx).
			Put("/json/new?" + url.QueryEscape(loc))
		if err != nil {
			return fmt.Errorf("opening %s: %w", loc, err)
		}
		if resp.IsError() {
			return fmt.Errorf("opening %s: status %d", loc, resp.StatusCode())
		}
	}
	d.logger.Info("opened tabs", "tabs", len(locations), "focused", focused)
	return nil
}
