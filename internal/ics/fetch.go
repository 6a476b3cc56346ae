package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "rinkcal/internal/log"
)

const defaultFetchTimeout = 15 * time.Second

// Fetcher retrieves raw iCalendar documents for subscribed feeds.
//
// Fetch failures never abort an aggregation cycle; the caller treats a
// returned error as "no events from this source" for the cycle. Each
// cycle attempts each feed exactly once, with no retry.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves a single feed document. Subscription-style webcal://
// addresses are rewritten to https:// before the request is issued.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	if feedURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	url := RewriteWebcal(feedURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	appLog.Debug("feed fetch start", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	appLog.Debug("feed fetch success", "url", url, "bytes", len(body))
	return body, nil
}

// RewriteWebcal converts a webcal:// subscription address into its
// retrievable https:// form. Other schemes pass through unchanged.
func RewriteWebcal(url string) string {
	if strings.HasPrefix(url, "webcal://") {
		return "https://" + strings.TrimPrefix(url, "webcal://")
	}
	return url
}
