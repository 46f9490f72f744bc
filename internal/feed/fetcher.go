package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"

	"planningwatch/internal/domain"
)

const (
	clientTimeout      = 20 * time.Second
	maxFetchRetries    = 2
	retryBaseDelay     = 500 * time.Millisecond
	calendarEnvelope   = "BEGIN:VCALENDAR"
	bodyPreviewMaxLen  = 40
	maxResponseBodyLen = 8 << 20
)

// Fetcher retrieves and normalizes one calendar feed per call. Every
// failure mode (network, non-2xx, non-calendar body, parse error) comes
// back as an error so the caller can skip diffing for the cycle without
// touching the stored snapshot.
type Fetcher struct {
	client *http.Client
	parser *Parser
	log    *slog.Logger
}

func NewFetcher(groups []domain.Group, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: clientTimeout},
		parser: NewParser(groups, log),
		log:    log,
	}
}

// FetchEvents fetches the feed URL and parses it into normalized events.
func (f *Fetcher) FetchEvents(ctx context.Context, url string) ([]domain.Event, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	events, err := f.parser.Parse(body, time.Now())
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return events, nil
}

// fetch retrieves the raw feed body, retrying transient failures
// (network errors, 5xx) with Fibonacci backoff. A body that does not
// start with the calendar envelope marker is rejected without retry.
func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(maxFetchRetries, retry.NewFibonacci(retryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("do request: %w", err))
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				f.log.WarnContext(ctx, "Failed to close response body",
					"error", closeErr,
					"feedURL", url)
			}
		}()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("status %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %s", resp.Status)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read body: %w", err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, calendarEnvelope) {
		preview := trimmed
		if len(preview) > bodyPreviewMaxLen {
			preview = preview[:bodyPreviewMaxLen]
		}

		if title := htmlTitle(body); title != "" {
			return nil, fmt.Errorf("non-calendar body (HTML page %q)", title)
		}

		return nil, fmt.Errorf("non-calendar body (starts with %q)", preview)
	}

	return body, nil
}

// htmlTitle extracts the page title when a feed URL answers with an HTML
// error page instead of a calendar, purely for diagnostics.
func htmlTitle(body []byte) string {
	lowered := bytes.ToLower(body)
	if !bytes.Contains(lowered, []byte("<html")) && !bytes.Contains(lowered, []byte("<!doctype")) {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}
