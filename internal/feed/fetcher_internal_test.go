package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestFetchEventsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleCalendar))
	}))
	defer srv.Close()

	fetcher := NewFetcher(testGroups(), slog.Default())

	events, err := fetcher.FetchEvents(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestFetchEventsRejectsNonCalendarBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Maintenance</title></head><body>down</body></html>"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(testGroups(), slog.Default())

	_, err := fetcher.FetchEvents(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected error for non-calendar body")
	}

	if !strings.Contains(err.Error(), "Maintenance") {
		t.Fatalf("expected HTML title in diagnostic, got %v", err)
	}
}

func TestFetchEventsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte(sampleCalendar))
	}))
	defer srv.Close()

	fetcher := NewFetcher(testGroups(), slog.Default())

	if _, err := fetcher.FetchEvents(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestFetchEventsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := NewFetcher(testGroups(), slog.Default())

	if _, err := fetcher.FetchEvents(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for 404")
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single request for a 404, got %d", got)
	}
}

func TestHTMLTitleNonHTMLBody(t *testing.T) {
	if got := htmlTitle([]byte("plain text")); got != "" {
		t.Fatalf("expected empty title for non-HTML body, got %q", got)
	}
}
