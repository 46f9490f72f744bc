package web

import (
	"io"
	"net/http/httptest"
	"testing"
)

func TestLivenessRoutes(t *testing.T) {
	app := NewApp()

	for _, path := range []string{"/", "/health"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", path, err)
		}

		if resp.StatusCode != 200 {
			t.Fatalf("unexpected status for %s: %d", path, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("unexpected read error for %s: %v", path, err)
		}

		if string(body) != "OK" {
			t.Fatalf("unexpected body for %s: %q", path, body)
		}
	}
}
