package repo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forgemods/modregistry/internal/core"
)

func TestFetchIndexSuccess(t *testing.T) {
	content := `[{"identifier":"a","version":"1.0.0"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	c := NewRepositoryClient()
	artifact, err := c.FetchIndex(context.Background(), core.Repository{Name: "default", URL: server.URL + "/index.json"})
	if err != nil {
		t.Fatalf("FetchIndex failed: %v", err)
	}
	defer artifact.Body.Close()

	body, err := io.ReadAll(artifact.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(body) != content {
		t.Errorf("body = %q, want %q", string(body), content)
	}
	if states := c.BreakerState(); states["default"] != "closed" {
		t.Errorf("breaker state = %q, want closed", states["default"])
	}
}

func TestFetchIndexNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewRepositoryClient()
	_, err := c.FetchIndex(context.Background(), core.Repository{Name: "default", URL: server.URL + "/missing.json"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("FetchIndex error = %v, want ErrNotFound", err)
	}
}

func TestFetchIndexRateLimitedMakesOneAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewRepositoryClient()
	_, err := c.FetchIndex(context.Background(), core.Repository{Name: "default", URL: server.URL + "/index.json"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("FetchIndex error = %v, want ErrRateLimited", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (a sync retries next pass, not in-call)", attempts)
	}
}

func TestFetchIndexTripsBreakerOnRepeatedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewRepositoryClient()
	repo := core.Repository{Name: "flaky", URL: server.URL + "/index.json"}
	for i := 0; i < 3; i++ {
		_, _ = c.FetchIndex(context.Background(), repo)
	}

	if states := c.BreakerState(); states["flaky"] != "open" {
		t.Errorf("breaker state after repeated failures = %q, want open", states["flaky"])
	}

	_, err := c.FetchIndex(context.Background(), repo)
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("FetchIndex with an open breaker = %v, want ErrUpstreamDown", err)
	}
}

func TestFetchIndexBreakersAreKeyedPerRepository(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer healthy.Close()

	c := NewRepositoryClient()
	for i := 0; i < 3; i++ {
		_, _ = c.FetchIndex(context.Background(), core.Repository{Name: "bad", URL: failing.URL})
	}
	artifact, err := c.FetchIndex(context.Background(), core.Repository{Name: "good", URL: healthy.URL})
	if err != nil {
		t.Fatalf("FetchIndex(good) failed even though only a different repository's breaker tripped: %v", err)
	}
	artifact.Body.Close()
}
