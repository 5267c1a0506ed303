// Package repo fetches repository module indexes over HTTP and feeds the
// decoded modules into an internal/core.Registry. It owns every piece of
// I/O spec.md carves out as "out of scope" for the registry core (§1):
// network access, retry, and concurrency all live here, never in
// internal/core.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/forgemods/modregistry/internal/core"
)

var (
	// ErrNotFound is returned when a repository index URL 404s.
	ErrNotFound = errors.New("repo: index not found")
	// ErrRateLimited is returned on a 429 from the upstream host.
	ErrRateLimited = errors.New("repo: rate limited by upstream")
	// ErrUpstreamDown is returned on a 5xx from the upstream host, or while
	// that repository's circuit is open.
	ErrUpstreamDown = errors.New("repo: upstream unavailable")
)

// IndexArtifact is the raw response from fetching a repository's module
// index. The caller is responsible for closing Body.
type IndexArtifact struct {
	Body        io.ReadCloser
	Size        int64 // -1 if unknown
	ContentType string
	ETag        string
}

// RepositoryClient fetches repository module indexes, with one circuit
// breaker per repository so a single repository stuck returning errors
// doesn't keep getting hit every sync pass.
//
// A repository sync is periodic rather than user-triggered, so unlike a
// download of a single artifact there is no caller waiting on this
// particular call to eventually succeed: a failed fetch just leaves that
// repository's catalog stale until the next Sync. FetchIndex therefore
// makes exactly one attempt per call and leaves retry cadence to the
// breaker's own backoff-gated recovery, rather than looping with
// exponential backoff inside a single call the way a download of
// something a user is actively waiting on would.
type RepositoryClient struct {
	httpClient *http.Client
	userAgent  string
	breakers   map[string]*circuit.Breaker
	mu         sync.RWMutex
}

// ClientOption configures a RepositoryClient.
type ClientOption func(*RepositoryClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(rc *RepositoryClient) { rc.httpClient = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(rc *RepositoryClient) { rc.userAgent = ua }
}

// NewRepositoryClient dials through a dnscache-backed resolver refreshed
// every five minutes, since a sync pass re-resolves the same handful of
// repository hosts on every run.
func NewRepositoryClient(opts ...ClientOption) *RepositoryClient {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{Timeout: 15 * time.Second}

	rc := &RepositoryClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // an index is JSON, not a multi-gigabyte artifact
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					for _, ip := range ips {
						conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if err == nil {
							return conn, nil
						}
					}
					return nil, fmt.Errorf("repo: failed to dial any resolved IP for %s", host)
				},
			},
		},
		userAgent: "modregistry-sync/1.0",
		breakers:  make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func (rc *RepositoryClient) getBreaker(repositoryName string) *circuit.Breaker {
	rc.mu.RLock()
	breaker, exists := rc.breakers[repositoryName]
	rc.mu.RUnlock()
	if exists {
		return breaker
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if breaker, exists := rc.breakers[repositoryName]; exists {
		return breaker
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(3),
	})
	rc.breakers[repositoryName] = breaker
	return breaker
}

// FetchIndex downloads r's module index through r's circuit breaker. A
// 404 or 429 trips the breaker's failure count the same as a 5xx: none of
// the three indicate a repository worth retrying before its backoff
// elapses.
func (rc *RepositoryClient) FetchIndex(ctx context.Context, r core.Repository) (*IndexArtifact, error) {
	breaker := rc.getBreaker(r.Name)
	if !breaker.Ready() {
		return nil, fmt.Errorf("repo: circuit breaker open for repository %s: %w", r.Name, ErrUpstreamDown)
	}

	var artifact *IndexArtifact
	err := breaker.Call(func() error {
		var fetchErr error
		artifact, fetchErr = rc.doFetch(ctx, r.URL)
		return fetchErr
	}, 0)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (rc *RepositoryClient) doFetch(ctx context.Context, indexURL string) (*IndexArtifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("repo: creating request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repo: fetching index: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		size := int64(-1)
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
				size = n
			}
		}
		return &IndexArtifact{
			Body:        resp.Body,
			Size:        size,
			ContentType: resp.Header.Get("Content-Type"),
			ETag:        resp.Header.Get("ETag"),
		}, nil

	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()
		return nil, ErrRateLimited

	case resp.StatusCode >= 500:
		_ = resp.Body.Close()
		return nil, ErrUpstreamDown

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("repo: unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// BreakerState reports each known repository's circuit state, for health
// checks.
func (rc *RepositoryClient) BreakerState() map[string]string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	states := make(map[string]string, len(rc.breakers))
	for name, breaker := range rc.breakers {
		if breaker.Tripped() {
			states[name] = "open"
		} else {
			states[name] = "closed"
		}
	}
	return states
}
