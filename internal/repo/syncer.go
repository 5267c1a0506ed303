package repo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/forgemods/modregistry/internal/core"
)

// indexFetcher is the subset of RepositoryClient the Syncer depends on,
// so tests can substitute a stub.
type indexFetcher interface {
	FetchIndex(ctx context.Context, r core.Repository) (*IndexArtifact, error)
}

// Syncer fetches every configured repository's module index concurrently,
// then feeds the combined catalog into a *core.Registry with a single
// SetAllAvailable call. Concurrency lives entirely here — internal/core
// never runs a goroutine, matching its single-writer model (spec §5).
type Syncer struct {
	fetcher      indexFetcher
	repositories map[string]core.Repository
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithFetcher overrides the default repository client, mainly for tests.
func WithFetcher(f indexFetcher) SyncerOption {
	return func(s *Syncer) { s.fetcher = f }
}

// NewSyncer creates a Syncer over the given repository set, keyed by name.
func NewSyncer(repositories map[string]core.Repository, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		fetcher:      NewRepositoryClient(),
		repositories: repositories,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fetchResult struct {
	name    string
	modules []core.CkanModule
	err     error
}

// Sync fetches every repository concurrently and, once all have resolved,
// replaces r's entire available catalog in one SetAllAvailable call. A
// failure fetching or decoding any single repository aborts the whole
// sync — partial catalogs are never applied.
func (s *Syncer) Sync(ctx context.Context, tx *core.Transaction, r *core.Registry) error {
	g, ctx := errgroup.WithContext(ctx)
	results := make(chan fetchResult, len(s.repositories))

	for name, repository := range s.repositories {
		name, repository := name, repository
		g.Go(func() error {
			artifact, err := s.fetcher.FetchIndex(ctx, repository)
			if err != nil {
				results <- fetchResult{name: name, err: fmt.Errorf("repo: syncing %s: %w", name, err)}
				return nil
			}
			defer artifact.Body.Close()

			modules, err := DecodeIndex(artifact.Body)
			if err != nil {
				results <- fetchResult{name: name, err: fmt.Errorf("repo: syncing %s: %w", name, err)}
				return nil
			}
			results <- fetchResult{name: name, modules: modules}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(results)

	var all []core.CkanModule
	for res := range results {
		if res.err != nil {
			return res.err
		}
		all = append(all, res.modules...)
	}

	if err := r.SetAllAvailable(tx, all); err != nil {
		return err
	}
	r.SetRepositories(s.repositories)
	return nil
}
