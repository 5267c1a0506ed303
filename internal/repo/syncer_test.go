package repo

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/forgemods/modregistry/internal/core"
)

type stubFetcher struct {
	byURL map[string]string
	err   error
}

func (s *stubFetcher) FetchIndex(ctx context.Context, r core.Repository) (*IndexArtifact, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.byURL[r.URL]
	if !ok {
		return nil, ErrNotFound
	}
	return &IndexArtifact{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestSyncerMergesRepositories(t *testing.T) {
	repos := map[string]core.Repository{
		"first":  {Name: "first", URL: "https://repo1.example/index.json"},
		"second": {Name: "second", URL: "https://repo2.example/index.json"},
	}
	stub := &stubFetcher{byURL: map[string]string{
		"https://repo1.example/index.json": `[{"identifier":"A","version":"1.0.0"}]`,
		"https://repo2.example/index.json": `[{"identifier":"B","version":"2.0.0"}]`,
	}}

	s := NewSyncer(repos, WithFetcher(stub))
	r := core.NewRegistry()
	tx := core.NewTransaction()

	if err := s.Sync(context.Background(), tx, r); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	tx.Commit()

	ids := r.AvailableIdentifiers()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("AvailableIdentifiers = %v", ids)
	}
}

func TestSyncerAbortsOnFetchFailure(t *testing.T) {
	repos := map[string]core.Repository{
		"broken": {Name: "broken", URL: "https://repo.example/index.json"},
	}
	stub := &stubFetcher{err: errors.New("boom")}

	s := NewSyncer(repos, WithFetcher(stub))
	r := core.NewRegistry()
	tx := core.NewTransaction()

	if err := s.Sync(context.Background(), tx, r); err == nil {
		t.Fatal("expected Sync to fail")
	}
	tx.Rollback()

	if len(r.AvailableIdentifiers()) != 0 {
		t.Errorf("expected no modules applied after a failed sync")
	}
}
