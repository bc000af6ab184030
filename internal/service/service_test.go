package service

import (
	"errors"
	"testing"
	"time"

	"github.com/sagerenn/dictv/internal/dictfile"
	"github.com/sagerenn/dictv/internal/index"
	"github.com/sagerenn/dictv/internal/manager"
	"github.com/sagerenn/dictv/internal/observability"
	"github.com/sagerenn/dictv/internal/search"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mgr, err := manager.New(t.TempDir(), observability.New("error"))
	if err != nil {
		t.Fatal(err)
	}
	entries := []dictfile.Entry{
		{Word: "Haus", Definition: "house, building", Language: "de-en"},
		{Word: "house", Definition: "Haus", Language: "en-de"},
	}
	if err := index.Build(mgr.IndexDir(), entries); err != nil {
		t.Fatal(err)
	}
	return New(mgr, 16, time.Minute)
}

func TestSearchBeforeReload(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Search("haus", search.Exact, search.DeEn, 0, 20)
	if !errors.Is(err, ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
}

func TestSearchAfterReload(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Reload(); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Search("Haus", search.Exact, search.DeEn, 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Word != "haus" {
		t.Fatalf("unexpected results: %+v", res)
	}

	// Second identical query must come from the cache with the same
	// payload.
	again, err := svc.Search("Haus", search.Exact, search.DeEn, 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || again[0].Word != "haus" {
		t.Fatalf("cached results differ: %+v", again)
	}
}

func TestSearchInvalidArgumentNotCached(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Reload(); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Search("haus", search.Fuzzy, search.DeEn, 5, 20)
	if !errors.Is(err, search.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	stats, err := svc.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 2 {
		t.Fatalf("total = %d, want 2", stats.TotalEntries)
	}
}
