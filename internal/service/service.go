// Package service sits between the HTTP layer and the search engine. It
// owns the currently opened index, memoizes query results and exposes
// store statistics.
package service

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sagerenn/dictv/internal/cache"
	"github.com/sagerenn/dictv/internal/index"
	"github.com/sagerenn/dictv/internal/manager"
	"github.com/sagerenn/dictv/internal/observability"
	"github.com/sagerenn/dictv/internal/search"
)

// ErrNoIndex reports that no index has been built yet.
var ErrNoIndex = errors.New("no index available, run an import first")

type Service struct {
	mgr   *manager.Manager
	cache *cache.Cache[[]search.Result]

	mu  sync.RWMutex
	eng *search.Engine
}

func New(mgr *manager.Manager, cacheSize int, cacheTTL time.Duration) *Service {
	return &Service{
		mgr:   mgr,
		cache: cache.New[[]search.Result](cacheSize, cacheTTL),
	}
}

// Reload opens the index snapshot from disk and swaps it in, dropping any
// cached results. index.ErrNotFound is passed through when no snapshot
// exists yet.
func (s *Service) Reload() error {
	ix, err := index.Open(s.mgr.IndexDir())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.eng = search.New(ix)
	s.mu.Unlock()
	s.cache.Purge()
	return nil
}

func (s *Service) engine() *search.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng
}

func (s *Service) Search(query string, mode search.Mode, lang search.Language, maxDistance, limit int) ([]search.Result, error) {
	eng := s.engine()
	if eng == nil {
		return nil, ErrNoIndex
	}
	key := makeKey(query, mode, lang, maxDistance, limit)
	if res, ok := s.cache.Get(key); ok {
		observability.SearchCacheHits.Add(1)
		return res, nil
	}
	res, err := eng.Search(query, mode, lang, maxDistance, limit)
	if err != nil {
		return nil, err
	}
	observability.SearchesByMode.Add(string(mode), 1)
	s.cache.Set(key, res)
	return res, nil
}

func (s *Service) Stats() (manager.Stats, error) {
	return s.mgr.Stats()
}

func makeKey(q string, mode search.Mode, lang search.Language, maxDistance, limit int) string {
	return strings.Join([]string{
		string(mode),
		string(lang),
		q,
		strconv.Itoa(maxDistance),
		strconv.Itoa(limit),
	}, "|")
}
