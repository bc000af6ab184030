package httpx

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sagerenn/dictv/internal/observability"
	"github.com/sagerenn/dictv/internal/search"
	"github.com/sagerenn/dictv/internal/service"
)

type Router struct {
	svc *service.Service
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type searchResponse struct {
	Query        string          `json:"query"`
	Results      []search.Result `json:"results"`
	TotalResults int             `json:"total_results"`
	QueryTimeMs  int64           `json:"query_time_ms"`
}

type statsResponse struct {
	TotalEntries   int   `json:"total_entries"`
	EnDeEntries    int   `json:"en_de_entries"`
	DeEnEntries    int   `json:"de_en_entries"`
	IndexSizeBytes int64 `json:"index_size_bytes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewRouter(svc *service.Service, log *observability.Logger) http.Handler {
	r := &Router{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", r.handleHealth)
	mux.HandleFunc("/search", r.handleSearch)
	mux.HandleFunc("/stats", r.handleStats)
	mux.Handle("/debug/vars", expvar.Handler())

	h := observability.RequestIDMiddleware(mux)
	h = observability.RecoveryMiddleware(log)(h)
	h = observability.LoggingMiddleware(log)(h)
	return h
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	params := req.URL.Query()

	query := strings.TrimSpace(params.Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing q"})
		return
	}

	mode := search.Fuzzy
	if s := params.Get("mode"); s != "" {
		var err error
		if mode, err = search.ParseMode(s); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	lang := search.DeEn
	if s := params.Get("lang"); s != "" {
		var err error
		if lang, err = search.ParseLanguage(s); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	maxDistance := search.MaxDistance
	if s := params.Get("max_distance"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "max_distance is not a number"})
			return
		}
		maxDistance = n
	}

	limit := observability.ParseLimit(params.Get("limit"), 20)

	start := time.Now()
	results, err := r.svc.Search(query, mode, lang, maxDistance, limit)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrNoIndex):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "search failed"})
		}
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:        query,
		Results:      results,
		TotalResults: len(results),
		QueryTimeMs:  time.Since(start).Milliseconds(),
	})
}

func (r *Router) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := r.svc.Stats()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalEntries:   stats.TotalEntries,
		EnDeEntries:    stats.ByLanguage["en-de"],
		DeEnEntries:    stats.ByLanguage["de-en"],
		IndexSizeBytes: stats.IndexSizeBytes,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}
