// Package server exposes rendered noise maps over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/atlas"
	"github.com/google/uuid"
)

// MapGenerator renders a recipe for a seed into PNG bytes.
type MapGenerator interface {
	Generate(ctx context.Context, recipe string, seed int64) ([]byte, error)
	Has(recipe string) bool
}

// MapStore returns pre-rendered maps. Misses are reported as atlas.ErrNotFound
// or an error matching fs.ErrNotExist.
type MapStore interface {
	ReadMap(recipe string, seed int64) ([]byte, error)
}

// SeedLister is implemented by stores that can enumerate their maps.
type SeedLister interface {
	Seeds(recipe string) ([]int64, error)
}

// MetadataSource is implemented by stores that describe their contents.
type MetadataSource interface {
	Metadata() (atlas.Metadata, error)
}

type MapsConfig struct {
	CacheControl             string
	MaxConcurrentGenerations int
	GenerationTimeout        time.Duration
	GenerateMissing          bool
}

// Maps serves /maps/{recipe}/{seed}.png, from the store when it has the map
// and from the generator otherwise.
type Maps struct {
	gen    MapGenerator
	store  MapStore
	logger *slog.Logger
	sem    chan struct{}
	cfg    MapsConfig

	activeRenders atomic.Int32
	queuedRenders atomic.Int32
	totalRendered atomic.Int64
	totalFailed   atomic.Int64
	storeHits     atomic.Int64
}

// Status is the JSON body of the status endpoint.
type Status struct {
	ActiveRenders int   `json:"active_renders"`
	QueuedRenders int   `json:"queued_renders"`
	TotalRendered int64 `json:"total_rendered"`
	TotalFailed   int64 `json:"total_failed"`
	StoreHits     int64 `json:"store_hits"`
	MaxConcurrent int   `json:"max_concurrent"`

	Atlas *atlas.Metadata `json:"atlas,omitempty"`
}

// SeedList is the JSON body of GET /maps/{recipe}/.
type SeedList struct {
	Recipe string  `json:"recipe"`
	Seeds  []int64 `json:"seeds"`
}

// NewMaps creates the handler. gen and store may each be nil, but not both.
func NewMaps(gen MapGenerator, store MapStore, cfg MapsConfig, logger *slog.Logger) (*Maps, error) {
	if gen == nil && store == nil {
		return nil, errors.New("maps handler needs a generator or a store")
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	return &Maps{
		gen:    gen,
		store:  store,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentGenerations),
	}, nil
}

func (m *Maps) Handler() http.Handler {
	return http.HandlerFunc(m.serveMap)
}

// Status returns the current render counters and, for stores that have it,
// the store metadata.
func (m *Maps) Status() Status {
	st := Status{
		ActiveRenders: int(m.activeRenders.Load()),
		QueuedRenders: int(m.queuedRenders.Load()),
		TotalRendered: m.totalRendered.Load(),
		TotalFailed:   m.totalFailed.Load(),
		StoreHits:     m.storeHits.Load(),
		MaxConcurrent: m.cfg.MaxConcurrentGenerations,
	}
	if src, ok := m.store.(MetadataSource); ok {
		meta, err := src.Metadata()
		if err != nil {
			m.log().Warn("Failed to read store metadata", "error", err)
		} else {
			st.Atlas = &meta
		}
	}
	return st
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (m *Maps) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(m.Status()); err != nil {
			m.log().Error("Failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
}

func (m *Maps) serveMap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if recipe, ok := parseListPath(r.URL.Path); ok {
		m.listSeeds(w, recipe)
		return
	}

	recipe, seed, ok := parseMapPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	name := fmt.Sprintf("%s/%d.png", recipe, seed)
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	logger := m.log().With("request_id", reqID, "map", name)

	if m.store != nil {
		data, err := m.store.ReadMap(recipe, seed)
		switch {
		case err == nil:
			m.storeHits.Add(1)
			m.writePNG(w, data)
			return
		case !isMiss(err):
			logger.Error("Failed to read map", "error", err)
			http.Error(w, "failed to read map", http.StatusInternalServerError)
			return
		}
	}

	if m.gen == nil || !m.cfg.GenerateMissing || !m.gen.Has(recipe) {
		http.Error(w, fmt.Sprintf("map not found: %s", name), http.StatusNotFound)
		return
	}

	m.queuedRenders.Add(1)
	select {
	case m.sem <- struct{}{}:
		m.queuedRenders.Add(-1)
		defer func() { <-m.sem }()
	case <-r.Context().Done():
		m.queuedRenders.Add(-1)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	m.activeRenders.Add(1)
	data, err := m.gen.Generate(ctx, recipe, seed)
	m.activeRenders.Add(-1)

	if err != nil {
		m.totalFailed.Add(1)
		logger.Error("Failed to generate map", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, fmt.Sprintf("failed to generate map %s: %v", name, err), status)
		return
	}
	m.totalRendered.Add(1)
	logger.Info("Map generated on-demand", "ms", time.Since(start).Milliseconds())

	m.writePNG(w, data)
}

func (m *Maps) listSeeds(w http.ResponseWriter, recipe string) {
	lister, ok := m.store.(SeedLister)
	if !ok {
		http.Error(w, "map store cannot list seeds", http.StatusNotFound)
		return
	}
	seeds, err := lister.Seeds(recipe)
	if err != nil {
		m.log().Error("Failed to list seeds", "recipe", recipe, "error", err)
		http.Error(w, "failed to list seeds", http.StatusInternalServerError)
		return
	}
	if seeds == nil {
		seeds = []int64{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(SeedList{Recipe: recipe, Seeds: seeds}); err != nil {
		m.log().Error("Failed to encode seed list", "error", err)
	}
}

func (m *Maps) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Cache-Control", m.cfg.CacheControl)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		m.log().Error("Failed to write response", "error", err)
	}
}

func (m *Maps) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

func isMiss(err error) bool {
	return errors.Is(err, atlas.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// parseListPath parses a path like /maps/islands/.
func parseListPath(requestPath string) (string, bool) {
	rest, ok := strings.CutPrefix(requestPath, "/maps/")
	if !ok {
		return "", false
	}
	recipe, ok := strings.CutSuffix(rest, "/")
	if !ok || recipe == "" || strings.Contains(recipe, "/") {
		return "", false
	}
	return recipe, true
}

// parseMapPath parses a path like /maps/islands/42.png.
func parseMapPath(requestPath string) (string, int64, bool) {
	rest, ok := strings.CutPrefix(requestPath, "/maps/")
	if !ok {
		return "", 0, false
	}
	recipe, file, ok := strings.Cut(rest, "/")
	if !ok || recipe == "" || strings.Contains(file, "/") {
		return "", 0, false
	}
	if path.Ext(file) != ".png" {
		return "", 0, false
	}
	seed, err := strconv.ParseInt(strings.TrimSuffix(file, ".png"), 10, 64)
	if err != nil {
		return "", 0, false
	}
	return recipe, seed, true
}
