package main

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/middleware"
	"chatting-demo-backend/internal/store"

	"github.com/rs/zerolog"
)

// nodeReader is the read side of the document store the viewer needs.
type nodeReader interface {
	Get(ctx context.Context, path string) (interface{}, error)
	Roots(ctx context.Context) ([]string, error)
}

type viewer struct {
	nodes   nodeReader
	backend string
	logger  zerolog.Logger
}

func newViewer(nodes nodeReader, backend string, logger zerolog.Logger) *viewer {
	return &viewer{nodes: nodes, backend: backend, logger: logger}
}

func (v *viewer) routes() http.Handler {
	mux := http.NewServeMux()
	logging := middleware.Logging(v.logger)

	mux.HandleFunc("/api/health", logging(func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	mux.HandleFunc("/api/config", logging(v.handleConfig))
	mux.HandleFunc("/api/roots", logging(v.handleRoots))
	mux.HandleFunc("/api/tree", logging(v.handleTree))
	return mux
}

func (v *viewer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorWithStatus(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"backend": v.backend})
}

func (v *viewer) handleRoots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorWithStatus(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	roots, err := v.nodes.Roots(r.Context())
	if err != nil {
		v.logger.Error().Err(err).Msg("list roots failed")
		writeErrorWithStatus(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Strings(roots)
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"roots": roots})
}

// handleTree returns the subtree at ?path=. Without a path it returns every
// root keyed by name.
func (v *viewer) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorWithStatus(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" || path == "/" {
		tree, err := v.wholeTree(r.Context())
		if err != nil {
			v.logger.Error().Err(err).Msg("load tree failed")
			writeErrorWithStatus(w, http.StatusInternalServerError, err.Error())
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]interface{}{"path": "/", "value": tree})
		return
	}

	value, err := v.nodes.Get(r.Context(), path)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErrorWithStatus(w, http.StatusNotFound, "no node at "+path)
	case errors.Is(err, store.ErrInvalidPath):
		writeErrorWithStatus(w, http.StatusBadRequest, err.Error())
	case err != nil:
		v.logger.Error().Err(err).Str("path", path).Msg("load node failed")
		writeErrorWithStatus(w, http.StatusInternalServerError, err.Error())
	default:
		api.WriteJSON(w, http.StatusOK, map[string]interface{}{"path": path, "value": value})
	}
}

func (v *viewer) wholeTree(ctx context.Context) (map[string]interface{}, error) {
	roots, err := v.nodes.Roots(ctx)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]interface{}, len(roots))
	for _, root := range roots {
		value, err := v.nodes.Get(ctx, root)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tree[root] = value
	}
	return tree, nil
}

func writeErrorWithStatus(w http.ResponseWriter, status int, message string) {
	api.WriteJSON(w, status, map[string]string{"error": message})
}
