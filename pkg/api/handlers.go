package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adrennan/cordix/pkg/btree"
	"github.com/adrennan/cordix/pkg/storage"
	"github.com/adrennan/cordix/pkg/telemetry"
)

// Server holds the one piece of state every handler needs: the path to
// the index file. No handler holds the file open across requests; each
// opens it, runs one search or traversal, and closes it.
type Server struct {
	indexFile string
	metrics   *telemetry.Metrics
}

// NewServer returns a Server over indexFile, instrumented with m.
func NewServer(indexFile string, m *telemetry.Metrics) *Server {
	return &Server{indexFile: indexFile, metrics: m}
}

// handleHealthz opens the index file and validates its magic without
// performing a search or traversal.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	pager, err := storage.Open(s.indexFile)
	if err != nil {
		sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	pager.Close()
	sendSuccess(w, map[string]string{"status": "ok"})
}

// handleGetKey runs the same search the CLI's search command uses.
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")
	key, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		sendError(w, "key must be a non-negative 64-bit integer", http.StatusBadRequest)
		return
	}

	pager, err := storage.Open(s.indexFile)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	defer pager.Close()
	pager.WithMetrics(s.metrics)

	tree := btree.New(pager).WithMetrics(s.metrics)
	value, found, err := tree.Search(key)
	if err != nil {
		if errors.Is(err, btree.ErrEmptyTree) {
			sendError(w, "index is empty", http.StatusNotFound)
			return
		}
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		sendError(w, "key not found", http.StatusNotFound)
		return
	}
	sendSuccess(w, KeyValue{Key: key, Value: value})
}

// handleListKeys runs a full ascending traversal and returns it as a
// JSON array.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	pager, err := storage.Open(s.indexFile)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	defer pager.Close()
	pager.WithMetrics(s.metrics)

	tree := btree.New(pager).WithMetrics(s.metrics)
	var buf bytes.Buffer
	if err := tree.Traverse(&buf); err != nil {
		if errors.Is(err, btree.ErrEmptyTree) {
			sendSuccess(w, []KeyValue{})
			return
		}
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var pairs []KeyValue
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		key, _ := strconv.ParseUint(parts[0], 10, 64)
		value, _ := strconv.ParseUint(parts[1], 10, 64)
		pairs = append(pairs, KeyValue{Key: key, Value: value})
	}
	sendSuccess(w, pairs)
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sendError(w, "index file does not exist", http.StatusNotFound)
	case errors.Is(err, storage.ErrBadMagic):
		sendError(w, "not a valid index file", http.StatusUnprocessableEntity)
	default:
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}
