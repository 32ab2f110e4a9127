package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pbaille/wts/internal/codec"
	"github.com/pbaille/wts/internal/domain"
	"github.com/pbaille/wts/internal/store"
)

// Server exposes one loaded string file over HTTP.
// The store is not concurrency safe, so every handler runs under mu.
type Server struct {
	mu     sync.Mutex
	file   *store.File
	addr   string
	logger *zap.Logger
}

// New creates a new API server
func New(f *store.File, addr string, logger *zap.Logger) *Server {
	return &Server{file: f, addr: addr, logger: logger}
}

// Handler returns the routed handler with logging and CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Strings
	mux.HandleFunc("GET /strings", s.listStrings)
	mux.HandleFunc("POST /strings", s.addString)
	mux.HandleFunc("GET /strings/{id}", s.getString)
	mux.HandleFunc("PUT /strings/{id}", s.updateString)
	mux.HandleFunc("DELETE /strings/{id}", s.removeString)

	// Classification
	mux.HandleFunc("GET /find", s.find)
	mux.HandleFunc("GET /keys", s.listKeys)

	// Persistence
	mux.HandleFunc("POST /save", s.save)

	mux.HandleFunc("GET /health", s.health)

	return s.withLogging(withCORS(mux))
}

// Run starts the HTTP server
func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("addr", s.addr), zap.String("file", s.file.Path()))
	return http.ListenAndServe(s.addr, s.Handler())
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddStringRequest is the request body for adding a string
type AddStringRequest struct {
	Content string `json:"content"`
	Comment string `json:"comment,omitempty"`
}

// UpdateStringRequest is the request body for replacing a string's content
type UpdateStringRequest struct {
	Content string `json:"content"`
}

func (s *Server) addString(w http.ResponseWriter, r *http.Request) {
	var req AddStringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := codec.CheckContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := codec.CheckComment(req.Comment); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	entry := s.file.Store().Add(req.Content, req.Comment)
	s.mu.Unlock()

	s.logger.Info("string added", zap.Int("id", entry.ID))
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getString(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.file.Store().Get(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) updateString(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateStringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := codec.CheckContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Store().SetContent(id, req.Content); err != nil {
		s.writeStoreError(w, err)
		return
	}
	entry, _ := s.file.Store().Get(id)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) removeString(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Store().Remove(id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.Info("string removed", zap.Int("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listStrings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	s.mu.Lock()
	entries := s.file.Store().Entries()
	nextID := s.file.Store().NextID()
	s.mu.Unlock()

	total := len(entries)
	entries = entries[min(offset, total):]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strings": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"next_id": nextID,
	})
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category, ok := domain.ParseCategory(q.Get("category"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	field, ok := domain.ParseField(q.Get("field"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown field")
		return
	}
	entity := q.Get("entity")
	if entity == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'entity' is required")
		return
	}

	level := 1
	if l := q.Get("level"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "level must be a number")
			return
		}
		level = n
	}

	key := domain.Key{Category: category, Entity: entity, Field: field}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.file.Store().Find(key, level)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "no string for "+key.String())
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	keys := s.file.Store().Keys()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys": keys,
	})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Save(); err != nil {
		s.logger.Error("save failed", zap.String("file", s.file.Path()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("file saved", zap.String("file", s.file.Path()), zap.Int("strings", s.file.Store().Len()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file":    s.file.Path(),
		"strings": s.file.Store().Len(),
	})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrLevelOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("store error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a number")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
