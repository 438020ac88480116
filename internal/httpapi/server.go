// Package httpapi binds every registered entity to a uniform set of CRUD
// routes over a storage adapter.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noko0413/Railnode/pkg/types"
)

// Server holds the route binding dependencies and registers one route set
// per entity.
type Server struct {
	adapter types.Adapter
	log     *zap.SugaredLogger
	mux     *http.ServeMux
}

// New creates a Server and wires CRUD routes for every entity in the
// registry. Routes are mounted at /api/<storage name>, so entity "Post"
// serves /api/posts.
func New(registry *types.Registry, adapter types.Adapter, log *zap.SugaredLogger) (*Server, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{adapter: adapter, log: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.health)

	for _, schema := range registry.All() {
		name, err := types.StorageName(schema.Name)
		if err != nil {
			return nil, err
		}
		base := "/api/" + name
		s.mux.HandleFunc("GET "+base, s.getAll(schema))
		s.mux.HandleFunc("GET "+base+"/{id}", s.getByID(schema))
		s.mux.HandleFunc("POST "+base, s.create(schema))
		s.mux.HandleFunc("PUT "+base+"/{id}", s.update(schema))
		s.mux.HandleFunc("DELETE "+base+"/{id}", s.del(schema))
		log.Infow("routes bound", "entity", schema.Name, "path", base)
	}
	return s, nil
}

// ServeHTTP makes Server an http.Handler, with request logging around the mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(lw, r)
	s.log.Debugw("request handled",
		"method", r.Method, "path", r.URL.Path, "status", lw.status,
		"duration", time.Since(start))
}

type loggingWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getAll(schema types.EntitySchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := s.adapter.GetCrudStore(schema)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		records, err := store.GetAll(r.Context())
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) getByID(schema types.EntitySchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := s.adapter.GetCrudStore(schema)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		rec, err := store.GetByID(r.Context(), r.PathValue("id"))
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, schema.Name+" not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) create(schema types.EntitySchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := s.readPayload(w, r)
		if !ok {
			return
		}
		sanitized, err := sanitizePayload(schema, payload, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		store, err := s.adapter.GetCrudStore(schema)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		rec, err := store.Create(r.Context(), sanitized)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(schema types.EntitySchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := s.readPayload(w, r)
		if !ok {
			return
		}
		sanitized, err := sanitizePayload(schema, payload, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		store, err := s.adapter.GetCrudStore(schema)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		rec, err := store.Update(r.Context(), r.PathValue("id"), sanitized)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, schema.Name+" not found")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) del(schema types.EntitySchema) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := s.adapter.GetCrudStore(schema)
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		removed, err := store.Delete(r.Context(), r.PathValue("id"))
		if err != nil {
			s.storeFailure(w, schema.Name, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, schema.Name+" not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// readPayload decodes the request body into a JSON object, answering 400 on
// anything that is not one.
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	defer r.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	return payload, true
}

// storeFailure logs the store error and answers 500. The response body
// carries the sanitized store message, never driver internals.
func (s *Server) storeFailure(w http.ResponseWriter, entity string, err error) {
	s.log.Errorw("store operation failed", "entity", entity, "error", err)
	var se *types.StoreError
	if errors.As(err, &se) {
		writeError(w, http.StatusInternalServerError, se.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "storage failure")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
