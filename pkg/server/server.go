// Package server is a reference implementation of the diagram storage
// endpoints. It stores records in any [store.Store] and never generates
// plans; point the sync client at it for development and tests.
//
// Routes (trailing slashes optional):
//
//	POST  /api/diagrams/       create, 201 with the stored record
//	GET   /api/diagrams/{id}/  fetch
//	PATCH /api/diagrams/{id}/  replace spec, honours X-Diagram-Revision
//	GET   /healthz             liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/remote"
	"github.com/matzehuels/planmap/pkg/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 5 * time.Second

// Server serves diagram records from a store.
type Server struct {
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a server over st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:  st,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	r.Route("/api/diagrams", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Patch("/{id}", s.handlePatch)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type createRequest struct {
	diagram.Params
	Spec *diagram.Document `json:"spec"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	p := req.Params.Normalize()
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: perrors.UserMessage(err)})
		return
	}
	if req.Spec == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "spec is required"})
		return
	}
	if err := req.Spec.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: perrors.UserMessage(err)})
		return
	}

	rec, err := s.store.Create(r.Context(), p, *req.Spec)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.logger.Debug("diagram created", "id", rec.ID, "nodes", len(rec.Spec.NodeDataArray))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type patchRequest struct {
	Spec *diagram.Document `json:"spec"`
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	rev, err := revision(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}
	var req patchRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error()})
		return
	}
	if req.Spec == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "spec is required"})
		return
	}
	if err := req.Spec.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: perrors.UserMessage(err)})
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.Update(r.Context(), id, *req.Spec, rev)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.logger.Debug("diagram patched", "id", id, "revision", rec.Revision)
	writeJSON(w, http.StatusOK, rec)
}

// revision reads the optional revision header. Absent means 0.
func revision(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get(remote.RevisionHeader))
	if v == "" {
		return 0, nil
	}
	rev, err := strconv.ParseInt(v, 10, 64)
	if err != nil || rev < 0 {
		return 0, errors.New("invalid " + remote.RevisionHeader + " header")
	}
	return rev, nil
}

// errorBody mirrors the collaborator's error shapes: {"error"} for
// creation, {"detail"} for record routes.
type errorBody struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case perrors.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not found."})
	case perrors.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorBody{Detail: "A newer revision of this diagram exists."})
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("store failure", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal server error."})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs one line per request at debug level, errors at warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	})
}
