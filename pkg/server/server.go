// Package server exposes the generation pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                 liveness and build information
//	POST /api/v1/generations      CSV body → labeled graph as JSON
//	POST /api/v1/render           CSV body → diagram (?format=svg|png|pdf|dot|json)
//	GET  /api/v1/runs             stored runs (when a store is configured)
//	GET  /api/v1/runs/{id}        one stored graph as JSON
//	DELETE /api/v1/runs/{id}      remove a stored run
//
// Assignment and render options are passed as query parameters:
// reconcile, require_parents, refresh, detailed, unassigned. POST
// /api/v1/generations also accepts save=true to persist the run.
//
// Errors are JSON objects with a machine-readable code:
//
//	{"error": {"code": "NO_ANCHOR", "message": "..."}}
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/lineage/pkg/buildinfo"
	"github.com/matzehuels/lineage/pkg/config"
	errs "github.com/matzehuels/lineage/pkg/errors"
	pkgio "github.com/matzehuels/lineage/pkg/io"
	"github.com/matzehuels/lineage/pkg/observability"
	"github.com/matzehuels/lineage/pkg/pipeline"
	"github.com/matzehuels/lineage/pkg/store/sqlite"
)

// MaxBodyBytes bounds uploaded CSV bodies.
const MaxBodyBytes = 10 << 20

// Content types per output format.
var contentTypes = map[string]string{
	config.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	config.FormatSVG:  "image/svg+xml",
	config.FormatPNG:  "image/png",
	config.FormatPDF:  "application/pdf",
	config.FormatJSON: "application/json",
}

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	store    *sqlite.Store
	defaults pipeline.Options
	logger   *log.Logger
}

// New creates a server. store may be nil, in which case the runs endpoints
// respond 501 and save=true is rejected. defaults seeds the options of
// every request before query parameters are applied.
func New(runner *pipeline.Runner, store *sqlite.Store, defaults pipeline.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: store, defaults: defaults, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/generations", s.handleGenerations)
		r.Post("/render", s.handleRender)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Delete("/{id}", s.handleDeleteRun)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", dur)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	if save && s.store == nil {
		s.writeError(w, errs.New(errs.ErrCodeUnsupported, "no store configured"))
		return
	}
	opts.Formats = []string{config.FormatJSON}

	res, ok := s.execute(w, r, opts)
	if !ok {
		return
	}
	if save {
		anchor := res.Anchor
		if err := s.store.Save(r.Context(), res.RunID, opts.Source, res.Graph, &anchor); err != nil {
			s.writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "save run"))
			return
		}
	}
	writeBytes(w, http.StatusOK, contentTypes[config.FormatJSON], res.RunID, res.Artifacts[config.FormatJSON])
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = config.FormatSVG
	}
	opts.Formats = []string{format}

	res, ok := s.execute(w, r, opts)
	if !ok {
		return
	}
	writeBytes(w, http.StatusOK, contentTypes[format], res.RunID, res.Artifacts[format])
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, opts pipeline.Options) (*pipeline.Result, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "read body"))
		return nil, false
	}

	res, err := s.runner.Execute(r.Context(), body, opts)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrCodeUnsupported, "no store configured"))
		return
	}
	runs, err := s.store.Runs(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	type runJSON struct {
		ID         string    `json:"id"`
		Source     string    `json:"source"`
		Anchor     *int      `json:"anchor,omitempty"`
		People     int       `json:"people"`
		Unresolved int       `json:"unresolved"`
		CreatedAt  time.Time `json:"created_at"`
	}
	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = runJSON(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrCodeUnsupported, "no store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.store.Run(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	g, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[config.FormatJSON])
	w.Header().Set("X-Run-ID", id)
	if err := pkgio.WriteJSON(g, pkgio.Meta{RunID: id, Anchor: run.Anchor}, w); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrCodeUnsupported, "no store configured"))
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// options applies query parameters on top of the server defaults.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.Formats = nil
	opts.Source = "api:" + middleware.GetReqID(r.Context())

	q := r.URL.Query()
	if v := q.Get("reconcile"); v != "" {
		opts.Reconcile = v
	}
	if v := q.Get("unassigned"); v != "" {
		opts.Unassigned = v
	}
	for name, dst := range map[string]*bool{
		"require_parents": &opts.RequireParents,
		"refresh":         &opts.Refresh,
		"detailed":        &opts.Detailed,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errs.Wrap(errs.ErrCodeInvalidInput, err, "query parameter %s", name)
		}
		*dst = b
	}
	return opts, nil
}

type errorBody struct {
	Error struct {
		Code    errs.Code `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	var body errorBody
	body.Error.Code = errs.GetCode(err)
	if body.Error.Code == "" {
		body.Error.Code = errs.ErrCodeInternal
	}
	body.Error.Message = errs.UserMessage(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBytes(w http.ResponseWriter, status int, contentType, runID string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
