package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"triage/internal/api"
	"triage/internal/faults"
	"triage/internal/logging"
	"triage/internal/media"
	"triage/internal/mover"
	"triage/internal/records"
	"triage/internal/session"
)

const (
	defaultPreviewLimit = 64 * 1024
	maxPreviewLimit     = 8 * 1024 * 1024
	maxBodyBytes        = 64 * 1024
	shutdownTimeout     = 10 * time.Second
)

// Reviewer is the session surface served over HTTP.
type Reviewer interface {
	ID() string
	InitializeScan(ctx context.Context) (session.ScanSummary, error)
	Resume(ctx context.Context) (session.ScanSummary, error)
	NextFile(ctx context.Context) (*records.FileRecord, error)
	HostPath(location string) string
	Keep(ctx context.Context, path string) error
	Skip(ctx context.Context, path string) error
	Reject(ctx context.Context, path string) mover.Result
	Restore(ctx context.Context, original, deleted string) mover.Result
	PermanentlyDelete(ctx context.Context, deleted string) mover.Result
	Stats(ctx context.Context) (records.Stats, error)
	StatsByType(ctx context.Context) (map[media.Type]records.Stats, error)
	Pending(ctx context.Context) []records.FileRecord
	FilesByStatus(ctx context.Context, status records.Status) ([]records.FileRecord, error)
	RejectedFiles(ctx context.Context) []records.RejectedRecord
	RejectionHistory(ctx context.Context) []records.RejectedRecord
	ExportRejected(ctx context.Context, w io.Writer) (int, error)
	Preview(ctx context.Context, path string, limit int64) ([]byte, error)
}

// Server is the local HTTP surface.
type Server struct {
	reviewer   Reviewer
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New builds a server bound to addr.
func New(addr string, reviewer Reviewer, logger *slog.Logger) *Server {
	s := &Server{
		reviewer: reviewer,
		logger:   logging.NewComponentLogger(logger, "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Use(rejectCrossSite)
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/scan", s.handleScan)
		r.Get("/next", s.handleNext)
		r.Post("/keep", s.handleKeep)
		r.Post("/skip", s.handleSkip)
		r.Post("/reject", s.handleReject)
		r.Post("/restore", s.handleRestore)
		r.Post("/purge", s.handlePurge)
		r.Get("/stats", s.handleStats)
		r.Get("/pending", s.handlePending)
		r.Get("/rejected", s.handleRejected)
		r.Get("/rejected/export", s.handleExport)
		r.Get("/preview", s.handlePreview)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// In-flight requests outlive ctx until Shutdown returns.
	base := logging.WithSessionID(context.WithoutCancel(ctx), s.reviewer.ID())
	s.httpServer.BaseContext = func(net.Listener) context.Context { return base }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	build := s.reviewer.InitializeScan
	if r.URL.Query().Get("mode") == "resume" {
		build = s.reviewer.Resume
	}
	summary, err := build(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ScanResponse{
		Count:           summary.Count,
		Scanned:         summary.Scanned,
		AlreadyReviewed: summary.AlreadyReviewed,
		Carried:         summary.Carried,
		SkippedRoots:    summary.SkippedRoots,
		ElapsedMillis:   summary.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	rec, err := s.reviewer.NextFile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := api.NextResponse{}
	if rec != nil {
		item := api.FromFileRecord(rec, s.reviewer.HostPath(rec.Filepath))
		resp.File = &item
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleKeep(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.reviewer.Keep)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.reviewer.Skip)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) error) {
	var req api.PathRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := fn(r.Context(), req.Path); err != nil {
		resp := api.FromError(err)
		writeJSON(w, statusForKind(faults.Classify(err)), resp)
		return
	}
	writeJSON(w, http.StatusOK, api.FromError(nil))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req api.PathRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeMove(w, s.reviewer.Reject(r.Context(), req.Path))
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req api.RestoreRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeMove(w, s.reviewer.Restore(r.Context(), req.OriginalPath, req.DeletedPath))
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req api.PathRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeMove(w, s.reviewer.PermanentlyDelete(r.Context(), req.Path))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.reviewer.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	byType, err := s.reviewer.StatsByType(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromStatsByType(total, byType))
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		writeJSON(w, http.StatusOK, api.FileListResponse{Items: api.FromFileRecords(s.reviewer.Pending(r.Context()))})
		return
	}
	files, err := s.reviewer.FilesByStatus(r.Context(), records.Status(status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FileListResponse{Items: api.FromFileRecords(files)})
}

func (s *Server) handleRejected(w http.ResponseWriter, r *http.Request) {
	list := s.reviewer.RejectedFiles
	if all, _ := strconv.ParseBool(r.URL.Query().Get("all")); all {
		list = s.reviewer.RejectionHistory
	}
	writeJSON(w, http.StatusOK, api.RejectedListResponse{Items: api.FromRejectedRecords(list(r.Context()))})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rejected.txt"`)
	if _, err := s.reviewer.ExportRejected(r.Context(), w); err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "export interrupted", "export_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "client received a partial export"),
		)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, r, faults.Wrap(faults.ErrValidation, "httpapi", "preview", "path query parameter is required", nil))
		return
	}
	limit := int64(defaultPreviewLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			s.writeError(w, r, faults.Wrap(faults.ErrValidation, "httpapi", "preview", "limit must be a positive integer", err))
			return
		}
		limit = min(parsed, maxPreviewLimit)
	}
	data, err := s.reviewer.Preview(r.Context(), path, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, faults.Wrap(faults.ErrValidation, "httpapi", "decode request", "invalid JSON body", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := faults.Classify(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "http_request_failed",
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(err),
		)
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error(), ErrorKind: string(kind)})
}

func writeMove(w http.ResponseWriter, res mover.Result) {
	status := http.StatusOK
	if !res.Success {
		status = statusForKind(res.Kind)
	}
	writeJSON(w, status, api.FromMoveResult(res))
}

func statusForKind(kind faults.Kind) int {
	switch kind {
	case faults.KindNone:
		return http.StatusOK
	case faults.KindValidation:
		return http.StatusBadRequest
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindPermissionDenied:
		return http.StatusForbidden
	case faults.KindBusy:
		return http.StatusConflict
	case faults.KindNoSpace:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
