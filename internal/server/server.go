// Package server exposes the reconciliation as a small upload service: a
// form page, a processing endpoint taking the two workbooks, and a download
// route for the produced artifact.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/engine"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Reconciler runs one reconciliation. *engine.Engine implements it.
type Reconciler interface {
	Reconcile(ctx context.Context, ledgerPath, statementPath, outPath string) (*engine.Summary, error)
}

// Config holds the server's settings.
type Config struct {
	Addr       string
	UploadDir  string
	ResultsDir string
	// OutputName is the artifact filename inside ResultsDir.
	OutputName string
	// MaxUploadBytes bounds the whole multipart body.
	MaxUploadBytes int64
	// ProcessTimeout bounds one reconciliation run.
	ProcessTimeout time.Duration
}

// DefaultServerConfig returns the standard server settings.
func DefaultServerConfig() Config {
	return Config{
		Addr:           ":5000",
		UploadDir:      "uploads",
		ResultsDir:     "results",
		OutputName:     "mieten_abgleich.xlsx",
		MaxUploadBytes: 32 << 20,
		ProcessTimeout: 2 * time.Minute,
	}
}

// Server wires the HTTP surface around a Reconciler.
type Server struct {
	http.Server

	cfg       Config
	rec       Reconciler
	logger    *slog.Logger
	templates *template.Template
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(cfg Config, rec Reconciler, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{cfg.UploadDir, cfg.ResultsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:       cfg,
		rec:       rec,
		logger:    logger,
		templates: t,
	}

	mux.HandleFunc("GET /{$}", s.withLogging(s.handleIndex))
	mux.HandleFunc("POST /process", s.withLogging(s.handleProcess))
	mux.HandleFunc("GET /results/{file}", s.withLogging(s.handleDownload))
	mux.HandleFunc("GET /healthz", handleHealth)

	return s, nil
}

// withLogging records method, path, status and duration for each request.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)
		s.logger.Info("request completed",
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		s.logger.Error("template execution failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// processResponse mirrors the JSON shape clients already depend on.
type processResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Download string `json:"download,omitempty"`
	Posted   int    `json:"posted,omitempty"`
	Dupes    int    `json:"duplicates,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, processResponse{
			Status:  "error",
			Message: "Bitte Excel (Mieter) und Excel (Kontoauszug) hochladen.",
		})
		return
	}

	ledgerPath, err := s.saveUpload(r, "excel")
	if err == nil {
		var konto string
		konto, err = s.saveUpload(r, "konto")
		if err == nil {
			s.process(w, r, ledgerPath, konto)
			return
		}
	}
	s.logger.Warn("upload rejected", "error", err)
	writeJSON(w, http.StatusBadRequest, processResponse{
		Status:  "error",
		Message: "Bitte Excel (Mieter) und Excel (Kontoauszug) hochladen.",
	})
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, ledgerPath, statementPath string) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ProcessTimeout)
	defer cancel()

	outPath := filepath.Join(s.cfg.ResultsDir, s.cfg.OutputName)
	summary, err := s.rec.Reconcile(ctx, ledgerPath, statementPath, outPath)
	if err != nil {
		s.logger.Error("reconciliation failed", "error", err)
		msg := "Verarbeitung fehlgeschlagen."
		var uerr *common.UserError
		if errors.As(err, &uerr) {
			msg = uerr.UserMessage
		}
		writeJSON(w, http.StatusInternalServerError, processResponse{Status: "error", Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Status:   "ok",
		Message:  "Mietabgleich abgeschlossen",
		Download: "/results/" + s.cfg.OutputName,
		Posted:   summary.Posted,
		Dupes:    summary.Duplicates,
	})
}

// saveUpload stores one multipart file under UploadDir, using only the base
// of the client-supplied name.
func (s *Server) saveUpload(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing file field %q: %w", field, err)
	}
	defer func() { _ = file.Close() }()

	name := sanitizeFilename(header)
	if name == "" {
		return "", fmt.Errorf("invalid filename in field %q", field)
	}
	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer func() { _ = dst.Close() }()
	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

func sanitizeFilename(header *multipart.FileHeader) string {
	name := filepath.Base(filepath.Clean(header.Filename))
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name != filepath.Base(name) || name == "" || name == "." || name == ".." {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.ResultsDir, name)
	if _, err := os.Stat(path); err != nil {
		writeJSON(w, http.StatusNotFound, processResponse{Status: "error", Message: "Datei nicht gefunden"})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
