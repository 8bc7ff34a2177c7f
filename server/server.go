// Package server exposes the converter over HTTP: upload an archive, receive
// the cleaned HTML as a download.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dhcgn/mht-to-html/mht"
	"github.com/dhcgn/mht-to-html/sink"
)

// DefaultMaxUploadBytes bounds a single uploaded archive.
const DefaultMaxUploadBytes = 64 << 20

type Options struct {
	Addr           string
	MaxUploadBytes int64
}

type Server struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{opts: opts, logger: logger}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleForm)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	r.Post("/convert", s.handleConvert)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		s.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("stopped server")
	return nil
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, uploadForm)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}

	name := filepath.Base(header.Filename)
	res, err := mht.Convert(string(raw), name)
	if err != nil {
		s.logger.Warn("conversion failed", "file", name, "requestID", middleware.GetReqID(r.Context()), "err", err)
		if errors.Is(err, mht.ErrMalformedInput) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "conversion failed", http.StatusInternalServerError)
		return
	}

	if err := NewResponseSink(w).Deliver(r.Context(), res.HTML, res.FileName, res.MIMEType); err != nil {
		s.logger.Error("deliver response", "file", name, "err", err)
		return
	}
	s.logger.Info("converted upload", append([]any{"file", name, "output", res.FileName}, res.Report.LogAttrs()...)...)
}

// ResponseSink delivers a document as an HTTP attachment.
type ResponseSink struct {
	w http.ResponseWriter
}

var _ sink.Sink = (*ResponseSink)(nil)

func NewResponseSink(w http.ResponseWriter) *ResponseSink {
	return &ResponseSink{w: w}
}

func (s *ResponseSink) Deliver(_ context.Context, text, fileName, mimeType string) error {
	h := s.w.Header()
	h.Set("Content-Type", mimeType+"; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	s.w.WriteHeader(http.StatusOK)
	_, err := io.WriteString(s.w, text)
	return err
}

const uploadForm = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>MHT to HTML</title></head>
<body>
<h1>MHT to HTML</h1>
<form method="post" action="/convert" enctype="multipart/form-data">
<input type="file" name="file" accept=".mht">
<button type="submit">Convert</button>
</form>
</body>
</html>
`
