package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"lectorgastos/internal/config"
	"lectorgastos/internal/pipeline"
	"lectorgastos/internal/storage"
)

const (
	serviceName   = "lector-gastos"
	sessionHeader = "X-Session-Id"
	uploadField   = "documento"
	routePrefix   = "/api/documentos"
)

type Server struct {
	db        *storage.DB
	processor *pipeline.Processor
	cfg       config.Config
	log       zerolog.Logger
	now       func() time.Time
}

func NewServer(db *storage.DB, processor *pipeline.Processor, cfg config.Config, log zerolog.Logger) *Server {
	return &Server{db: db, processor: processor, cfg: cfg, log: log, now: time.Now}
}

// Handler wires the routes behind CORS, request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST "+routePrefix, s.handleUpload)
	mux.HandleFunc("POST "+routePrefix+"/{$}", s.handleUpload)
	mux.HandleFunc("GET "+routePrefix, s.handleList)
	mux.HandleFunc("GET "+routePrefix+"/{$}", s.handleList)
	mux.HandleFunc("GET "+routePrefix+"/export/excel", s.handleExport)
	mux.HandleFunc("POST "+routePrefix+"/bulk-delete", s.handleBulkDelete)
	mux.HandleFunc("GET "+routePrefix+"/categorias", s.handleCategories)
	mux.HandleFunc("GET "+routePrefix+"/{id}", s.handleGet)
	mux.HandleFunc("PATCH "+routePrefix+"/{id}", s.handlePatch)
	mux.HandleFunc("DELETE "+routePrefix+"/{id}", s.handleDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", sessionHeader, "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})

	return c.Handler(requestLogger(s.log)(recovery(mux)))
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.HTTPAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
