// Package api Minewatch REST API
//
// @title           Minewatch REST API
// @version         1.0.0
// @description     REST API for storing and querying worker telemetry readings.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	<title>Minewatch API Documentation</title>
	<link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	<div id="swagger-ui"></div>
	<script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	<script>
	  window.onload = function() {
	    SwaggerUIBundle({
	      url: '/swagger/swagger.json',
	      dom_id: '#swagger-ui',
	      presets: [
	        SwaggerUIBundle.presets.apis,
	        SwaggerUIBundle.presets.standalone
	      ]
	    });
	  };
	</script>
</body>
</html>`

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/tables", m.InstrumentHandler("GET", "/api/v1/tables", s.handleListTables))
		r.Post("/tables", m.InstrumentHandler("POST", "/api/v1/tables", s.handleCreateTable))
		r.Delete("/tables/{table}", m.InstrumentHandler("DELETE", "/api/v1/tables/{table}", s.handleDeleteTable))

		r.Get("/tables/{table}/readings", m.InstrumentHandler("GET", "/api/v1/tables/{table}/readings", s.handleListReadings))
		r.Post("/tables/{table}/readings", m.InstrumentHandler("POST", "/api/v1/tables/{table}/readings", s.handlePutReading))
		r.Get("/tables/{table}/readings/{key}", m.InstrumentHandler("GET", "/api/v1/tables/{table}/readings/{key}", s.handleGetReadings))
		r.Delete("/tables/{table}/readings/{key}/{groundNum}",
			m.InstrumentHandler("DELETE", "/api/v1/tables/{table}/readings/{key}/{groundNum}", s.handleDeleteReading))

		r.Get("/synthetic", m.InstrumentHandler("GET", "/api/v1/synthetic", s.handleSynthetic))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", s.handleSwagger)

	return r
}

func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/swagger/", "/swagger/index.html":
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerUI))
	case "/swagger/swagger.json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(renderSwaggerDoc(r.Host)))
	default:
		http.NotFound(w, r)
	}
}

// renderSwaggerDoc fills the registered template with the host the client
// reached us on. The registered spec is copied so requests never write to it.
func renderSwaggerDoc(host string) string {
	spec := *SwaggerInfo
	if host != "" {
		spec.Host = host
	}
	return spec.ReadDoc()
}

// Addr is the listen address for the configured bind and port
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// ListenAndServe serves the API until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting REST API server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down REST API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}
