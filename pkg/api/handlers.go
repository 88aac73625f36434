package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/table"
)

const (
	maxBodyBytes      = 64 << 10
	maxSyntheticBatch = 100
)

// Server holds the API server state
type Server struct {
	store   table.Store
	codec   *codec.ReadingCodec
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(store table.Store, c *codec.ReadingCodec, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = codec.NewReadingCodec(nil)
	}
	return &Server{
		store:   store,
		codec:   c,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *Server) readings(name string) *table.Readings {
	return table.NewReadings(s.store, s.codec, name, table.WithLogger(s.logger))
}

func (s *Server) observe(operation string, start time.Time, err error) {
	s.metrics.RecordStoreOperation(operation, err == nil, time.Since(start))
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report whether the table store is reachable
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListTables(r.Context()); err != nil {
		s.metrics.RecordHealthCheck(false)
		s.logger.Warn("health check failed", zap.Error(err))
		sendError(w, "table store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListTables godoc
//
//	@Summary		List tables
//	@Tags			tables
//	@Produce		json
//	@Success		200	{object}	TablesResponse
//	@Router			/tables [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	names, err := s.store.ListTables(r.Context())
	s.observe("list_tables", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	sendSuccess(w, TablesResponse{Tables: names})
}

// handleCreateTable godoc
//
//	@Summary		Create a readings table
//	@Description	Create a table keyed by PrimKey and sorted by GroundNum
//	@Tags			tables
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTableRequest	true	"Table"
//	@Success		201		{object}	table.TableSpec
//	@Failure		400		{object}	APIResponse
//	@Failure		409		{object}	APIResponse
//	@Router			/tables [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}

	spec := s.readings(req.Name).Spec()
	start := time.Now()
	err := s.store.CreateTable(r.Context(), spec)
	s.observe("create_table", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendCreated(w, spec)
}

// handleDeleteTable godoc
//
//	@Summary		Delete a table and all of its readings
//	@Tags			tables
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	APIResponse
//	@Router			/tables/{table} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	start := time.Now()
	err := s.store.DeleteTable(r.Context(), name)
	s.observe("delete_table", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": fmt.Sprintf("Table %s deleted", name)})
}

// handleListReadings godoc
//
//	@Summary		Scan every reading in a table
//	@Tags			readings
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Success		200		{array}		codec.WorkerReading
//	@Failure		404		{object}	APIResponse
//	@Router			/tables/{table}/readings [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	readings, err := s.readings(chi.URLParam(r, "table")).All(r.Context())
	s.observe("scan", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, readings)
}

// handlePutReading godoc
//
//	@Summary		Store a reading
//	@Description	Store a reading given as canonical JSON text. An empty body stores a synthetic reading.
//	@Tags			readings
//	@Accept			json
//	@Produce		json
//	@Param			table	path		string				true	"Table name"
//	@Param			body	body		codec.WorkerReading	false	"Reading"
//	@Success		201		{object}	codec.WorkerReading
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Router			/tables/{table}/readings [post]
//	@Security		ApiKeyAuth
func (s *Server) handlePutReading(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var reading codec.WorkerReading
	if len(body) == 0 {
		reading = s.codec.Synthetic()
	} else {
		reading, err = s.codec.DecodeText(body)
		if err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := reading.Validate(); err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	start := time.Now()
	err = s.readings(chi.URLParam(r, "table")).Insert(r.Context(), reading)
	s.observe("put", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	s.metrics.RecordReadingIngested()
	sendCreated(w, reading)
}

// handleGetReadings godoc
//
//	@Summary		Find the readings stored under a unique key
//	@Description	The unique key is GroundNum followed by HelmetNum
//	@Tags			readings
//	@Produce		json
//	@Param			table	path		string	true	"Table name"
//	@Param			key		path		string	true	"Unique key"
//	@Success		200		{array}		codec.WorkerReading
//	@Failure		404		{object}	APIResponse
//	@Router			/tables/{table}/readings/{key} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetReadings(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	start := time.Now()
	readings, err := s.readings(chi.URLParam(r, "table")).Find(r.Context(), key)
	s.observe("query", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	if len(readings) == 0 {
		sendError(w, fmt.Sprintf("No readings for key %s", key), http.StatusNotFound)
		return
	}
	sendSuccess(w, readings)
}

// handleDeleteReading godoc
//
//	@Summary		Delete a reading
//	@Tags			readings
//	@Produce		json
//	@Param			table		path		string	true	"Table name"
//	@Param			key			path		string	true	"Unique key"
//	@Param			groundNum	path		string	true	"Ground number"
//	@Success		200			{object}	map[string]string
//	@Failure		404			{object}	APIResponse
//	@Router			/tables/{table}/readings/{key}/{groundNum} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	start := time.Now()
	err := s.readings(chi.URLParam(r, "table")).Delete(r.Context(), key, chi.URLParam(r, "groundNum"))
	s.observe("delete", start, err)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"message": fmt.Sprintf("Reading %s deleted", key)})
}

// handleSynthetic godoc
//
//	@Summary		Generate synthetic readings
//	@Description	Generate readings without storing them
//	@Tags			readings
//	@Produce		json
//	@Param			n	query		int	false	"Number of readings (1-100)"
//	@Success		200	{array}		codec.WorkerReading
//	@Failure		400	{object}	APIResponse
//	@Router			/synthetic [get]
//	@Security		ApiKeyAuth
func (s *Server) handleSynthetic(w http.ResponseWriter, r *http.Request) {
	n := 1
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxSyntheticBatch {
			sendError(w, fmt.Sprintf("n must be between 1 and %d", maxSyntheticBatch), http.StatusBadRequest)
			return
		}
		n = parsed
	}

	readings := make([]codec.WorkerReading, n)
	for i := range readings {
		readings[i] = s.codec.Synthetic()
	}
	sendSuccess(w, readings)
}

func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("table store request failed", zap.Error(err))
	}
	sendError(w, err.Error(), status)
}

func statusFor(err error) int {
	var malformed *codec.MalformedAttributeError
	switch {
	case errors.Is(err, table.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, table.ErrTableExists):
		return http.StatusConflict
	case errors.Is(err, table.ErrInvalidTableName),
		errors.Is(err, table.ErrMissingKey),
		errors.Is(err, table.ErrInvalidPrimaryKey),
		errors.Is(err, table.ErrUnsupportedQuery):
		return http.StatusBadRequest
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
