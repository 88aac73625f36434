package api

import "time"

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateTableRequest is the body of POST /tables
type CreateTableRequest struct {
	Name string `json:"name"`
}

// TablesResponse lists table names
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind            string
	Port            int
	APIKey          string // empty disables authentication
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}
