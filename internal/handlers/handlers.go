package handlers

import (
	"database/sql"

	"github.com/stockflow/stockflow-golang/internal/events"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB     *sql.DB           // Primary Read/Write connection
	Events *events.Publisher // Optional; nil when no broker is configured
}
