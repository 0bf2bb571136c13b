package health

import (
	"context"
	"database/sql"
	"time"

	"docredact-backend/internal/shared/storage/db"
	"docredact-backend/internal/shared/telemetry"
)

const (
	DatabaseMemory = "memory"
	DatabaseUp     = "up"
	DatabaseDown   = "down"
)

// Service encapsulates health-related checks.
type Service struct {
	DB          *sql.DB
	PingTimeout time.Duration
}

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// NewService constructs a new health service. A nil db reports in-memory storage.
func NewService(sqlDB *sql.DB, pingTimeout time.Duration) *Service {
	return &Service{DB: sqlDB, PingTimeout: pingTimeout}
}

// Status reports whether the service can reach its database.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.DB == nil {
		return Status{OK: true, Database: DatabaseMemory}
	}
	if err := db.Ping(ctx, s.DB, s.PingTimeout); err != nil {
		telemetry.Warn("health.db_unreachable", map[string]any{"error": err})
		return Status{OK: false, Database: DatabaseDown}
	}
	return Status{OK: true, Database: DatabaseUp}
}
