package audit

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the audit log.
type EventType string

const (
	EventLoginSuccess      EventType = "LOGIN_SUCCESS"
	EventLoginFailed       EventType = "LOGIN_FAILED"
	EventTokenIssued       EventType = "TOKEN_ISSUED"
	EventTokenRevoked      EventType = "TOKEN_REVOKED"
	EventBrokerLinkCreated EventType = "BROKER_LINK_CREATED"
	EventClientRegistered  EventType = "CLIENT_REGISTERED"
)

// AuditLogger defines the contract for immutable logging of auth events.
type AuditLogger interface {
	Log(ctx context.Context, actorID uuid.UUID, action EventType, resource string, metadata map[string]string)
}

// JSONAuditLogger writes structured logs to stdout, marked with log_type="AUDIT_TRAIL"
// so they can be filtered by log aggregators (Datadog, Splunk, Sentry) to go to a separate index.
type JSONAuditLogger struct {
	logger *slog.Logger
	mu     sync.Mutex
}

func NewJSONAuditLogger() *JSONAuditLogger {
	// We use a separate handler/logger instance to ensure consistent formatting
	// independent of the main app logger.
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &JSONAuditLogger{
		logger: slog.New(handler),
	}
}

func (l *JSONAuditLogger) Log(ctx context.Context, actorID uuid.UUID, action EventType, resource string, metadata map[string]string) {
	fields := []interface{}{
		slog.String("log_type", "AUDIT_TRAIL"), // Marker for aggregators
		slog.String("actor_id", actorID.String()),
		slog.String("action", string(action)),
		slog.String("resource", resource),
		slog.Time("timestamp_utc", time.Now().UTC()),
	}

	// Flatten metadata
	for k, v := range metadata {
		fields = append(fields, slog.String("meta_"+k, v))
	}

	l.logger.InfoContext(ctx, "audit_event", fields...)
}

// MockAuditLogger for testing
type MockAuditLogger struct{}

func (m *MockAuditLogger) Log(ctx context.Context, actorID uuid.UUID, action EventType, resource string, metadata map[string]string) {
	// No-op
}
