package employee

import (
	"database/sql"
	"time"

	"employee-forwarder/internal/messaging/kafka"

	"go.uber.org/zap"
)

// NewServiceWithClock lets tests pin the service clock.
func NewServiceWithClock(db *sql.DB, repo Repository, outboxRepo kafka.OutboxRepository, now func() time.Time) Service {
	svc := NewServiceWithOutbox(db, repo, outboxRepo, "", zap.NewNop()).(*service)
	svc.now = now
	return svc
}
