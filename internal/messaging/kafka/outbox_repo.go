package kafka

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

const (
	// a failed event waits retryStep per attempt, capped at maxRetrySteps steps
	retryStep     = 15 * time.Second
	maxRetrySteps = 10

	maxFailureReason = 500
)

var ErrInvalidOutboxEvent = errors.New("invalid outbox event")

// OutboxEvent is one employee lifecycle change waiting to be relayed to Kafka.
// AggregateID doubles as the message key so events of one employee stay ordered.
type OutboxEvent struct {
	ID            string
	RequestID     string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Payload       []byte
	Status        string
	RetryCount    int
	NextRetryAt   time.Time
}

// Validate reports every missing field at once, wrapped in ErrInvalidOutboxEvent.
func (e OutboxEvent) Validate() error {
	var problems []error
	if e.ID == "" {
		problems = append(problems, errors.New("id is required"))
	}
	if e.Topic == "" {
		problems = append(problems, errors.New("topic is required"))
	}
	if len(e.Payload) == 0 {
		problems = append(problems, errors.New("payload is required"))
	}
	switch e.Status {
	case OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed:
	default:
		problems = append(problems, fmt.Errorf("unknown status %q", e.Status))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidOutboxEvent, errors.Join(problems...))
}

//go:generate mockgen -source=outbox_repo.go -destination=mock/outbox_repo_mock.go -package=mock
type OutboxRepository interface {
	WithTx(tx *sql.Tx) OutboxRepository
	Create(ctx context.Context, event OutboxEvent) error
	ListPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// execQueryer is satisfied by both *sql.DB and *sql.Tx.
type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type outboxRepository struct {
	q execQueryer
}

func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{q: db}
}

// WithTx binds writes to tx so an event commits together with the employee row.
func (r *outboxRepository) WithTx(tx *sql.Tx) OutboxRepository {
	return &outboxRepository{q: tx}
}

const insertOutboxEvent = `
INSERT INTO outbox_events
	(id, request_id, aggregate_type, aggregate_id, event_type, topic, payload, status)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`

func (r *outboxRepository) Create(ctx context.Context, event OutboxEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, insertOutboxEvent,
		event.ID, event.RequestID, event.AggregateType, event.AggregateID,
		event.EventType, event.Topic, event.Payload, event.Status,
	); err != nil {
		return fmt.Errorf("insert outbox event %s: %w", event.ID, err)
	}
	return nil
}

const selectDueOutboxEvents = `
SELECT id::text, COALESCE(request_id, ''), aggregate_type, aggregate_id, event_type,
	topic, payload, status, retry_count, COALESCE(next_retry_at, created_at)
FROM outbox_events
WHERE status IN ($1, $2) AND COALESCE(next_retry_at, created_at) <= NOW()
ORDER BY created_at
LIMIT $3`

// ListPending returns up to limit events that are due for a (re)send, oldest first.
func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.q.QueryContext(ctx, selectDueOutboxEvents, OutboxStatusPending, OutboxStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("list due outbox events: %w", err)
	}
	defer rows.Close()

	due := make([]OutboxEvent, 0, limit)
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.AggregateType, &e.AggregateID, &e.EventType,
			&e.Topic, &e.Payload, &e.Status, &e.RetryCount, &e.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		due = append(due, e)
	}
	return due, rows.Err()
}

const markOutboxEventSent = `
UPDATE outbox_events
SET status = $2, processed_at = NOW(), error_message = NULL, updated_at = NOW()
WHERE id = $1`

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, markOutboxEventSent, id, OutboxStatusSent)
	return err
}

const markOutboxEventFailed = `
UPDATE outbox_events
SET status = $2,
	retry_count = retry_count + 1,
	error_message = $3,
	next_retry_at = NOW() + make_interval(secs => LEAST(retry_count + 1, $4) * $5::double precision),
	updated_at = NOW()
WHERE id = $1`

// MarkFailed records reason and pushes the next attempt back one more step.
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := r.q.ExecContext(ctx, markOutboxEventFailed,
		id, OutboxStatusFailed, truncateReason(reason), maxRetrySteps, retryStep.Seconds())
	return err
}

func truncateReason(reason string) string {
	runes := []rune(reason)
	if len(runes) <= maxFailureReason {
		return reason
	}
	return string(runes[:maxFailureReason])
}
