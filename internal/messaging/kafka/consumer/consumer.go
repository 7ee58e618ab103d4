package consumer

import (
	"context"
	"encoding/json"
	"strconv"

	"employee-forwarder/internal/bootstrap"
	"employee-forwarder/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeEmployeeLifecycle writes an audit entry for every employee lifecycle
// event until ctx is cancelled. Undecodable messages are committed and skipped.
func ConsumeEmployeeLifecycle(
	ctx context.Context,
	reader MessageReader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.employee_lifecycle")
	log.Info("employee lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("employee lifecycle consumer stopped")
				return
			}
			log.Error("fetch employee lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.EmployeeLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode employee lifecycle event failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		auditLogger.Log(ctx, bootstrap.AuditLog{
			Action:  auditAction(event.EventType),
			Message: "employee " + strconv.FormatInt(event.EmployeeID, 10) + " " + event.EventType,
			Meta: map[string]any{
				"employee_id": event.EmployeeID,
				"request_id":  event.RequestID,
				"name":        event.Name,
				"salary":      event.Salary,
				"occurred_at": event.OccurredAt,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit employee lifecycle message failed", zap.Error(err))
			continue
		}
	}
}

func auditAction(eventType string) string {
	switch eventType {
	case events.EmployeeCreated:
		return "EMPLOYEE_CREATED"
	case events.EmployeeUpdated:
		return "EMPLOYEE_UPDATED"
	case events.EmployeeDeleted:
		return "EMPLOYEE_DELETED"
	default:
		return "EMPLOYEE_EVENT"
	}
}
