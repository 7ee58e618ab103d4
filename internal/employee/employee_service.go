package employee

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	employeeerrors "employee-forwarder/internal/employee/errors"
	"employee-forwarder/internal/events"
	"employee-forwarder/internal/messaging/kafka"
	"employee-forwarder/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const listFlightKey = "employees:list"

type Service interface {
	List(ctx context.Context) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, id int64) (EmployeeResponse, error)
	Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error)
	Update(ctx context.Context, id int64, req UpdateEmployeeRequest) (EmployeeResponse, error)
	Delete(ctx context.Context, id int64) (EmployeeResponse, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	outbox kafka.OutboxRepository
	topic  string
	sf     *singleflight.Group
	now    func() time.Time
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, logger ...*zap.Logger) Service {
	return NewServiceWithOutbox(db, repo, nil, "", logger...)
}

// NewServiceWithOutbox records a lifecycle event on topic inside every write
// transaction. A nil outboxRepo disables events.
func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	outboxRepo kafka.OutboxRepository,
	topic string,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("employee.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("employee.service")
	}
	if topic == "" {
		topic = events.EmployeeLifecycleTopic
	}
	return &service{
		db:     db,
		repo:   repo,
		outbox: outboxRepo,
		topic:  topic,
		sf:     &singleflight.Group{},
		now:    time.Now,
		logger: l,
	}
}

func (s *service) List(ctx context.Context) ([]EmployeeResponse, error) {
	s.logger.Debug("list employees requested", zap.String("request_id", contextutil.GetRequestID(ctx)))

	// the shared call outlives whichever caller started it; each caller only
	// stops waiting on its own ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(listFlightKey, func() (interface{}, error) {
		empls, err := s.repo.FindAll(flightCtx)
		if err != nil {
			return nil, mapRepositoryError(err)
		}
		return mapToListResponse(empls), nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.Error("list employees failed", zap.Error(res.Err))
		return nil, res.Err
	}

	resp := res.Val.([]EmployeeResponse)
	if res.Shared {
		// callers must not share one backing array
		cp := make([]EmployeeResponse, len(resp))
		copy(cp, resp)
		resp = cp
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (EmployeeResponse, error) {
	s.logger.Debug("get employee by id requested",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.Int64("employee_id", id),
	)

	empl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		err = mapRepositoryError(err)
		s.logFailure("get employee by id failed", id, err)
		return EmployeeResponse{}, err
	}

	return mapToResponse(*empl), nil
}

func (s *service) Create(ctx context.Context, req CreateEmployeeRequest) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create employee requested",
		zap.String("request_id", rid),
		zap.String("name", req.Name),
	)

	empl := &Employee{
		Name:   req.Name,
		Salary: salaryValue(req.Salary),
	}
	if req.UUID != "" {
		id, err := uuid.Parse(req.UUID)
		if err != nil {
			return EmployeeResponse{}, employeeerrors.ErrInvalidUUID
		}
		empl.UUID = &id
	}
	now := s.timestamp()
	empl.CreatedAt = now
	empl.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create employee begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).Create(ctx, empl); err != nil {
		s.logger.Error("create employee persist failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, mapRepositoryError(err)
	}

	if err := s.recordEvent(ctx, tx, events.EmployeeCreated, empl); err != nil {
		return EmployeeResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create employee commit failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.logger.Info("create employee success",
		zap.String("request_id", rid),
		zap.Int64("employee_id", empl.ID),
	)
	return mapToResponse(*empl), nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateEmployeeRequest) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("update employee requested",
		zap.String("request_id", rid),
		zap.Int64("employee_id", id),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update employee begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	empl, err := qtx.FindByID(ctx, id)
	if err != nil {
		err = mapRepositoryError(err)
		s.logFailure("update employee fetch existing failed", id, err)
		return EmployeeResponse{}, err
	}

	empl.Name = req.Name
	empl.Salary = salaryValue(req.Salary)
	empl.UpdatedAt = nextUpdatedAt(empl.UpdatedAt, s.timestamp())

	if err := qtx.Update(ctx, empl); err != nil {
		err = mapRepositoryError(err)
		s.logFailure("update employee persist failed", id, err)
		return EmployeeResponse{}, err
	}

	if err := s.recordEvent(ctx, tx, events.EmployeeUpdated, empl); err != nil {
		return EmployeeResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("update employee commit failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.logger.Info("update employee success", zap.String("request_id", rid), zap.Int64("employee_id", id))
	return mapToResponse(*empl), nil
}

func (s *service) Delete(ctx context.Context, id int64) (EmployeeResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("delete employee requested",
		zap.String("request_id", rid),
		zap.Int64("employee_id", id),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("delete employee begin tx failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	empl, err := qtx.FindByID(ctx, id)
	if err != nil {
		err = mapRepositoryError(err)
		s.logFailure("delete employee fetch existing failed", id, err)
		return EmployeeResponse{}, err
	}

	if err := qtx.Delete(ctx, id); err != nil {
		err = mapRepositoryError(err)
		s.logFailure("delete employee failed", id, err)
		return EmployeeResponse{}, err
	}

	if err := s.recordEvent(ctx, tx, events.EmployeeDeleted, empl); err != nil {
		return EmployeeResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("delete employee commit failed", zap.String("request_id", rid), zap.Error(err))
		return EmployeeResponse{}, err
	}

	s.logger.Info("delete employee success", zap.String("request_id", rid), zap.Int64("employee_id", id))
	return mapToResponse(*empl), nil
}

// recordEvent queues a lifecycle event in the outbox within tx.
func (s *service) recordEvent(ctx context.Context, tx *sql.Tx, eventType string, empl *Employee) error {
	if s.outbox == nil {
		return nil
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.EmployeeLifecycleEvent{
		EventType:  eventType,
		RequestID:  rid,
		EmployeeID: empl.ID,
		Name:       empl.Name,
		Salary:     empl.Salary,
		OccurredAt: s.timestamp(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal event failed", zap.String("request_id", rid), zap.Error(err))
		return err
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: events.EmployeeAggregate,
		AggregateID:   strconv.FormatInt(empl.ID, 10),
		EventType:     eventType,
		Topic:         s.topic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("employee outbox persist failed",
			zap.String("request_id", rid),
			zap.String("event_type", eventType),
			zap.Int64("employee_id", empl.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *service) logFailure(msg string, id int64, err error) {
	if errors.Is(err, employeeerrors.ErrEmployeeNotFound) {
		s.logger.Warn(msg, zap.Int64("employee_id", id), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.Int64("employee_id", id), zap.Error(err))
}

// timestamp truncates to microseconds, the precision postgres keeps.
func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt keeps updated_at strictly increasing even when the clock has
// not moved past the stored value.
func nextUpdatedAt(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

func salaryValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// mapToResponse reports timestamps in UTC whatever zone the driver scanned.
func mapToResponse(empl Employee) EmployeeResponse {
	createdAt := empl.CreatedAt.UTC()
	updatedAt := empl.UpdatedAt.UTC()
	resp := EmployeeResponse{
		ID:        empl.ID,
		Name:      empl.Name,
		Salary:    empl.Salary,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	}
	if empl.UUID != nil {
		resp.UUID = empl.UUID.String()
	}
	return resp
}

func mapToListResponse(empls []Employee) []EmployeeResponse {
	res := make([]EmployeeResponse, len(empls))
	for i, e := range empls {
		res[i] = mapToResponse(e)
	}
	return res
}
