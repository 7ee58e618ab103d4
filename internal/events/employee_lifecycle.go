package events

import "time"

const (
	EmployeeLifecycleTopic = "employees.lifecycle.v1"
	EmployeeAggregate      = "employee"

	EmployeeCreated = "employee_created"
	EmployeeUpdated = "employee_updated"
	EmployeeDeleted = "employee_deleted"
)

// EmployeeLifecycleEvent is published for every durable write to an employee.
// For deletions Name and Salary hold the pre-deletion snapshot.
type EmployeeLifecycleEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	EmployeeID int64     `json:"employee_id"`
	Name       string    `json:"name"`
	Salary     float64   `json:"salary"`
	OccurredAt time.Time `json:"occurred_at"`
}
