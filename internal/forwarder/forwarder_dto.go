package forwarder

import "time"

// Employee mirrors the store's JSON representation.
type Employee struct {
	ID        int64      `json:"id"`
	UUID      string     `json:"uuid,omitempty"`
	Name      string     `json:"name"`
	Salary    float64    `json:"salary"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// EmployeeRequest is forwarded to the store as received; validation is the
// store's job, so the fields carry no binding rules here.
type EmployeeRequest struct {
	UUID   string   `json:"uuid,omitempty"`
	Name   string   `json:"name"`
	Salary *float64 `json:"salary"`
}

// Response is a forwarded call ready to be written back. Data holds the decoded
// value for ModeBody and ModeEntity.
type Response struct {
	Result
	Data any
}
