package employee

import "time"

type CreateEmployeeRequest struct {
	UUID   string   `json:"uuid,omitempty" binding:"omitempty,uuid"`
	Name   string   `json:"name" binding:"required"`
	Salary *float64 `json:"salary" binding:"required,gte=0"`
}

// UpdateEmployeeRequest carries the mutable fields only; id and audit fields
// are owned by the store and ignored when sent.
type UpdateEmployeeRequest struct {
	Name   string   `json:"name" binding:"required"`
	Salary *float64 `json:"salary" binding:"required,gte=0"`
}

type EmployeeResponse struct {
	ID        int64      `json:"id"`
	UUID      string     `json:"uuid,omitempty"`
	Name      string     `json:"name"`
	Salary    float64    `json:"salary"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
