package employee

import (
	"time"

	"github.com/google/uuid"
)

// Employee is the single persisted record. Audit timestamps are maintained by
// the service so that updated_at can be kept strictly increasing.
type Employee struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	UUID      *uuid.UUID `gorm:"column:uuid;uniqueIndex:uq_employees_uuid"`
	Name      string     `gorm:"not null"`
	Salary    float64    `gorm:"not null"`
	CreatedAt time.Time  `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime:false"`
}

func (Employee) TableName() string {
	return "employees"
}
