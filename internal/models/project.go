package models

import "time"

// ProjectStatus represents the lifecycle stage of a project
type ProjectStatus string

const (
	ProjectStatusPlanned    ProjectStatus = "planned"
	ProjectStatusInProgress ProjectStatus = "in-progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on-hold"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

// Project is a unit of spending within a department
type Project struct {
	Base
	Name            string        `gorm:"size:100;not null" json:"name"`
	DepartmentID    string        `gorm:"type:uuid;not null;index" json:"department_id"`
	AllocatedAmount int64         `gorm:"type:bigint;not null" json:"allocated_amount"`
	Description     string        `json:"description"`
	StartDate       time.Time     `gorm:"not null" json:"start_date"`
	EndDate         time.Time     `gorm:"not null" json:"end_date"`
	Status          ProjectStatus `gorm:"size:16;not null;default:planned" json:"status"`
	IsActive        bool          `gorm:"default:true" json:"is_active"`
	CreatedBy       string        `gorm:"type:uuid;not null" json:"created_by"`

	// Relationships
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted,
		ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}
