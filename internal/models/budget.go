package models

import "time"

// Budget is a fiscal-year envelope that departments draw allocations from
type Budget struct {
	Base
	Name        string    `gorm:"size:100;not null" json:"name"`
	FiscalYear  string    `gorm:"size:16;not null;index" json:"fiscal_year"`
	TotalAmount int64     `gorm:"type:bigint;not null" json:"total_amount"`
	Description string    `json:"description"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	CreatedBy   string    `gorm:"type:uuid;not null" json:"created_by"`

	// Relationships
	Departments []Department `gorm:"foreignKey:BudgetID" json:"departments,omitempty"`
}
