package models

// Department receives an allocation from a budget and funds projects
type Department struct {
	Base
	Name            string `gorm:"size:100;not null" json:"name"`
	BudgetID        string `gorm:"type:uuid;not null;index" json:"budget_id"`
	AllocatedAmount int64  `gorm:"type:bigint;not null" json:"allocated_amount"`
	Description     string `json:"description"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`
	CreatedBy       string `gorm:"type:uuid;not null" json:"created_by"`

	// Relationships
	Budget *Budget `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
}
