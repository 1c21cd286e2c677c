package models

// Vendor is a payee of transactions
type Vendor struct {
	Base
	Name        string `gorm:"size:100;not null" json:"name"`
	GSTIN       string `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	CreatedBy   string `gorm:"type:uuid;not null" json:"created_by"`
}
