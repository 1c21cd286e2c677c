package models

import (
	"time"

	"gorm.io/gorm"

	"trustledger/internal/uuid"
)

// Base is embedded by the mutable ledger tables. Rows are soft-deleted so
// audit records that reference them keep resolving; DeletedAt stays out of
// API responses.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// IsDeleted reports whether the row was soft-deleted. Only meaningful on
// rows loaded with Unscoped.
func (b *Base) IsDeleted() bool {
	return b.DeletedAt.Valid
}

// assignID fills an empty primary key with a UUIDv7 so callers may still
// choose their own ID.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.New()
	}
}
