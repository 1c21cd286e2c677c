package models

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrAppendOnly is returned by hooks on tables that only accept inserts.
var ErrAppendOnly = errors.New("record is append-only")

// AuditEntityType names the kind of entity an audit record refers to
type AuditEntityType string

const (
	AuditEntityBudget      AuditEntityType = "budget"
	AuditEntityDepartment  AuditEntityType = "department"
	AuditEntityProject     AuditEntityType = "project"
	AuditEntityVendor      AuditEntityType = "vendor"
	AuditEntityTransaction AuditEntityType = "transaction"
	AuditEntityUser        AuditEntityType = "user"
)

// AuditAction names what happened to the entity
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionDelete     AuditAction = "delete"
	AuditActionSign       AuditAction = "sign"
	AuditActionLogin      AuditAction = "login"
	AuditActionLogout     AuditAction = "logout"
	AuditActionFileUpload AuditAction = "file_upload"
)

// CanonicalJSON is JSON text stored verbatim. It is emitted as raw JSON in
// API responses rather than as a quoted string.
type CanonicalJSON string

// MarshalJSON implements json.Marshaler.
func (j CanonicalJSON) MarshalJSON() ([]byte, error) {
	if j == "" {
		return []byte("{}"), nil
	}
	if !json.Valid([]byte(j)) {
		return json.Marshal(string(j))
	}
	return []byte(j), nil
}

// AuditRecord is an immutable, individually hashed audit trail entry.
// RecordHash covers EntityType, EntityID, Action, ActorID, Diff and CreatedAt;
// IPAddress and UserAgent are informational only.
type AuditRecord struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType AuditEntityType `gorm:"size:32;not null;index" json:"entity_type"`
	EntityID   string          `gorm:"size:64;not null;index" json:"entity_id"`
	Action     AuditAction     `gorm:"size:32;not null;index" json:"action"`
	ActorID    string          `gorm:"size:64;not null;index" json:"actor_id"`
	Diff       CanonicalJSON   `gorm:"type:text;not null" json:"diff"`
	IPAddress  string          `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent  string          `gorm:"size:512" json:"user_agent,omitempty"`
	RecordHash string          `gorm:"size:64;not null" json:"record_hash"`
	CreatedAt  time.Time       `gorm:"not null;index" json:"created_at"`
}

func (r *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// BeforeUpdate rejects any update issued through the ORM.
func (r *AuditRecord) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}

// BeforeDelete rejects any delete issued through the ORM.
func (r *AuditRecord) BeforeDelete(tx *gorm.DB) error {
	return ErrAppendOnly
}

// Valid reports whether t is a known entity type.
func (t AuditEntityType) Valid() bool {
	switch t {
	case AuditEntityBudget, AuditEntityDepartment, AuditEntityProject,
		AuditEntityVendor, AuditEntityTransaction, AuditEntityUser:
		return true
	}
	return false
}

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionSign,
		AuditActionLogin, AuditActionLogout, AuditActionFileUpload:
		return true
	}
	return false
}
