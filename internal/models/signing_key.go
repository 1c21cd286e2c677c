package models

import (
	"time"

	"gorm.io/gorm"
)

// SigningKey is the single RSA keypair provisioned for an actor. The private
// half never leaves the server and is excluded from JSON.
type SigningKey struct {
	ActorID       string    `gorm:"size:64;primaryKey" json:"actor_id"`
	Algorithm     string    `gorm:"size:32;not null" json:"algorithm"`
	PublicKeyPEM  string    `gorm:"type:text;not null" json:"public_key_pem"`
	PrivateKeyPEM string    `gorm:"type:text;not null" json:"-"`
	Fingerprint   string    `gorm:"size:64;not null" json:"fingerprint"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// BeforeUpdate prevents a provisioned key from being overwritten.
func (k *SigningKey) BeforeUpdate(tx *gorm.DB) error {
	return ErrAppendOnly
}
