package models

import "time"

// TransactionStatus represents the approval state of a vendor payment
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// Transaction is a payment from a project to a vendor. Amount is in minor
// currency units. DocumentHash seals the invoice stored at InvoiceURL, and the
// attestation fields bind the signer to ID, Amount, ProjectID, VendorID and
// DocumentHash as they were at signing time.
type Transaction struct {
	Base
	ProjectID     string            `gorm:"type:uuid;not null;index" json:"project_id"`
	VendorID      string            `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Amount        int64             `gorm:"type:bigint;not null" json:"amount"`
	Date          time.Time         `gorm:"not null" json:"date"`
	Description   string            `json:"description"`
	InvoiceNumber string            `gorm:"size:64" json:"invoice_number,omitempty"`
	InvoiceURL    string            `json:"invoice_url,omitempty"`
	DocumentHash  string            `gorm:"size:64" json:"document_hash,omitempty"`
	Status        TransactionStatus `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedBy     string            `gorm:"type:uuid;not null" json:"created_by"`

	// Attestation
	DigitalSignature string     `gorm:"type:text" json:"digital_signature,omitempty"`
	SignedBy         *string    `gorm:"type:uuid" json:"signed_by,omitempty"`
	SignedAt         *time.Time `json:"signed_at,omitempty"`

	// Relationships
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Vendor  *Vendor  `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

// IsSigned reports whether an attestation has been recorded.
func (t *Transaction) IsSigned() bool {
	return t.DigitalSignature != ""
}

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusApproved,
		TransactionStatusRejected, TransactionStatusCompleted:
		return true
	}
	return false
}
