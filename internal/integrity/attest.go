package integrity

import "trustledger/internal/models"

// AttestedFields is the canonical payload a transaction signature covers.
// Field order is part of the wire format.
type AttestedFields struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	ProjectID    string `json:"projectId"`
	VendorID     string `json:"vendorId"`
	DocumentHash string `json:"documentHash"`
}

// CanonicalPayload extracts the attested fields from tx's current values.
func CanonicalPayload(tx *models.Transaction) AttestedFields {
	return AttestedFields{
		ID:           tx.ID,
		Amount:       tx.Amount,
		ProjectID:    tx.ProjectID,
		VendorID:     tx.VendorID,
		DocumentHash: tx.DocumentHash,
	}
}

// Bytes returns the UTF-8 canonical serialization that is signed.
func (f AttestedFields) Bytes() ([]byte, error) {
	return Canonical(f)
}

// SignTransaction signs the canonical payload of tx.
func SignTransaction(tx *models.Transaction, privateKeyPEM string) (string, error) {
	payload, err := CanonicalPayload(tx).Bytes()
	if err != nil {
		return "", err
	}
	return Sign(payload, privateKeyPEM)
}

// VerifyTransaction recomputes the canonical payload from tx as it is now and
// checks signatureHex against it.
func VerifyTransaction(tx *models.Transaction, signatureHex, publicKeyPEM string) (bool, error) {
	payload, err := CanonicalPayload(tx).Bytes()
	if err != nil {
		return false, err
	}
	return Verify(payload, signatureHex, publicKeyPEM)
}
