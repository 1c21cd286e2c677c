package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/integrity"
	"trustledger/internal/keystore"
	"trustledger/internal/logger"
	"trustledger/internal/metrics"
	"trustledger/internal/models"
	"trustledger/internal/storage"
)

// allowedDocumentTypes maps accepted invoice extensions to the content types
// they may sniff as. Office formats also match their container type.
var allowedDocumentTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
}

// attestationService seals invoices and signs transactions.
type attestationService struct {
	db        *gorm.DB
	documents storage.DocumentStore
	custodian KeyCustodian
	maxBytes  int64
}

// NewAttestationService creates a new AttestationServicer.
func NewAttestationService(db *gorm.DB, documents storage.DocumentStore, custodian KeyCustodian, maxBytes int64) AttestationServicer {
	return &attestationService{
		db:        db,
		documents: documents,
		custodian: custodian,
		maxBytes:  maxBytes,
	}
}

// AttachDocument validates and seals an invoice, stores its bytes and binds
// the location and digest to the transaction. The returned changes describe
// the previous and new document for the audit trail.
func (s *attestationService) AttachDocument(ctx context.Context, transactionID, filename string, body []byte) (*models.Transaction, Changes, error) {
	transaction, err := findTransaction(s.db, transactionID)
	if err != nil {
		return nil, nil, err
	}

	if len(body) == 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is empty")
	}
	if s.maxBytes > 0 && int64(len(body)) > s.maxBytes {
		return nil, nil, apperrors.ErrDocumentTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !documentTypeAllowed(ext, body) {
		return nil, nil, apperrors.WithMessage(apperrors.ErrDocumentType,
			"Invalid file type. Only JPEG, PNG, GIF, PDF, DOC, DOCX, XLS, XLSX files are allowed.")
	}

	digest := integrity.Seal(body)
	name := fmt.Sprintf("invoice-%s-%d%s", transaction.ID, time.Now().UnixNano(), ext)
	location, err := s.documents.Put(ctx, name, body)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	changes := Changes{}
	updates := make(map[string]interface{})
	changes.track(updates, "invoice_url", transaction.InvoiceURL, location)
	changes.track(updates, "document_hash", transaction.DocumentHash, digest)
	if len(updates) > 0 {
		if err := s.db.Model(&models.Transaction{}).Where("id = ?", transaction.ID).Updates(updates).Error; err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	transaction, err = findTransaction(s.db, transactionID)
	if err != nil {
		return nil, nil, err
	}
	return transaction, changes, nil
}

func documentTypeAllowed(ext string, body []byte) bool {
	allowed, ok := allowedDocumentTypes[ext]
	if !ok {
		return false
	}
	for mt := mimetype.Detect(body); mt != nil; mt = mt.Parent() {
		for _, a := range allowed {
			if mt.Is(a) {
				return true
			}
		}
	}
	return false
}

// VerifyDocument re-seals the stored invoice and compares it with the digest
// taken at upload. Unreadable bytes are reported as DOCUMENT_UNAVAILABLE
// rather than as a mismatch.
func (s *attestationService) VerifyDocument(ctx context.Context, transactionID string) (*DocumentVerification, error) {
	transaction, err := findTransaction(s.db, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.DocumentHash == "" || transaction.InvoiceURL == "" {
		return nil, apperrors.ErrNoDocument
	}

	body, err := s.readDocument(ctx, transaction)
	if err != nil {
		return nil, err
	}

	computed := integrity.Seal(body)
	valid := integrity.VerifyDocument(body, transaction.DocumentHash)
	metrics.IntegrityChecksTotal.WithLabelValues("document", metrics.Result(valid)).Inc()

	return &DocumentVerification{
		TransactionID: transaction.ID,
		IsValid:       valid,
		StoredHash:    transaction.DocumentHash,
		ComputedHash:  computed,
	}, nil
}

func (s *attestationService) readDocument(ctx context.Context, transaction *models.Transaction) ([]byte, error) {
	body, err := s.documents.Get(ctx, transaction.InvoiceURL)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			metrics.IntegrityChecksTotal.WithLabelValues("document", "unknown").Inc()
			return nil, apperrors.Wrap(apperrors.ErrDocumentUnavailable, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return body, nil
}

// SignTransaction attests the transaction's current canonical payload with
// the actor's key, provisioning the key on first use. The sealed invoice
// must still match its digest. An existing signature is only replaced when
// override is set.
func (s *attestationService) SignTransaction(ctx context.Context, transactionID, actorID string, override bool) (*Attestation, error) {
	transaction, err := findTransaction(s.db, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.DocumentHash == "" || transaction.InvoiceURL == "" {
		return nil, apperrors.ErrNoDocument
	}
	if transaction.IsSigned() && !override {
		return nil, apperrors.ErrSignatureAlreadyExists
	}

	body, err := s.readDocument(ctx, transaction)
	if err != nil {
		return nil, err
	}
	if !integrity.VerifyDocument(body, transaction.DocumentHash) {
		metrics.IntegrityChecksTotal.WithLabelValues("document", metrics.Result(false)).Inc()
		return nil, apperrors.ErrDocumentTampered
	}

	key, err := s.custodian.GetOrCreate(ctx, actorID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	signature, err := key.SignTransaction(transaction)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	signedAt := integrity.NormalizeTimestamp(time.Now())

	q := s.db.Model(&models.Transaction{}).Where("id = ?", transaction.ID)
	if transaction.IsSigned() {
		q = q.Where("digital_signature = ?", transaction.DigitalSignature)
	} else {
		q = q.Where("(digital_signature = '' OR digital_signature IS NULL)")
	}
	res := q.Updates(map[string]interface{}{
		"digital_signature": signature,
		"signed_by":         actorID,
		"signed_at":         signedAt,
	})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		// Someone else signed between our read and write.
		return nil, apperrors.ErrSignatureAlreadyExists
	}

	attestation := &Attestation{
		TransactionID:  transaction.ID,
		Signature:      signature,
		SignedBy:       actorID,
		SignedAt:       signedAt,
		KeyFingerprint: key.Fingerprint,
	}
	if transaction.IsSigned() {
		prior := &PriorAttestation{
			Signature: transaction.DigitalSignature,
			SignedAt:  transaction.SignedAt,
		}
		if transaction.SignedBy != nil {
			prior.SignedBy = *transaction.SignedBy
		}
		attestation.Replaced = prior
	}

	metrics.AttestationsTotal.WithLabelValues(fmt.Sprint(attestation.Replaced != nil)).Inc()
	logger.Named("attestation").Infow("transaction signed",
		"transaction_id", transaction.ID,
		"signed_by", actorID,
		"key_fingerprint", key.Fingerprint,
		"replaced", attestation.Replaced != nil,
	)
	return attestation, nil
}

// VerifySignature checks the stored signature against the transaction as it
// is now, using the signer's public key. It never provisions keys.
func (s *attestationService) VerifySignature(ctx context.Context, transactionID string) (*SignatureVerification, error) {
	transaction, err := findTransaction(s.db, transactionID)
	if err != nil {
		return nil, err
	}
	if !transaction.IsSigned() || transaction.SignedBy == nil {
		return nil, apperrors.ErrNotSigned
	}

	key, err := s.custodian.Get(ctx, *transaction.SignedBy)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return nil, apperrors.ErrSigningKeyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	valid, err := key.VerifyTransaction(transaction, transaction.DigitalSignature)
	if err != nil {
		if errors.Is(err, integrity.ErrMalformedSignature) || errors.Is(err, integrity.ErrMalformedKey) {
			return nil, apperrors.Wrap(apperrors.ErrValidation, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	metrics.IntegrityChecksTotal.WithLabelValues("signature", metrics.Result(valid)).Inc()

	return &SignatureVerification{
		TransactionID:  transaction.ID,
		IsValid:        valid,
		SignedBy:       *transaction.SignedBy,
		SignedAt:       transaction.SignedAt,
		KeyFingerprint: key.Fingerprint,
	}, nil
}
