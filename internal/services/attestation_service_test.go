package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/gorm"

	"trustledger/internal/integrity"
	"trustledger/internal/keystore"
	"trustledger/internal/models"
	"trustledger/internal/storage"
	"trustledger/internal/testutil"
)

var testInvoice = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type attestationFixture struct {
	db        *gorm.DB
	svc       AttestationServicer
	store     *storage.LocalStore
	custodian *keystore.Custodian
	keys      *keystore.MemoryStore
	ledger    *testutil.Ledger
	tx        *models.Transaction
}

func newAttestationFixture(t *testing.T) *attestationFixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	keys := keystore.NewMemoryStore()
	custodian := keystore.NewCustodian(keys)
	ledger := testutil.CreateTestLedger(t, db)

	return &attestationFixture{
		db:        db,
		svc:       NewAttestationService(db, store, custodian, 1024),
		store:     store,
		custodian: custodian,
		keys:      keys,
		ledger:    ledger,
		tx:        testutil.CreateTestTransaction(t, db, ledger.Project.ID, ledger.Vendor.ID, ledger.User.ID, 500),
	}
}

func (f *attestationFixture) attach(t *testing.T) *models.Transaction {
	t.Helper()
	tx, _, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.pdf", testInvoice)
	if err != nil {
		t.Fatalf("failed to attach document: %v", err)
	}
	return tx
}

func (f *attestationFixture) overwriteDocument(t *testing.T, location string, body []byte) {
	t.Helper()
	path := filepath.Join(f.store.Dir(), strings.TrimPrefix(location, storage.LocalURLPrefix))
	if err := os.WriteFile(path, body, 0o640); err != nil {
		t.Fatalf("failed to overwrite document: %v", err)
	}
}

func TestAttachDocument(t *testing.T) {
	t.Run("seals_and_stores", func(t *testing.T) {
		f := newAttestationFixture(t)

		tx, changes, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "Invoice.PDF", testInvoice)
		testutil.AssertNoError(t, err)

		if tx.DocumentHash != integrity.Seal(testInvoice) {
			t.Errorf("expected document hash %s, got %s", integrity.Seal(testInvoice), tx.DocumentHash)
		}
		if !strings.HasPrefix(tx.InvoiceURL, storage.LocalURLPrefix) || !strings.HasSuffix(tx.InvoiceURL, ".pdf") {
			t.Errorf("unexpected invoice url %q", tx.InvoiceURL)
		}
		if changes["document_hash"].Old != "" || changes["document_hash"].New != tx.DocumentHash {
			t.Errorf("unexpected change %+v", changes["document_hash"])
		}

		stored, err := f.store.Get(context.Background(), tx.InvoiceURL)
		testutil.AssertNoError(t, err)
		if string(stored) != string(testInvoice) {
			t.Error("stored bytes differ from upload")
		}
	})

	t.Run("replacing_document_reports_previous", func(t *testing.T) {
		f := newAttestationFixture(t)
		first := f.attach(t)

		second := append([]byte{}, testInvoice...)
		second = append(second, []byte("% revised\n")...)
		tx, changes, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.pdf", second)
		testutil.AssertNoError(t, err)

		if changes["document_hash"].Old != first.DocumentHash {
			t.Errorf("expected previous hash in changes, got %+v", changes["document_hash"])
		}
		if tx.DocumentHash == first.DocumentHash {
			t.Error("expected a new document hash")
		}
	})

	t.Run("empty_file", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, _, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.pdf", nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("too_large", func(t *testing.T) {
		f := newAttestationFixture(t)
		body := append([]byte("%PDF-1.4\n"), make([]byte, 2048)...)
		_, _, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.pdf", body)
		testutil.AssertAppError(t, err, "DOCUMENT_TOO_LARGE")
	})

	t.Run("disallowed_extension", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, _, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.exe", testInvoice)
		testutil.AssertAppError(t, err, "INVALID_DOCUMENT_TYPE")
	})

	t.Run("content_does_not_match_extension", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, _, err := f.svc.AttachDocument(context.Background(), f.tx.ID, "invoice.pdf", []byte("plain text pretending to be a pdf"))
		testutil.AssertAppError(t, err, "INVALID_DOCUMENT_TYPE")
	})

	t.Run("unknown_transaction", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, _, err := f.svc.AttachDocument(context.Background(), "missing", "invoice.pdf", testInvoice)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestVerifyDocument(t *testing.T) {
	t.Run("untouched", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)

		v, err := f.svc.VerifyDocument(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid || v.StoredHash != v.ComputedHash {
			t.Errorf("expected valid document, got %+v", v)
		}
	})

	t.Run("tampered_bytes", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		tampered := append([]byte{}, testInvoice...)
		tampered[len(tampered)-2] ^= 0x01
		f.overwriteDocument(t, tx.InvoiceURL, tampered)

		v, err := f.svc.VerifyDocument(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if v.IsValid {
			t.Error("expected tampered document to fail verification")
		}
		if v.ComputedHash != integrity.Seal(tampered) {
			t.Errorf("expected computed hash of tampered bytes, got %s", v.ComputedHash)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		path := filepath.Join(f.store.Dir(), strings.TrimPrefix(tx.InvoiceURL, storage.LocalURLPrefix))
		if err := os.Remove(path); err != nil {
			t.Fatalf("failed to remove document: %v", err)
		}

		_, err := f.svc.VerifyDocument(context.Background(), tx.ID)
		testutil.AssertAppError(t, err, "DOCUMENT_UNAVAILABLE")
	})

	t.Run("no_document", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, err := f.svc.VerifyDocument(context.Background(), f.tx.ID)
		testutil.AssertAppError(t, err, "NO_DOCUMENT")
	})
}

func TestSignTransaction(t *testing.T) {
	t.Run("sign_then_verify", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)

		a, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)
		if a.SignedBy != f.ledger.User.ID || a.Signature == "" || a.Replaced != nil {
			t.Errorf("unexpected attestation %+v", a)
		}
		if f.keys.Len() != 1 {
			t.Errorf("expected one provisioned key, got %d", f.keys.Len())
		}

		v, err := f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid {
			t.Error("expected untouched transaction to verify")
		}
		if v.KeyFingerprint != a.KeyFingerprint {
			t.Errorf("expected fingerprint %s, got %s", a.KeyFingerprint, v.KeyFingerprint)
		}
	})

	t.Run("edit_after_signing_fails_verification", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)

		amount := int64(600)
		_, _, err = NewTransactionService(f.db).UpdateTransaction(tx.ID, TransactionUpdate{Amount: &amount})
		testutil.AssertNoError(t, err)

		v, err := f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if v.IsValid {
			t.Error("expected amount change to invalidate the signature")
		}
	})

	t.Run("unsigned_field_edit_keeps_signature_valid", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)

		desc := "late note"
		_, _, err = NewTransactionService(f.db).UpdateTransaction(tx.ID, TransactionUpdate{Description: &desc})
		testutil.AssertNoError(t, err)

		v, err := f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid {
			t.Error("expected description to be outside the signed payload")
		}
	})

	t.Run("already_signed", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)

		_, err = f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertAppError(t, err, "SIGNATURE_ALREADY_EXISTS")
	})

	t.Run("override_reports_prior_attestation", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		first, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)

		other := testutil.CreateTestUserWithEmail(t, f.db, "second-signer@example.com")
		second, err := f.svc.SignTransaction(context.Background(), tx.ID, other.ID, true)
		testutil.AssertNoError(t, err)

		if second.Replaced == nil || second.Replaced.Signature != first.Signature || second.Replaced.SignedBy != f.ledger.User.ID {
			t.Errorf("expected prior attestation to be reported, got %+v", second.Replaced)
		}

		v, err := f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid || v.SignedBy != other.ID {
			t.Errorf("expected the new signer to verify, got %+v", v)
		}
	})

	t.Run("no_document", func(t *testing.T) {
		f := newAttestationFixture(t)
		_, err := f.svc.SignTransaction(context.Background(), f.tx.ID, f.ledger.User.ID, false)
		testutil.AssertAppError(t, err, "NO_DOCUMENT")
		if f.keys.Len() != 0 {
			t.Error("expected no key to be provisioned")
		}
	})

	t.Run("tampered_document_refused", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		f.overwriteDocument(t, tx.InvoiceURL, []byte("%PDF-1.4\nreplaced\n"))

		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertAppError(t, err, "DOCUMENT_TAMPERED")
	})

	t.Run("cancelled_context", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.svc.SignTransaction(ctx, tx.ID, f.ledger.User.ID, false)
		if err == nil {
			t.Fatal("expected cancelled signing to fail")
		}

		var reloaded models.Transaction
		f.db.First(&reloaded, "id = ?", tx.ID)
		if reloaded.IsSigned() {
			t.Error("expected transaction to stay unsigned")
		}
	})
}

func TestVerifySignature(t *testing.T) {
	t.Run("not_signed", func(t *testing.T) {
		f := newAttestationFixture(t)
		f.attach(t)

		_, err := f.svc.VerifySignature(context.Background(), f.tx.ID)
		testutil.AssertAppError(t, err, "NOT_SIGNED")
	})

	t.Run("signer_key_missing", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)

		// A service backed by an empty key store cannot find the signer.
		other := NewAttestationService(f.db, f.store, keystore.NewCustodian(keystore.NewMemoryStore()), 1024)
		_, err = other.VerifySignature(context.Background(), tx.ID)
		testutil.AssertAppError(t, err, "SIGNING_KEY_NOT_FOUND")
	})

	t.Run("malformed_signature", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		_, err := f.svc.SignTransaction(context.Background(), tx.ID, f.ledger.User.ID, false)
		testutil.AssertNoError(t, err)
		f.db.Exec("UPDATE transactions SET digital_signature = ? WHERE id = ?", "not-hex", tx.ID)

		_, err = f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("verification_never_provisions", func(t *testing.T) {
		f := newAttestationFixture(t)
		tx := f.attach(t)
		f.db.Exec("UPDATE transactions SET digital_signature = ?, signed_by = ? WHERE id = ?", "abcd", "nobody", tx.ID)

		_, err := f.svc.VerifySignature(context.Background(), tx.ID)
		testutil.AssertAppError(t, err, "SIGNING_KEY_NOT_FOUND")
		if f.keys.Len() != 0 {
			t.Error("expected verification not to create a key")
		}
	})
}
