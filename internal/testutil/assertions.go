package testutil

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	apperrors "trustledger/internal/errors"
)

// AssertAppError fails unless err is, or wraps, an *AppError carrying code.
func AssertAppError(t *testing.T, err error, code string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError %s, got %T: %v", code, err, err)
	}
	if appErr.Code != code {
		t.Errorf("expected error %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertDigest checks that s looks like a SHA-256 digest as stored by the
// ledger: 64 lowercase hex characters.
func AssertDigest(t *testing.T, s string) {
	t.Helper()
	if len(s) != 64 {
		t.Errorf("expected 64-char digest, got %d chars: %q", len(s), s)
		return
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Errorf("digest %q is not lowercase hex", s)
			return
		}
	}
}

// AssertRowCount counts rows of model matching the optional where clause.
func AssertRowCount(t *testing.T, db *gorm.DB, model interface{}, want int64, where ...interface{}) {
	t.Helper()

	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var got int64
	if err := q.Count(&got).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %d rows, got %d", want, got)
	}
}
