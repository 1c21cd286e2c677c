package services

import (
	"context"
	"testing"
	"time"

	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/testutil"
)

// capturePublisher forwards published records to a channel.
type capturePublisher struct {
	records chan models.AuditRecord
}

func (p *capturePublisher) PublishAuditRecord(_ context.Context, r *models.AuditRecord) error {
	p.records <- *r
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestAuditRecord(t *testing.T) {
	t.Run("verifies_immediately", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{
			EntityType: models.AuditEntityTransaction,
			EntityID:   "T1",
			Action:     models.AuditActionCreate,
			ActorID:    "U1",
			Diff:       map[string]interface{}{"amount": 500},
		})
		if !res.OK() {
			t.Fatalf("expected record to be written: %v", res.Err)
		}
		testutil.AssertDigest(t, res.Record.RecordHash)
		if string(res.Record.Diff) != `{"amount":500}` {
			t.Errorf("unexpected canonical diff %s", res.Record.Diff)
		}

		v, err := svc.VerifyRecord(res.Record.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid {
			t.Errorf("expected untouched record to verify: stored %s computed %s", v.StoredHash, v.ComputedHash)
		}
	})

	t.Run("nil_diff_stored_as_empty_object", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{EntityType: models.AuditEntityUser, EntityID: "U1", Action: models.AuditActionLogin, ActorID: "U1"})
		if !res.OK() {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if res.Record.Diff != "{}" {
			t.Errorf("expected {}, got %s", res.Record.Diff)
		}
	})

	t.Run("unencodable_diff_is_reported_not_propagated", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{
			EntityType: models.AuditEntityVendor,
			EntityID:   "V1",
			Action:     models.AuditActionUpdate,
			ActorID:    "U1",
			Diff:       map[string]interface{}{"bad": make(chan int)},
		})
		if res.OK() || res.Err == nil {
			t.Fatal("expected a failed result")
		}

		testutil.AssertRowCount(t, db, &models.AuditRecord{}, 0)
	})

	t.Run("storage_failure_is_reported", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)
		if err := db.Migrator().DropTable(&models.AuditRecord{}); err != nil {
			t.Fatalf("failed to drop table: %v", err)
		}

		res := svc.Record(AuditEntry{EntityType: models.AuditEntityUser, EntityID: "U1", Action: models.AuditActionLogin, ActorID: "U1"})
		if res.Err == nil {
			t.Fatal("expected storage error in result")
		}
	})

	t.Run("publishes_committed_records", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &capturePublisher{records: make(chan models.AuditRecord, 1)}
		svc := NewAuditService(db, pub)

		res := svc.Record(AuditEntry{EntityType: models.AuditEntityBudget, EntityID: "B1", Action: models.AuditActionCreate, ActorID: "U1"})
		if !res.OK() {
			t.Fatalf("unexpected error: %v", res.Err)
		}

		select {
		case got := <-pub.records:
			if got.ID != res.Record.ID || got.RecordHash != res.Record.RecordHash {
				t.Errorf("published record does not match: %+v", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("expected record to be published")
		}
	})
}

func TestAuditAppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db, nil)

	res := svc.Record(AuditEntry{EntityType: models.AuditEntityTransaction, EntityID: "T1", Action: models.AuditActionCreate, ActorID: "U1"})
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	if err := db.Model(res.Record).Update("actor_id", "U2").Error; err == nil {
		t.Error("expected ORM update to be rejected")
	}
	if err := db.Delete(res.Record).Error; err == nil {
		t.Error("expected ORM delete to be rejected")
	}
}

func TestVerifyRecord(t *testing.T) {
	t.Run("tampered_fields_detected", func(t *testing.T) {
		columns := map[string]interface{}{
			"entity_type": "vendor",
			"entity_id":   "T2",
			"action":      "delete",
			"actor_id":    "U2",
			"diff":        `{"amount":600}`,
			"created_at":  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		for column, value := range columns {
			t.Run(column, func(t *testing.T) {
				db := testutil.SetupTestDB(t)
				defer testutil.TeardownTestDB(t, db)
				svc := NewAuditService(db, nil)

				res := svc.Record(AuditEntry{
					EntityType: models.AuditEntityTransaction,
					EntityID:   "T1",
					Action:     models.AuditActionCreate,
					ActorID:    "U1",
					Diff:       map[string]interface{}{"amount": 500},
				})
				if !res.OK() {
					t.Fatalf("unexpected error: %v", res.Err)
				}

				// Raw SQL bypasses the append-only hooks, as a direct database edit would.
				if err := db.Exec("UPDATE audit_records SET "+column+" = ? WHERE id = ?", value, res.Record.ID).Error; err != nil {
					t.Fatalf("failed to tamper: %v", err)
				}

				v, err := svc.VerifyRecord(res.Record.ID)
				testutil.AssertNoError(t, err)
				if v.IsValid {
					t.Error("expected tampered record to fail verification")
				}
				if v.StoredHash != res.Record.RecordHash {
					t.Error("expected stored hash to be reported unchanged")
				}
			})
		}
	})

	t.Run("ip_and_user_agent_not_hashed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{EntityType: models.AuditEntityUser, EntityID: "U1", Action: models.AuditActionLogin, ActorID: "U1", IPAddress: "10.0.0.1"})
		db.Exec("UPDATE audit_records SET ip_address = ?, user_agent = ? WHERE id = ?", "10.0.0.2", "curl", res.Record.ID)

		v, err := svc.VerifyRecord(res.Record.ID)
		testutil.AssertNoError(t, err)
		if !v.IsValid {
			t.Error("expected informational columns to be outside the hash")
		}
	})

	t.Run("unreadable_diff_is_invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{EntityType: models.AuditEntityUser, EntityID: "U1", Action: models.AuditActionLogin, ActorID: "U1"})
		db.Exec("UPDATE audit_records SET diff = ? WHERE id = ?", "{not json", res.Record.ID)

		v, err := svc.VerifyRecord(res.Record.ID)
		testutil.AssertNoError(t, err)
		if v.IsValid || v.ComputedHash != "" {
			t.Errorf("expected invalid result without computed hash, got %+v", v)
		}
	})

	t.Run("whitespace_edit_to_diff_is_invalid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		res := svc.Record(AuditEntry{
			EntityType: models.AuditEntityTransaction,
			EntityID:   "T1",
			Action:     models.AuditActionCreate,
			ActorID:    "U1",
			Diff:       map[string]interface{}{"amount": 500},
		})
		db.Exec("UPDATE audit_records SET diff = ? WHERE id = ?", `{ "amount" : 500 }`, res.Record.ID)

		v, err := svc.VerifyRecord(res.Record.ID)
		testutil.AssertNoError(t, err)
		if v.IsValid {
			t.Error("expected reformatted diff to fail verification")
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db, nil)

		_, err := svc.VerifyRecord("missing")
		testutil.AssertAppError(t, err, "AUDIT_RECORD_NOT_FOUND")
	})
}

func TestGetAuditRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db, nil).(*auditService)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	svc.Record(AuditEntry{EntityType: models.AuditEntityTransaction, EntityID: "T1", Action: models.AuditActionCreate, ActorID: "U1"})
	svc.Record(AuditEntry{EntityType: models.AuditEntityTransaction, EntityID: "T1", Action: models.AuditActionSign, ActorID: "U2"})
	svc.Record(AuditEntry{EntityType: models.AuditEntityVendor, EntityID: "V1", Action: models.AuditActionCreate, ActorID: "U1"})

	t.Run("newest_first", func(t *testing.T) {
		result, err := svc.GetAuditRecords(pagination.PageRequest{}, AuditFilter{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Fatalf("expected 3 records, got %d", result.TotalItems)
		}
		if result.Data[0].EntityID != "V1" || result.Data[2].Action != models.AuditActionCreate {
			t.Errorf("unexpected order: %v, %v", result.Data[0].EntityID, result.Data[2].Action)
		}
	})

	t.Run("by_entity", func(t *testing.T) {
		result, err := svc.GetEntityAuditRecords("T1", pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 records, got %d", result.TotalItems)
		}
	})

	t.Run("by_action_and_actor", func(t *testing.T) {
		action := models.AuditActionCreate
		actor := "U1"
		result, err := svc.GetAuditRecords(pagination.PageRequest{}, AuditFilter{Action: &action, ActorID: &actor})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 records, got %d", result.TotalItems)
		}
	})

	t.Run("by_date_range", func(t *testing.T) {
		from := base.Add(90 * time.Second)
		to := base.Add(150 * time.Second)
		result, err := svc.GetAuditRecords(pagination.PageRequest{}, AuditFilter{FromDate: &from, ToDate: &to})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 || result.Data[0].Action != models.AuditActionSign {
			t.Errorf("expected only the sign record, got %d", result.TotalItems)
		}
	})
}
