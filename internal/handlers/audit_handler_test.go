package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

const testRecordID = "88888888-8888-8888-8888-888888888888"

func setupAuditRouter(handler *AuditHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/audit", handler.GetAuditRecords)
	auth.GET("/audit/entity/:entityId", handler.GetEntityAuditRecords)
	auth.GET("/audit/:id/verify", handler.VerifyAuditRecord)
	return r
}

func TestAuditHandler_GetAuditRecords(t *testing.T) {
	t.Run("passes all filters", func(t *testing.T) {
		var got services.AuditFilter
		var gotPage pagination.PageRequest
		audit := &mockAuditService{
			getAuditRecordsFn: func(page pagination.PageRequest, filter services.AuditFilter) (*pagination.PageResponse[models.AuditRecord], error) {
				got, gotPage = filter, page
				resp := pagination.NewPageResponse([]models.AuditRecord{{ID: testRecordID}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupAuditRouter(NewAuditHandler(audit))

		rec := doRequest(r, "GET", "/audit?entity_type=transaction&action=sign&actor_id="+testUserID+
			"&entity_id="+testTransactionID+"&from_date=2025-01-01&to_date=2025-12-31T23:59:59Z&page=2&page_size=5", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.EntityType == nil || *got.EntityType != models.AuditEntityTransaction {
			t.Errorf("expected entity_type filter, got %v", got.EntityType)
		}
		if got.Action == nil || *got.Action != models.AuditActionSign {
			t.Errorf("expected action filter, got %v", got.Action)
		}
		if got.ActorID == nil || *got.ActorID != testUserID {
			t.Errorf("expected actor filter, got %v", got.ActorID)
		}
		if got.EntityID == nil || *got.EntityID != testTransactionID {
			t.Errorf("expected entity filter, got %v", got.EntityID)
		}
		if got.FromDate == nil || got.ToDate == nil {
			t.Errorf("expected date range, got %v..%v", got.FromDate, got.ToDate)
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("unexpected page %+v", gotPage)
		}
		result := parseJSON(t, rec)
		if result["total_pages"].(float64) != 2 {
			t.Errorf("expected 2 pages, got %v", result["total_pages"])
		}
	})

	t.Run("returns 400 on unknown entity type", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit?entity_type=invoice", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on unknown action", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit?action=approve", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit?from_date=yesterday", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuditHandler_GetEntityAuditRecords(t *testing.T) {
	t.Run("returns the entity trail", func(t *testing.T) {
		var gotEntity string
		audit := &mockAuditService{
			getEntityAuditRecordsFn: func(entityID string, _ pagination.PageRequest) (*pagination.PageResponse[models.AuditRecord], error) {
				gotEntity = entityID
				resp := pagination.NewPageResponse([]models.AuditRecord{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupAuditRouter(NewAuditHandler(audit))

		rec := doRequest(r, "GET", "/audit/entity/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotEntity != testTransactionID {
			t.Errorf("expected entity %s, got %s", testTransactionID, gotEntity)
		}
	})

	t.Run("returns 400 on oversized entity id", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit/entity/"+strings.Repeat("a", 65), "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuditHandler_VerifyAuditRecord(t *testing.T) {
	t.Run("returns verification result", func(t *testing.T) {
		audit := &mockAuditService{
			verifyRecordFn: func(id string) (*services.RecordVerification, error) {
				return &services.RecordVerification{RecordID: id, IsValid: false, StoredHash: "aa", ComputedHash: "bb"}, nil
			},
		}
		r := setupAuditRouter(NewAuditHandler(audit))

		rec := doRequest(r, "GET", "/audit/"+testRecordID+"/verify", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["record_id"] != testRecordID || result["is_valid"] != false {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		audit := &mockAuditService{
			verifyRecordFn: func(string) (*services.RecordVerification, error) {
				return nil, apperrors.ErrAuditRecordNotFound
			},
		}
		r := setupAuditRouter(NewAuditHandler(audit))

		rec := doRequest(r, "GET", "/audit/"+testRecordID+"/verify", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "AUDIT_RECORD_NOT_FOUND")
	})

	t.Run("returns 400 on invalid id", func(t *testing.T) {
		r := setupAuditRouter(NewAuditHandler(&mockAuditService{}))

		rec := doRequest(r, "GET", "/audit/xyz/verify", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
