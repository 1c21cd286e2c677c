package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

// AuditHandler exposes the audit trail to admins and auditors.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditRecords handles listing audit records
// @Summary     Get audit records
// @Description Get a paginated, filtered list of audit records, newest first
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity_id   query string false "Filter by entity"
// @Param       entity_type query string false "Filter by entity type"
// @Param       action      query string false "Filter by action"
// @Param       actor_id    query string false "Filter by actor"
// @Param       from_date   query string false "Earliest time (RFC 3339 or YYYY-MM-DD)"
// @Param       to_date     query string false "Latest time (RFC 3339 or YYYY-MM-DD)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditRecord] "Paginated audit records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit [get]
func (h *AuditHandler) GetAuditRecords(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.AuditFilter{
		EntityID: optionalQuery(c, "entity_id"),
		ActorID:  optionalQuery(c, "actor_id"),
	}
	if v := c.Query("entity_type"); v != "" {
		t := models.AuditEntityType(v)
		if !t.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown entity_type"))
			return
		}
		filter.EntityType = &t
	}
	if v := c.Query("action"); v != "" {
		a := models.AuditAction(v)
		if !a.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown action"))
			return
		}
		filter.Action = &a
	}

	var err error
	if filter.FromDate, err = optionalTimeQuery(c, "from_date"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = optionalTimeQuery(c, "to_date"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.GetAuditRecords(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetEntityAuditRecords handles listing the trail of one entity
// @Summary     Get entity audit trail
// @Description Get the audit records of a single entity, newest first
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entityId  path  string true  "Entity ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditRecord] "Paginated audit records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Router      /audit/entity/{entityId} [get]
func (h *AuditHandler) GetEntityAuditRecords(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" || len(entityID) > 64 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid entityId"))
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.auditService.GetEntityAuditRecords(entityID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyAuditRecord recomputes an audit record's hash
// @Summary     Verify audit record
// @Description Recompute the record hash from its stored fields and compare with the stored hash
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Audit record ID"
// @Success     200 {object} services.RecordVerification "Verification result"
// @Failure     400 {object} ErrorResponse "Invalid record ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Audit record not found"
// @Router      /audit/{id}/verify [get]
func (h *AuditHandler) VerifyAuditRecord(c *gin.Context) {
	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.VerifyRecord(recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
