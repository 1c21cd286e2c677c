package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

// VendorHandler handles vendor-related requests.
type VendorHandler struct {
	vendorService services.VendorServicer
	auditService  services.AuditServicer
}

// NewVendorHandler creates a new VendorHandler.
func NewVendorHandler(vendorService services.VendorServicer, auditService services.AuditServicer) *VendorHandler {
	return &VendorHandler{vendorService: vendorService, auditService: auditService}
}

// CreateVendorRequest represents the request payload for creating a vendor.
type CreateVendorRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	GSTIN       string `json:"gstin" binding:"omitempty,gstin"`
	Email       string `json:"email" binding:"omitempty,email,max=255"`
	Phone       string `json:"phone" binding:"max=32"`
	Address     string `json:"address" binding:"max=500"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateVendorRequest represents the request payload for updating a vendor.
type UpdateVendorRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	GSTIN       *string `json:"gstin" binding:"omitempty,gstin"`
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	Phone       *string `json:"phone" binding:"omitempty,max=32"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// CreateVendor handles the creation of a new vendor.
// @Summary     Create a vendor
// @Description Register a payee
// @Tags        vendors
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateVendorRequest true "Vendor details"
// @Success     201 {object} models.Vendor "Vendor created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /vendors [post]
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	vendor, err := h.vendorService.CreateVendor(userID, services.VendorInput{
		Name:        req.Name,
		GSTIN:       req.GSTIN,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityVendor, vendor.ID, models.AuditActionCreate, req)

	c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
}

// GetVendors handles listing vendors.
// @Summary     Get vendors
// @Description Get a paginated list of vendors sorted by name
// @Tags        vendors
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       search    query string false "Match name or GSTIN"
// @Param       is_active query bool   false "Filter by active status"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Vendor] "Paginated vendors"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /vendors [get]
func (h *VendorHandler) GetVendors(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := optionalBoolQuery(c, "is_active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.vendorService.GetVendors(page, services.VendorFilter{
		IsActive: isActive,
		Search:   optionalQuery(c, "search"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetVendor handles retrieving a specific vendor.
// @Summary     Get vendor by ID
// @Description Get a specific vendor by ID
// @Tags        vendors
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Vendor ID"
// @Success     200 {object} models.Vendor "Vendor details"
// @Failure     400 {object} ErrorResponse "Invalid vendor ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Vendor not found"
// @Router      /vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	vendorID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	vendor, err := h.vendorService.GetVendorByID(vendorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

// UpdateVendor handles updating an existing vendor.
// @Summary     Update vendor
// @Description Update an existing vendor
// @Tags        vendors
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Vendor ID"
// @Param       request body UpdateVendorRequest true "Updated vendor details"
// @Success     200 {object} models.Vendor "Updated vendor"
// @Failure     400 {object} ErrorResponse "Invalid input or vendor ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Vendor not found"
// @Router      /vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	vendorID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	vendor, changes, err := h.vendorService.UpdateVendor(vendorID, services.VendorUpdate{
		Name:        req.Name,
		GSTIN:       req.GSTIN,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(changes) > 0 {
		recordAudit(c, h.auditService, models.AuditEntityVendor, vendor.ID, models.AuditActionUpdate, changes)
	}

	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

// DeleteVendor handles deleting a vendor.
// @Summary     Delete vendor
// @Description Delete a vendor by ID (soft delete)
// @Tags        vendors
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Vendor ID"
// @Success     200 {object} MessageResponse "Vendor deleted"
// @Failure     400 {object} ErrorResponse "Invalid vendor ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Vendor not found"
// @Router      /vendors/{id} [delete]
func (h *VendorHandler) DeleteVendor(c *gin.Context) {
	vendorID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	vendor, err := h.vendorService.DeleteVendor(vendorID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityVendor, vendor.ID, models.AuditActionDelete,
		map[string]interface{}{"name": vendor.Name, "gstin": vendor.GSTIN})

	c.JSON(http.StatusOK, MessageResponse{Message: "Vendor deleted successfully"})
}
