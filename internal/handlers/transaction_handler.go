package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

// TransactionHandler handles transaction-related requests, including invoice
// sealing and attestation.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	attestationService services.AttestationServicer
	auditService       services.AuditServicer
	maxUploadBytes     int64
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	attestationService services.AttestationServicer,
	auditService services.AuditServicer,
	maxUploadBytes int64,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		attestationService: attestationService,
		auditService:       auditService,
		maxUploadBytes:     maxUploadBytes,
	}
}

// CreateTransactionRequest represents the request payload for creating a transaction
type CreateTransactionRequest struct {
	ProjectID     string                   `json:"project_id" binding:"required,uuid"`
	VendorID      string                   `json:"vendor_id" binding:"required,uuid"`
	Amount        int64                    `json:"amount" binding:"required,gt=0"`
	Date          *string                  `json:"date"`
	Description   string                   `json:"description" binding:"max=500"`
	InvoiceNumber string                   `json:"invoice_number" binding:"max=64"`
	Status        models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction
type UpdateTransactionRequest struct {
	ProjectID     *string                   `json:"project_id" binding:"omitempty,uuid"`
	VendorID      *string                   `json:"vendor_id" binding:"omitempty,uuid"`
	Amount        *int64                    `json:"amount" binding:"omitempty,gt=0"`
	Date          *string                   `json:"date"`
	Description   *string                   `json:"description" binding:"omitempty,max=500"`
	InvoiceNumber *string                   `json:"invoice_number" binding:"omitempty,max=64"`
	Status        *models.TransactionStatus `json:"status" binding:"omitempty,transaction_status"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record a payment from a project to a vendor. Amount is in minor currency units.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Project or vendor not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var date time.Time
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		date = parsed
	}

	transaction, err := h.transactionService.CreateTransaction(userID, services.TransactionInput{
		ProjectID:     req.ProjectID,
		VendorID:      req.VendorID,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
		InvoiceNumber: req.InvoiceNumber,
		Status:        req.Status,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityTransaction, transaction.ID, models.AuditActionCreate,
		map[string]interface{}{
			"project_id":     transaction.ProjectID,
			"vendor_id":      transaction.VendorID,
			"amount":         transaction.Amount,
			"invoice_number": transaction.InvoiceNumber,
			"status":         transaction.Status,
		})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions handles listing transactions
// @Summary     Get transactions
// @Description Get a paginated, filtered list of transactions, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id query string false "Filter by project"
// @Param       vendor_id  query string false "Filter by vendor"
// @Param       status     query string false "Filter by status"
// @Param       from_date  query string false "Earliest date (RFC 3339 or YYYY-MM-DD)"
// @Param       to_date    query string false "Latest date (RFC 3339 or YYYY-MM-DD)"
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		ProjectID: optionalQuery(c, "project_id"),
		VendorID:  optionalQuery(c, "vendor_id"),
	}

	if v := c.Query("status"); v != "" {
		s := models.TransactionStatus(v)
		if !s.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown transaction status"))
			return
		}
		filter.Status = &s
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

	result, err := h.transactionService.GetTransactions(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles retrieving a specific transaction
// @Summary     Get transaction by ID
// @Description Get a transaction with its project and vendor
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction handles updating an existing transaction
// @Summary     Update transaction
// @Description Update a transaction. An existing signature is kept, so edits to signed fields show up in signature verification.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Updated transaction details"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	upd := services.TransactionUpdate{
		ProjectID:     req.ProjectID,
		VendorID:      req.VendorID,
		Amount:        req.Amount,
		Description:   req.Description,
		InvoiceNumber: req.InvoiceNumber,
		Status:        req.Status,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		upd.Date = &parsed
	}

	transaction, changes, err := h.transactionService.UpdateTransaction(transactionID, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if len(changes) > 0 {
		recordAudit(c, h.auditService, models.AuditEntityTransaction, transaction.ID, models.AuditActionUpdate, changes)
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction by ID (soft delete)
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.DeleteTransaction(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityTransaction, transaction.ID, models.AuditActionDelete,
		map[string]interface{}{"id": transaction.ID, "amount": transaction.Amount})

	c.JSON(http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// UploadInvoice seals and stores an invoice for a transaction
// @Summary     Upload invoice
// @Description Store an invoice document and record its SHA-256 digest on the transaction
// @Tags        attestation
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id      path     string true "Transaction ID"
// @Param       invoice formData file   true "Invoice (jpeg, png, gif, pdf, doc, docx, xls, xlsx)"
// @Success     200 {object} models.Transaction "Transaction with sealed invoice"
// @Failure     400 {object} ErrorResponse "Missing or invalid file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     413 {object} ErrorResponse "File too large"
// @Router      /transactions/{id}/invoice [post]
func (h *TransactionHandler) UploadInvoice(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	fh, err := c.FormFile("invoice")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Please upload a file"))
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		respondWithError(c, apperrors.ErrDocumentTooLarge)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadBytes > 0 {
		r = io.LimitReader(f, h.maxUploadBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	transaction, changes, err := h.attestationService.AttachDocument(c.Request.Context(), transactionID, fh.Filename, body)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, models.AuditEntityTransaction, transaction.ID, models.AuditActionFileUpload, changes)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// VerifyDocument re-seals the stored invoice and compares digests
// @Summary     Verify invoice
// @Description Recompute the invoice digest and compare it with the one recorded at upload
// @Tags        attestation
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} services.DocumentVerification "Verification result"
// @Failure     400 {object} ErrorResponse "No document"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or document not found"
// @Router      /transactions/{id}/verify [get]
func (h *TransactionHandler) VerifyDocument(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.attestationService.VerifyDocument(c.Request.Context(), transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SignTransaction attests the transaction with the caller's key
// @Summary     Sign transaction
// @Description Sign id, amount, project, vendor and invoice digest with the caller's RSA key, creating the key on first use
// @Tags        attestation
// @Produce     json
// @Security    BearerAuth
// @Param       id       path  string true  "Transaction ID"
// @Param       override query bool   false "Replace an existing signature"
// @Success     200 {object} services.Attestation "Recorded attestation"
// @Failure     400 {object} ErrorResponse "No document"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Already signed or document tampered"
// @Router      /transactions/{id}/sign [post]
func (h *TransactionHandler) SignTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	override, err := optionalBoolQuery(c, "override")
	if err != nil {
		respondWithError(c, err)
		return
	}

	attestation, err := h.attestationService.SignTransaction(c.Request.Context(), transactionID, userID, override != nil && *override)
	if err != nil {
		respondWithError(c, err)
		return
	}

	diff := map[string]interface{}{
		"signature":       attestation.Signature,
		"key_fingerprint": attestation.KeyFingerprint,
	}
	if attestation.Replaced != nil {
		diff["replaced"] = attestation.Replaced
	}
	recordAudit(c, h.auditService, models.AuditEntityTransaction, transactionID, models.AuditActionSign, diff)

	c.JSON(http.StatusOK, attestation)
}

// VerifySignature checks the stored signature against the current transaction
// @Summary     Verify signature
// @Description Verify the stored signature against the transaction as it is now, using the signer's public key
// @Tags        attestation
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} services.SignatureVerification "Verification result"
// @Failure     400 {object} ErrorResponse "Not signed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or signing key not found"
// @Failure     422 {object} ErrorResponse "Malformed signature"
// @Router      /transactions/{id}/verify-signature [get]
func (h *TransactionHandler) VerifySignature(c *gin.Context) {
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.attestationService.VerifySignature(c.Request.Context(), transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
