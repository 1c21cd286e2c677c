// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"trustledger/internal/models"
)

var (
	// GSTIN: 2-digit state code, PAN, entity number, 'Z', checksum.
	gstinRegex      = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	fiscalYearRegex = regexp.MustCompile(`^[0-9]{4}(-[0-9]{2,4})?$`)
	digestRegex     = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("gstin", validateGSTIN)
	_ = v.RegisterValidation("fiscal_year", validateFiscalYear)
	_ = v.RegisterValidation("sha256_hex", validateDigest)
	_ = v.RegisterValidation("entity_type", validateEntityType)
	_ = v.RegisterValidation("audit_action", validateAuditAction)
	_ = v.RegisterValidation("project_status", validateProjectStatus)
	_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
	_ = v.RegisterValidation("user_role", validateUserRole)
}

func validateGSTIN(fl validator.FieldLevel) bool {
	return gstinRegex.MatchString(fl.Field().String())
}

func validateFiscalYear(fl validator.FieldLevel) bool {
	return fiscalYearRegex.MatchString(fl.Field().String())
}

func validateDigest(fl validator.FieldLevel) bool {
	return digestRegex.MatchString(fl.Field().String())
}

func validateEntityType(fl validator.FieldLevel) bool {
	return models.AuditEntityType(fl.Field().String()).Valid()
}

func validateAuditAction(fl validator.FieldLevel) bool {
	return models.AuditAction(fl.Field().String()).Valid()
}

func validateProjectStatus(fl validator.FieldLevel) bool {
	return models.ProjectStatus(fl.Field().String()).Valid()
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	return models.TransactionStatus(fl.Field().String()).Valid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}
