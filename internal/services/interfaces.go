package services

import (
	"context"
	"time"

	"trustledger/internal/keystore"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string, role models.Role) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	UpdateRole(id string, role models.Role) (*models.User, Changes, error)
}

// BudgetInput holds the fields required to create a budget.
type BudgetInput struct {
	Name        string
	FiscalYear  string
	TotalAmount int64
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// BudgetUpdate holds optional budget fields; nil means unchanged.
type BudgetUpdate struct {
	Name        *string
	FiscalYear  *string
	TotalAmount *int64
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(actorID string, in BudgetInput) (*models.Budget, error)
	GetBudgets(page pagination.PageRequest, fiscalYear *string) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(budgetID string) (*models.Budget, error)
	UpdateBudget(budgetID string, upd BudgetUpdate) (*models.Budget, Changes, error)
	DeleteBudget(budgetID string) (*models.Budget, error)
}

// DepartmentInput holds the fields required to create a department.
type DepartmentInput struct {
	Name            string
	BudgetID        string
	AllocatedAmount int64
	Description     string
}

// DepartmentUpdate holds optional department fields; nil means unchanged.
type DepartmentUpdate struct {
	Name            *string
	AllocatedAmount *int64
	Description     *string
	IsActive        *bool
}

// DepartmentFilter holds optional filter parameters for listing departments.
type DepartmentFilter struct {
	BudgetID *string
	IsActive *bool
}

// DepartmentServicer defines the contract for department-related business logic.
type DepartmentServicer interface {
	CreateDepartment(actorID string, in DepartmentInput) (*models.Department, error)
	GetDepartments(page pagination.PageRequest, filter DepartmentFilter) (*pagination.PageResponse[models.Department], error)
	GetDepartmentByID(departmentID string) (*models.Department, error)
	UpdateDepartment(departmentID string, upd DepartmentUpdate) (*models.Department, Changes, error)
	DeleteDepartment(departmentID string) (*models.Department, error)
}

// ProjectInput holds the fields required to create a project.
type ProjectInput struct {
	Name            string
	DepartmentID    string
	AllocatedAmount int64
	Description     string
	StartDate       time.Time
	EndDate         time.Time
	Status          models.ProjectStatus
}

// ProjectUpdate holds optional project fields; nil means unchanged.
type ProjectUpdate struct {
	Name            *string
	AllocatedAmount *int64
	Description     *string
	StartDate       *time.Time
	EndDate         *time.Time
	Status          *models.ProjectStatus
	IsActive        *bool
}

// ProjectFilter holds optional filter parameters for listing projects.
type ProjectFilter struct {
	DepartmentID *string
	Status       *models.ProjectStatus
	IsActive     *bool
}

// ProjectServicer defines the contract for project-related business logic.
type ProjectServicer interface {
	CreateProject(actorID string, in ProjectInput) (*models.Project, error)
	GetProjects(page pagination.PageRequest, filter ProjectFilter) (*pagination.PageResponse[models.Project], error)
	GetProjectByID(projectID string) (*models.Project, error)
	UpdateProject(projectID string, upd ProjectUpdate) (*models.Project, Changes, error)
	DeleteProject(projectID string) (*models.Project, error)
}

// VendorInput holds the fields required to create a vendor.
type VendorInput struct {
	Name        string
	GSTIN       string
	Email       string
	Phone       string
	Address     string
	Description string
}

// VendorUpdate holds optional vendor fields; nil means unchanged.
type VendorUpdate struct {
	Name        *string
	GSTIN       *string
	Email       *string
	Phone       *string
	Address     *string
	Description *string
	IsActive    *bool
}

// VendorFilter holds optional filter parameters for listing vendors.
type VendorFilter struct {
	IsActive *bool
	Search   *string
}

// VendorServicer defines the contract for vendor-related business logic.
type VendorServicer interface {
	CreateVendor(actorID string, in VendorInput) (*models.Vendor, error)
	GetVendors(page pagination.PageRequest, filter VendorFilter) (*pagination.PageResponse[models.Vendor], error)
	GetVendorByID(vendorID string) (*models.Vendor, error)
	UpdateVendor(vendorID string, upd VendorUpdate) (*models.Vendor, Changes, error)
	DeleteVendor(vendorID string) (*models.Vendor, error)
}

// TransactionInput holds the fields required to create a transaction.
type TransactionInput struct {
	ProjectID     string
	VendorID      string
	Amount        int64
	Date          time.Time
	Description   string
	InvoiceNumber string
	Status        models.TransactionStatus
}

// TransactionUpdate holds optional transaction fields; nil means unchanged.
// The document and attestation columns are not editable here.
type TransactionUpdate struct {
	ProjectID     *string
	VendorID      *string
	Amount        *int64
	Date          *time.Time
	Description   *string
	InvoiceNumber *string
	Status        *models.TransactionStatus
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	ProjectID *string
	VendorID  *string
	Status    *models.TransactionStatus
	FromDate  *time.Time
	ToDate    *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(actorID string, in TransactionInput) (*models.Transaction, error)
	GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	UpdateTransaction(transactionID string, upd TransactionUpdate) (*models.Transaction, Changes, error)
	DeleteTransaction(transactionID string) (*models.Transaction, error)
}

// DocumentVerification is the outcome of re-sealing a stored invoice.
type DocumentVerification struct {
	TransactionID string `json:"transaction_id"`
	IsValid       bool   `json:"is_valid"`
	StoredHash    string `json:"stored_hash"`
	ComputedHash  string `json:"computed_hash"`
}

// PriorAttestation is a signature replaced by an override.
type PriorAttestation struct {
	Signature string     `json:"signature"`
	SignedBy  string     `json:"signed_by"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
}

// Attestation is a recorded transaction signature.
type Attestation struct {
	TransactionID  string            `json:"transaction_id"`
	Signature      string            `json:"signature"`
	SignedBy       string            `json:"signed_by"`
	SignedAt       time.Time         `json:"signed_at"`
	KeyFingerprint string            `json:"key_fingerprint"`
	Replaced       *PriorAttestation `json:"replaced,omitempty"`
}

// SignatureVerification is the outcome of checking a stored signature
// against the transaction's current fields.
type SignatureVerification struct {
	TransactionID  string     `json:"transaction_id"`
	IsValid        bool       `json:"is_valid"`
	SignedBy       string     `json:"signed_by"`
	SignedAt       *time.Time `json:"signed_at,omitempty"`
	KeyFingerprint string     `json:"key_fingerprint"`
}

// KeyCustodian serves per-actor signing keys.
type KeyCustodian interface {
	Get(ctx context.Context, actorID string) (*keystore.KeyPair, error)
	GetOrCreate(ctx context.Context, actorID string) (*keystore.KeyPair, error)
}

// AttestationServicer defines the contract for invoice sealing and
// transaction signatures.
type AttestationServicer interface {
	AttachDocument(ctx context.Context, transactionID, filename string, body []byte) (*models.Transaction, Changes, error)
	VerifyDocument(ctx context.Context, transactionID string) (*DocumentVerification, error)
	SignTransaction(ctx context.Context, transactionID, actorID string, override bool) (*Attestation, error)
	VerifySignature(ctx context.Context, transactionID string) (*SignatureVerification, error)
}

// AuditEntry describes one audited action. Diff may be any JSON-encodable
// value; nil is stored as {}.
type AuditEntry struct {
	EntityType models.AuditEntityType
	EntityID   string
	Action     models.AuditAction
	ActorID    string
	Diff       interface{}
	IPAddress  string
	UserAgent  string
}

// RecordResult reports the outcome of a best-effort audit write. Err is set
// when the record was not persisted; the audited operation has already
// committed either way, so callers only inspect it for diagnostics.
type RecordResult struct {
	Record *models.AuditRecord
	Err    error
}

// OK reports whether the record was persisted.
func (r RecordResult) OK() bool { return r.Err == nil && r.Record != nil }

// AuditFilter holds optional filter parameters for listing audit records.
type AuditFilter struct {
	EntityID   *string
	EntityType *models.AuditEntityType
	Action     *models.AuditAction
	ActorID    *string
	FromDate   *time.Time
	ToDate     *time.Time
}

// RecordVerification is the outcome of recomputing an audit record's hash.
type RecordVerification struct {
	RecordID     string `json:"record_id"`
	IsValid      bool   `json:"is_valid"`
	StoredHash   string `json:"stored_hash"`
	ComputedHash string `json:"computed_hash"`
}

// AuditServicer defines the contract for the audit trail.
type AuditServicer interface {
	Record(entry AuditEntry) RecordResult
	GetAuditRecords(page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditRecord], error)
	GetEntityAuditRecords(entityID string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditRecord], error)
	VerifyRecord(recordID string) (*RecordVerification, error)
}
