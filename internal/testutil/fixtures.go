package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"trustledger/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates an active admin with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithRole(t, db, email, models.RoleAdmin)
}

// CreateTestUserWithEmail creates an admin with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	return CreateTestUserWithRole(t, db, email, models.RoleAdmin)
}

// CreateTestUserWithRole creates a user with the given email and role.
// The password is always "password123".
func CreateTestUserWithRole(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     "Test User",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestBudget creates a budget covering the current calendar year.
func CreateTestBudget(t *testing.T, db *gorm.DB, createdBy string) *models.Budget {
	t.Helper()

	year := time.Now().Year()
	budget := &models.Budget{
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		FiscalYear:  fmt.Sprintf("%d-%d", year, year+1),
		TotalAmount: 10000000, // 100,000.00
		StartDate:   time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		CreatedBy:   createdBy,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestDepartment creates an active department under budgetID.
func CreateTestDepartment(t *testing.T, db *gorm.DB, budgetID, createdBy string) *models.Department {
	t.Helper()

	dept := &models.Department{
		Name:            fmt.Sprintf("Test Department %d", nextID()),
		BudgetID:        budgetID,
		AllocatedAmount: 1000000,
		IsActive:        true,
		CreatedBy:       createdBy,
	}
	if err := db.Create(dept).Error; err != nil {
		t.Fatalf("failed to create test department: %v", err)
	}
	return dept
}

// CreateTestProject creates a planned project under departmentID.
func CreateTestProject(t *testing.T, db *gorm.DB, departmentID, createdBy string) *models.Project {
	t.Helper()

	now := time.Now().UTC().Truncate(24 * time.Hour)
	project := &models.Project{
		Name:            fmt.Sprintf("Test Project %d", nextID()),
		DepartmentID:    departmentID,
		AllocatedAmount: 100000,
		StartDate:       now,
		EndDate:         now.AddDate(0, 6, 0),
		Status:          models.ProjectStatusPlanned,
		IsActive:        true,
		CreatedBy:       createdBy,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return project
}

// CreateTestVendor creates an active vendor.
func CreateTestVendor(t *testing.T, db *gorm.DB, createdBy string) *models.Vendor {
	t.Helper()

	vendor := &models.Vendor{
		Name:      fmt.Sprintf("Test Vendor %d", nextID()),
		GSTIN:     "22AAAAA0000A1Z5",
		Email:     "billing@vendor.test",
		IsActive:  true,
		CreatedBy: createdBy,
	}
	if err := db.Create(vendor).Error; err != nil {
		t.Fatalf("failed to create test vendor: %v", err)
	}
	return vendor
}

// CreateTestTransaction creates a pending transaction of the given amount (in minor units).
func CreateTestTransaction(t *testing.T, db *gorm.DB, projectID, vendorID, createdBy string, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		ProjectID:     projectID,
		VendorID:      vendorID,
		Amount:        amount,
		Date:          time.Now().UTC(),
		InvoiceNumber: fmt.Sprintf("INV-%d", nextID()),
		Status:        models.TransactionStatusPending,
		CreatedBy:     createdBy,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// Ledger bundles a user with a fully linked budget, department, project and vendor.
type Ledger struct {
	User       *models.User
	Budget     *models.Budget
	Department *models.Department
	Project    *models.Project
	Vendor     *models.Vendor
}

// CreateTestLedger creates an admin and the organization chain a transaction needs.
func CreateTestLedger(t *testing.T, db *gorm.DB) *Ledger {
	t.Helper()

	user := CreateTestUser(t, db)
	budget := CreateTestBudget(t, db, user.ID)
	dept := CreateTestDepartment(t, db, budget.ID, user.ID)
	return &Ledger{
		User:       user,
		Budget:     budget,
		Department: dept,
		Project:    CreateTestProject(t, db, dept.ID, user.ID),
		Vendor:     CreateTestVendor(t, db, user.ID),
	}
}
