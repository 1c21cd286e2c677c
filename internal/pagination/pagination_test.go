package pagination_test

import (
	"fmt"
	"testing"

	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/testutil"
)

func TestDefaults(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p := pagination.PageRequest{}
		p.Defaults()
		if p.Page != 1 || p.PageSize != pagination.DefaultPageSize {
			t.Errorf("expected page 1 size 20, got %d/%d", p.Page, p.PageSize)
		}
	})

	t.Run("limit_alias", func(t *testing.T) {
		p := pagination.PageRequest{Limit: 5}
		p.Defaults()
		if p.PageSize != 5 {
			t.Errorf("expected page size 5, got %d", p.PageSize)
		}
	})

	t.Run("page_size_wins", func(t *testing.T) {
		p := pagination.PageRequest{PageSize: 10, Limit: 5}
		p.Defaults()
		if p.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", p.PageSize)
		}
	})

	t.Run("clamped", func(t *testing.T) {
		p := pagination.PageRequest{Page: -3, PageSize: 1000}
		p.Defaults()
		if p.Page != 1 || p.PageSize != pagination.MaxPageSize {
			t.Errorf("expected 1/%d, got %d/%d", pagination.MaxPageSize, p.Page, p.PageSize)
		}
	})
}

func TestNewPageResponse(t *testing.T) {
	r := pagination.NewPageResponse[int](nil, 2, 10, 21)
	if r.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", r.TotalPages)
	}
	if r.Data == nil {
		t.Error("expected empty slice, not nil")
	}
	if (&pagination.PageRequest{Page: 3, PageSize: 10}).Offset() != 20 {
		t.Error("expected offset 20")
	}
}

func TestList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	for i := 0; i < 5; i++ {
		v := &models.Vendor{Name: fmt.Sprintf("vendor-%d", i), IsActive: true, CreatedBy: user.ID}
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed vendor: %v", err)
		}
	}

	t.Run("second_page", func(t *testing.T) {
		q := db.Model(&models.Vendor{})
		resp, err := pagination.List[models.Vendor](q, pagination.PageRequest{Page: 2, PageSize: 2}, "name ASC")
		testutil.AssertNoError(t, err)

		if resp.TotalItems != 5 || resp.TotalPages != 3 {
			t.Errorf("expected 5 items over 3 pages, got %d/%d", resp.TotalItems, resp.TotalPages)
		}
		if len(resp.Data) != 2 || resp.Data[0].Name != "vendor-2" || resp.Data[1].Name != "vendor-3" {
			t.Errorf("unexpected page %+v", resp.Data)
		}
	})

	t.Run("filter_is_counted", func(t *testing.T) {
		q := db.Model(&models.Vendor{}).Where("name = ?", "vendor-4")
		resp, err := pagination.List[models.Vendor](q, pagination.PageRequest{}, "name ASC")
		testutil.AssertNoError(t, err)

		if resp.TotalItems != 1 || len(resp.Data) != 1 || resp.PageSize != pagination.DefaultPageSize {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("empty_result", func(t *testing.T) {
		q := db.Model(&models.Vendor{}).Where("name = ?", "missing")
		resp, err := pagination.List[models.Vendor](q, pagination.PageRequest{}, "name ASC")
		testutil.AssertNoError(t, err)

		if resp.Data == nil || len(resp.Data) != 0 || resp.TotalPages != 0 {
			t.Errorf("expected empty page, got %+v", resp)
		}
	})
}
