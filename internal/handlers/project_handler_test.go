package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "trustledger/internal/errors"
	"trustledger/internal/models"
	"trustledger/internal/pagination"
	"trustledger/internal/services"
)

const testProjectID = "55555555-5555-5555-5555-555555555555"

type mockProjectService struct {
	createProjectFn  func(actorID string, in services.ProjectInput) (*models.Project, error)
	getProjectsFn    func(page pagination.PageRequest, filter services.ProjectFilter) (*pagination.PageResponse[models.Project], error)
	getProjectByIDFn func(projectID string) (*models.Project, error)
	updateProjectFn  func(projectID string, upd services.ProjectUpdate) (*models.Project, services.Changes, error)
	deleteProjectFn  func(projectID string) (*models.Project, error)
}

func (m *mockProjectService) CreateProject(actorID string, in services.ProjectInput) (*models.Project, error) {
	if m.createProjectFn != nil {
		return m.createProjectFn(actorID, in)
	}
	return &models.Project{Base: models.Base{ID: testProjectID}, Name: in.Name, Status: in.Status}, nil
}

func (m *mockProjectService) GetProjects(page pagination.PageRequest, filter services.ProjectFilter) (*pagination.PageResponse[models.Project], error) {
	if m.getProjectsFn != nil {
		return m.getProjectsFn(page, filter)
	}
	resp := pagination.NewPageResponse([]models.Project{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockProjectService) GetProjectByID(projectID string) (*models.Project, error) {
	if m.getProjectByIDFn != nil {
		return m.getProjectByIDFn(projectID)
	}
	return &models.Project{Base: models.Base{ID: projectID}}, nil
}

func (m *mockProjectService) UpdateProject(projectID string, upd services.ProjectUpdate) (*models.Project, services.Changes, error) {
	if m.updateProjectFn != nil {
		return m.updateProjectFn(projectID, upd)
	}
	return &models.Project{Base: models.Base{ID: projectID}}, services.Changes{}, nil
}

func (m *mockProjectService) DeleteProject(projectID string) (*models.Project, error) {
	if m.deleteProjectFn != nil {
		return m.deleteProjectFn(projectID)
	}
	return &models.Project{Base: models.Base{ID: projectID}, Name: "Bridge"}, nil
}

var _ services.ProjectServicer = (*mockProjectService)(nil)

func setupProjectRouter(handler *ProjectHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/projects", handler.CreateProject)
	auth.GET("/projects", handler.GetProjects)
	auth.GET("/projects/:id", handler.GetProject)
	auth.PUT("/projects/:id", handler.UpdateProject)
	auth.DELETE("/projects/:id", handler.DeleteProject)
	return r
}

func TestProjectHandler_CreateProject(t *testing.T) {
	body := `{"name":"Bridge","department_id":"` + testDepartmentID + `","allocated_amount":1000,` +
		`"start_date":"2025-05-01T00:00:00Z","end_date":"2025-12-31T00:00:00Z","status":"in-progress"}`

	t.Run("returns 201 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupProjectRouter(NewProjectHandler(&mockProjectService{}, audit))

		rec := doRequest(r, "POST", "/projects", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		project := parseJSON(t, rec)["project"].(map[string]interface{})
		if project["status"] != "in-progress" {
			t.Errorf("expected in-progress, got %v", project["status"])
		}
		assertAudited(t, audit, testProjectID, models.AuditActionCreate)
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		r := setupProjectRouter(NewProjectHandler(&mockProjectService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/projects",
			`{"name":"Bridge","department_id":"`+testDepartmentID+`","start_date":"2025-05-01T00:00:00Z","end_date":"2025-12-31T00:00:00Z","status":"paused"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown department", func(t *testing.T) {
		svc := &mockProjectService{
			createProjectFn: func(string, services.ProjectInput) (*models.Project, error) {
				return nil, apperrors.ErrDepartmentNotFound
			},
		}
		r := setupProjectRouter(NewProjectHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/projects", body)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DEPARTMENT_NOT_FOUND")
	})
}

func TestProjectHandler_GetProjects(t *testing.T) {
	t.Run("passes status filter", func(t *testing.T) {
		var got services.ProjectFilter
		svc := &mockProjectService{
			getProjectsFn: func(_ pagination.PageRequest, filter services.ProjectFilter) (*pagination.PageResponse[models.Project], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Project{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupProjectRouter(NewProjectHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/projects?status=completed&department_id="+testDepartmentID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.Status == nil || *got.Status != models.ProjectStatusCompleted {
			t.Errorf("expected completed filter, got %v", got.Status)
		}
		if got.DepartmentID == nil || *got.DepartmentID != testDepartmentID {
			t.Errorf("expected department filter, got %v", got.DepartmentID)
		}
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		r := setupProjectRouter(NewProjectHandler(&mockProjectService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/projects?status=paused", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestProjectHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update returns date range error", func(t *testing.T) {
		svc := &mockProjectService{
			updateProjectFn: func(string, services.ProjectUpdate) (*models.Project, services.Changes, error) {
				return nil, nil, apperrors.ErrInvalidDateRange
			},
		}
		audit := &mockAuditService{}
		r := setupProjectRouter(NewProjectHandler(svc, audit))

		rec := doRequest(r, "PUT", "/projects/"+testProjectID, `{"end_date":"2020-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if len(audit.recorded()) != 0 {
			t.Error("expected no audit entry on failure")
		}
	})

	t.Run("delete audits", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupProjectRouter(NewProjectHandler(&mockProjectService{}, audit))

		rec := doRequest(r, "DELETE", "/projects/"+testProjectID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		assertAudited(t, audit, testProjectID, models.AuditActionDelete)
	})
}
