package service

import (
	"context"
	"fmt"
	"strings"

	"painai/internal/model"
	"painai/internal/repository"
	"painai/pkg/pagination"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Code        string           `json:"code" binding:"required,max=50" example:"PRJ-001"`
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description"`
	Status      string           `json:"status" binding:"omitempty,oneof=active on_hold completed cancelled"`
	ManagerID   string           `json:"manager_id"`
	StartDate   string           `json:"start_date" example:"2024-01-01"`
	EndDate     string           `json:"end_date" example:"2024-12-31"`
	BudgetHours *decimal.Decimal `json:"budget_hours" swaggertype:"number"`
}

type UpdateProjectRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	Status      *string          `json:"status" binding:"omitempty,oneof=active on_hold completed cancelled"`
	ManagerID   *string          `json:"manager_id"`
	StartDate   *string          `json:"start_date"`
	EndDate     *string          `json:"end_date"`
	BudgetHours *decimal.Decimal `json:"budget_hours" swaggertype:"number"`
}

type ProjectListFilter struct {
	Status    string
	Search    string
	ManagerID string
	Page      int
	Limit     int
}

type ProjectResponse struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	ManagerID   *string `json:"manager_id"`
	ManagerName string  `json:"manager_name"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	BudgetHours string  `json:"budget_hours"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// --- Interface ---

type ProjectService interface {
	CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (*ProjectResponse, error)
	UpdateProject(ctx context.Context, actor Actor, id string, req UpdateProjectRequest) (*ProjectResponse, error)
	DeleteProject(ctx context.Context, actor Actor, id string) error
	GetProject(ctx context.Context, id string) (*ProjectResponse, error)
	ListProjects(ctx context.Context, filter ProjectListFilter) ([]ProjectResponse, int64, error)
}

type projectService struct {
	projects  repository.ProjectRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewProjectService(projects repository.ProjectRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ProjectService {
	return &projectService{projects: projects, auditRepo: auditRepo, txManager: txManager}
}

// --- Implementation ---

func (s *projectService) CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (*ProjectResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	status := req.Status
	if status == "" {
		status = model.ProjectStatusActive
	}
	if !model.IsValidProjectStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProjectStatus, status)
	}

	managerID, err := parseOptionalID(req.ManagerID)
	if err != nil {
		return nil, err
	}
	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		return nil, ErrInvalidDateRange
	}

	budget := decimal.Zero
	if req.BudgetHours != nil {
		if req.BudgetHours.IsNegative() {
			return nil, fmt.Errorf("%w: budget hours cannot be negative", ErrInvalidHours)
		}
		budget = req.BudgetHours.Round(2)
	}

	project := &model.Project{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Status:      status,
		ManagerID:   managerID,
		StartDate:   startDate,
		EndDate:     endDate,
		BudgetHours: budget,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.projects.FindByCode(txCtx, code); err == nil {
			return ErrProjectCodeExists
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to check project code: %w", err)
		}

		if err := s.projects.Create(txCtx, project); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrProjectCodeExists
			}
			return fmt.Errorf("failed to create project: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateProject, project.ID.String(), project.Code, project)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProject(ctx, project.ID.String())
}

func (s *projectService) UpdateProject(ctx context.Context, actor Actor, id string, req UpdateProjectRequest) (*ProjectResponse, error) {
	projectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, err := s.projects.FindByID(txCtx, projectID)
		if err != nil {
			return notFound(err, ErrProjectNotFound)
		}

		if req.Name != nil {
			project.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			project.Description = *req.Description
		}
		if req.Status != nil {
			if !model.IsValidProjectStatus(*req.Status) {
				return fmt.Errorf("%w: %q", ErrInvalidProjectStatus, *req.Status)
			}
			project.Status = *req.Status
		}
		if req.ManagerID != nil {
			if project.ManagerID, err = parseOptionalID(*req.ManagerID); err != nil {
				return err
			}
			project.Manager = nil
		}
		if req.StartDate != nil {
			if project.StartDate, err = parseOptionalDate(*req.StartDate); err != nil {
				return err
			}
		}
		if req.EndDate != nil {
			if project.EndDate, err = parseOptionalDate(*req.EndDate); err != nil {
				return err
			}
		}
		if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
			return ErrInvalidDateRange
		}
		if req.BudgetHours != nil {
			if req.BudgetHours.IsNegative() {
				return fmt.Errorf("%w: budget hours cannot be negative", ErrInvalidHours)
			}
			project.BudgetHours = req.BudgetHours.Round(2)
		}

		if err := s.projects.Update(txCtx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionUpdateProject, project.ID.String(), project.Code, req)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProject(ctx, id)
}

// DeleteProject refuses while any timesheet references the project; cancel it instead.
func (s *projectService) DeleteProject(ctx context.Context, actor Actor, id string) error {
	projectID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, err := s.projects.FindByID(txCtx, projectID)
		if err != nil {
			return notFound(err, ErrProjectNotFound)
		}

		count, err := s.projects.CountTimesheets(txCtx, projectID)
		if err != nil {
			return fmt.Errorf("failed to count project timesheets: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d timesheets", ErrProjectInUse, count)
		}

		if err := s.projects.Delete(txCtx, projectID); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteProject, project.ID.String(), project.Code, nil)
	})
}

func (s *projectService) GetProject(ctx context.Context, id string) (*ProjectResponse, error) {
	projectID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	resp := toProjectResponse(project)
	return &resp, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter ProjectListFilter) ([]ProjectResponse, int64, error) {
	if filter.Status != "" && !model.IsValidProjectStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidProjectStatus, filter.Status)
	}
	if _, err := parseOptionalID(filter.ManagerID); err != nil {
		return nil, 0, err
	}

	projects, total, err := s.projects.List(ctx, repository.ProjectFilter{
		Status:    filter.Status,
		Search:    filter.Search,
		ManagerID: filter.ManagerID,
		Params:    pagination.Params{Page: filter.Page, Limit: filter.Limit},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	res := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		res = append(res, toProjectResponse(&projects[i]))
	}
	return res, total, nil
}

func toProjectResponse(p *model.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:          p.ID.String(),
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		ManagerID:   optionalIDString(p.ManagerID),
		StartDate:   formatOptionalTime(p.StartDate, dateLayout),
		EndDate:     formatOptionalTime(p.EndDate, dateLayout),
		BudgetHours: hoursString(p.BudgetHours),
		CreatedAt:   p.CreatedAt.Format(timestampLayout),
		UpdatedAt:   p.UpdatedAt.Format(timestampLayout),
	}
	if p.Manager != nil {
		resp.ManagerName = p.Manager.DisplayName()
	}
	return resp
}
