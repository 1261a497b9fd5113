package service

import (
	"context"
	"fmt"
	"strings"

	"painai/internal/model"
	"painai/internal/repository"

	"go.uber.org/zap"
)

type CreateWorkTypeNodeRequest struct {
	Code      string `json:"code" binding:"required,max=50" example:"DEVELOPMENT"`
	Name      string `json:"name" binding:"required,max=255" example:"Development"`
	SortOrder int    `json:"sort_order"`
}

// WorkTypeNode is one node of the classification tree at any level.
type WorkTypeNode struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	SortOrder int            `json:"sort_order"`
	Children  []WorkTypeNode `json:"children,omitempty"`
}

type WorkTypeService interface {
	Tree(ctx context.Context) ([]WorkTypeNode, error)
	CreateWorkType(ctx context.Context, actor Actor, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error)
	CreateSubWorkType(ctx context.Context, actor Actor, workTypeID string, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error)
	CreateActivity(ctx context.Context, actor Actor, subWorkTypeID string, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error)
	DeleteWorkType(ctx context.Context, actor Actor, id string) error
	DeleteSubWorkType(ctx context.Context, actor Actor, id string) error
	DeleteActivity(ctx context.Context, actor Actor, id string) error
	SeedDefaults(ctx context.Context) error
}

type workTypeService struct {
	repo      repository.WorkTypeRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	log       *zap.Logger
}

func NewWorkTypeService(repo repository.WorkTypeRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, log *zap.Logger) WorkTypeService {
	return &workTypeService{repo: repo, auditRepo: auditRepo, txManager: txManager, log: log}
}

func (s *workTypeService) Tree(ctx context.Context) ([]WorkTypeNode, error) {
	tree, err := s.repo.ListTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load work types: %w", err)
	}

	res := make([]WorkTypeNode, 0, len(tree))
	for _, wt := range tree {
		node := WorkTypeNode{ID: wt.ID.String(), Code: wt.Code, Name: wt.Name, SortOrder: wt.SortOrder}
		for _, sub := range wt.SubWorkTypes {
			subNode := WorkTypeNode{ID: sub.ID.String(), Code: sub.Code, Name: sub.Name, SortOrder: sub.SortOrder}
			for _, a := range sub.Activities {
				subNode.Children = append(subNode.Children, WorkTypeNode{ID: a.ID.String(), Code: a.Code, Name: a.Name, SortOrder: a.SortOrder})
			}
			node.Children = append(node.Children, subNode)
		}
		res = append(res, node)
	}
	return res, nil
}

func (s *workTypeService) CreateWorkType(ctx context.Context, actor Actor, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error) {
	wt := &model.WorkType{Code: normalizeCode(req.Code), Name: strings.TrimSpace(req.Name), SortOrder: req.SortOrder}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateWorkType(txCtx, wt); err != nil {
			return mapNodeCreateError(err, "work type")
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateWorkType, wt.ID.String(), wt.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return &WorkTypeNode{ID: wt.ID.String(), Code: wt.Code, Name: wt.Name, SortOrder: wt.SortOrder}, nil
}

func (s *workTypeService) CreateSubWorkType(ctx context.Context, actor Actor, workTypeID string, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error) {
	parentID, err := parseID(workTypeID)
	if err != nil {
		return nil, err
	}
	sub := &model.SubWorkType{WorkTypeID: parentID, Code: normalizeCode(req.Code), Name: strings.TrimSpace(req.Name), SortOrder: req.SortOrder}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindWorkType(txCtx, parentID); err != nil {
			return notFound(err, ErrWorkTypeNotFound)
		}
		if err := s.repo.CreateSubWorkType(txCtx, sub); err != nil {
			return mapNodeCreateError(err, "sub work type")
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateSubWorkType, sub.ID.String(), sub.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return &WorkTypeNode{ID: sub.ID.String(), Code: sub.Code, Name: sub.Name, SortOrder: sub.SortOrder}, nil
}

func (s *workTypeService) CreateActivity(ctx context.Context, actor Actor, subWorkTypeID string, req CreateWorkTypeNodeRequest) (*WorkTypeNode, error) {
	parentID, err := parseID(subWorkTypeID)
	if err != nil {
		return nil, err
	}
	activity := &model.Activity{SubWorkTypeID: parentID, Code: normalizeCode(req.Code), Name: strings.TrimSpace(req.Name), SortOrder: req.SortOrder}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindSubWorkType(txCtx, parentID); err != nil {
			return notFound(err, ErrWorkTypeNotFound)
		}
		if err := s.repo.CreateActivity(txCtx, activity); err != nil {
			return mapNodeCreateError(err, "activity")
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateActivity, activity.ID.String(), activity.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return &WorkTypeNode{ID: activity.ID.String(), Code: activity.Code, Name: activity.Name, SortOrder: activity.SortOrder}, nil
}

// Deleting a node cascades to its children. Existing timesheets keep the codes they were saved with.
func (s *workTypeService) DeleteWorkType(ctx context.Context, actor Actor, id string) error {
	nodeID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wt, err := s.repo.FindWorkType(txCtx, nodeID)
		if err != nil {
			return notFound(err, ErrWorkTypeNotFound)
		}
		if err := s.repo.DeleteWorkType(txCtx, nodeID); err != nil {
			return fmt.Errorf("failed to delete work type: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteWorkType, wt.ID.String(), wt.Code, nil)
	})
}

func (s *workTypeService) DeleteSubWorkType(ctx context.Context, actor Actor, id string) error {
	nodeID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.repo.FindSubWorkType(txCtx, nodeID)
		if err != nil {
			return notFound(err, ErrWorkTypeNotFound)
		}
		if err := s.repo.DeleteSubWorkType(txCtx, nodeID); err != nil {
			return fmt.Errorf("failed to delete sub work type: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteSubWorkType, sub.ID.String(), sub.Code, nil)
	})
}

func (s *workTypeService) DeleteActivity(ctx context.Context, actor Actor, id string) error {
	nodeID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		a, err := s.repo.FindActivity(txCtx, nodeID)
		if err != nil {
			return notFound(err, ErrWorkTypeNotFound)
		}
		if err := s.repo.DeleteActivity(txCtx, nodeID); err != nil {
			return fmt.Errorf("failed to delete activity: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteActivity, a.ID.String(), a.Code, nil)
	})
}

// SeedDefaults installs the default classification tree when none exists yet.
func (s *workTypeService) SeedDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count work types: %w", err)
	}
	if count > 0 {
		return nil
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, wt := range defaultWorkTypes() {
			wt := wt
			if err := s.repo.CreateWorkType(txCtx, &wt); err != nil {
				return fmt.Errorf("failed to seed work type %s: %w", wt.Code, err)
			}
		}
		s.log.Info("seeded default work types")
		return nil
	})
}

func defaultWorkTypes() []model.WorkType {
	sub := func(code, name string, order int, activities ...model.Activity) model.SubWorkType {
		return model.SubWorkType{Code: code, Name: name, SortOrder: order, Activities: activities}
	}
	act := func(code, name string, order int) model.Activity {
		return model.Activity{Code: code, Name: name, SortOrder: order}
	}

	return []model.WorkType{
		{Code: "PROJECT", Name: "Project", SortOrder: 1, SubWorkTypes: []model.SubWorkType{
			sub("ANALYSIS", "Analysis & design", 1, act("REQUIREMENT", "Requirement gathering", 1), act("DESIGN", "Design", 2)),
			sub("DEVELOPMENT", "Development", 2, act("CODING", "Coding", 1), act("CODE_REVIEW", "Code review", 2), act("BUGFIX", "Bug fixing", 3)),
			sub("TESTING", "Testing", 3, act("UNIT_TEST", "Unit testing", 1), act("UAT", "User acceptance testing", 2)),
			sub("DEPLOYMENT", "Deployment", 4),
			sub("MEETING", "Meeting", 5),
			sub("DOCUMENTATION", "Documentation", 6),
		}},
		{Code: "NON_PROJECT", Name: "Non-project", SortOrder: 2, SubWorkTypes: []model.SubWorkType{
			sub("ADMIN", "Administration", 1),
			sub("TRAINING", "Training", 2),
			sub("PRESALE", "Presale", 3),
			sub("INTERNAL_MEETING", "Internal meeting", 4),
		}},
		{Code: "LEAVE", Name: "Leave", SortOrder: 3, SubWorkTypes: []model.SubWorkType{
			sub("ANNUAL", "Annual leave", 1),
			sub("SICK", "Sick leave", 2),
			sub("PERSONAL", "Personal leave", 3),
		}},
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func mapNodeCreateError(err error, level string) error {
	if repository.IsDuplicateKey(err) {
		return ErrWorkTypeExists
	}
	return fmt.Errorf("failed to create %s: %w", level, err)
}
