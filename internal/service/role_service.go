package service

import (
	"context"
	"fmt"
	"strings"

	"painai/internal/model"
	"painai/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,max=50"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // permission codes
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description"`
}

// UpdateRolePermissionsRequest replaces a role's permissions. Either ids or codes may be given.
type UpdateRolePermissionsRequest struct {
	PermissionIDs   []string `json:"permission_ids"`
	PermissionCodes []string `json:"permission_codes"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
}

type PermissionResponse struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// PermissionCacheInvalidator drops cached permission sets after a role changes.
type PermissionCacheInvalidator interface {
	Invalidate(ctx context.Context, roleName string)
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor Actor, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor Actor, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actor Actor, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, actor Actor, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	repo      repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	cache     PermissionCacheInvalidator
	log       *zap.Logger
}

func NewRoleService(
	repo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cache PermissionCacheInvalidator,
	log *zap.Logger,
) RoleService {
	return &roleService{repo: repo, auditRepo: auditRepo, txManager: txManager, cache: cache, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	roleID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	role, err := s.repo.FindByIDWithPermissions(ctx, roleID)
	if err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	resp := toRoleResponse(*role)
	return &resp, nil
}

func (s *roleService) CreateRole(ctx context.Context, actor Actor, req CreateRoleRequest) (*RoleResponse, error) {
	role := &model.Role{
		Name:        strings.ToLower(strings.TrimSpace(req.Name)),
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByName(txCtx, role.Name); err == nil {
			return ErrRoleExists
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to check role name: %w", err)
		}
		if err := s.checkCodes(txCtx, req.Permissions); err != nil {
			return err
		}

		if err := s.repo.Create(txCtx, role); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrRoleExists
			}
			return fmt.Errorf("failed to create role: %w", err)
		}
		if len(req.Permissions) > 0 {
			if err := s.repo.ReplacePermissionsByCode(txCtx, role.ID, req.Permissions); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateRole, role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	return s.GetRole(ctx, role.ID.String())
}

// UpdateRole renames a custom role and moves its users along. System roles keep their name.
func (s *roleService) UpdateRole(ctx context.Context, actor Actor, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var oldName string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.repo.FindByID(txCtx, roleID)
		if err != nil {
			return notFound(err, ErrRoleNotFound)
		}
		oldName = role.Name
		newName := strings.ToLower(strings.TrimSpace(req.Name))

		if newName != role.Name {
			if role.IsSystem {
				return ErrRoleProtected
			}
			if _, err := s.repo.FindByName(txCtx, newName); err == nil {
				return ErrRoleExists
			} else if !repository.IsNotFound(err) {
				return fmt.Errorf("failed to check role name: %w", err)
			}
			if err := s.repo.RenameUsersRole(txCtx, role.Name, newName); err != nil {
				return fmt.Errorf("failed to move users to renamed role: %w", err)
			}
		}

		role.Name = newName
		role.Description = req.Description
		role.Permissions = nil
		if err := s.repo.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionUpdateRole, role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, oldName)
	return s.GetRole(ctx, id)
}

func (s *roleService) DeleteRole(ctx context.Context, actor Actor, id string) error {
	roleID, err := parseID(id)
	if err != nil {
		return err
	}

	var name string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.repo.FindByID(txCtx, roleID)
		if err != nil {
			return notFound(err, ErrRoleNotFound)
		}
		if role.IsSystem {
			return fmt.Errorf("%w: %s", ErrRoleProtected, role.Name)
		}

		users, err := s.repo.CountUsersWithRole(txCtx, role.Name)
		if err != nil {
			return fmt.Errorf("failed to count role users: %w", err)
		}
		if users > 0 {
			return fmt.Errorf("%w: %d users", ErrRoleInUse, users)
		}

		if err := s.repo.Delete(txCtx, roleID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		name = role.Name
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteRole, role.ID.String(), role.Name, nil)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, name)
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, actor Actor, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	id, err := parseID(roleID)
	if err != nil {
		return nil, err
	}

	permIDs := make([]uuid.UUID, 0, len(req.PermissionIDs))
	for _, raw := range req.PermissionIDs {
		pid, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		permIDs = append(permIDs, pid)
	}

	var name string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return notFound(err, ErrRoleNotFound)
		}
		name = role.Name

		if len(req.PermissionCodes) > 0 || len(permIDs) == 0 {
			if err := s.checkCodes(txCtx, req.PermissionCodes); err != nil {
				return err
			}
			if err := s.repo.ReplacePermissionsByCode(txCtx, id, req.PermissionCodes); err != nil {
				return fmt.Errorf("failed to update permissions: %w", err)
			}
		} else if err := s.repo.UpdatePermissions(txCtx, id, permIDs); err != nil {
			return fmt.Errorf("failed to update permissions: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionUpdatePermissions, role.ID.String(), role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, name)
	return s.GetRole(ctx, roleID)
}

func (s *roleService) GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error) {
	codes, err := s.repo.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions for role %q: %w", roleName, err)
	}
	return codes, nil
}

type roleDefinition struct {
	Name        string
	Description string
	PermCodes   []string
}

var defaultPermissions = []model.Permission{
	{Code: model.PermTimesheetsRead, Name: "View own timesheets", Group: "timesheets"},
	{Code: model.PermTimesheetsWrite, Name: "Record and submit timesheets", Group: "timesheets"},
	{Code: model.PermTimesheetsReadAll, Name: "View everyone's timesheets", Group: "timesheets"},
	{Code: model.PermTimesheetsApprove, Name: "Approve or reject timesheets", Group: "timesheets"},
	{Code: model.PermProjectsRead, Name: "View projects", Group: "projects"},
	{Code: model.PermProjectsWrite, Name: "Manage projects", Group: "projects"},
	{Code: model.PermHolidaysRead, Name: "View holidays", Group: "holidays"},
	{Code: model.PermHolidaysWrite, Name: "Manage holidays", Group: "holidays"},
	{Code: model.PermWorkTypesWrite, Name: "Manage work types", Group: "work_types"},
	{Code: model.PermUsersRead, Name: "View users", Group: "users"},
	{Code: model.PermUsersWrite, Name: "Manage users", Group: "users"},
	{Code: model.PermUsersDelete, Name: "Delete users", Group: "users"},
	{Code: model.PermRolesManage, Name: "Manage roles and permissions", Group: "roles"},
	{Code: model.PermReportsRead, Name: "View reports", Group: "reports"},
	{Code: model.PermAuditRead, Name: "View audit log", Group: "audit"},
}

func defaultRoles() []roleDefinition {
	all := make([]string, 0, len(defaultPermissions))
	for _, p := range defaultPermissions {
		all = append(all, p.Code)
	}

	return []roleDefinition{
		{Name: model.RoleAdmin, Description: "Administrator with full access", PermCodes: all},
		{Name: model.RoleManager, Description: "Approves timesheets and reads reports", PermCodes: []string{
			model.PermTimesheetsRead, model.PermTimesheetsWrite, model.PermTimesheetsReadAll, model.PermTimesheetsApprove,
			model.PermProjectsRead, model.PermProjectsWrite,
			model.PermHolidaysRead,
			model.PermUsersRead,
			model.PermReportsRead,
		}},
		{Name: model.RoleEmployee, Description: "Records own timesheets", PermCodes: []string{
			model.PermTimesheetsRead, model.PermTimesheetsWrite,
			model.PermProjectsRead,
			model.PermHolidaysRead,
		}},
	}
}

// SeedDefaultRolesAndPermissions creates the default permissions and system roles. Existing system
// roles are reset to their default permission set.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range defaultPermissions {
			p := defaultPermissions[i]
			if err := s.repo.FindOrCreatePermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", p.Code, err)
			}
		}

		for _, def := range defaultRoles() {
			role, err := s.repo.FindByName(txCtx, def.Name)
			if repository.IsNotFound(err) {
				role = &model.Role{Name: def.Name, Description: def.Description, IsSystem: true}
				err = s.repo.Create(txCtx, role)
			}
			if err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
			}
			if err := s.repo.ReplacePermissionsByCode(txCtx, role.ID, def.PermCodes); err != nil {
				return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, def := range defaultRoles() {
		s.invalidate(ctx, def.Name)
	}
	return nil
}

// --- Helpers ---

func (s *roleService) checkCodes(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch permissions: %w", err)
	}
	known := make(map[string]bool, len(perms))
	for _, p := range perms {
		known[p.Code] = true
	}
	for _, c := range codes {
		if !known[c] {
			return fmt.Errorf("%w: %q", ErrUnknownPermission, c)
		}
	}
	return nil
}

func (s *roleService) invalidate(ctx context.Context, roleName string) {
	if s.cache != nil && roleName != "" {
		s.cache.Invalidate(ctx, roleName)
	}
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
		CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID.String(),
		Code:  p.Code,
		Name:  p.Name,
		Group: p.Group,
	}
}
