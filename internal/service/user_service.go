package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"painai/internal/model"
	"painai/internal/repository"
	"painai/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username   string `json:"username" binding:"required,max=255"`
	Email      string `json:"email" binding:"required,email"`
	FullName   string `json:"full_name" binding:"max=255"`
	Position   string `json:"position" binding:"max=100"`
	Department string `json:"department" binding:"max=100"`
	Phone      string `json:"phone" binding:"max=20"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role"`
}

type UpdateUserRequest struct {
	Username   *string `json:"username" binding:"omitempty,max=255"`
	Email      *string `json:"email" binding:"omitempty,email"`
	FullName   *string `json:"full_name" binding:"omitempty,max=255"`
	Position   *string `json:"position" binding:"omitempty,max=100"`
	Department *string `json:"department" binding:"omitempty,max=100"`
	Phone      *string `json:"phone" binding:"omitempty,max=20"`
	Role       *string `json:"role"`
	Active     *bool   `json:"active"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	Token            string `json:"token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresAt        string `json:"expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
}

// UserResponse is a User without sensitive fields.
type UserResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Position   string `json:"position"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type MeResponse struct {
	UserResponse
	Permissions []string `json:"permissions"`
}

type UserListFilter struct {
	Search     string
	Role       string
	Department string
	Page       int
	Limit      int
}

// TokenIssuer signs access tokens and mints refresh tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role string) (string, time.Time, error)
	GenerateRefreshToken() (string, time.Time)
}

// UserService covers accounts and sign-in.
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	PurgeExpiredSessions(ctx context.Context) (int64, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error)

	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id string) error
	ChangePassword(ctx context.Context, actor Actor, id string, req ChangePasswordRequest) error
}

type userService struct {
	repo      repository.UserRepository
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	tokens    TokenIssuer
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tokens TokenIssuer,
	log *zap.Logger,
) UserService {
	return &userService{
		repo:      repo,
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		tokens:    tokens,
		log:       log,
		now:       time.Now,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Position:   user.Position,
		Department: user.Department,
		Phone:      user.Phone,
		Role:       user.Role,
		Active:     user.Active,
		CreatedAt:  user.CreatedAt.Format(timestampLayout),
		UpdatedAt:  user.UpdatedAt.Format(timestampLayout),
	}
}

// auditedUser is what goes into audit details for user changes.
type auditedUser struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Active     bool   `json:"active"`
}

func auditUser(u *model.User) auditedUser {
	return auditedUser{Username: u.Username, Email: u.Email, FullName: u.FullName, Department: u.Department, Role: u.Role, Active: u.Active}
}

// --- Auth ---

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates a refresh token: the presented one is revoked and a new pair is issued.
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	var res *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.repo.GetRefreshToken(txCtx, refreshToken)
		if err != nil {
			return notFound(err, ErrInvalidRefreshToken)
		}
		if err := s.repo.DeleteRefreshToken(txCtx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if !stored.ExpiresAt.After(s.now()) {
			return ErrInvalidRefreshToken
		}

		user, err := s.repo.GetByID(txCtx, stored.UserID)
		if err != nil {
			return notFound(err, ErrInvalidRefreshToken)
		}
		if !user.Active {
			return ErrUserInactive
		}

		res, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes refresh tokens whose expiry has passed.
func (s *userService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return n, nil
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	perms, err := s.roleRepo.GetPermissionsByRoleName(ctx, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return &MeResponse{UserResponse: *mapToResponse(user), Permissions: perms}, nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	access, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExpiresAt := s.tokens.GenerateRefreshToken()

	if err := s.repo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: refreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:            access,
		RefreshToken:     refresh,
		ExpiresAt:        expiresAt.Format(timestampLayout),
		RefreshExpiresAt: refreshExpiresAt.Format(timestampLayout),
	}, nil
}

// --- Users ---

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	role := req.Role
	if role == "" {
		role = model.RoleEmployee
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:   strings.TrimSpace(req.Username),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:   strings.TrimSpace(req.FullName),
		Position:   req.Position,
		Department: req.Department,
		Phone:      req.Phone,
		Password:   string(hashedPassword),
		Role:       role,
		Active:     true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requireRole(txCtx, role); err != nil {
			return err
		}
		if err := s.ensureUnique(txCtx, user.Username, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrUsernameExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateUser, user.ID.String(), user.Username, auditUser(user))
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, filter UserListFilter) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, repository.UserFilter{
		Search:     filter.Search,
		Role:       filter.Role,
		Department: filter.Department,
		Params:     pagination.Params{Page: filter.Page, Limit: filter.Limit},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err = s.repo.GetByID(txCtx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		before := auditUser(user)

		username, email := user.Username, user.Email
		if req.Username != nil {
			username = strings.TrimSpace(*req.Username)
		}
		if req.Email != nil {
			email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if err := s.ensureUnique(txCtx, username, email, user.ID); err != nil {
			return err
		}
		user.Username, user.Email = username, email

		if req.Role != nil && *req.Role != user.Role {
			if err := s.requireRole(txCtx, *req.Role); err != nil {
				return err
			}
			user.Role = *req.Role
		}
		if req.FullName != nil {
			user.FullName = strings.TrimSpace(*req.FullName)
		}
		if req.Position != nil {
			user.Position = *req.Position
		}
		if req.Department != nil {
			user.Department = *req.Department
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}
		if req.Active != nil {
			if !*req.Active && user.ID == actor.UserID {
				return fmt.Errorf("%w: cannot deactivate your own account", ErrForbidden)
			}
			user.Active = *req.Active
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if !user.Active {
			if err := s.repo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
				return fmt.Errorf("failed to revoke sessions: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionUpdateUser, user.ID.String(), user.Username,
			map[string]auditedUser{"before": before, "after": auditUser(user)})
	})
	if err != nil {
		return nil, err
	}

	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	if userID == actor.UserID {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if err := s.repo.DeleteRefreshTokensByUser(txCtx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		if err := s.repo.Delete(txCtx, userID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteUser, user.ID.String(), user.Username, auditUser(user))
	})
}

// ChangePassword lets a user change their own password (current password required) or a holder of
// users.write reset anyone's. All sessions of the target user are revoked.
func (s *userService) ChangePassword(ctx context.Context, actor Actor, id string, req ChangePasswordRequest) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	self := userID == actor.UserID
	if !self && !actor.Has(model.PermUsersWrite) {
		return ErrForbidden
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound)
		}
		if self {
			if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
				return ErrWrongPassword
			}
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashed)

		if err := s.repo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := s.repo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionChangePassword, user.ID.String(), user.Username, nil)
	})
}

func (s *userService) requireRole(ctx context.Context, role string) error {
	if _, err := s.roleRepo.FindByName(ctx, role); err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
		return fmt.Errorf("failed to load role: %w", err)
	}
	return nil
}

func (s *userService) ensureUnique(ctx context.Context, username, email string, self uuid.UUID) error {
	if existing, err := s.repo.GetByUsername(ctx, username); err == nil && existing.ID != self {
		return ErrUsernameExists
	} else if err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing.ID != self {
		return ErrEmailExists
	} else if err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}
