package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"painai/internal/model"
	"painai/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]model.User
	tokens map[string]model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]model.User{}, tokens: map[string]model.RefreshToken{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, f repository.UserFilter) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ListActive(ctx context.Context) ([]model.User, error) {
	all, _, _ := r.List(ctx, repository.UserFilter{})
	var out []model.User
	for _, u := range all {
		if u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.UpdatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, t *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Token] = *t
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeUserRepo) DeleteRefreshTokensByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *fakeUserRepo) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeRoleRepo struct {
	mu    sync.Mutex
	roles map[uuid.UUID]model.Role
	perms []model.Permission
	users *fakeUserRepo
}

func newFakeRoleRepo(users *fakeUserRepo) *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[uuid.UUID]model.Role{}, users: users}
}

func (r *fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role.ID = uuid.New()
	r.roles[role.ID] = *role
	return nil
}

func (r *fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.roles[role.ID]
	role.Permissions = existing.Permissions
	r.roles[role.ID] = *role
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roles, id)
	return nil
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	role.Permissions = nil
	return &role, nil
}

func (r *fakeRoleRepo) FindByIDWithPermissions(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &role, nil
}

func (r *fakeRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoleRepo) ListAll(_ context.Context) ([]model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeRoleRepo) ListPermissions(_ context.Context) ([]model.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Permission(nil), r.perms...), nil
}

func (r *fakeRoleRepo) UpdatePermissions(_ context.Context, roleID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := r.roles[roleID]
	role.Permissions = nil
	for _, p := range r.perms {
		for _, id := range ids {
			if p.ID == id {
				role.Permissions = append(role.Permissions, p)
			}
		}
	}
	r.roles[roleID] = role
	return nil
}

func (r *fakeRoleRepo) GetPermissionsByRoleName(_ context.Context, roleName string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := []string{}
	for _, role := range r.roles {
		if role.Name != roleName {
			continue
		}
		for _, p := range role.Permissions {
			codes = append(codes, p.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *fakeRoleRepo) FindOrCreatePermission(_ context.Context, perm *model.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.perms {
		if p.Code == perm.Code {
			*perm = p
			return nil
		}
	}
	perm.ID = uuid.New()
	r.perms = append(r.perms, *perm)
	return nil
}

func (r *fakeRoleRepo) ReplacePermissionsByCode(_ context.Context, roleID uuid.UUID, codes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	role.Permissions = nil
	for _, p := range r.perms {
		for _, c := range codes {
			if p.Code == c {
				role.Permissions = append(role.Permissions, p)
			}
		}
	}
	r.roles[roleID] = role
	return nil
}

func (r *fakeRoleRepo) CountUsersWithRole(ctx context.Context, roleName string) (int64, error) {
	_, total, _ := r.users.List(ctx, repository.UserFilter{Role: roleName})
	return total, nil
}

func (r *fakeRoleRepo) RenameUsersRole(_ context.Context, from, to string) error {
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	for id, u := range r.users.users {
		if u.Role == from {
			u.Role = to
			r.users.users[id] = u
		}
	}
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	roles []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, roleName string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.roles = append(i.roles, roleName)
}
