package middleware

import (
	"context"
	"net/http"
	"strings"

	"painai/internal/auth"
	"painai/internal/service"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys set by RequireAuth.
const (
	ContextUserID      = "userID"
	ContextUserRole    = "userRole"
	ContextPermissions = "permissions"
)

// TokenParser verifies an access token.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// PermissionResolver loads the permission codes granted to a role.
type PermissionResolver interface {
	GetPermissionsByRoleName(ctx context.Context, roleName string) ([]string, error)
}

// AuthMiddleware authenticates requests and checks role permissions.
type AuthMiddleware struct {
	tokens   TokenParser
	resolver PermissionResolver
	cache    PermissionCache
	log      *zap.Logger
}

func NewAuthMiddleware(tokens TokenParser, resolver PermissionResolver, cache PermissionCache, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, resolver: resolver, cache: cache, log: log}
}

// RequireAuth validates the access token and loads the caller's permissions into the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c)
	}
}

// RequirePermission is RequireAuth plus a check that the caller's role holds every listed permission.
func (m *AuthMiddleware) RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}

		actor, _ := GetActor(c)
		for _, required := range requiredPerms {
			if !actor.Has(required) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
		c.Next()
	}
}

// authenticate aborts the request and returns false when the caller cannot be identified.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	if _, done := c.Get(ContextPermissions); done {
		return true
	}

	tokenString, ok := extractToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return false
	}

	claims, err := m.tokens.Parse(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
		return false
	}
	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}
	if claims.Role == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return false
	}

	perms, err := m.Permissions(c.Request.Context(), claims.Role)
	if err != nil {
		m.log.Error("Failed to load role permissions", zap.String("role", claims.Role), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
		return false
	}

	c.Set(ContextUserID, userID.String())
	c.Set(ContextUserRole, claims.Role)
	c.Set(ContextPermissions, perms)
	return true
}

// Permissions returns the role's permission codes, from the cache when possible.
func (m *AuthMiddleware) Permissions(ctx context.Context, roleName string) ([]string, error) {
	if codes, ok := m.cache.Get(ctx, roleName); ok {
		return codes, nil
	}
	codes, err := m.resolver.GetPermissionsByRoleName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	m.cache.Set(ctx, roleName, codes)
	return codes, nil
}

// extractToken reads the access_token cookie, then the Bearer header, then the token query parameter
// used by websocket clients.
func extractToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, true
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetActor returns the authenticated caller. ok is false on routes without RequireAuth.
func GetActor(c *gin.Context) (service.Actor, bool) {
	rawID := c.GetString(ContextUserID)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:      id,
		Role:        c.GetString(ContextUserRole),
		Permissions: c.GetStringSlice(ContextPermissions),
	}, true
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string, accessMaxAge, refreshMaxAge int) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, accessMaxAge, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, refreshMaxAge, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite, secure := cookieMode()
	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// Release builds are served cross-origin and need SameSite=None over TLS.
func cookieMode() (http.SameSite, bool) {
	if gin.Mode() == gin.ReleaseMode {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}
