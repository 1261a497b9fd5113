package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"painai/internal/auth"
	"painai/internal/config"
	"painai/internal/database"
	"painai/internal/middleware"
	"painai/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "painai-test-secret"

// StaticPermissions resolves role names from a fixed map.
type StaticPermissions map[string][]string

func (s StaticPermissions) GetPermissionsByRoleName(_ context.Context, role string) ([]string, error) {
	return s[role], nil
}

// TokenManager returns a token manager signing with JWTSecret.
func TokenManager() *auth.TokenManager {
	return auth.NewTokenManager(config.JWTConfig{
		Secret:             JWTSecret,
		Issuer:             "painai-test",
		AccessTokenExpire:  time.Hour,
		RefreshTokenExpire: 24 * time.Hour,
	})
}

// NewAuth builds the auth middleware over a static role → permissions map.
func NewAuth(perms StaticPermissions) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(TokenManager(), perms, middleware.NewMemoryPermissionCache(time.Minute), zap.NewNop())
}

// GenerateTestToken creates a valid access token for the user and role.
func GenerateTestToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, _, err := TokenManager().GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes the standard envelope. Data is left as raw JSON for DecodeData.
func ParseResponse(t *testing.T, w *httptest.ResponseRecorder) (response.Response, json.RawMessage) {
	t.Helper()
	var envelope struct {
		response.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	return envelope.Response, envelope.Data
}

// DecodeData unmarshals the data field of the envelope into v.
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	_, data := ParseResponse(t, w)
	require.NoError(t, json.Unmarshal(data, v))
}

// SetupTestDB connects to TEST_DATABASE_URL inside a fresh schema that is dropped after the test.
// Tests are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	baseDSN := os.Getenv("TEST_DATABASE_URL")
	if baseDSN == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	schema := fmt.Sprintf("test_painai_%s", uuid.NewString()[:8])
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, setupDB.Exec("CREATE SCHEMA IF NOT EXISTS "+schema).Error)
	closeDB(setupDB)

	db, err := gorm.Open(postgres.Open(baseDSN+" search_path="+schema), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		closeDB(db)
		cleanDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			cleanDB.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE")
			closeDB(cleanDB)
		}
	})
	return db
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
