package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/logging"
	"github.com/dmitrijs2005/fruitful/internal/server/auth"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fruitful/internal/server/services"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	cfg     *config.Config
	users   *services.UserService
	buckets *services.BucketService
	fruits  *services.FruitService
	handler http.Handler
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open(repomanager.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewRepositoryManager(repomanager.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(ctx, db))
	db.SetMaxOpenConns(1)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = testSecret

	e := services.NewExpirationHandler(db, rm)
	env := &testEnv{cfg: cfg}
	env.users = services.NewUserService(db, rm, cfg)
	env.buckets = services.NewBucketService(db, rm, e)
	env.fruits = services.NewFruitService(db, rm, e, env.buckets)

	env.handler = NewAPI(cfg, discardLogger(), env.users, env.buckets, env.fruits, opts...).Routes()
	return env
}

func discardLogger() logging.Logger {
	return logging.NewSlogJSONLogger(io.Discard, logging.LevelError)
}

// account creates a user and returns it with a valid access token.
func (e *testEnv) account(t *testing.T, email string, superuser bool) (*models.User, string) {
	t.Helper()
	u, err := e.users.Create(context.Background(), models.UserCreate{
		Email:       email,
		FullName:    "Test User",
		Password:    "password123",
		IsSuperuser: superuser,
	})
	require.NoError(t, err)
	token, err := auth.GenerateToken(u.ID, []byte(testSecret), time.Minute)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doRaw(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, rec).Detail
}
