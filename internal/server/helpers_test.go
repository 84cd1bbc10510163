package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"unihub/internal/config"
	"unihub/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer wires a full server over sqlite and miniredis.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Port:             "0",
		JWTSecret:        "test-secret",
		Env:              "test",
		StorageRoot:      t.TempDir(),
		StoragePublicURL: "http://localhost:8640/files",
		LocalStatePath:   filepath.Join(t.TempDir(), "local.db"),
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

func request(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// signup registers a user and returns the auth payload.
func signup(t *testing.T, app *fiber.App, name, email string) AuthResponse {
	t.Helper()

	resp := request(t, app, fiber.MethodPost, "/api/auth/signup", "", SignupRequest{
		DisplayName: name,
		Email:       email,
		Password:    "secret1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var ar AuthResponse
	decodeBody(t, resp, &ar)
	require.NotEmpty(t, ar.Token)
	return ar
}
