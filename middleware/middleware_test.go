package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmscert/config"
	"lmscert/models"
	"lmscert/services"
)

func setupConfig(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: "test-secret"}
	t.Cleanup(func() { config.AppConfig = prev })
}

func whoAmI(c *fiber.Ctx) error {
	id, ok := UserID(c)
	return c.JSON(fiber.Map{"id": id, "ok": ok, "role": c.Locals("role")})
}

func do(t *testing.T, app *fiber.App, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestJWTMiddleware(t *testing.T) {
	setupConfig(t)
	app := fiber.New()
	app.Get("/", JWTMiddleware, whoAmI)

	token, err := GenerateJWT(7, "Jane", models.RoleUser, "jane@example.com")
	require.NoError(t, err)

	status, body := do(t, app, token)
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, models.RoleUser, body["role"])

	status, body = do(t, app, "")
	assert.Equal(t, 401, status)
	assert.Equal(t, false, body["status"])

	status, _ = do(t, app, token+"x")
	assert.Equal(t, 401, status)
}

func TestOptionalJWT(t *testing.T) {
	setupConfig(t)
	app := fiber.New()
	app.Get("/", OptionalJWT, whoAmI)

	status, body := do(t, app, "")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["ok"])

	status, body = do(t, app, "garbage")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["ok"])

	token, err := GenerateJWT(3, "Jane", models.RoleUser, "jane@example.com")
	require.NoError(t, err)
	_, body = do(t, app, token)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["id"])
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindUser(ctx context.Context, id uint) (*models.User, error) {
	if id == 99 {
		return nil, errors.New("db down")
	}
	u, ok := f[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return u, nil
}

func TestRequireRole(t *testing.T) {
	setupConfig(t)
	users := fakeUsers{
		1: {Role: models.RoleAdmin},
		2: {Role: models.RoleUser},
	}
	app := fiber.New()
	app.Get("/", JWTMiddleware, RequireRole(users, models.RoleAdmin), whoAmI)

	cases := []struct {
		id     uint
		status int
	}{
		{1, 200},
		{2, 403},
		{3, 403},
		{99, 500},
	}
	for _, tc := range cases {
		// The token claims USER for everyone; the stored role decides.
		token, err := GenerateJWT(tc.id, "x", models.RoleUser, "x@example.com")
		require.NoError(t, err)
		status, _ := do(t, app, token)
		assert.Equal(t, tc.status, status, "user %d", tc.id)
	}
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimit(NewIPRateLimiter(2)), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	for i := 0; i < 2; i++ {
		status, _ := do(t, app, "")
		assert.Equal(t, 200, status)
	}
	status, body := do(t, app, "")
	assert.Equal(t, 429, status)
	assert.Equal(t, false, body["status"])

	l := NewIPRateLimiter(1)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}
