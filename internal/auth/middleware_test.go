package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

func newGuardedApp(t *testing.T, hash string) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/guarded", NewFunctionKeyMiddleware(hash).Handle, func(c *fiber.Ctx) error {
		if Authenticated(c) {
			return c.SendString("key")
		}
		return c.SendString("open")
	})
	return app
}

func TestFunctionKeyMiddleware(t *testing.T) {
	hash, err := HashFunctionKey("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	app := newGuardedApp(t, hash)

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing", "/guarded", "", fiber.StatusUnauthorized},
		{"wrong header", "/guarded", "nope", fiber.StatusUnauthorized},
		{"header", "/guarded", "s3cret", fiber.StatusOK},
		{"query", "/guarded?code=s3cret", "", fiber.StatusOK},
		{"wrong query", "/guarded?code=nope", "", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.target, nil)
			if tc.header != "" {
				req.Header.Set(FunctionKeyHeader, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestFunctionKeyMiddlewareDisabled(t *testing.T) {
	app := newGuardedApp(t, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/guarded", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHashFunctionKeyDefaultCost(t *testing.T) {
	hash, err := HashFunctionKey("k", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.NoError(t, CompareFunctionKey(hash, "k"))
	assert.Error(t, CompareFunctionKey(hash, "other"))
}
