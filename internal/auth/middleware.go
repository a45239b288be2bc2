package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

const (
	// FunctionKeyHeader carries the caller's function key.
	FunctionKeyHeader = "x-functions-key"
	// FunctionKeyQuery is the query-string alternative to the header.
	FunctionKeyQuery = "code"

	authenticatedKey = "auth_function_key"
)

// FunctionKeyMiddleware guards routes with a shared key compared against a bcrypt hash.
type FunctionKeyMiddleware struct {
	hash string
}

// NewFunctionKeyMiddleware constructs middleware. An empty hash disables the check.
func NewFunctionKeyMiddleware(hash string) *FunctionKeyMiddleware {
	return &FunctionKeyMiddleware{hash: hash}
}

// Enabled reports whether a key is required.
func (m *FunctionKeyMiddleware) Enabled() bool {
	return m != nil && m.hash != ""
}

// Handle enforces the function key for protected routes.
func (m *FunctionKeyMiddleware) Handle(c *fiber.Ctx) error {
	if !m.Enabled() {
		return c.Next()
	}

	key := c.Get(FunctionKeyHeader)
	if key == "" {
		key = c.Query(FunctionKeyQuery)
	}
	if key == "" {
		return apperrors.NewUnauthorized("missing function key")
	}
	if err := CompareFunctionKey(m.hash, key); err != nil {
		return apperrors.NewUnauthorized("invalid function key")
	}

	c.Locals(authenticatedKey, true)
	return c.Next()
}

// Authenticated reports whether the request presented a valid key.
func Authenticated(c *fiber.Ctx) bool {
	ok, _ := c.Locals(authenticatedKey).(bool)
	return ok
}
