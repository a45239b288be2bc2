package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/uatops/uat-router/internal/api/dto"
	"github.com/uatops/uat-router/internal/domain"
)

// UserSearcher finds directory users by name or mail.
type UserSearcher interface {
	SearchUsers(ctx context.Context, query string) []domain.ResolvedIdentity
}

// IdentityHandler exposes directory search. A nil searcher yields empty results.
type IdentityHandler struct {
	searcher UserSearcher
}

// NewIdentityHandler constructs handler.
func NewIdentityHandler(searcher UserSearcher) *IdentityHandler {
	return &IdentityHandler{searcher: searcher}
}

// Search GET /api/identities/search?q=.
func (h *IdentityHandler) Search(c *fiber.Ctx) error {
	results := []domain.ResolvedIdentity{}
	if h.searcher != nil {
		results = h.searcher.SearchUsers(c.UserContext(), c.Query("q"))
	}
	return c.JSON(dto.IdentitySearchResponse{Data: results})
}
