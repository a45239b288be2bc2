package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
)

const (
	graphScope       = "https://graph.microsoft.com/.default"
	userSelect       = "displayName,mail,jobTitle,department,officeLocation"
	searchSelect     = "displayName,mail,jobTitle,department"
	searchLimit      = "10"
	minSearchLength  = 3
	maxErrorBodySize = 4 << 10
)

// Resolver looks up requestors in Microsoft Graph and classifies their team.
type Resolver struct {
	graphURL string
	http     *http.Client
	tokens   *tokenCache
	logger   *zap.Logger
}

type graphUser struct {
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	JobTitle    string `json:"jobTitle"`
	Department  string `json:"department"`
}

// NewResolver builds a resolver using the client-credentials grant. A nil httpClient uses
// http.DefaultClient.
func NewResolver(cfg config.IdentityConfig, httpClient *http.Client, logger *zap.Logger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL(),
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &Resolver{
		graphURL: cfg.GraphURL,
		http:     httpClient,
		logger:   logger,
		tokens: newTokenCache(func(ctx context.Context) (*oauth2.Token, error) {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
			tok, err := cc.Token(ctx)
			if err != nil {
				return nil, fmt.Errorf("authenticate with Microsoft Graph: %w", err)
			}
			return tok, nil
		}),
	}
}

// ResolveIdentity looks up one email. It never fails: lookup errors yield a partial
// identity with the error noted.
func (r *Resolver) ResolveIdentity(ctx context.Context, email string) domain.ResolvedIdentity {
	if email == "" || email == domain.FieldNotFound || email == domain.Unknown {
		return domain.UnresolvedIdentity(email)
	}

	var user graphUser
	query := url.Values{"$select": {userSelect}}
	if err := r.get(ctx, "/users/"+url.PathEscape(email), query, &user); err != nil {
		r.logger.Warn("identity lookup failed", zap.String("email", email), zap.Error(err))
		partial := domain.UnresolvedIdentity(email)
		partial.Error = err.Error()
		return partial
	}

	resolved := domain.ResolvedIdentity{
		Email:      user.Mail,
		Name:       valueOrUnknown(user.DisplayName),
		Title:      valueOrUnknown(user.JobTitle),
		Department: valueOrUnknown(user.Department),
		Team:       ClassifyTeam(user.JobTitle),
	}
	if resolved.Email == "" {
		resolved.Email = email
	}
	return resolved
}

// ResolveIdentities resolves each distinct, non-sentinel email in input order.
func (r *Resolver) ResolveIdentities(ctx context.Context, emails []string) []domain.ResolvedIdentity {
	seen := make(map[string]struct{}, len(emails))
	out := []domain.ResolvedIdentity{}
	for _, email := range emails {
		if email == "" || email == domain.FieldNotFound {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, r.ResolveIdentity(ctx, email))
	}
	return out
}

// SearchUsers matches display names and mail addresses. Queries shorter than three
// characters and failed searches return no results.
func (r *Resolver) SearchUsers(ctx context.Context, query string) []domain.ResolvedIdentity {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return []domain.ResolvedIdentity{}
	}

	var page struct {
		Value []graphUser `json:"value"`
	}
	params := url.Values{
		"$search": {fmt.Sprintf(`"displayName:%s" OR "mail:%s"`, query, query)},
		"$select": {searchSelect},
		"$top":    {searchLimit},
	}
	if err := r.get(ctx, "/users", params, &page); err != nil {
		r.logger.Warn("user search failed", zap.String("query", query), zap.Error(err))
		return []domain.ResolvedIdentity{}
	}

	out := make([]domain.ResolvedIdentity, 0, len(page.Value))
	for _, user := range page.Value {
		out = append(out, domain.ResolvedIdentity{
			Email:      user.Mail,
			Name:       user.DisplayName,
			Title:      valueOrUnknown(user.JobTitle),
			Department: valueOrUnknown(user.Department),
			Team:       ClassifyTeam(user.JobTitle),
		})
	}
	return out
}

func (r *Resolver) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := r.tokens.Get(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.graphURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("ConsistencyLevel", "eventual")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("graph request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func valueOrUnknown(v string) string {
	if v == "" {
		return domain.Unknown
	}
	return v
}
