package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
)

type graphStub struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	lastSearch  atomic.Value
	failLookups bool
}

func newGraphStub(t *testing.T) *graphStub {
	t.Helper()
	stub := &graphStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, graphScope, r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"graph-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1.0/users/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer graph-token", r.Header.Get("Authorization"))
		assert.Equal(t, "eventual", r.Header.Get("ConsistencyLevel"))
		if stub.failLookups {
			http.Error(w, `{"error":{"code":"Request_ResourceNotFound"}}`, http.StatusNotFound)
			return
		}
		assert.Equal(t, userSelect, r.URL.Query().Get("$select"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"displayName": "Jane Doe",
			"mail":        "jane@contoso.com",
			"jobTitle":    "Senior CSAM",
			"department":  "Customer Success",
		})
	})
	mux.HandleFunc("/v1.0/users", func(w http.ResponseWriter, r *http.Request) {
		stub.lastSearch.Store(r.URL.Query().Get("$search"))
		assert.Equal(t, "10", r.URL.Query().Get("$top"))
		_, _ = w.Write([]byte(`{"value":[
			{"displayName":"Jane Doe","mail":"jane@contoso.com","jobTitle":"Azure Specialist"},
			{"displayName":"Jan Roe","mail":"jan@contoso.com"}
		]}`))
	})
	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *graphStub) resolver() *Resolver {
	cfg := config.IdentityConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		TenantID:     "tenant-1",
		AuthorityURL: s.server.URL,
		GraphURL:     s.server.URL + "/v1.0",
	}
	return NewResolver(cfg, s.server.Client(), zap.NewNop())
}

func TestResolveIdentity(t *testing.T) {
	stub := newGraphStub(t)
	r := stub.resolver()

	got := r.ResolveIdentity(context.Background(), "jane@contoso.com")

	assert.Equal(t, domain.ResolvedIdentity{
		Email:      "jane@contoso.com",
		Name:       "Jane Doe",
		Title:      "Senior CSAM",
		Department: "Customer Success",
		Team:       domain.TeamCSU,
	}, got)

	_ = r.ResolveIdentity(context.Background(), "jane@contoso.com")
	assert.Equal(t, int32(1), stub.tokenCalls.Load())
}

func TestResolveIdentitySentinelsSkipLookup(t *testing.T) {
	stub := newGraphStub(t)
	r := stub.resolver()

	for _, in := range []string{"", domain.FieldNotFound, domain.Unknown} {
		got := r.ResolveIdentity(context.Background(), in)
		assert.Equal(t, domain.UnresolvedIdentity(in), got)
	}
	assert.Equal(t, int32(0), stub.tokenCalls.Load())
}

func TestResolveIdentityFailureIsPartial(t *testing.T) {
	stub := newGraphStub(t)
	stub.failLookups = true

	got := stub.resolver().ResolveIdentity(context.Background(), "ghost@contoso.com")

	assert.Equal(t, "ghost@contoso.com", got.Email)
	assert.Equal(t, domain.Unknown, got.Name)
	assert.Equal(t, domain.TeamUnknown, got.Team)
	assert.Contains(t, got.Error, "404")
}

func TestResolveIdentities(t *testing.T) {
	stub := newGraphStub(t)

	got := stub.resolver().ResolveIdentities(context.Background(), []string{
		"jane@contoso.com", domain.FieldNotFound, "", "jane@contoso.com",
	})

	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].Name)
}

func TestSearchUsers(t *testing.T) {
	stub := newGraphStub(t)
	r := stub.resolver()

	assert.Empty(t, r.SearchUsers(context.Background(), " ja "))

	got := r.SearchUsers(context.Background(), "jan")
	require.Len(t, got, 2)
	assert.Equal(t, domain.TeamSTU, got[0].Team)
	assert.Equal(t, domain.Unknown, got[1].Title)
	assert.Equal(t, domain.TeamUnknown, got[1].Team)
	assert.Equal(t, `"displayName:jan" OR "mail:jan"`, stub.lastSearch.Load())
}
