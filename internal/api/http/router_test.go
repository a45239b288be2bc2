package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/uatops/uat-router/internal/api/http/handlers"
	"github.com/uatops/uat-router/internal/auth"
	"github.com/uatops/uat-router/internal/completion"
	"github.com/uatops/uat-router/internal/domain"
	"github.com/uatops/uat-router/internal/events"
	"github.com/uatops/uat-router/internal/observability"
	"github.com/uatops/uat-router/internal/prompt"
	"github.com/uatops/uat-router/internal/service"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

type stubTickets struct{}

func (stubTickets) FetchTicket(_ context.Context, id int, _ string) (*domain.TicketRecord, error) {
	switch id {
	case 404:
		return nil, apperrors.NewNotFound("work item", map[string]any{"id": id})
	case 502:
		return nil, apperrors.NewUpstreamError("tracker request failed", errors.New("connection reset"))
	}
	return &domain.TicketRecord{ID: id, Title: "Need quota", Requestors: domain.FieldNotFound}, nil
}

func (stubTickets) FetchComments(context.Context, int, string) (string, error) {
	return domain.NoCommentsProvided, nil
}

type stubCompletions struct{ text string }

func (s stubCompletions) RequestCompletion(context.Context, string) (*completion.Result, error) {
	return &completion.Result{Text: s.text, Usage: domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSearcher struct{}

func (stubSearcher) SearchUsers(_ context.Context, q string) []domain.ResolvedIdentity {
	return []domain.ResolvedIdentity{{Email: q + "@contoso.com", Name: "Match", Title: domain.Unknown, Team: domain.TeamUnknown}}
}

type appOptions struct {
	completionText string
	keyHash        string
	exposeTrace    bool
	pingErr        error
}

func newTestApp(t *testing.T, opts appOptions) (*fiber.App, *observability.Metrics) {
	t.Helper()
	if opts.completionText == "" {
		opts.completionText = `{"routing":{"tag":"ROUTE_A"},"service":{"name":"Compute"}}`
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	routing := service.NewRoutingService(service.RoutingDependencies{
		Tickets:     stubTickets{},
		Prompts:     prompt.NewBuilderFromString("T"),
		Completions: stubCompletions{text: opts.completionText},
		Dispatcher:  dispatcher,
		Logger:      logger,
		Now:         func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) },
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{ExposeTrace: opts.exposeTrace})
	RegisterRoutes(app, RouteConfig{
		Health:      handlers.NewHealthHandler("uat-router", "1.0.0", stubPinger{err: opts.pingErr}),
		Routing:     handlers.NewRoutingHandler(routing),
		Identities:  handlers.NewIdentityHandler(stubSearcher{}),
		Metrics:     handlers.NewMetricsHandler(metrics),
		FunctionKey: auth.NewFunctionKeyMiddleware(opts.keyHash),
	})
	return app, metrics
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestRouteEndpoint(t *testing.T) {
	app, metrics := newTestApp(t, appOptions{})

	for _, body := range []string{`{"id":"123"}`, `{"id":123}`, `{"workItemId":123}`} {
		status, out := do(t, app, "POST", "/api/uat-routing", body)
		require.Equal(t, fiber.StatusOK, status, body)

		assert.Equal(t, true, out["success"])
		assert.Equal(t, float64(123), out["id"])
		assert.Equal(t, "2026-02-03T04:05:06Z", out["timestamp"])
		routing := out["routing"].(map[string]any)
		assert.Equal(t, "ROUTE_A", routing["tag"])
		assert.Contains(t, routing, "assignedTo")
		assert.Nil(t, routing["assignedTo"])
		assert.Equal(t, map[string]any{"name": "Compute", "solutionArea": "UNKNOWN", "dri": "UNKNOWN"}, out["service"])
		assert.Equal(t, float64(15), out["usage"].(map[string]any)["total_tokens"])
		assert.NotContains(t, out, "parseError")
		assert.Contains(t, out, "fullJson")
	}

	assert.Equal(t, int64(3), metrics.Snapshot().ParseTiers[domain.TierJSON])
}

func TestRouteEndpointParseErrorStillSucceeds(t *testing.T) {
	app, _ := newTestApp(t, appOptions{completionText: "Here: {not json}"})

	status, out := do(t, app, "POST", "/api/uat-routing", `{"id":"7"}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "PARSE_ERROR", out["routing"].(map[string]any)["tag"])
	assert.Equal(t, []any{"Failed to parse AI response"}, out["reasoning"])
	assert.NotEmpty(t, out["parseError"])
}

func TestRouteEndpointErrors(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing id", `{}`, fiber.StatusBadRequest, apperrors.CodeValidation},
		{"non numeric", `{"id":"abc"}`, fiber.StatusBadRequest, apperrors.CodeValidation},
		{"bad json", `{"id":`, fiber.StatusBadRequest, apperrors.CodeValidation},
		{"not found", `{"id":404}`, fiber.StatusNotFound, apperrors.CodeNotFound},
		{"upstream", `{"id":502}`, fiber.StatusBadGateway, apperrors.CodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, out := do(t, app, "POST", "/api/uat-routing", tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.code, out["error"].(map[string]any)["code"])
			assert.NotContains(t, out, "trace")
		})
	}
}

func TestErrorTraceOutsideProduction(t *testing.T) {
	app, _ := newTestApp(t, appOptions{exposeTrace: true})

	_, out := do(t, app, "POST", "/api/uat-routing", `{"id":502}`)

	trace := out["trace"].([]any)
	require.Len(t, trace, 2)
	assert.Equal(t, "connection reset", trace[1])
}

func TestBatchEndpoint(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	status, out := do(t, app, "POST", "/api/uat-routing-batch", `{"ids":[1,"404",3]}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), out["total"])
	assert.Equal(t, float64(1), out["failed"])
	results := out["results"].([]any)
	require.Len(t, results, 3)

	first := results[0].(map[string]any)
	assert.Equal(t, true, first["success"])
	assert.Equal(t, float64(1), first["id"])
	assert.Contains(t, first, "routing")
	assert.Contains(t, first, "service")
	assert.Contains(t, first, "milestone")

	second := results[1].(map[string]any)
	assert.Equal(t, false, second["success"])
	assert.Equal(t, "404", second["id"])
	assert.Equal(t, apperrors.CodeNotFound, second["code"])
	assert.NotEmpty(t, second["error"])

	assert.Equal(t, float64(3), results[2].(map[string]any)["id"])
}

func TestBatchEndpointRequiresIDs(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	for _, body := range []string{`{}`, `{"ids":[]}`} {
		status, out := do(t, app, "POST", "/api/uat-routing-batch", body)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, apperrors.CodeValidation, out["error"].(map[string]any)["code"])
	}
}

func TestFunctionKeyGuardsRoutingOnly(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k1"), bcrypt.MinCost)
	require.NoError(t, err)
	app, _ := newTestApp(t, appOptions{keyHash: string(hash)})

	status, out := do(t, app, "POST", "/api/uat-routing", `{"id":1}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, out["error"].(map[string]any)["code"])

	status, _ = do(t, app, "POST", "/api/uat-routing?code=k1", `{"id":1}`)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, "GET", "/api/health", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestHealthEndpoints(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	status, out := do(t, app, "GET", "/api/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "1.0.0", out["version"])

	status, out = do(t, app, "GET", "/health/live", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", out["status"])

	status, out = do(t, app, "GET", "/health/ready", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", out["dependencies"].(map[string]any)["completion"])

	down, _ := newTestApp(t, appOptions{pingErr: errors.New("status 401")})
	status, out = do(t, down, "GET", "/health/ready", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", out["error"].(map[string]any)["code"])
}

func TestIdentitySearchAndMetrics(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	status, out := do(t, app, "GET", "/api/identities/search?q=jane", "")
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "jane@contoso.com", data[0].(map[string]any)["email"])

	status, out = do(t, app, "GET", "/metrics", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, out, "requests")
	assert.Contains(t, out, "parse_tiers")
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	app, _ := newTestApp(t, appOptions{})

	status, out := do(t, app, "GET", "/nope", "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, out["error"].(map[string]any)["code"])
}
