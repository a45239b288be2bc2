package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uatops/uat-router/internal/domain"
	"github.com/uatops/uat-router/internal/events"
	"github.com/uatops/uat-router/internal/observability"
)

func TestAuditServiceRecordsRouting(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	metrics := observability.NewMetrics()
	NewAuditService(dispatcher, zap.New(core), metrics).RegisterHandlers()

	tag := "ROUTE_A"
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventRoutingCompleted, 7, time.Now(),
		events.RoutingCompletedPayload{Tag: &tag, Tier: domain.TierJSON, RawCompletion: "{...}", Usage: domain.Usage{TotalTokens: 12}})))
	parseErr := "invalid character"
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventRoutingCompleted, 8, time.Now(),
		events.RoutingCompletedPayload{Tier: domain.TierFailed, ParseError: &parseErr})))
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventRoutingFailed, 9, time.Now(),
		events.RoutingFailedPayload{Code: "NOT_FOUND", Message: "work item not found"})))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.ParseTiers[domain.TierJSON])
	assert.Equal(t, int64(1), snap.ParseTiers[domain.TierFailed])
	assert.Equal(t, int64(12), snap.TotalTokens)

	completed := logs.FilterMessage("RoutingCompleted").All()
	require.Len(t, completed, 1)
	assert.Equal(t, "ROUTE_A", completed[0].ContextMap()["tag"])
	assert.Equal(t, 1, logs.FilterMessage("RoutingCompleted with parse error").Len())
	assert.Equal(t, 2, logs.FilterMessage("RoutingCompleted raw completion").Len())
	assert.Equal(t, 1, logs.FilterMessage("RoutingFailed").Len())
}

func TestAuditServiceRejectsWrongPayload(t *testing.T) {
	audit := NewAuditService(nil, zap.NewNop(), nil)
	audit.RegisterHandlers()

	err := audit.handleRoutingCompleted(context.Background(), events.Event{Type: events.EventRoutingCompleted, Payload: "nope"})
	assert.Error(t, err)
}
