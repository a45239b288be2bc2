package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/events"
	"github.com/uatops/uat-router/internal/observability"
)

// AuditService records routing decisions published on the dispatcher.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventRoutingCompleted, a.handleRoutingCompleted)
	a.dispatcher.Subscribe(events.EventRoutingFailed, a.handleRoutingFailed)
	a.dispatcher.Subscribe(events.EventBatchCompleted, a.handleBatchCompleted)
}

func (a *AuditService) handleRoutingCompleted(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RoutingCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.metrics.RecordRouting(payload.Tier, payload.Usage)

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int("work_item_id", event.WorkItemID),
		zap.Stringp("tag", payload.Tag),
		zap.Stringp("assigned_to", payload.AssignedTo),
		zap.String("tier", string(payload.Tier)),
		zap.String("requestor_team", payload.RequestorTeam),
		zap.Int("total_tokens", payload.Usage.TotalTokens),
		zap.Bool("batch", payload.Batch),
	}
	if payload.ParseError != nil {
		a.logger.Warn("RoutingCompleted with parse error", append(fields, zap.Stringp("parse_error", payload.ParseError))...)
	} else {
		a.logger.Info("RoutingCompleted", fields...)
	}
	a.logger.Debug("RoutingCompleted raw completion",
		zap.String("event_id", event.ID),
		zap.String("raw_completion", payload.RawCompletion))
	return nil
}

func (a *AuditService) handleRoutingFailed(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RoutingFailedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.logger.Warn("RoutingFailed",
		zap.String("event_id", event.ID),
		zap.Int("work_item_id", event.WorkItemID),
		zap.String("code", payload.Code),
		zap.String("error", payload.Message),
		zap.Bool("batch", payload.Batch))
	return nil
}

func (a *AuditService) handleBatchCompleted(_ context.Context, event events.Event) error {
	a.logger.Info("BatchCompleted", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}
