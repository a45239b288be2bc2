package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/completion"
	"github.com/uatops/uat-router/internal/domain"
	"github.com/uatops/uat-router/internal/events"
	"github.com/uatops/uat-router/internal/normalize"
	"github.com/uatops/uat-router/internal/worker"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

const defaultBatchWindow = 5

var emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// TicketSource reads work items from the tracker.
type TicketSource interface {
	FetchTicket(ctx context.Context, id int, project string) (*domain.TicketRecord, error)
	FetchComments(ctx context.Context, id int, project string) (string, error)
}

// IdentityResolver enriches a requestor email. It reports failures inside the identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, email string) domain.ResolvedIdentity
}

// PromptRenderer builds completion prompts.
type PromptRenderer interface {
	Render(ticket *domain.TicketRecord, requestor *domain.ResolvedIdentity) string
	RenderSimplified(ticket *domain.TicketRecord) string
}

// CompletionRequester sends a prompt to the model.
type CompletionRequester interface {
	RequestCompletion(ctx context.Context, prompt string) (*completion.Result, error)
}

// RoutingService runs the fetch, enrich, prompt, complete and normalize pipeline.
type RoutingService struct {
	tickets        TicketSource
	identities     IdentityResolver
	prompts        PromptRenderer
	completions    CompletionRequester
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	defaultProject string
	window         int
	now            func() time.Time
}

// RoutingDependencies bundles collaborators for the routing service. Identities may be nil
// when directory lookup is not configured.
type RoutingDependencies struct {
	Tickets        TicketSource
	Identities     IdentityResolver
	Prompts        PromptRenderer
	Completions    CompletionRequester
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	DefaultProject string
	BatchWindow    int
	Now            func() time.Time
}

// RouteInput identifies one work item. ID is the caller's raw identifier.
type RouteInput struct {
	ID      string
	Project string
}

// BatchInput lists work items routed without comments or identity resolution.
type BatchInput struct {
	IDs     []string
	Project string
}

// RoutingOutcome is a routed work item.
type RoutingOutcome struct {
	ID        int
	Result    domain.RoutingResult
	Usage     domain.Usage
	Timestamp time.Time
}

// BatchItem holds either an outcome or the error that stopped that item.
type BatchItem struct {
	ID      string
	Outcome *RoutingOutcome
	Err     error
}

// NewRoutingService constructs the service.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	s := &RoutingService{
		tickets:        deps.Tickets,
		identities:     deps.Identities,
		prompts:        deps.Prompts,
		completions:    deps.Completions,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		defaultProject: deps.DefaultProject,
		window:         deps.BatchWindow,
		now:            deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.window <= 0 {
		s.window = defaultBatchWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ParseWorkItemID validates a caller-supplied work item id.
func ParseWorkItemID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.NewValidationError("id is required", nil)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": raw})
	}
	return id, nil
}

// Route produces a routing recommendation for a single work item. Comment and identity
// enrichment are best effort; tracker and completion failures are returned.
func (s *RoutingService) Route(ctx context.Context, input RouteInput) (*RoutingOutcome, error) {
	id, err := ParseWorkItemID(input.ID)
	if err != nil {
		return nil, err
	}
	project := s.project(input.Project)
	logger := s.logger.With(zap.Int("work_item_id", id), zap.String("project", project))

	ticket, err := s.tickets.FetchTicket(ctx, id, project)
	if err != nil {
		s.publishFailure(ctx, id, err, false)
		return nil, err
	}

	if project != "" {
		comments, err := s.tickets.FetchComments(ctx, id, project)
		if err != nil {
			logger.Warn("could not fetch comments", zap.Error(err))
			comments = domain.NoCommentsAvailable
		}
		ticket.Comments = comments
	}

	requestor := s.resolveRequestor(ctx, ticket, logger)

	outcome, err := s.complete(ctx, id, s.prompts.Render(ticket, requestor))
	if err != nil {
		s.publishFailure(ctx, id, err, false)
		return nil, err
	}
	if requestor != nil {
		outcome.Result.Requestor = requestor.Summary()
	}

	logger.Info("work item routed", zap.String("tier", string(outcome.Result.Tier)))
	s.publishSuccess(ctx, outcome, false)
	return outcome, nil
}

// RouteBatch routes each id in windows, isolating failures per item. Results keep input
// order.
func (s *RoutingService) RouteBatch(ctx context.Context, input BatchInput) ([]BatchItem, error) {
	if len(input.IDs) == 0 {
		return nil, apperrors.NewValidationError("ids must be a non-empty array", nil)
	}
	project := s.project(input.Project)

	outcomes := worker.RunWindowed(ctx, s.window, input.IDs, func(ctx context.Context, raw string) (*RoutingOutcome, error) {
		return s.routeBatchItem(ctx, raw, project)
	})

	items := make([]BatchItem, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		items[i] = BatchItem{ID: input.IDs[i], Outcome: o.Value, Err: o.Err}
		if o.Err != nil {
			failed++
			s.logger.Warn("batch item failed", zap.String("id", input.IDs[i]), zap.Error(o.Err))
		}
	}

	s.publish(ctx, events.New(events.EventBatchCompleted, 0, s.now(), events.BatchCompletedPayload{
		Total:     len(items),
		Succeeded: len(items) - failed,
		Failed:    failed,
	}))
	return items, nil
}

// Ticket fetches a work item without routing it.
func (s *RoutingService) Ticket(ctx context.Context, input RouteInput) (*domain.TicketRecord, error) {
	id, err := ParseWorkItemID(input.ID)
	if err != nil {
		return nil, err
	}
	return s.tickets.FetchTicket(ctx, id, s.project(input.Project))
}

// Prompt renders the prompt a work item would be routed with, without calling the model.
// The simplified variant skips enrichment entirely.
func (s *RoutingService) Prompt(ctx context.Context, input RouteInput, simplified bool) (string, error) {
	ticket, err := s.Ticket(ctx, input)
	if err != nil {
		return "", err
	}
	if simplified {
		return s.prompts.RenderSimplified(ticket), nil
	}
	return s.prompts.Render(ticket, s.resolveRequestor(ctx, ticket, s.logger)), nil
}

func (s *RoutingService) routeBatchItem(ctx context.Context, raw, project string) (*RoutingOutcome, error) {
	id, err := ParseWorkItemID(raw)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.FetchTicket(ctx, id, project)
	if err != nil {
		s.publishFailure(ctx, id, err, true)
		return nil, err
	}
	outcome, err := s.complete(ctx, id, s.prompts.Render(ticket, nil))
	if err != nil {
		s.publishFailure(ctx, id, err, true)
		return nil, err
	}
	s.publishSuccess(ctx, outcome, true)
	return outcome, nil
}

func (s *RoutingService) complete(ctx context.Context, id int, prompt string) (*RoutingOutcome, error) {
	res, err := s.completions.RequestCompletion(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &RoutingOutcome{
		ID:        id,
		Result:    normalize.Parse(res.Text),
		Usage:     res.Usage,
		Timestamp: s.now().UTC(),
	}, nil
}

func (s *RoutingService) resolveRequestor(ctx context.Context, ticket *domain.TicketRecord, logger *zap.Logger) *domain.ResolvedIdentity {
	if s.identities == nil || !domain.Present(ticket.Requestors) {
		return nil
	}
	match := emailPattern.FindStringSubmatch(ticket.Requestors)
	if match == nil {
		return nil
	}
	logger.Debug("resolving requestor identity", zap.String("email", match[1]))
	identity := s.identities.ResolveIdentity(ctx, match[1])
	return &identity
}

func (s *RoutingService) project(p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return s.defaultProject
}

func (s *RoutingService) publishSuccess(ctx context.Context, o *RoutingOutcome, batch bool) {
	s.publish(ctx, events.New(events.EventRoutingCompleted, o.ID, o.Timestamp, events.RoutingCompletedPayload{
		Tag:           o.Result.Routing.Tag,
		AssignedTo:    o.Result.Routing.AssignedTo,
		Tier:          o.Result.Tier,
		RequestorTeam: o.Result.Requestor.Team,
		ParseError:    o.Result.ParseError,
		RawCompletion: o.Result.RawCompletionText,
		Usage:         o.Usage,
		Batch:         batch,
	}))
}

func (s *RoutingService) publishFailure(ctx context.Context, id int, err error, batch bool) {
	domainErr := apperrors.ToDomainError(err)
	s.publish(ctx, events.New(events.EventRoutingFailed, id, s.now().UTC(), events.RoutingFailedPayload{
		Code:    domainErr.Code,
		Message: domainErr.Error(),
		Batch:   batch,
	}))
}

func (s *RoutingService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
