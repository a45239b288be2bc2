package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

// workItemMissingCode is the Azure DevOps error code for an unknown or hidden work item.
const workItemMissingCode = "TF401232"

// automationAuthors post status comments that carry no routing signal.
var automationAuthors = map[string]struct{}{
	"EDOT Service":            {},
	"DAI CSU Automation Flow": {},
	"TechRoB-Automation":      {},
}

// Client fetches work items and their comments from Azure DevOps.
type Client struct {
	wit    workitemtracking.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient connects to the organization with a personal access token.
func NewClient(ctx context.Context, cfg config.TrackerConfig, logger *zap.Logger) (*Client, error) {
	connection := azuredevops.NewPatConnection(cfg.OrgURL, cfg.PAT)
	wit, err := workitemtracking.NewClient(ctx, connection)
	if err != nil {
		return nil, fmt.Errorf("create work item client: %w", err)
	}
	return NewClientWithAPI(wit, logger), nil
}

// NewClientWithAPI wraps an existing work item tracking client.
func NewClientWithAPI(wit workitemtracking.Client, logger *zap.Logger) *Client {
	return &Client{wit: wit, logger: logger, now: time.Now}
}

// FetchTicket loads a work item with all fields and relations expanded.
func (c *Client) FetchTicket(ctx context.Context, id int, project string) (*domain.TicketRecord, error) {
	args := workitemtracking.GetWorkItemArgs{
		Id:     &id,
		Expand: &workitemtracking.WorkItemExpandValues.All,
	}
	if project != "" {
		args.Project = &project
	}

	item, err := c.wit.GetWorkItem(ctx, args)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"id": id})
		}
		c.logger.Error("fetch work item failed", zap.Int("id", id), zap.Error(err))
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("failed to fetch work item %d", id), err)
	}
	if item == nil {
		return nil, apperrors.NewNotFound("work item", map[string]any{"id": id})
	}

	return Extract(toRaw(item, id), c.now()), nil
}

// FetchComments renders the human comments on a work item in tracker order.
func (c *Client) FetchComments(ctx context.Context, id int, project string) (string, error) {
	list, err := c.wit.GetComments(ctx, workitemtracking.GetCommentsArgs{
		Project:    &project,
		WorkItemId: &id,
	})
	if err != nil {
		return "", fmt.Errorf("fetch comments for work item %d: %w", id, err)
	}
	if list == nil || list.Comments == nil {
		return domain.NoCommentsProvided, nil
	}

	var blocks []string
	for _, comment := range *list.Comments {
		author := "Unknown"
		if comment.CreatedBy != nil && comment.CreatedBy.DisplayName != nil && *comment.CreatedBy.DisplayName != "" {
			author = *comment.CreatedBy.DisplayName
		}
		if _, skip := automationAuthors[author]; skip {
			continue
		}
		var created time.Time
		if comment.CreatedDate != nil {
			created = comment.CreatedDate.Time
		}
		var body string
		if comment.Text != nil {
			body = CleanHTML(*comment.Text)
		}
		blocks = append(blocks, FormatComment(author, created, body))
	}
	if len(blocks) == 0 {
		return domain.NoCommentsProvided, nil
	}
	return strings.Join(blocks, "\n\n"), nil
}

// FormatComment renders one comment block.
func FormatComment(author string, created time.Time, body string) string {
	return fmt.Sprintf("Comment by %s on %s:\n%s", author, created.UTC().Format("1/2/2006, 3:04:05 PM"), body)
}

func toRaw(item *workitemtracking.WorkItem, requestedID int) RawWorkItem {
	raw := RawWorkItem{ID: requestedID}
	if item.Id != nil {
		raw.ID = *item.Id
	}
	if item.Url != nil {
		raw.URL = *item.Url
	}
	if item.Fields != nil {
		raw.Fields = *item.Fields
	}
	if item.Relations != nil {
		for _, rel := range *item.Relations {
			r := Relation{}
			if rel.Rel != nil {
				r.Rel = *rel.Rel
			}
			if rel.Url != nil {
				r.URL = *rel.Url
			}
			raw.Relations = append(raw.Relations, r)
		}
	}
	return raw
}

func isNotFound(err error) bool {
	var wrapped *azuredevops.WrappedError
	if errors.As(err, &wrapped) && wrapped.StatusCode != nil && *wrapped.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(err.Error(), workItemMissingCode)
}
