package tracker

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/uatops/uat-router/internal/domain"
)

// Link types whose targets count as related work items.
const (
	linkRelated          = "System.LinkTypes.Related"
	linkHierarchyForward = "System.LinkTypes.Hierarchy-Forward"
)

var (
	bracketEmailPattern = regexp.MustCompile(`<([^>]+)>`)
	trailingIDPattern   = regexp.MustCompile(`/(\d+)$`)
)

// RawWorkItem is the tracker payload before normalization.
type RawWorkItem struct {
	ID        int
	URL       string
	Fields    map[string]any
	Relations []Relation
}

// Relation is a typed link to another tracker resource.
type Relation struct {
	Rel string
	URL string
}

// Extract maps a raw work item onto the normalized TicketRecord.
func Extract(item RawWorkItem, now time.Time) *domain.TicketRecord {
	f := fieldReader(item.Fields)

	return &domain.TicketRecord{
		ID:           item.ID,
		URL:          item.URL,
		Title:        f.get("System.Title"),
		AssignedTo:   f.identity("System.AssignedTo"),
		State:        f.get("System.State"),
		SubState:     f.get("Custom.SubState"),
		AreaPath:     f.get("System.AreaPath"),
		Iteration:    f.get("System.IterationPath"),
		WorkItemType: f.get("System.WorkItemType"),

		Description: CleanHTML(f.get("System.Description")),

		ConversationID: f.get("Custom.ConversationID"),
		RefID:          f.get("Custom.RefID"),
		ActionCategory: f.get("Custom.ActionCategory"),
		Requestors:     f.get("Custom.Requestors"),
		MeetingType:    f.get("Custom.MeetingType"),

		Account:    f.get("Custom.Account"),
		AccountID:  f.get("Custom.AccountID"),
		TPID:       f.get("Custom.TPID"),
		Area:       f.get("Custom.Area"),
		Country:    f.get("Custom.Country"),
		EOU:        f.get("Custom.EOU"),
		Industry:   f.get("Custom.Industry"),
		Segment:    f.get("Custom.Segment"),
		Subsegment: f.get("Custom.Subsegment"),

		OpportunityID:          f.get("Custom.OpportunityID"),
		OpportunityName:        f.get("Custom.OpportunityName"),
		OpportunityStage:       f.get("Custom.OpportunityStage"),
		OpportunitySize:        f.get("Custom.OpportunitySize"),
		OpportunityOutcome:     f.get("Custom.OpportunityOutcome"),
		ProductOpportunitySize: f.get("Custom.ProductOpportunitySize"),
		SolutionArea:           f.get("Custom.SolutionArea"),
		SalesPlay:              f.get("Custom.SalesPlay"),
		PartnerOneID:           f.get("Custom.PartnerOneID"),

		MilestoneID:          f.get("Custom.MilestoneID"),
		MilestoneStatus:      f.get("Custom.MilestoneStatus"),
		MilestoneReason:      f.get("Custom.MilestoneReason"),
		MilestoneActivations: f.get("Custom.MilestoneActivations"),
		MilestoneWorkload:    f.get("Custom.MilestoneWorkload"),

		HelpNeeded:                f.get("Custom.HelpNeeded"),
		EstimatedBilledRevenue:    f.get("Custom.EstimatedBilledRevenue"),
		EstimatedBilledRevenueUSD: f.get("Custom.EstBilledRevenueUSD"),
		EstimatedMonthlyUsage:     f.get("Custom.EstMonthlyUsageUSD"),
		BACV:                      f.get("Custom.BACV"),
		AzurePreferredRegion:      f.get("Custom.AzurePreferredRegion"),
		CustomerCommitment:        f.get("Custom.CustomerCommitment"),
		MicrosoftServiceRegions:   f.get("Custom.MicrosoftServiceRegions"),

		CustomerImpact:   CleanHTML(f.get("Custom.CustomerImpact")),
		CustomerScenario: CleanHTML(f.get("Custom.CustomerScenarioDesiredOutcome")),
		DesiredOutcome:   CleanHTML(f.get("Custom.DesiredOutcome")),

		CreatedDate: f.get("System.CreatedDate"),
		ChangedDate: f.get("System.ChangedDate"),
		CreatedBy:   f.identity("System.CreatedBy"),
		ChangedBy:   f.identity("System.ChangedBy"),

		RelatedWorkItems: relatedIDs(item.Relations),
		Comments:         historyComments(f),
		Tags:             f.tags("System.Tags"),
		Project:          f.get("System.TeamProject"),

		ExtractedAt: now.UTC(),
	}
}

type fieldReader map[string]any

// get returns the field as text, or FieldNotFound for missing and falsy values.
func (f fieldReader) get(name string) string {
	if s, ok := text(f[name]); ok {
		return s
	}
	return domain.FieldNotFound
}

// identity prefers the account name of an identity object, then its display name. A
// "Display Name <email>" string yields the email.
func (f fieldReader) identity(name string) string {
	switch v := f[name].(type) {
	case map[string]any:
		if s, ok := text(v["uniqueName"]); ok {
			return s
		}
		if s, ok := text(v["displayName"]); ok {
			return s
		}
		return domain.FieldNotFound
	case string:
		if v == "" {
			return domain.FieldNotFound
		}
		if m := bracketEmailPattern.FindStringSubmatch(v); m != nil {
			return m[1]
		}
		return v
	}
	return f.get(name)
}

func (f fieldReader) tags(name string) []string {
	raw, ok := text(f[name])
	if !ok {
		return []string{}
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func historyComments(f fieldReader) string {
	if history, ok := text(f["System.History"]); ok {
		return CleanHTML(history)
	}
	return domain.NoCommentsAvailable
}

func relatedIDs(relations []Relation) []string {
	ids := []string{}
	for _, r := range relations {
		if r.Rel != linkRelated && r.Rel != linkHierarchyForward {
			continue
		}
		if m := trailingIDPattern.FindStringSubmatch(r.URL); m != nil {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// text renders a field value, treating nil, "", false and zero as absent.
func text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		return "true", t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), t != 0
	case int:
		return strconv.Itoa(t), t != 0
	case json.Number:
		f, err := t.Float64()
		return t.String(), err != nil || f != 0
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
