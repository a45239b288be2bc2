// Package prompt assembles completion prompts from a work item.
package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/uatops/uat-router/internal/domain"
)

//go:embed templates/routing_prompt.txt
var defaultTemplate string

// Builder renders prompts from a fixed template.
type Builder struct {
	template string
}

// NewBuilder loads the template at path, or the embedded template when path is empty.
func NewBuilder(path string) (*Builder, error) {
	if path == "" {
		return &Builder{template: defaultTemplate}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load prompt template: %w", err)
	}
	return &Builder{template: string(b)}, nil
}

// NewBuilderFromString uses tmpl verbatim.
func NewBuilderFromString(tmpl string) *Builder {
	return &Builder{template: tmpl}
}

// Render appends a labeled line for each present field, in a fixed order. Absent fields
// are omitted rather than rendered with a placeholder.
func (b *Builder) Render(ticket *domain.TicketRecord, requestor *domain.ResolvedIdentity) string {
	var data strings.Builder
	field := func(label, value string) {
		if domain.Present(value) {
			fmt.Fprintf(&data, "**%s:** %s\n\n", label, value)
		}
	}

	if ticket.ID != 0 {
		field("Work Item ID", strconv.Itoa(ticket.ID))
	}
	field("Title", ticket.Title)
	field("Description", ticket.Description)
	field("Requestors", ticket.Requestors)

	if requestor != nil {
		data.WriteString("**Requestor Identity:**\n")
		fmt.Fprintf(&data, "- Email: %s\n", requestor.Email)
		fmt.Fprintf(&data, "- Name: %s\n", requestor.Name)
		fmt.Fprintf(&data, "- Title: %s\n", requestor.Title)
		fmt.Fprintf(&data, "- Team: %s\n\n", requestor.Team)
	}

	field("Customer Impact", ticket.CustomerImpact)
	field("Customer Scenario & Desired Outcome", ticket.CustomerScenario)
	field("Desired Outcome", ticket.DesiredOutcome)
	field("Segment", ticket.Segment)
	field("Milestone Status", ticket.MilestoneStatus)
	field("Milestone Reason", ticket.MilestoneReason)
	field("Workload", ticket.MilestoneWorkload)
	field("Help Needed", ticket.HelpNeeded)
	field("Customer Commitment", ticket.CustomerCommitment)
	field("Azure Preferred Region", ticket.AzurePreferredRegion)
	field("Estimated Monthly Usage", ticket.EstimatedMonthlyUsage)
	field("Solution Area", ticket.SolutionArea)

	if domain.Present(ticket.Comments) && ticket.Comments != domain.NoCommentsAvailable {
		fmt.Fprintf(&data, "**Comments:**\n%s\n\n", ticket.Comments)
	}
	if len(ticket.RelatedWorkItems) > 0 {
		field("Related Work Items", strings.Join(ticket.RelatedWorkItems, ", "))
	}
	field("URL", ticket.URL)

	return b.template + "\n" + data.String()
}

// RenderSimplified always emits the same six lines, using UNKNOWN for absent values.
func (b *Builder) RenderSimplified(ticket *domain.TicketRecord) string {
	id := domain.Unknown
	if ticket.ID != 0 {
		id = strconv.Itoa(ticket.ID)
	}

	var data strings.Builder
	data.WriteString("\n")
	fmt.Fprintf(&data, "**Work Item ID:** %s\n", id)
	fmt.Fprintf(&data, "**Title:** %s\n", orUnknown(ticket.Title))
	fmt.Fprintf(&data, "**Requestors:** %s\n", orUnknown(ticket.Requestors))
	fmt.Fprintf(&data, "**Milestone Status:** %s\n", orUnknown(ticket.MilestoneStatus))
	fmt.Fprintf(&data, "**Customer Commitment:** %s\n", orUnknown(ticket.CustomerCommitment))
	fmt.Fprintf(&data, "**Help Needed:** %s\n", orUnknown(ticket.HelpNeeded))

	return b.template + "\n" + data.String()
}

func orUnknown(value string) string {
	if !domain.Present(value) {
		return domain.Unknown
	}
	return value
}
