package normalize

import (
	"regexp"
	"strings"

	"github.com/uatops/uat-router/internal/domain"
)

var (
	routingTagPattern      = regexp.MustCompile(`(?i)Routing Tag:\s*([^\n]+)`)
	assignedToPattern      = regexp.MustCompile(`(?i)Assigned To:\s*([^\n]+)`)
	servicePattern         = regexp.MustCompile(`(?i)Service:\s*([^\n]+)`)
	solutionAreaPattern    = regexp.MustCompile(`(?i)Solution Area:\s*([^\n]+)`)
	requestorPattern       = regexp.MustCompile(`(?i)Requestor Identity:\s*(\S+)`)
	milestoneStatusPattern = regexp.MustCompile(`(?i)Milestone Status:\s*([^\n]+)`)

	// The header must be followed by a line break; greedy \s* leaves the body
	// starting right after the last newline of the whitespace run.
	reasoningHeaderPattern = regexp.MustCompile(`(?i)Routing Reasoning:\s*\n`)
	bulletPattern          = regexp.MustCompile(`[*-]\s*[^\n]+`)
	bulletPrefixPattern    = regexp.MustCompile(`^[*-]\s*`)
)

// labeled holds what the free-text scan found; nil means the label was absent.
type labeled struct {
	tag             *string
	assignedTo      *string
	serviceName     *string
	solutionArea    *string
	requestorEmail  *string
	milestoneStatus *string
	reasoning       []string
}

func scanLabels(raw string) labeled {
	return labeled{
		tag:             capture(routingTagPattern, raw),
		assignedTo:      capture(assignedToPattern, raw),
		serviceName:     capture(servicePattern, raw),
		solutionArea:    capture(solutionAreaPattern, raw),
		requestorEmail:  capture(requestorPattern, raw),
		milestoneStatus: capture(milestoneStatusPattern, raw),
		reasoning:       reasoningBullets(raw),
	}
}

// fromText assembles the caller-facing result, defaulting absent grouped fields to Unknown.
func fromText(raw string) domain.RoutingResult {
	found := scanLabels(raw)

	service := domain.UnknownService()
	if found.serviceName != nil {
		service.Name = *found.serviceName
	}
	if found.solutionArea != nil {
		service.SolutionArea = *found.solutionArea
	}

	requestor := domain.UnknownRequestor()
	if found.requestorEmail != nil {
		requestor.Email = *found.requestorEmail
	}

	milestone := domain.UnknownMilestone()
	if found.milestoneStatus != nil {
		milestone.Status = *found.milestoneStatus
	}

	return domain.RoutingResult{
		Routing: domain.RoutingDecision{
			Tag:        found.tag,
			AssignedTo: found.assignedTo,
		},
		Service:           service,
		Requestor:         requestor,
		Milestone:         milestone,
		Reasoning:         found.reasoning,
		Ask:               []string{},
		RawCompletionText: raw,
		Tier:              domain.TierText,
	}
}

// capture returns the trimmed first group of the first match. A value that trims to
// empty counts as absent.
func capture(re *regexp.Regexp, raw string) *string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	value := strings.TrimSpace(m[1])
	if value == "" {
		return nil
	}
	return &value
}

// reasoningBullets collects bullet items following the reasoning header, up to the first
// blank line, "###" heading marker or end of text.
func reasoningBullets(raw string) []string {
	out := []string{}
	loc := reasoningHeaderPattern.FindStringIndex(raw)
	if loc == nil {
		return out
	}
	body := raw[loc[1]:]
	if end := sectionEnd(body); end >= 0 {
		body = body[:end]
	}
	for _, bullet := range bulletPattern.FindAllString(body, -1) {
		out = append(out, strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(bullet, "")))
	}
	return out
}

func sectionEnd(body string) int {
	end := -1
	for _, marker := range []string{"\n\n", "###"} {
		if i := strings.Index(body, marker); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	return end
}
