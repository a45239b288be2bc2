package domain

import "time"

// Sentinels used in place of absent tracker values.
const (
	FieldNotFound       = "Not found"
	NoCommentsAvailable = "No comments available"
	NoCommentsProvided  = "No comments were provided for this action."
)

// TicketRecord is an immutable snapshot of a work item. Every string field holds either the
// tracker value or FieldNotFound.
type TicketRecord struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	AssignedTo   string `json:"assignedTo"`
	State        string `json:"state"`
	SubState     string `json:"subState"`
	AreaPath     string `json:"areaPath"`
	Iteration    string `json:"iteration"`
	WorkItemType string `json:"workItemType"`

	Description string `json:"description"`

	ConversationID string `json:"conversationId"`
	RefID          string `json:"refId"`
	ActionCategory string `json:"actionCategory"`
	Requestors     string `json:"requestors"`
	MeetingType    string `json:"meetingType"`

	Account    string `json:"account"`
	AccountID  string `json:"accountId"`
	TPID       string `json:"tpid"`
	Area       string `json:"area"`
	Country    string `json:"country"`
	EOU        string `json:"eou"`
	Industry   string `json:"industry"`
	Segment    string `json:"segment"`
	Subsegment string `json:"subsegment"`

	OpportunityID          string `json:"opportunityId"`
	OpportunityName        string `json:"opportunityName"`
	OpportunityStage       string `json:"opportunityStage"`
	OpportunitySize        string `json:"opportunitySize"`
	OpportunityOutcome     string `json:"opportunityOutcome"`
	ProductOpportunitySize string `json:"productOpportunitySize"`
	SolutionArea           string `json:"solutionArea"`
	SalesPlay              string `json:"salesPlay"`
	PartnerOneID           string `json:"partnerOneId"`

	MilestoneID          string `json:"milestoneId"`
	MilestoneStatus      string `json:"milestoneStatus"`
	MilestoneReason      string `json:"milestoneReason"`
	MilestoneActivations string `json:"milestoneActivations"`
	MilestoneWorkload    string `json:"milestoneWorkload"`

	HelpNeeded                string `json:"helpNeeded"`
	EstimatedBilledRevenue    string `json:"estimatedBilledRevenue"`
	EstimatedBilledRevenueUSD string `json:"estimatedBilledRevenueUSD"`
	EstimatedMonthlyUsage     string `json:"estimatedMonthlyUsage"`
	BACV                      string `json:"bacv"`
	AzurePreferredRegion      string `json:"azurePreferredRegion"`
	CustomerCommitment        string `json:"customerCommitment"`
	MicrosoftServiceRegions   string `json:"microsoftServiceRegions"`

	CustomerImpact   string `json:"customerImpact"`
	CustomerScenario string `json:"customerScenario"`
	DesiredOutcome   string `json:"desiredOutcome"`

	CreatedDate string `json:"createdDate"`
	ChangedDate string `json:"changedDate"`
	CreatedBy   string `json:"createdBy"`
	ChangedBy   string `json:"changedBy"`

	RelatedWorkItems []string `json:"relatedWorkItems"`
	Comments         string   `json:"comments"`
	Tags             []string `json:"tags"`
	Project          string   `json:"project"`

	ExtractedAt time.Time `json:"timestamp"`
}

// KeyFields is the short summary used for quick triage.
type KeyFields struct {
	ID                 int    `json:"id" yaml:"id"`
	Title              string `json:"title" yaml:"title"`
	Requestors         string `json:"requestors" yaml:"requestors"`
	MilestoneStatus    string `json:"milestoneStatus" yaml:"milestoneStatus"`
	MilestoneReason    string `json:"milestoneReason" yaml:"milestoneReason"`
	CustomerCommitment string `json:"customerCommitment" yaml:"customerCommitment"`
	HelpNeeded         string `json:"helpNeeded" yaml:"helpNeeded"`
	SolutionArea       string `json:"solutionArea" yaml:"solutionArea"`
	Segment            string `json:"segment" yaml:"segment"`
}

// KeyFields extracts the triage summary.
func (t *TicketRecord) KeyFields() KeyFields {
	return KeyFields{
		ID:                 t.ID,
		Title:              t.Title,
		Requestors:         t.Requestors,
		MilestoneStatus:    t.MilestoneStatus,
		MilestoneReason:    t.MilestoneReason,
		CustomerCommitment: t.CustomerCommitment,
		HelpNeeded:         t.HelpNeeded,
		SolutionArea:       t.SolutionArea,
		Segment:            t.Segment,
	}
}

// Present reports whether a field carries a real value.
func Present(value string) bool {
	return value != "" && value != FieldNotFound
}
