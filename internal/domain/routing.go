package domain

// Unknown is the default for every service, requestor and milestone field.
const Unknown = "UNKNOWN"

// ParseErrorTag marks a completion whose JSON block could not be decoded.
const ParseErrorTag = "PARSE_ERROR"

// ParseFailureReason is the single reasoning entry of a failed parse.
const ParseFailureReason = "Failed to parse AI response"

// ParseTier identifies which normalizer strategy produced a result.
type ParseTier string

const (
	TierJSON   ParseTier = "json"
	TierText   ParseTier = "text"
	TierFailed ParseTier = "failed"
)

// RoutingDecision fields are nil when the completion carried no information for them.
type RoutingDecision struct {
	Tag        *string `json:"tag" yaml:"tag"`
	AssignedTo *string `json:"assignedTo" yaml:"assignedTo"`
	Priority   *string `json:"priority" yaml:"priority"`
	TriageType *string `json:"triageType" yaml:"triageType"`
	AreaPath   *string `json:"areaPath" yaml:"areaPath"`
}

// ServiceAttribution fields are never empty; missing values are Unknown.
type ServiceAttribution struct {
	Name         string `json:"name" yaml:"name"`
	SolutionArea string `json:"solutionArea" yaml:"solutionArea"`
	DRI          string `json:"dri" yaml:"dri"`
}

// RequestorSummary fields are never empty; missing values are Unknown.
type RequestorSummary struct {
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`
	Team  string `json:"team" yaml:"team"`
}

// MilestoneSummary fields are never empty; missing values are Unknown.
type MilestoneSummary struct {
	Status     string `json:"status" yaml:"status"`
	Reason     string `json:"reason" yaml:"reason"`
	Commitment string `json:"commitment" yaml:"commitment"`
}

// RoutingResult is the typed outcome of normalizing a completion.
type RoutingResult struct {
	Routing           RoutingDecision    `json:"routing" yaml:"routing"`
	Service           ServiceAttribution `json:"service" yaml:"service"`
	Requestor         RequestorSummary   `json:"requestor" yaml:"requestor"`
	Milestone         MilestoneSummary   `json:"milestone" yaml:"milestone"`
	Reasoning         []string           `json:"reasoning" yaml:"reasoning"`
	Ask               []string           `json:"ask" yaml:"ask"`
	RawCompletionText string             `json:"rawCompletionText" yaml:"rawCompletionText"`
	ParseError        *string            `json:"parseError,omitempty" yaml:"parseError,omitempty"`
	FullJSON          map[string]any     `json:"fullJson,omitempty" yaml:"fullJson,omitempty"`
	Tier              ParseTier          `json:"-" yaml:"-"`
}

// UnknownService is the all-default service block.
func UnknownService() ServiceAttribution {
	return ServiceAttribution{Name: Unknown, SolutionArea: Unknown, DRI: Unknown}
}

// UnknownRequestor is the all-default requestor block.
func UnknownRequestor() RequestorSummary {
	return RequestorSummary{Email: Unknown, Name: Unknown, Title: Unknown, Team: Unknown}
}

// UnknownMilestone is the all-default milestone block.
func UnknownMilestone() MilestoneSummary {
	return MilestoneSummary{Status: Unknown, Reason: Unknown, Commitment: Unknown}
}

// Usage is the token accounting reported by the completion endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

func orUnknown(value string) string {
	if value == "" {
		return Unknown
	}
	return value
}
