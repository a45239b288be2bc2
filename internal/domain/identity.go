package domain

// Team is the organizational classification derived from a job title.
type Team string

const (
	TeamCSU     Team = "CSU"
	TeamSTU     Team = "STU"
	TeamUnknown Team = "UNKNOWN"
)

// ResolvedIdentity enriches a requestor's raw text with directory data.
type ResolvedIdentity struct {
	Email      string `json:"email" yaml:"email"`
	Name       string `json:"name" yaml:"name"`
	Title      string `json:"title" yaml:"title"`
	Department string `json:"department,omitempty" yaml:"department,omitempty"`
	Team       Team   `json:"team" yaml:"team"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// UnresolvedIdentity is the partial result returned when a lookup is skipped or fails.
func UnresolvedIdentity(email string) ResolvedIdentity {
	return ResolvedIdentity{
		Email: email,
		Name:  Unknown,
		Title: Unknown,
		Team:  TeamUnknown,
	}
}

// Summary converts the identity into the caller-facing requestor block.
func (r ResolvedIdentity) Summary() RequestorSummary {
	return RequestorSummary{
		Email: orUnknown(r.Email),
		Name:  orUnknown(r.Name),
		Title: orUnknown(r.Title),
		Team:  orUnknown(string(r.Team)),
	}
}
