package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uatops/uat-router/internal/domain"
)

// WorkItemID accepts either a JSON string or a JSON number.
type WorkItemID string

// UnmarshalJSON implements json.Unmarshaler.
func (w *WorkItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*w = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = WorkItemID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("work item id must be a string or number: %w", err)
		}
		*w = WorkItemID(n.String())
	}
	return nil
}

// RouteRequest payload. WorkItemID is the legacy name for ID.
type RouteRequest struct {
	ID         WorkItemID `json:"id"`
	WorkItemID WorkItemID `json:"workItemId"`
	Project    string     `json:"project"`
}

// Identifier returns the id under either accepted name.
func (r RouteRequest) Identifier() string {
	if r.ID != "" {
		return string(r.ID)
	}
	return string(r.WorkItemID)
}

// BatchRequest payload. WorkItemIDs is the legacy name for IDs.
type BatchRequest struct {
	IDs         []WorkItemID `json:"ids"`
	WorkItemIDs []WorkItemID `json:"workItemIds"`
	Project     string       `json:"project"`
}

// Identifiers returns the ids under either accepted name, in request order.
func (r BatchRequest) Identifiers() []string {
	src := r.IDs
	if len(src) == 0 {
		src = r.WorkItemIDs
	}
	out := make([]string, len(src))
	for i, id := range src {
		out[i] = string(id)
	}
	return out
}

// RoutingResponse is a routed work item: the routing result plus echoed id, usage and time.
type RoutingResponse struct {
	Success bool `json:"success" yaml:"success"`
	ID      int  `json:"id" yaml:"id"`

	domain.RoutingResult `yaml:",inline"`

	Usage     domain.Usage `json:"usage" yaml:"usage"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
}

// BatchFailure is a batch entry that could not be routed.
type BatchFailure struct {
	ID      string `json:"id" yaml:"id"`
	Success bool   `json:"success" yaml:"success"`
	Code    string `json:"code" yaml:"code"`
	Error   string `json:"error" yaml:"error"`
}

// BatchResponse lists per-item results in request order. Each result is either a
// RoutingResponse or a BatchFailure.
type BatchResponse struct {
	Success   bool  `json:"success" yaml:"success"`
	Total     int   `json:"total" yaml:"total"`
	Succeeded int   `json:"succeeded" yaml:"succeeded"`
	Failed    int   `json:"failed" yaml:"failed"`
	Results   []any `json:"results" yaml:"results"`
}

// IdentitySearchResponse wraps user search results.
type IdentitySearchResponse struct {
	Data []domain.ResolvedIdentity `json:"data" yaml:"data"`
}

// HealthResponse is the lightweight status probe.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
