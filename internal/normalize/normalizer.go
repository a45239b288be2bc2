// Package normalize turns free-form completion text into a typed routing result.
//
// Three strategies are tried in order and never mixed within one result:
//
//   - no "{...}" span in the text: labeled free-text scan (TierText)
//   - a span that decodes as JSON: structured extraction (TierJSON)
//   - a span that fails to decode: terminal failure shape (TierFailed)
//
// The span runs from the first '{' to the last '}' in the text. It is greedy, not
// brace-balanced, so prose containing stray braces around a JSON block yields a
// malformed span and lands in TierFailed rather than TierText.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/uatops/uat-router/internal/domain"
)

var errTrailingData = errors.New("unexpected data after top-level JSON object")

// Parse normalizes raw completion text. It is pure and deterministic.
func Parse(raw string) domain.RoutingResult {
	span, ok := jsonSpan(raw)
	if !ok {
		return fromText(raw)
	}
	parsed, err := decodeObject(span)
	if err != nil {
		return failure(raw, err)
	}
	return fromJSON(raw, parsed)
}

func jsonSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return "", false
	}
	return raw[start : end+1], true
}

func decodeObject(span string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(span)))
	dec.UseNumber()

	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return parsed, nil
}

func fromJSON(raw string, parsed map[string]any) domain.RoutingResult {
	routing := object(parsed, "routing")
	service := object(parsed, "service")
	requestor := object(parsed, "requestor")
	milestone := object(parsed, "milestone")

	triageType := optional(routing, "triageType")
	if triageType == nil {
		triageType = optional(routing, "pTriageType")
	}

	return domain.RoutingResult{
		Routing: domain.RoutingDecision{
			Tag:        optional(routing, "tag"),
			AssignedTo: optional(routing, "assignedTo"),
			Priority:   optional(routing, "priority"),
			TriageType: triageType,
			AreaPath:   optional(routing, "areaPath"),
		},
		Service: domain.ServiceAttribution{
			Name:         withDefault(service, "name"),
			SolutionArea: withDefault(service, "solutionArea"),
			DRI:          withDefault(service, "dri"),
		},
		Requestor: domain.RequestorSummary{
			Email: withDefault(requestor, "email"),
			Name:  withDefault(requestor, "name"),
			Title: withDefault(requestor, "title"),
			Team:  withDefault(requestor, "team"),
		},
		Milestone: domain.MilestoneSummary{
			Status:     withDefault(milestone, "status"),
			Reason:     withDefault(milestone, "reason"),
			Commitment: withDefault(milestone, "commitment"),
		},
		Reasoning:         list(parsed, "reasoning"),
		Ask:               list(parsed, "ask"),
		RawCompletionText: raw,
		FullJSON:          parsed,
		Tier:              domain.TierJSON,
	}
}

func failure(raw string, err error) domain.RoutingResult {
	tag := domain.ParseErrorTag
	msg := err.Error()
	return domain.RoutingResult{
		Routing:           domain.RoutingDecision{Tag: &tag},
		Service:           domain.UnknownService(),
		Requestor:         domain.UnknownRequestor(),
		Milestone:         domain.UnknownMilestone(),
		Reasoning:         []string{domain.ParseFailureReason},
		Ask:               []string{},
		RawCompletionText: raw,
		ParseError:        &msg,
		Tier:              domain.TierFailed,
	}
}

// object returns parsed[key] when it is a JSON object; anything else reads as empty.
func object(parsed map[string]any, key string) map[string]any {
	if m, ok := parsed[key].(map[string]any); ok {
		return m
	}
	return nil
}

func optional(group map[string]any, key string) *string {
	s, ok := truthy(group[key])
	if !ok {
		return nil
	}
	return &s
}

func withDefault(group map[string]any, key string) string {
	if s, ok := truthy(group[key]); ok {
		return s
	}
	return domain.Unknown
}

// list accepts an array (elements stringified) or a single truthy scalar.
func list(parsed map[string]any, key string) []string {
	out := []string{}
	switch v := parsed[key].(type) {
	case []any:
		for _, item := range v {
			out = append(out, stringify(item))
		}
	default:
		if s, ok := truthy(v); ok {
			out = append(out, s)
		}
	}
	return out
}

// truthy applies JavaScript-style falsiness: null, false, 0 and "" are absent.
func truthy(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return "", false
		}
		return t.String(), true
	default:
		return stringify(t), true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
