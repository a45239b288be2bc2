package dto

import (
	"github.com/uatops/uat-router/internal/service"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

// NewRoutingResponse maps a service outcome.
func NewRoutingResponse(o *service.RoutingOutcome) RoutingResponse {
	return RoutingResponse{
		Success:       true,
		ID:            o.ID,
		RoutingResult: o.Result,
		Usage:         o.Usage,
		Timestamp:     o.Timestamp,
	}
}

// NewBatchResponse maps batch items, preserving order.
func NewBatchResponse(items []service.BatchItem) BatchResponse {
	resp := BatchResponse{Success: true, Total: len(items), Results: make([]any, 0, len(items))}
	for _, item := range items {
		if item.Err != nil {
			domainErr := apperrors.ToDomainError(item.Err)
			resp.Failed++
			resp.Results = append(resp.Results, BatchFailure{
				ID:    item.ID,
				Code:  domainErr.Code,
				Error: domainErr.Error(),
			})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, NewRoutingResponse(item.Outcome))
	}
	return resp
}
