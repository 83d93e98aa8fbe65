package api

import (
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/journal"
	"github.com/starford/ansuz/internal/publish"
)

// PublishRequest is the request body for triggering a publish run.
type PublishRequest struct {
	Force bool `json:"force" example:"false"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// RunResponse is the outcome of a publish or plan run.
type RunResponse struct {
	DryRun  bool                   `json:"dry_run" example:"false"`
	Summary publish.Summary        `json:"summary" validate:"required"`
	Actions []publish.ActionRecord `json:"actions" validate:"required"`
}

// RunListResponse wraps the publish history.
type RunListResponse struct {
	Runs []journal.Run `json:"runs" validate:"required"`
}

// RunActionsResponse wraps the per-document actions of one recorded run.
type RunActionsResponse struct {
	Actions []journal.Action `json:"actions" validate:"required"`
}
