package models

import (
	"time"
)

// Run statuses
const (
	RunPending     = "pending"
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunFailed      = "failed"
	RunInterrupted = "interrupted"
)

// Run represents one invocation of the efficiency sweep (for internal use)
type Run struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	Config      SweepConfig `json:"config"`
	OutputPath  string      `json:"output_path"`
	ObjectKey   *string     `json:"object_key,omitempty"`
	PointCount  int         `json:"point_count"`
	ErrorMsg    *string     `json:"error_message,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// RunSummary is the public view of a run
type RunSummary struct {
	ID          string      `json:"id" doc:"Run unique identifier"`
	Status      string      `json:"status" enum:"pending,running,completed,failed,interrupted" doc:"Run status"`
	Config      SweepConfig `json:"config" doc:"Sweep parameters"`
	PointCount  int         `json:"point_count" minimum:"0" doc:"Number of recorded sweep points"`
	Message     string      `json:"message,omitempty" doc:"Human-readable status message"`
	Error       *string     `json:"error,omitempty" doc:"Failure reason"`
	CreatedAt   time.Time   `json:"created_at" doc:"Run start timestamp"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" doc:"Run completion timestamp"`
}

// ListRunsRequest represents a request to list recent runs
type ListRunsRequest struct {
	Limit int `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Maximum number of runs"`
}

// ListRunsResponse represents a page of runs, newest first
type ListRunsResponse struct {
	Body struct {
		Runs []RunSummary `json:"runs" doc:"Runs ordered by creation time, newest first"`
	}
}

// GetRunRequest represents a request to get one run
type GetRunRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunResponse represents one run
type GetRunResponse struct {
	Body RunSummary
}

// GetRunPointsRequest represents a request to get the points of a run
type GetRunPointsRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunPointsResponseBody is the body of the points response
type GetRunPointsResponseBody struct {
	ID     string       `json:"id" doc:"Run ID"`
	Points []SweepPoint `json:"points" doc:"Sweep points in acquisition order"`
}

// GetRunPointsResponse represents the recorded points of a run
type GetRunPointsResponse struct {
	Body GetRunPointsResponseBody
}

// GetRunDownloadRequest represents a request for a workbook download link
type GetRunDownloadRequest struct {
	ID string `path:"id" doc:"Run ID"`
}

// GetRunDownloadResponse carries a pre-signed workbook URL
type GetRunDownloadResponse struct {
	Body struct {
		URL       string `json:"url" doc:"Pre-signed workbook download URL"`
		ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
	}
}
