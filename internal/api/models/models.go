package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"supervisor is running" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Process models
type ProcessStatus struct {
	Name      string     `json:"name" example:"Backend Server" doc:"Process name"`
	Phase     string     `json:"phase" example:"ready" enum:"starting,ready,stopping,stopped,failed" doc:"Lifecycle phase"`
	PID       int        `json:"pid,omitempty" example:"12345" doc:"Process ID once launched"`
	Address   string     `json:"address,omitempty" example:"http://localhost:3000" doc:"Address reported by the process"`
	StartedAt *time.Time `json:"started_at,omitempty" doc:"Launch time"`
	ReadyAt   *time.Time `json:"ready_at,omitempty" doc:"Time readiness was detected"`
	ExitCode  *int       `json:"exit_code,omitempty" example:"0" doc:"Exit code once the process has exited"`
	LastError string     `json:"last_error,omitempty" doc:"Most recent launch or watch error"`
}

type ProcessListData struct {
	Processes []ProcessStatus `json:"processes" doc:"Managed processes in configuration order"`
	Count     int             `json:"count" example:"2" doc:"Number of managed processes"`
	AllReady  bool            `json:"all_ready" example:"true" doc:"Whether every process is ready"`
}

type ProcessListResponse struct {
	Body ProcessListData
}

type ProcessRequest struct {
	Name string `path:"name" example:"Backend Server" doc:"Process name"`
}

type ProcessResponse struct {
	Body ProcessStatus
}

// Log models
type LogsRequest struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Number of newest entries to return"`
}

type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Record time"`
	Level      string         `json:"level" example:"INFO" doc:"Log level"`
	Module     string         `json:"module,omitempty" example:"supervisor" doc:"Logger module"`
	Message    string         `json:"message" example:"Process started" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Log entries, oldest first"`
	Count   int        `json:"count" example:"100" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
