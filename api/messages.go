package api

import (
	"encoding/json"
	"time"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type UploadResponse struct {
	ID        uint   `json:"id"`
	ProjectID uint   `json:"project_id"`
	ZipKey    string `json:"zip_key"`
	GpsCsvKey string `json:"gps_csv_key,omitempty"`
	Size      uint64 `json:"size"`
}

type StartJobRequest struct {
	ProjectID uint           `json:"project_id"`
	UploadID  uint           `json:"upload_id,omitempty"`
	ZipURL    string         `json:"zip_url,omitempty"`
	GpsCsvURL string         `json:"gps_csv_url,omitempty"`
	Email     string         `json:"email"`
	Params    map[string]any `json:"params,omitempty"`
}

type StartJobResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

type StageRunResponse struct {
	Stage      string          `json:"stage"`
	Attempt    int             `json:"attempt"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Metrics    json.RawMessage `json:"metrics,omitempty"`
}

type JobStatusResponse struct {
	UUID       string             `json:"uuid"`
	ProjectID  uint               `json:"project_id"`
	Status     string             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Params     json.RawMessage    `json:"params"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	StageRuns  []StageRunResponse `json:"stage_runs"`
	Artifacts  map[string]string  `json:"artifacts,omitempty"`
}
