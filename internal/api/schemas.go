package api

import (
	"time"

	"github.com/kikiluvv/trimlay/internal/editor"
	"github.com/kikiluvv/trimlay/internal/history"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Busy    bool   `json:"busy"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type MetadataRequest struct {
	Duration float64 `json:"duration"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type TickRequest struct {
	Time float64 `json:"time"`
}

type TickResponse struct {
	Seek *float64 `json:"seek,omitempty"`
}

type DragRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ResizeRequest struct {
	Delta  float64 `json:"delta"`
	Handle string  `json:"handle"`
}

type StateResponse struct {
	editor.State
	Display editor.Extent `json:"display"`
	// VideoArea is the letterboxed part of the display the video fills; the
	// overlay widget is bounded by it
	VideoArea *editor.Extent `json:"video_area,omitempty"`
	LastJob   *JobResponse   `json:"last_job,omitempty"`
}

// JobResponse is a finished job as the session saw it
type JobResponse struct {
	editor.JobDescription
	TrimEnd   float64 `json:"trim_end"`
	Status    string  `json:"status"`
	Bytes     int     `json:"bytes,omitempty"`
	ElapsedMS int64   `json:"elapsed_ms"`
	Error     string  `json:"error,omitempty"`
}

func resultToResponse(res editor.Result) JobResponse {
	resp := JobResponse{
		JobDescription: res.Job,
		TrimEnd:        res.Job.TrimEnd(),
		Status:         string(history.StatusSucceeded),
		Bytes:          res.Size,
		ElapsedMS:      res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		resp.Status = string(history.StatusFailed)
		resp.Error = res.Err.Error()
	}
	return resp
}

type SubmitResponse struct {
	Status string       `json:"status"`
	Job    *JobResponse `json:"job,omitempty"`
}

type HistoryEntryResponse struct {
	editor.JobDescription
	Status      string `json:"status"`
	OutputBytes int64  `json:"output_bytes"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

type JobsResponse struct {
	Jobs []HistoryEntryResponse `json:"jobs"`
}

func entryToResponse(e *history.Entry) HistoryEntryResponse {
	resp := HistoryEntryResponse{
		JobDescription: e.Job,
		Status:         string(e.Status),
		OutputBytes:    e.OutputBytes,
		Error:          e.Error,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.FinishedAt != nil {
		resp.FinishedAt = e.FinishedAt.Format(time.RFC3339)
	}
	return resp
}
