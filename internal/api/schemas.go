package api

import (
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/sequence"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	Backend string `json:"backend"`
}

type UploadResponse struct {
	TaskID   string `json:"task_id"`
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
}

type TaskResponse struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	VideoPath     string `json:"video_path,omitempty"`
	Progress      int    `json:"progress"`
	IndexedFrames int    `json:"indexed_frames"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type TasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

type VideoResponse struct {
	ID         string  `json:"id"`
	TaskID     string  `json:"task_id"`
	Path       string  `json:"path"`
	Filename   string  `json:"filename"`
	Size       int64   `json:"size"`
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	CreatedAt  string  `json:"created_at"`
}

type VideosResponse struct {
	Videos []VideoResponse `json:"videos"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SearchResponse struct {
	TaskID    string             `json:"task_id"`
	Sequences []SequenceResponse `json:"sequences"`
}

type SequenceResponse struct {
	VideoPath    string          `json:"video_path"`
	Description  string          `json:"description"`
	Score        float64         `json:"score"`
	TimeStart    float64         `json:"time_start"`
	TimeEnd      float64         `json:"time_end"`
	TimeStartHMS string          `json:"time_start_hms"`
	TimeEndHMS   string          `json:"time_end_hms"`
	Duration     float64         `json:"duration"`
	Frames       []FrameResponse `json:"frames"`
}

type FrameResponse struct {
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	FramePath   string  `json:"frame_path,omitempty"`
}

type ExportRequest struct {
	Title     string          `json:"title"`
	FrameRate float64         `json:"frame_rate,omitempty"`
	OutputDir string          `json:"output_dir"`
	Sequences []ExportCutSpec `json:"sequences"`
}

type ExportCutSpec struct {
	VideoPath   string  `json:"video_path"`
	TimeStart   float64 `json:"time_start"`
	TimeEnd     float64 `json:"time_end"`
	Description string  `json:"description,omitempty"`
}

type ExportResponse struct {
	Status     string   `json:"status"`
	OutputPath string   `json:"output_path"`
	CutCount   int      `json:"cut_count"`
	Unresolved []string `json:"unresolved,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func TaskToResponse(t *catalog.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		Type:          t.Type,
		Status:        t.Status,
		VideoPath:     t.VideoPath,
		Progress:      t.Progress,
		IndexedFrames: t.IndexedFrames,
		Error:         t.Error,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
}

func VideoToResponse(v *catalog.Video) VideoResponse {
	return VideoResponse{
		ID:         v.ID,
		TaskID:     v.TaskID,
		Path:       v.Path,
		Filename:   v.Filename,
		Size:       v.Size,
		Duration:   v.Duration,
		FPS:        v.FPS,
		FrameCount: v.FrameCount,
		CreatedAt:  v.CreatedAt.Format(time.RFC3339),
	}
}

func SequenceToResponse(s sequence.Sequence) SequenceResponse {
	frames := make([]FrameResponse, len(s.Frames))
	for i, f := range s.Frames {
		frames[i] = FrameResponse{
			FrameNumber: f.FrameNumber,
			Timestamp:   f.Timestamp,
			Description: f.Description,
			Score:       f.Score,
			FramePath:   f.FramePath,
		}
	}
	return SequenceResponse{
		VideoPath:    s.VideoPath,
		Description:  s.Description,
		Score:        s.Score,
		TimeStart:    s.TimeStart,
		TimeEnd:      s.TimeEnd,
		TimeStartHMS: s.FormattedStart(),
		TimeEndHMS:   s.FormattedEnd(),
		Duration:     s.Duration,
		Frames:       frames,
	}
}
