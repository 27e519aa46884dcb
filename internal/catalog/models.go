package catalog

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Video is an uploaded source video registered in the catalog.
type Video struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Duration   float64   `json:"duration"`
	FPS        float64   `json:"fps"`
	FrameCount int       `json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	TaskTypeIngest = "ingest"
	TaskTypeSearch = "search"

	TaskStatusCreated   = "created"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task tracks one background operation: ingesting an uploaded video or
// answering a search. Progress is [-1,100]; -1 means fatal failure.
type Task struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	VideoPath     string    `json:"video_path,omitempty"`
	Progress      int       `json:"progress"`
	IndexedFrames int       `json:"indexed_frames"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	return VideoExtensions[ext]
}

// SanitizeFilename strips control characters and anything outside a small
// allowed set so uploaded filenames are safe to join into storage paths.
func SanitizeFilename(s string, maxLen int) string {
	s = filepath.Base(s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		cleaned = "upload"
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}
