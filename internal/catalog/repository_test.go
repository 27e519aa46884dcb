package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func TestRepository_TaskLifecycle(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	now := time.Now()

	task := &Task{
		ID:        NewID(),
		Type:      TaskTypeIngest,
		Status:    TaskStatusCreated,
		VideoPath: "/videos/abc_test.mp4",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	got, err := repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetTask() = nil, want task")
	}
	if got.Status != TaskStatusCreated {
		t.Errorf("task.Status = %s, want %s", got.Status, TaskStatusCreated)
	}
	if got.VideoPath != task.VideoPath {
		t.Errorf("task.VideoPath = %s, want %s", got.VideoPath, task.VideoPath)
	}

	if err := repo.UpdateTaskStatus(ctx, task.ID, TaskStatusRunning, ""); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	if err := repo.UpdateTaskProgress(ctx, task.ID, 40, 8); err != nil {
		t.Fatalf("UpdateTaskProgress() error = %v", err)
	}

	got, err = repo.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Status != TaskStatusRunning {
		t.Errorf("task.Status = %s, want %s", got.Status, TaskStatusRunning)
	}
	if got.Progress != 40 {
		t.Errorf("task.Progress = %d, want 40", got.Progress)
	}
	if got.IndexedFrames != 8 {
		t.Errorf("task.IndexedFrames = %d, want 8", got.IndexedFrames)
	}
}

func TestRepository_GetTask_Missing(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	got, err := repo.GetTask(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetTask() = %v, want nil", got)
	}
}

func TestRepository_Videos(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()
	video := &Video{
		ID:         NewID(),
		TaskID:     "task-1",
		Path:       "/videos/task-1_clip.mp4",
		Filename:   "clip.mp4",
		Size:       1024,
		Duration:   12.5,
		FPS:        30,
		FrameCount: 375,
		CreatedAt:  time.Now(),
	}

	if err := repo.CreateVideo(ctx, video); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}

	got, err := repo.GetVideoByPath(ctx, video.Path)
	if err != nil {
		t.Fatalf("GetVideoByPath() error = %v", err)
	}
	if got == nil || got.Filename != "clip.mp4" {
		t.Errorf("GetVideoByPath() = %+v, want filename clip.mp4", got)
	}

	byTask, err := repo.GetVideoByTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetVideoByTask() error = %v", err)
	}
	if byTask == nil || byTask.ID != video.ID {
		t.Errorf("GetVideoByTask() = %+v, want id %s", byTask, video.ID)
	}

	count, err := repo.CountVideos(ctx)
	if err != nil {
		t.Fatalf("CountVideos() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountVideos() = %d, want 1", count)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ctx := context.Background()

	if err := repo.SetConfig(ctx, "device_id", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "device_id", "def"); err != nil {
		t.Fatalf("SetConfig() overwrite error = %v", err)
	}

	v, err := repo.GetConfig(ctx, "device_id")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if v != "def" {
		t.Errorf("GetConfig() = %s, want def", v)
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"movie.mp4", true},
		{"MOVIE.MP4", true},
		{"clip.mov", true},
		{"clip.webm", true},
		{"notes.txt", false},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := IsVideoFile(tt.filename); got != tt.want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"clean name", "holiday.mp4", 0, "holiday.mp4"},
		{"path stripped", "../../etc/passwd", 0, "passwd"},
		{"specials replaced", "my:video?.mp4", 0, "my_video_.mp4"},
		{"truncated", "abcdefghij.mp4", 6, "abcdef"},
		{"empty becomes default", "", 0, "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("SanitizeFilename(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
