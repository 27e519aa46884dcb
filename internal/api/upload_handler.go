package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
)

// maxUploadBytes caps a single upload at 4 GiB.
const maxUploadBytes = 4 << 30

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		filename := catalog.SanitizeFilename(header.Filename, 160)
		if !catalog.IsVideoFile(filename) {
			WriteError(w, http.StatusBadRequest, "unsupported video format", "BAD_REQUEST")
			return
		}

		taskID := catalog.NewID()
		destPath := filepath.Join(cfg.VideosDir, fmt.Sprintf("%s_%s", taskID, filename))

		size, err := saveUpload(file, cfg.VideosDir, destPath)
		if err != nil {
			cfg.Logger.Error("cannot store upload", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}

		video := &catalog.Video{
			ID:        catalog.NewID(),
			TaskID:    taskID,
			Path:      destPath,
			Filename:  filename,
			Size:      size,
			CreatedAt: time.Now(),
		}
		// Probe now so listings have duration and fps without touching
		// the file again. The ingest pipeline re-probes for itself.
		if probe, err := cfg.FFmpeg.Probe(r.Context(), destPath); err == nil {
			video.Duration = probe.Duration
			video.FPS = probe.FrameRate
			video.FrameCount = probe.FrameCount
		}

		if err := cfg.Repository.CreateVideo(r.Context(), video); err != nil {
			os.Remove(destPath)
			cfg.Logger.Error("cannot register video", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to register video", "INTERNAL_ERROR")
			return
		}

		task := &catalog.Task{
			ID:        taskID,
			Type:      catalog.TaskTypeIngest,
			Status:    catalog.TaskStatusCreated,
			VideoPath: destPath,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := cfg.Repository.CreateTask(r.Context(), task); err != nil {
			cfg.Logger.Error("cannot create ingest task", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to create task", "INTERNAL_ERROR")
			return
		}

		// Ingestion outlives the request.
		go cfg.Ingestor.Run(context.Background(), taskID, destPath, cfg.FramesDir)

		WriteJSON(w, http.StatusAccepted, UploadResponse{
			TaskID:   taskID,
			VideoID:  video.ID,
			Filename: filename,
		})
	}
}

func saveUpload(src io.Reader, dir, destPath string) (int64, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create videos dir: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create video file: %w", err)
	}

	size, err := io.Copy(dest, src)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return 0, fmt.Errorf("write video file: %w", err)
	}
	return size, nil
}
