package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frangin2003/groq-video-analyzer/internal/config"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Post("/upload", uploadHandler(cfg))
	r.Get("/videos", listVideosHandler(cfg))
	r.Get("/playback", playbackHandler(cfg))

	r.Get("/tasks", listTasksHandler(cfg))
	r.Get("/tasks/{id}", getTaskHandler(cfg))
	r.Get("/tasks/{id}/events", taskEventsHandler(cfg))

	r.Post("/search", searchHandler(cfg))
	r.Get("/extract", extractHandler(cfg))
	r.Post("/export/edl", exportEDLHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Backend: cfg.Backend,
		})
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.Repository.ListVideos(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Videos: make([]VideoResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listTasksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := cfg.Repository.ListTasks(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list tasks", "INTERNAL_ERROR")
			return
		}

		resp := TasksResponse{Tasks: make([]TaskResponse, len(tasks))}
		for i, t := range tasks {
			resp.Tasks[i] = TaskToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getTaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "task id required", "BAD_REQUEST")
			return
		}

		task, err := cfg.Repository.GetTask(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if task == nil {
			WriteError(w, http.StatusNotFound, "task not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, TaskToResponse(task))
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoPath := r.URL.Query().Get("video_path")
		if videoPath == "" {
			WriteError(w, http.StatusBadRequest, "video_path is required", "BAD_REQUEST")
			return
		}

		// Only registered library videos are playable; arbitrary paths
		// are not.
		video, err := cfg.Repository.GetVideoByPath(r.Context(), videoPath)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		if err := cfg.Streamer.ServeVideo(w, r, video.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "video_id", video.ID)
		}
	}
}
