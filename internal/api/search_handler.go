package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/clip"
	"github.com/frangin2003/groq-video-analyzer/internal/index"
	"github.com/frangin2003/groq-video-analyzer/internal/media"
)

func searchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			WriteError(w, http.StatusBadRequest, "query is required", "BAD_REQUEST")
			return
		}

		task := &catalog.Task{
			ID:        catalog.NewID(),
			Type:      catalog.TaskTypeSearch,
			Status:    catalog.TaskStatusCreated,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := cfg.Repository.CreateTask(r.Context(), task); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to create task", "INTERNAL_ERROR")
			return
		}

		seqs, err := cfg.Searcher.Search(r.Context(), task.ID, req.Query, req.TopK)
		if err != nil {
			if errors.Is(err, index.ErrDimensionMismatch) {
				WriteError(w, http.StatusConflict,
					"index was built with a different embedding model", "DIMENSION_MISMATCH")
				return
			}
			WriteError(w, http.StatusBadGateway, err.Error(), "SEARCH_FAILED")
			return
		}

		resp := SearchResponse{TaskID: task.ID, Sequences: make([]SequenceResponse, len(seqs))}
		for i, s := range seqs {
			resp.Sequences[i] = SequenceToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func extractHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		videoPath := q.Get("video_path")
		if videoPath == "" {
			WriteError(w, http.StatusBadRequest, "video_path is required", "BAD_REQUEST")
			return
		}
		start, err := strconv.ParseFloat(q.Get("start"), 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "start must be a number", "BAD_REQUEST")
			return
		}
		end, err := strconv.ParseFloat(q.Get("end"), 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "end must be a number", "BAD_REQUEST")
			return
		}

		video, err := cfg.Repository.GetVideoByPath(r.Context(), videoPath)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if video == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		c, err := cfg.Extractor.Extract(r.Context(), video.Path, start, end)
		if err != nil {
			switch {
			case errors.Is(err, clip.ErrInvalidRange):
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			case errors.Is(err, media.ErrSourceUnavailable):
				WriteError(w, http.StatusNotFound, "video file is missing", "NOT_FOUND")
			default:
				cfg.Logger.Error("clip extraction failed", "error", err, "video_id", video.ID)
				WriteError(w, http.StatusInternalServerError, "clip extraction failed", "INTERNAL_ERROR")
			}
			return
		}
		defer c.Close()

		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", fmt.Sprintf("%d", c.Size))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Filename))
		if _, err := io.Copy(w, c); err != nil {
			cfg.Logger.Warn("clip download aborted", "error", err, "video_id", video.ID)
		}
	}
}
