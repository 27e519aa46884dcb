package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/progress"
)

// taskEventsHandler streams a task's progress as Server-Sent Events. Only
// one client can watch a task at a time; a newer subscriber takes over and
// the older stream ends.
func taskEventsHandler(cfg ServerConfig) http.HandlerFunc {
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

		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		// Replay current state first so late subscribers see where the
		// task stands before live updates arrive.
		writeEvent(w, progress.Update{
			TaskID:        task.ID,
			Percent:       task.Progress,
			IndexedFrames: task.IndexedFrames,
			Status:        task.Status,
			Error:         task.Error,
		})
		flusher.Flush()

		if task.Status == catalog.TaskStatusCompleted || task.Status == catalog.TaskStatusFailed {
			return
		}

		ch := cfg.Hub.Subscribe(id)
		defer cfg.Hub.Unsubscribe(id, ch)

		for {
			select {
			case u, open := <-ch:
				if !open {
					return
				}
				writeEvent(w, u)
				flusher.Flush()
				if u.Terminal() {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, u progress.Update) {
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
