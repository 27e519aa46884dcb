package progress

import (
	"log/slog"
	"sync"
)

// Update is one progress event for a task. Percent is 0-100, or -1 when the
// task failed outright.
type Update struct {
	TaskID        string `json:"task_id"`
	Percent       int    `json:"progress"`
	IndexedFrames int    `json:"indexed_frames"`
	TotalFrames   int    `json:"total_frames"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Terminal reports whether this update ends the task's stream.
func (u Update) Terminal() bool {
	return u.Percent == 100 || u.Percent == -1
}

// Hub fans task progress out to at most one observer per task. A second
// subscriber for the same task replaces the first, which sees its channel
// closed. Publishing to a task nobody watches is a no-op.
type Hub struct {
	mu        sync.Mutex
	observers map[string]chan Update
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		observers: make(map[string]chan Update),
		logger:    logger,
	}
}

// Subscribe registers the caller as the task's observer and returns the
// channel updates arrive on. Any previous observer for the task is closed
// out.
func (h *Hub) Subscribe(taskID string) <-chan Update {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.observers[taskID]; ok {
		close(old)
	}
	ch := make(chan Update, 16)
	h.observers[taskID] = ch
	return ch
}

// Unsubscribe detaches ch from the task. A stale channel that has already
// been replaced is left alone.
func (h *Hub) Unsubscribe(taskID string, ch <-chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.observers[taskID]
	if !ok || current != ch {
		return
	}
	delete(h.observers, taskID)
	close(current)
}

// Publish delivers an update to the task's observer, if any. Delivery is
// best effort: a full channel drops the update rather than stalling the
// pipeline. Terminal updates close the stream.
func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.observers[u.TaskID]
	if !ok {
		return
	}

	select {
	case ch <- u:
	default:
		if h.logger != nil {
			h.logger.Warn("progress observer lagging, update dropped", "task_id", u.TaskID, "progress", u.Percent)
		}
	}

	if u.Terminal() {
		delete(h.observers, u.TaskID)
		close(ch)
	}
}
