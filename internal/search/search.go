// Package search answers natural-language queries over the indexed frames.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/index"
	"github.com/frangin2003/groq-video-analyzer/internal/progress"
	"github.com/frangin2003/groq-video-analyzer/internal/provider"
	"github.com/frangin2003/groq-video-analyzer/internal/sequence"
)

// DefaultTopK bounds how many frame matches feed the sequence assembly.
const DefaultTopK = 50

type Service struct {
	repo     catalog.Repository
	provider provider.Provider
	index    index.Index
	hub      *progress.Hub
	logger   *slog.Logger
}

func NewService(repo catalog.Repository, p provider.Provider, idx index.Index, hub *progress.Hub, logger *slog.Logger) *Service {
	return &Service{repo: repo, provider: p, index: idx, hub: hub, logger: logger}
}

// Search embeds the query, retrieves the nearest frames and assembles them
// into scored sequences. Each search is recorded as a task so its outcome
// shows up in the task history.
func (s *Service) Search(ctx context.Context, taskID, query string, topK int) ([]sequence.Sequence, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	if err := s.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusRunning, ""); err != nil {
		s.logger.Warn("cannot mark search running", "task_id", taskID, "error", err)
	}
	s.status(taskID, "Starting search")

	seqs, err := s.run(ctx, taskID, query, topK)
	if err != nil {
		if uerr := s.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusFailed, err.Error()); uerr != nil {
			s.logger.Warn("cannot mark search failed", "task_id", taskID, "error", uerr)
		}
		s.hub.Publish(progress.Update{TaskID: taskID, Percent: -1, Status: catalog.TaskStatusFailed, Error: err.Error()})
		return nil, err
	}

	if err := s.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusCompleted, ""); err != nil {
		s.logger.Warn("cannot mark search completed", "task_id", taskID, "error", err)
	}
	s.repo.UpdateTaskProgress(ctx, taskID, 100, 0)
	s.hub.Publish(progress.Update{TaskID: taskID, Percent: 100, Status: catalog.TaskStatusCompleted})
	return seqs, nil
}

func (s *Service) run(ctx context.Context, taskID, query string, topK int) ([]sequence.Sequence, error) {
	s.status(taskID, "Generating query embedding")
	vector, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.status(taskID, "Searching frame index")
	matches, err := s.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	s.status(taskID, "Assembling sequences")
	seqs := sequence.Assemble(matches)
	s.logger.Info("search completed", "query_len", len(query), "matches", len(matches), "sequences", len(seqs))
	return seqs, nil
}

// status is a best-effort human-readable breadcrumb for anyone watching the
// task's event stream.
func (s *Service) status(taskID, message string) {
	s.hub.Publish(progress.Update{TaskID: taskID, Status: catalog.TaskStatusRunning, Message: message})
}
