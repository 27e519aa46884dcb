// Package ingest drives the video indexing pipeline: sample frames,
// describe and embed each one, and persist the vectors.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/index"
	"github.com/frangin2003/groq-video-analyzer/internal/progress"
	"github.com/frangin2003/groq-video-analyzer/internal/provider"
	"github.com/frangin2003/groq-video-analyzer/internal/sampler"
)

// framePause spaces out provider calls so a long ingest does not saturate
// the backend or starve concurrent searches.
const framePause = 100 * time.Millisecond

type Orchestrator struct {
	repo     catalog.Repository
	sampler  *sampler.Sampler
	provider provider.Provider
	index    index.Index
	hub      *progress.Hub
	logger   *slog.Logger
	pause    time.Duration
}

func NewOrchestrator(repo catalog.Repository, s *sampler.Sampler, p provider.Provider, idx index.Index, hub *progress.Hub, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		sampler:  s,
		provider: p,
		index:    idx,
		hub:      hub,
		logger:   logger,
		pause:    framePause,
	}
}

// Run executes the ingest task to completion. Frame-level provider and
// index failures are skipped; only an unusable source or an unreachable
// backend fails the whole task. Run is meant to be called on its own
// goroutine.
func (o *Orchestrator) Run(ctx context.Context, taskID, videoPath, framesDir string) {
	log := o.logger.With("task_id", taskID)

	if err := o.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusRunning, ""); err != nil {
		log.Error("cannot mark task running", "error", err)
	}

	if err := o.ingest(ctx, taskID, videoPath, framesDir, log); err != nil {
		log.Error("ingest failed", "error", err)
		if uerr := o.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusFailed, err.Error()); uerr != nil {
			log.Error("cannot mark task failed", "error", uerr)
		}
		o.repo.UpdateTaskProgress(ctx, taskID, -1, 0)
		o.hub.Publish(progress.Update{
			TaskID:  taskID,
			Percent: -1,
			Status:  catalog.TaskStatusFailed,
			Error:   err.Error(),
		})
	}
}

func (o *Orchestrator) ingest(ctx context.Context, taskID, videoPath, framesDir string, log *slog.Logger) error {
	// The local backend discovers its model lazily; confirm it is up
	// before spending minutes sampling.
	if r, ok := o.provider.(interface{ CheckReachable(context.Context) error }); ok {
		if err := r.CheckReachable(ctx); err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
	}

	stream, err := o.sampler.Open(ctx, videoPath, framesDir, taskID)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	total := stream.TotalExpected()
	log.Info("ingest started", "video", videoPath, "expected_frames", total)

	indexed := 0
	for {
		frame, ok := stream.Next(ctx)
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.indexFrame(ctx, taskID, videoPath, frame); err != nil {
			// One bad frame does not spoil the ingest.
			log.Warn("frame skipped", "frame", frame.Number, "error", err)
		} else {
			indexed++
			o.publishProgress(ctx, taskID, indexed, total)
		}

		select {
		case <-time.After(o.pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := o.repo.UpdateTaskStatus(ctx, taskID, catalog.TaskStatusCompleted, ""); err != nil {
		log.Error("cannot mark task completed", "error", err)
	}
	o.repo.UpdateTaskProgress(ctx, taskID, 100, indexed)
	o.hub.Publish(progress.Update{
		TaskID:        taskID,
		Percent:       100,
		IndexedFrames: indexed,
		TotalFrames:   total,
		Status:        catalog.TaskStatusCompleted,
	})
	log.Info("ingest completed", "indexed_frames", indexed, "expected_frames", total)
	return nil
}

func (o *Orchestrator) indexFrame(ctx context.Context, taskID, videoPath string, frame *sampler.Frame) error {
	description, err := o.provider.Describe(ctx, frame.Path)
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}

	vector, err := o.provider.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	meta := index.Metadata{
		TaskID:      taskID,
		VideoPath:   videoPath,
		FramePath:   frame.Path,
		FrameNumber: frame.Number,
		Timestamp:   frame.Timestamp,
		Description: description,
	}
	if err := o.index.Upsert(ctx, vectorID(taskID, frame.Number), vector, meta); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

func (o *Orchestrator) publishProgress(ctx context.Context, taskID string, indexed, total int) {
	percent := 0
	if total > 0 {
		percent = indexed * 100 / total
	}
	if percent > 99 {
		// 100 is reserved for the final completion event.
		percent = 99
	}

	if err := o.repo.UpdateTaskProgress(ctx, taskID, percent, indexed); err != nil {
		o.logger.Warn("cannot persist task progress", "task_id", taskID, "error", err)
	}
	o.hub.Publish(progress.Update{
		TaskID:        taskID,
		Percent:       percent,
		IndexedFrames: indexed,
		TotalFrames:   total,
		Status:        catalog.TaskStatusRunning,
	})
}

// vectorID derives a stable per-frame vector key so re-running a task
// overwrites its own records.
func vectorID(taskID string, frameNumber int) string {
	return fmt.Sprintf("%s_%d", taskID, frameNumber)
}
