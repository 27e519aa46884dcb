// Package sampler walks a video at a fixed temporal stride and emits kept
// frames as JPEG files, filtering out visually degenerate frames.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/frangin2003/groq-video-analyzer/internal/media"
)

// Frame is one sampled, kept frame. Number is dense over kept frames only,
// starting at 0; Timestamp is the position of the source frame in seconds.
type Frame struct {
	Number      int
	SourceFrame int
	Timestamp   float64
	Path        string
}

type Sampler struct {
	ffmpeg      media.FFmpeg
	strideSecs  float64
	targetWidth int
	logger      *slog.Logger
}

func New(ffmpeg media.FFmpeg, strideSeconds, targetWidth int, logger *slog.Logger) *Sampler {
	return &Sampler{
		ffmpeg:      ffmpeg,
		strideSecs:  float64(strideSeconds),
		targetWidth: targetWidth,
		logger:      logger,
	}
}

// Stream is a lazy, finite, single-use pass over a video's sampled frames.
type Stream struct {
	s         *Sampler
	videoPath string
	framesDir string
	taskID    string

	fps     float64
	stride  int
	total   int
	nextPos int
	emitted int
	done    bool
}

// Open probes the video and positions a new stream at the first sample.
// Returns media.ErrSourceUnavailable if the source cannot be opened.
func (s *Sampler) Open(ctx context.Context, videoPath, framesDir, taskID string) (*Stream, error) {
	probe, err := s.ffmpeg.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	stride := int(math.Round(probe.FrameRate * s.strideSecs))
	if stride < 1 {
		stride = 1
	}

	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	return &Stream{
		s:         s,
		videoPath: videoPath,
		framesDir: framesDir,
		taskID:    taskID,
		fps:       probe.FrameRate,
		stride:    stride,
		total:     probe.FrameCount / stride,
	}, nil
}

// TotalExpected is the number of stride positions in the source, used only
// as a progress denominator. The stream may emit fewer frames.
func (st *Stream) TotalExpected() int {
	return st.total
}

// Next returns the next kept frame. A decode failure ends the stream early;
// frames already emitted remain valid. Degenerate frames are skipped without
// consuming an output frame number.
func (st *Stream) Next(ctx context.Context) (*Frame, bool) {
	for !st.done {
		if ctx.Err() != nil {
			st.done = true
			return nil, false
		}
		if st.total > 0 && st.nextPos >= st.total {
			st.done = true
			return nil, false
		}

		sourceFrame := st.nextPos * st.stride
		timestamp := float64(sourceFrame) / st.fps
		st.nextPos++

		data, err := st.s.ffmpeg.ExtractFrame(ctx, st.videoPath, timestamp)
		if err != nil {
			// Partial results are valid; one bad position ends the scan.
			if st.s.logger != nil {
				st.s.logger.Warn("frame decode failed, ending stream",
					"task_id", st.taskID, "timestamp", timestamp, "error", err)
			}
			st.done = true
			return nil, false
		}

		img, err := decodeJPEG(data)
		if err != nil {
			st.done = true
			return nil, false
		}

		if isDegenerate(img) {
			if st.s.logger != nil {
				st.s.logger.Debug("skipping degenerate frame",
					"task_id", st.taskID, "timestamp", timestamp)
			}
			continue
		}

		resized := resizeToWidth(img, st.s.targetWidth)

		framePath := filepath.Join(st.framesDir,
			fmt.Sprintf("%s_frame_%d.jpg", st.taskID, st.emitted))
		if err := writeJPEG(framePath, resized); err != nil {
			st.done = true
			return nil, false
		}

		frame := &Frame{
			Number:      st.emitted,
			SourceFrame: sourceFrame,
			Timestamp:   timestamp,
			Path:        framePath,
		}
		st.emitted++
		return frame, true
	}
	return nil, false
}
