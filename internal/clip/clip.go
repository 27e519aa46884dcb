// Package clip cuts playable excerpts out of source videos.
package clip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/media"
)

// ErrInvalidRange rejects extraction requests whose bounds are not
// 0 <= start < end.
var ErrInvalidRange = errors.New("invalid time range")

type Extractor struct {
	ffmpeg  media.FFmpeg
	workDir string
	logger  *slog.Logger
}

func NewExtractor(ffmpeg media.FFmpeg, workDir string, logger *slog.Logger) *Extractor {
	return &Extractor{ffmpeg: ffmpeg, workDir: workDir, logger: logger}
}

// Clip is an extracted excerpt ready to stream. Closing it removes the
// transient file; no clip outlives its download.
type Clip struct {
	Filename string
	Size     int64

	file *os.File
	path string
}

func (c *Clip) Read(p []byte) (int, error) { return c.file.Read(p) }

func (c *Clip) Close() error {
	err := c.file.Close()
	if rerr := os.Remove(c.path); err == nil {
		err = rerr
	}
	return err
}

var _ io.ReadCloser = (*Clip)(nil)

// Extract cuts [start,end) seconds out of videoPath into a transient file
// and returns it for streaming. The caller owns the returned Clip and must
// Close it; failures clean up after themselves.
func (e *Extractor) Extract(ctx context.Context, videoPath string, start, end float64) (*Clip, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: start=%v end=%v", ErrInvalidRange, start, end)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, media.ErrSourceUnavailable
	}

	if err := os.MkdirAll(e.workDir, 0755); err != nil {
		return nil, fmt.Errorf("create clips dir: %w", err)
	}

	filename := Filename(start, end)
	outPath := filepath.Join(e.workDir, fmt.Sprintf("%s_%s", catalog.NewID(), filename))

	if err := e.ffmpeg.ExtractClip(ctx, videoPath, start, end, outPath); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("extract clip: %w", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("open clip: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		os.Remove(outPath)
		return nil, fmt.Errorf("stat clip: %w", err)
	}

	e.logger.Info("clip extracted", "video", filepath.Base(videoPath), "start", start, "end", end, "bytes", info.Size())
	return &Clip{Filename: filename, Size: info.Size(), file: f, path: outPath}, nil
}

// Filename names a clip download after its time span, sequence_<start>-<end>.mp4.
// Whole seconds stay integral so sequence_4-10.mp4 round-trips cleanly.
func Filename(start, end float64) string {
	return fmt.Sprintf("sequence_%s-%s.mp4", trimSeconds(start), trimSeconds(end))
}

func trimSeconds(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
