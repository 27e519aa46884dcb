// Package media wraps the ffmpeg and ffprobe binaries for probing sources,
// decoding single frames, and extracting clips.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrSourceUnavailable is returned when a video cannot be opened or probed.
var ErrSourceUnavailable = errors.New("video source unavailable")

type FFmpeg interface {
	Probe(ctx context.Context, filePath string) (*ProbeResult, error)
	ExtractFrame(ctx context.Context, filePath string, offsetSeconds float64) ([]byte, error)
	ExtractClip(ctx context.Context, filePath string, startSeconds, endSeconds float64, outputPath string) error
}

type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int
	HasAudio   bool
}

type RealFFmpeg struct {
	logger *slog.Logger
}

func NewRealFFmpeg(logger *slog.Logger) *RealFFmpeg {
	return &RealFFmpeg{logger: logger}
}

// CheckBinaries verifies ffmpeg and ffprobe are on PATH.
func CheckBinaries() error {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", bin, err)
		}
	}
	return nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NBFrames   string `json:"nb_frames"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

func (f *RealFFmpeg) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, filePath)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-of", "json",
		filePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if f.logger != nil {
			f.logger.Error("ffprobe failed", "path", filePath, "stderr", stderr.String())
		}
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrSourceUnavailable, err)
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", ErrSourceUnavailable, err)
	}

	result := &ProbeResult{}
	result.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if result.FrameRate == 0 {
				result.Width = s.Width
				result.Height = s.Height
				result.FrameRate = parseFrameRate(s.RFrameRate)
				result.FrameCount, _ = strconv.Atoi(s.NBFrames)
			}
		case "audio":
			result.HasAudio = true
		}
	}

	if result.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: no video stream found", ErrSourceUnavailable)
	}

	// Some containers omit nb_frames; fall back to duration * fps.
	if result.FrameCount == 0 && result.Duration > 0 {
		result.FrameCount = int(result.Duration * result.FrameRate)
	}

	return result, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001").
func parseFrameRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den
		}
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ExtractFrame decodes the single frame nearest offsetSeconds and returns it
// as JPEG bytes. Seeking happens before the input so one undecodable
// position does not affect other positions.
func (f *RealFFmpeg) ExtractFrame(ctx context.Context, filePath string, offsetSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", formatSeconds(offsetSeconds),
		"-i", filePath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decode frame at %.2fs: %v", offsetSeconds, err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("decode frame at %.2fs: no output", offsetSeconds)
	}

	return stdout.Bytes(), nil
}

// ExtractClip writes the [startSeconds, endSeconds] range of the source,
// video and audio, to outputPath as an mp4. If the audio track cannot be
// carried over the clip is retried video-only rather than failing.
func (f *RealFFmpeg) ExtractClip(ctx context.Context, filePath string, startSeconds, endSeconds float64, outputPath string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceUnavailable, filePath)
	}

	err := f.runClip(ctx, filePath, startSeconds, endSeconds, outputPath, true)
	if err == nil {
		return nil
	}

	if f.logger != nil {
		f.logger.Warn("clip extraction with audio failed, retrying video-only",
			"path", filePath, "error", err)
	}
	return f.runClip(ctx, filePath, startSeconds, endSeconds, outputPath, false)
}

func (f *RealFFmpeg) runClip(ctx context.Context, filePath string, start, end float64, outputPath string, withAudio bool) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", filePath,
		"-c:v", "libx264",
		"-preset", "veryfast",
	}
	if withAudio {
		args = append(args, "-c:a", "aac")
	} else {
		args = append(args, "-an")
	}
	args = append(args, "-movflags", "+faststart", outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg clip failed: %v: %s", err, tail(stderr.String(), 512))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
