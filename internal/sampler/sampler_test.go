package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/frangin2003/groq-video-analyzer/internal/media"
)

func solidJPEG(t *testing.T, c color.Color, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func gradientJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7 % 256), G: uint8(y * 13 % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// fakeFFmpeg serves pre-baked frames keyed by sample position.
type fakeFFmpeg struct {
	probe  *media.ProbeResult
	frames [][]byte // indexed by stride position; nil entry = decode error
}

func (f *fakeFFmpeg) Probe(ctx context.Context, filePath string) (*media.ProbeResult, error) {
	if f.probe == nil {
		return nil, media.ErrSourceUnavailable
	}
	return f.probe, nil
}

func (f *fakeFFmpeg) ExtractFrame(ctx context.Context, filePath string, offsetSeconds float64) ([]byte, error) {
	pos := int(offsetSeconds / 2)
	if pos >= len(f.frames) || f.frames[pos] == nil {
		return nil, fmt.Errorf("decode failed at %v", offsetSeconds)
	}
	return f.frames[pos], nil
}

func (f *fakeFFmpeg) ExtractClip(ctx context.Context, filePath string, start, end float64, outputPath string) error {
	return nil
}

func newTestSampler(ff media.FFmpeg) *Sampler {
	return New(ff, 2, 64, nil)
}

func TestStream_DenseNumberingSkipsDegenerate(t *testing.T) {
	// Five sample positions at 1 fps-equivalent stride: positions 1 and 3
	// are solid-color and must be skipped without consuming a number.
	ff := &fakeFFmpeg{
		probe: &media.ProbeResult{FrameRate: 1, FrameCount: 10, Duration: 10},
		frames: [][]byte{
			gradientJPEG(t, 32, 32),
			solidJPEG(t, color.Black, 32, 32),
			gradientJPEG(t, 32, 32),
			solidJPEG(t, color.RGBA{R: 200, G: 10, B: 10, A: 255}, 32, 32),
			gradientJPEG(t, 32, 32),
		},
	}

	stream, err := newTestSampler(ff).Open(context.Background(), "test.mp4", t.TempDir(), "task1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if stream.TotalExpected() != 5 {
		t.Errorf("TotalExpected() = %d, want 5", stream.TotalExpected())
	}

	var numbers []int
	var timestamps []float64
	for {
		frame, ok := stream.Next(context.Background())
		if !ok {
			break
		}
		numbers = append(numbers, frame.Number)
		timestamps = append(timestamps, frame.Timestamp)
	}

	wantNumbers := []int{0, 1, 2}
	if len(numbers) != len(wantNumbers) {
		t.Fatalf("emitted %d frames, want %d", len(numbers), len(wantNumbers))
	}
	for i, n := range numbers {
		if n != wantNumbers[i] {
			t.Errorf("frame number[%d] = %d, want %d", i, n, wantNumbers[i])
		}
	}

	// Timestamps track the source stride position, not the output number.
	wantTimestamps := []float64{0, 4, 8}
	for i, ts := range timestamps {
		if ts != wantTimestamps[i] {
			t.Errorf("timestamp[%d] = %v, want %v", i, ts, wantTimestamps[i])
		}
	}
}

func TestStream_FullyDegenerateYieldsNoFrames(t *testing.T) {
	ff := &fakeFFmpeg{
		probe: &media.ProbeResult{FrameRate: 1, FrameCount: 6, Duration: 6},
		frames: [][]byte{
			solidJPEG(t, color.Black, 32, 32),
			solidJPEG(t, color.Black, 32, 32),
			solidJPEG(t, color.White, 32, 32),
		},
	}

	stream, err := newTestSampler(ff).Open(context.Background(), "test.mp4", t.TempDir(), "task1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, ok := stream.Next(context.Background()); ok {
		t.Error("Next() = frame, want none for all-degenerate video")
	}
}

func TestStream_DecodeFailureEndsStreamEarly(t *testing.T) {
	ff := &fakeFFmpeg{
		probe: &media.ProbeResult{FrameRate: 1, FrameCount: 8, Duration: 8},
		frames: [][]byte{
			gradientJPEG(t, 32, 32),
			gradientJPEG(t, 32, 32),
			nil, // decode error here
			gradientJPEG(t, 32, 32),
		},
	}

	stream, err := newTestSampler(ff).Open(context.Background(), "test.mp4", t.TempDir(), "task1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	count := 0
	for {
		_, ok := stream.Next(context.Background())
		if !ok {
			break
		}
		count++
	}

	if count != 2 {
		t.Errorf("emitted %d frames before decode failure, want 2", count)
	}

	// The stream stays done after the failure.
	if _, ok := stream.Next(context.Background()); ok {
		t.Error("Next() after end = frame, want none")
	}
}

func TestOpen_SourceUnavailable(t *testing.T) {
	ff := &fakeFFmpeg{probe: nil}

	_, err := newTestSampler(ff).Open(context.Background(), "missing.mp4", t.TempDir(), "task1")
	if err == nil {
		t.Fatal("Open() should fail when the source cannot be probed")
	}
}

func TestIsDegenerate(t *testing.T) {
	solid := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			solid.Set(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	if !isDegenerate(solid) {
		t.Error("isDegenerate(solid) = false, want true")
	}

	varied := image.NewRGBA(image.Rect(0, 0, 16, 16))
	varied.Set(3, 3, color.White)
	if isDegenerate(varied) {
		t.Error("isDegenerate(varied) = true, want false")
	}
}

func TestResizeToWidth(t *testing.T) {
	tests := []struct {
		srcW, srcH  int
		target      int
		wantW, wantH int
	}{
		{1920, 1080, 1120, 1120, 630},
		{640, 480, 1120, 1120, 840},
		{1120, 700, 1120, 1120, 700}, // already at target
		{1000, 333, 1120, 1120, 373}, // rounds 372.96 up
	}

	for _, tt := range tests {
		src := image.NewRGBA(image.Rect(0, 0, tt.srcW, tt.srcH))
		got := resizeToWidth(src, tt.target)
		b := got.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("resizeToWidth(%dx%d, %d) = %dx%d, want %dx%d",
				tt.srcW, tt.srcH, tt.target, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
		}
	}
}
