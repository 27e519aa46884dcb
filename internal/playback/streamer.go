package playback

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// VideoStreamer serves a video file, honouring byte-range requests.
type VideoStreamer interface {
	ServeVideo(w http.ResponseWriter, r *http.Request, videoPath string) error
}

type Streamer struct {
	logger *slog.Logger
}

func NewStreamer(logger *slog.Logger) *Streamer {
	return &Streamer{logger: logger}
}

func (s *Streamer) ServeVideo(w http.ResponseWriter, r *http.Request, videoPath string) error {
	f, err := os.Open(videoPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "video not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat video: %w", err)
	}
	size := info.Size()

	contentType := mime.TypeByExtension(filepath.Ext(videoPath))
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ResolveRange(r.Header.Get("Range"), size)
	switch err {
	case nil:
	case ErrUnsatisfiable:
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case ErrBadRange:
		// Ignore the header and serve the whole file, like the stdlib does.
		br = nil
	default:
		return err
	}

	if br == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		_, err = io.Copy(w, f)
		return err
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek video: %w", err)
	}
	_, err = io.CopyN(w, f, br.Length())
	return err
}
