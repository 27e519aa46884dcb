package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/frangin2003/groq-video-analyzer/internal/export"
)

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if len(req.Sequences) == 0 {
			WriteError(w, http.StatusBadRequest, "sequences must not be empty", "BAD_REQUEST")
			return
		}
		if err := validateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		title := export.SanitizeTitle(req.Title, 120)
		if title == "" {
			title = "video_analyzer_export"
		}
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = 30.0
		}

		cuts := make([]export.Cut, 0, len(req.Sequences))
		unresolved := make([]string, 0)
		for _, s := range req.Sequences {
			if s.TimeStart >= s.TimeEnd {
				WriteError(w, http.StatusBadRequest, "time_start must be before time_end", "BAD_REQUEST")
				return
			}

			video, err := cfg.Repository.GetVideoByPath(r.Context(), s.VideoPath)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			if video == nil {
				unresolved = append(unresolved, s.VideoPath)
				continue
			}

			name := export.SanitizeTitle(s.Description, 160)
			if name == "" {
				name = video.Filename
			}
			cuts = append(cuts, export.Cut{
				Name:      name,
				MediaPath: video.Path,
				StartSecs: s.TimeStart,
				EndSecs:   s.TimeEnd,
			})
		}
		if len(cuts) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no sequences could be resolved", "UNRESOLVABLE_SEQUENCES")
			return
		}

		edl := export.GenerateEDL(cuts, title, frameRate)
		outputPath := filepath.Join(req.OutputDir, title+".edl")
		if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ExportResponse{
			Status:     "ok",
			OutputPath: outputPath,
			CutCount:   len(cuts),
			Unresolved: unresolved,
		})
	}
}

func validateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errOutputDir("output_dir is required")
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return errOutputDir("output_dir cannot contain path traversal")
		}
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return errOutputDir("output_dir does not exist")
		}
		return err
	}
	if !info.IsDir() {
		return errOutputDir("output_dir is not a directory")
	}
	return nil
}

type errOutputDir string

func (e errOutputDir) Error() string { return string(e) }
