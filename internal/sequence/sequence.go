package sequence

import (
	"fmt"
	"sort"

	"github.com/frangin2003/groq-video-analyzer/internal/index"
)

// maxFrameGap is the largest frame-number gap that still joins two matched
// frames into the same sequence. Frames are sampled sparsely, so adjacent
// sample positions differ by 1; a gap of 2 tolerates one missed sample.
const maxFrameGap = 2

// Sequence is a temporally contiguous run of matched frames from a single
// video, scored by the mean of its members.
type Sequence struct {
	VideoPath   string        `json:"video_path"`
	Description string        `json:"description"`
	Score       float64       `json:"score"`
	TimeStart   float64       `json:"time_start"`
	TimeEnd     float64       `json:"time_end"`
	Duration    float64       `json:"duration"`
	Frames      []index.Match `json:"frames"`
}

// FormattedStart returns the start offset as HH:MM:SS.
func (s Sequence) FormattedStart() string { return FormatTimestamp(s.TimeStart) }

// FormattedEnd returns the end offset as HH:MM:SS.
func (s Sequence) FormattedEnd() string { return FormatTimestamp(s.TimeEnd) }

// Assemble groups matches into per-video contiguous sequences. Runs with a
// single member are dropped; a lone frame is not a sequence. The result is
// ordered by score, best first.
func Assemble(matches []index.Match) []Sequence {
	byVideo := make(map[string][]index.Match)
	var order []string
	for _, m := range matches {
		if _, seen := byVideo[m.VideoPath]; !seen {
			order = append(order, m.VideoPath)
		}
		byVideo[m.VideoPath] = append(byVideo[m.VideoPath], m)
	}

	var sequences []Sequence
	for _, path := range order {
		frames := byVideo[path]
		sort.Slice(frames, func(i, j int) bool {
			return frames[i].FrameNumber < frames[j].FrameNumber
		})

		run := []index.Match{frames[0]}
		for _, m := range frames[1:] {
			if m.FrameNumber <= run[len(run)-1].FrameNumber+maxFrameGap {
				run = append(run, m)
				continue
			}
			if seq, ok := build(path, run); ok {
				sequences = append(sequences, seq)
			}
			run = []index.Match{m}
		}
		if seq, ok := build(path, run); ok {
			sequences = append(sequences, seq)
		}
	}

	sort.SliceStable(sequences, func(i, j int) bool {
		return sequences[i].Score > sequences[j].Score
	})
	return sequences
}

func build(videoPath string, run []index.Match) (Sequence, bool) {
	if len(run) < 2 {
		return Sequence{}, false
	}

	var sum float64
	for _, m := range run {
		sum += m.Score
	}
	first, last := run[0], run[len(run)-1]

	return Sequence{
		VideoPath:   videoPath,
		Description: first.Description,
		Score:       sum / float64(len(run)),
		TimeStart:   first.Timestamp,
		TimeEnd:     last.Timestamp,
		Duration:    last.Timestamp - first.Timestamp,
		Frames:      run,
	}, true
}

// FormatTimestamp renders an offset in seconds as HH:MM:SS, truncating any
// fractional second.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
