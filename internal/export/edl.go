// Package export renders matched sequences as CMX 3600 EDL files so an
// editor can pull the found moments straight into an NLE timeline.
package export

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// Cut is one sequence resolved to a concrete media file and time span.
type Cut struct {
	Name      string
	MediaPath string
	StartSecs float64
	EndSecs   float64
}

// GenerateEDL lays the cuts end to end on a single video track. Record
// timecode starts at zero and accumulates cut durations.
func GenerateEDL(cuts []Cut, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	fcm := "FCM: NON-DROP FRAME"
	if math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01 {
		fcm = "FCM: DROP FRAME"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n%s\n\n", title, fcm)

	var recordOffset float64
	for i, cut := range cuts {
		duration := cut.EndSecs - cut.StartSecs
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "V",
			secsToTimecode(cut.StartSecs, fps),
			secsToTimecode(cut.EndSecs, fps),
			secsToTimecode(recordOffset, fps),
			secsToTimecode(recordOffset+duration, fps),
		)
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", cut.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", cut.MediaPath)
		recordOffset += duration
	}

	b.WriteString("\n")
	return b.String()
}

func secsToTimecode(secs float64, fps int) string {
	totalFrames := int(math.Round(secs * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600, (totalSeconds%3600)/60, totalSeconds%60, frames)
}

// SanitizeTitle strips control characters and anything outside a small
// allowed set, keeping EDL headers single-line and parseable.
func SanitizeTitle(s string, maxLen int) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		case strings.ContainsRune(" -_.,()", r):
			return r
		default:
			return '_'
		}
	}, s)

	mapped = strings.TrimSpace(mapped)
	if maxLen > 0 {
		if runes := []rune(mapped); len(runes) > maxLen {
			mapped = string(runes[:maxLen])
		}
	}
	return mapped
}
