package export

import (
	"strings"
	"testing"
)

func TestGenerateEDLSingleCut(t *testing.T) {
	cuts := []Cut{{
		Name:      "red car at dusk",
		MediaPath: "/videos/abc_road.mp4",
		StartSecs: 0,
		EndSecs:   2,
	}}

	edl := GenerateEDL(cuts, "road trip", 30.0)

	if !strings.Contains(edl, "TITLE: road trip") {
		t.Fatalf("missing title: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing FCM line: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  red car at dusk") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /videos/abc_road.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
}

func TestGenerateEDLRecordTimecodeAccumulates(t *testing.T) {
	cuts := []Cut{
		{Name: "a", MediaPath: "/a.mp4", StartSecs: 10, EndSecs: 12},
		{Name: "b", MediaPath: "/b.mp4", StartSecs: 40, EndSecs: 43},
	}

	edl := GenerateEDL(cuts, "t", 30.0)

	// Second event's record-in continues where the first left off.
	if !strings.Contains(edl, "002  AX       V     C        00:00:40:00 00:00:43:00 00:00:02:00 00:00:05:00") {
		t.Fatalf("record timecode did not accumulate: %q", edl)
	}
}

func TestGenerateEDLDropFrame(t *testing.T) {
	edl := GenerateEDL([]Cut{{Name: "a", MediaPath: "/a.mp4", EndSecs: 1}}, "t", 29.97)
	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop-frame FCM at 29.97fps: %q", edl)
	}
}

func TestSecsToTimecode(t *testing.T) {
	tests := []struct {
		secs float64
		fps  int
		want string
	}{
		{0, 30, "00:00:00:00"},
		{1.5, 30, "00:00:01:15"},
		{3661, 25, "01:01:01:00"},
		{0.999, 30, "00:00:01:00"}, // rounds to the nearest frame
	}
	for _, tt := range tests {
		if got := secsToTimecode(tt.secs, tt.fps); got != tt.want {
			t.Errorf("secsToTimecode(%v, %d) = %q, want %q", tt.secs, tt.fps, got, tt.want)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"plain title", 120, "plain title"},
		{"bad/slash\\back", 120, "bad_slash_back"},
		{"control\x00\x1fchars", 120, "controlchars"},
		{"  padded  ", 120, "padded"},
		{"truncated", 5, "trunc"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in, tt.max); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
