package caption

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Serialize renders the segment list into all supported caption formats.
// The input is always a segment list, so re-texted or re-timed segments
// (after translation or manual edits) serialize the same way.
func Serialize(segments []Segment) (Formats, error) {
	jsonOut, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return Formats{}, fmt.Errorf("marshal segments: %w", err)
	}
	return Formats{
		SRT:   FormatSRT(segments),
		VTT:   FormatVTT(segments),
		JSON:  string(jsonOut),
		Video: FormatVideo(segments),
	}, nil
}

// FormatSRT renders 1-indexed SubRip blocks. Hours are not wrapped at 24.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, formatTime(s.Start, ","), formatTime(s.End, ","), s.Text)
	}
	return b.String()
}

// FormatVTT renders a WebVTT document.
func FormatVTT(segments []Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", formatTime(s.Start, "."), formatTime(s.End, "."), s.Text)
	}
	return b.String()
}

// FormatVideo renders a human-readable per-segment listing for manual
// review and editing, not a standard subtitle format.
func FormatVideo(segments []Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "[%d] %s --> %s (%.2fs)\nText: %s\nWords: %d\n---\n\n",
			i+1, formatTime(s.Start, ","), formatTime(s.End, ","), s.Duration(), s.Text, s.WordCount)
	}
	return b.String()
}

// ParseJSON decodes a segment list previously produced by Serialize.
func ParseJSON(data []byte) ([]Segment, error) {
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	return segments, nil
}

// formatTime renders seconds as HH:MM:SS<sep>mmm. sep is "," for SRT and
// "." for VTT.
func formatTime(seconds float64, sep string) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds / 3600)
	minutes := int(seconds/60) % 60
	secs := int(seconds) % 60
	millis := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, sep, millis)
}
