package caption

import "strings"

// RemapText distributes replacement text (enhanced or translated) across
// the existing segments proportionally by word count, keeping every
// segment's original timing. Word counts are updated to reflect the new
// text. Empty replacement text or empty segments return the input
// unchanged.
func RemapText(segments []Segment, text string) []Segment {
	words := strings.Fields(text)
	if len(segments) == 0 || len(words) == 0 {
		return segments
	}

	total := 0
	for _, s := range segments {
		total += s.WordCount
	}
	if total == 0 {
		total = len(segments)
	}

	out := make([]Segment, len(segments))
	pos := 0
	for i, s := range segments {
		share := s.WordCount
		if share == 0 {
			share = 1
		}
		n := len(words) * share / total
		if n < 1 {
			n = 1
		}
		// Last segment absorbs any rounding remainder.
		if i == len(segments)-1 || pos+n > len(words) {
			n = len(words) - pos
		}
		chunk := words[pos : pos+n]
		pos += n

		out[i] = Segment{
			Start:     s.Start,
			End:       s.End,
			Text:      strings.Join(chunk, " "),
			WordCount: len(chunk),
		}
	}
	return out
}
