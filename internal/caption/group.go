package caption

import (
	"strings"
	"unicode"
)

// Grouping thresholds. A phrase breaks when the silence gap, the elapsed
// phrase time, or the word count crosses these bounds, or at sentence
// punctuation.
const (
	maxWordGapSeconds    = 1.0
	maxPhraseSeconds     = 3.0
	maxPhraseWords       = 15
	minSegmentSeconds    = 0.5
	terminalPunctuation  = ".!?"
)

// GroupWords converts a flat word timeline into caption-sized phrase
// segments. The pass is greedy and deterministic: each word either
// extends the current phrase or starts a new one. Every emitted segment
// is stretched to at least minSegmentSeconds. Empty input yields nil.
func GroupWords(words []Word) []Segment {
	if len(words) == 0 {
		return nil
	}

	var segments []Segment
	buf := phraseBuffer{start: words[0].Start, end: words[0].End, words: []string{words[0].Text}}

	for i := 1; i < len(words); i++ {
		word := words[i]
		prev := words[i-1]

		if breakBefore(word, prev, buf) {
			segments = append(segments, buf.flush(prev.End))
			buf = phraseBuffer{start: word.Start, end: word.End, words: []string{word.Text}}
			continue
		}

		buf.words = append(buf.words, word.Text)
		buf.end = word.End
	}
	segments = append(segments, buf.flush(buf.end))

	for i := range segments {
		if segments[i].End-segments[i].Start < minSegmentSeconds {
			segments[i].End = segments[i].Start + minSegmentSeconds
		}
	}
	return segments
}

// breakBefore reports whether word should start a new phrase rather than
// extend the current buffer.
func breakBefore(word, prev Word, buf phraseBuffer) bool {
	switch {
	case word.Start-prev.End > maxWordGapSeconds:
		return true
	case startsUpper(word.Text) && endsSentence(prev.Text):
		return true
	case word.Start-buf.start > maxPhraseSeconds:
		return true
	case len(buf.words) >= maxPhraseWords:
		return true
	case isPunctuationToken(word.Text):
		return true
	case endsSentence(prev.Text):
		return true
	}
	return false
}

type phraseBuffer struct {
	start float64
	end   float64
	words []string
}

// flush finalizes the buffer into a Segment ending at end.
func (b phraseBuffer) flush(end float64) Segment {
	return Segment{
		Start:     b.start,
		End:       end,
		Text:      strings.Join(b.words, " "),
		WordCount: len(b.words),
	}
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func endsSentence(s string) bool {
	if s == "" {
		return false
	}
	return strings.ContainsRune(terminalPunctuation, rune(s[len(s)-1]))
}

// isPunctuationToken reports whether the token is a lone sentence
// terminator emitted by the recognizer.
func isPunctuationToken(s string) bool {
	return len(s) == 1 && strings.ContainsRune(terminalPunctuation, rune(s[0]))
}
