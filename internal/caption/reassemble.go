package caption

import (
	"fmt"
	"strings"
)

// Reassemble merges per-chunk transcripts into one global timeline.
//
// Chunks must be supplied in ascending index order; words are appended in
// that order with each word's timestamps shifted by the owning chunk's
// start offset. A failed chunk does not abort the merge: it contributes
// zero words and a visible "[chunk N failed: reason]" marker in the
// combined text so partial results remain usable downstream.
func Reassemble(chunks []ChunkTranscript) Timeline {
	var tl Timeline
	parts := make([]string, 0, len(chunks))

	for _, c := range chunks {
		if c.Err != nil {
			tl.FailedChunks = append(tl.FailedChunks, c.Index)
			parts = append(parts, fmt.Sprintf("[chunk %d failed: %v]", c.Index, c.Err))
			continue
		}

		for _, w := range c.Words {
			tl.Words = append(tl.Words, Word{
				Text:  w.Text,
				Start: w.Start + c.StartOffset,
				End:   w.End + c.StartOffset,
			})
		}

		tl.TotalWords += len(c.Words)
		tl.TotalDuration += c.Duration
		tl.ChunksOK++
		if tl.Language == "" {
			tl.Language = c.Language
		}
		parts = append(parts, c.Text)
	}

	tl.Text = strings.Join(parts, "\n\n")
	return tl
}
