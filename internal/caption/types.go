package caption

// Word is a single recognized token with timestamps in seconds.
// Timestamps are chunk-local until the owning chunk's offset is applied.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a caption phrase: a run of words displayed as one cue.
type Segment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	WordCount int     `json:"wordCount"`
}

// Duration returns the display duration of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Formats bundles every rendered caption format for one segment list.
type Formats struct {
	SRT   string `json:"srt"`
	VTT   string `json:"vtt"`
	JSON  string `json:"json"`
	Video string `json:"video"`
}

// ChunkTranscript is the outcome of transcribing one audio chunk,
// with word timestamps still in chunk-local time. Err is set when the
// chunk's transcription failed; Words is empty in that case.
type ChunkTranscript struct {
	Index       int
	StartOffset float64
	Words       []Word
	Text        string
	Duration    float64
	Language    string
	Err         error
}

// Timeline is the merged, globally timed word sequence for a whole asset.
type Timeline struct {
	// Words in ascending chunk order with global timestamps.
	Words []Word
	// Text is the per-chunk transcripts joined with blank lines; failed
	// chunks contribute a visible failure marker in position.
	Text string
	// TotalWords counts words across all successful chunks.
	TotalWords int
	// TotalDuration sums the adapter-reported duration of successful chunks.
	TotalDuration float64
	// Language is the detected language of the first successful chunk.
	Language string
	// FailedChunks lists the indices of chunks whose transcription failed.
	FailedChunks []int
	// ChunksOK counts chunks that transcribed successfully.
	ChunksOK int
}

// AllFailed reports whether no chunk produced a transcript.
func (t Timeline) AllFailed() bool {
	return t.ChunksOK == 0
}
