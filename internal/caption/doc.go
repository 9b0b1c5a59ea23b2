// Package caption holds the caption domain model: word timelines,
// phrase segments, and the subtitle serialization formats built from them.
//
// The flow is Word -> Segment -> Formats. Words arrive from the
// transcription provider in chunk-local time, are shifted onto a global
// timeline by Reassemble, grouped into display phrases by GroupWords,
// and rendered by Serialize. RemapText lets enhanced or translated text
// replace segment text while the original timings are retained.
package caption
