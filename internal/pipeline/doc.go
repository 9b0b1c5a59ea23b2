// Package pipeline runs a media asset end to end: admission against the
// user's plan, audio extraction, chunked or single-shot transcription,
// word grouping, caption serialization, usage commit, and project
// persistence.
//
// Chunk failures are isolated: a run succeeds as long as at least one
// chunk transcribes, with failed spans marked inline in the transcript.
// Usage is committed exactly once per run, with the actually
// transcribed duration rather than the admission estimate.
package pipeline
