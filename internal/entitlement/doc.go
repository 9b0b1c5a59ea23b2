// Package entitlement decides whether a user may transcribe a video and
// records usage once a transcription completes.
//
// The gate runs two steps around every request: Check before any
// processing, with a byte-size duration estimate, and Commit exactly once
// afterwards with the actual duration. Free-tier admission goes through
// an atomic reservation so two concurrent requests cannot both consume a
// single remaining free video. Paid subscriptions expire lazily: the
// first check that observes a past renewal time writes the expiry back
// before deciding.
package entitlement
