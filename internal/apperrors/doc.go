// Package apperrors provides unified error handling for the ClipScribe API.
// It implements structured error types with machine-readable codes, HTTP
// status mapping, and retryable detection, so every failure in the
// transcription pipeline surfaces to clients with a consistent shape.
package apperrors
