// Package events publishes domain events to Kafka so downstream
// consumers (analytics, email, webhooks) can react to transcription and
// billing activity without coupling to the API process.
//
// Publishing is best-effort and optional: with Enabled=false the
// publisher is a no-op, and callers treat publish errors as
// non-fatal.
package events
