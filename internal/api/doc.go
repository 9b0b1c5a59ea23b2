// Package api mounts the HTTP surface of the service: account and
// session endpoints, upload and URL transcription, project retrieval
// and caption export, transcript rewriting, usage reporting, and
// Razorpay checkout. Handlers translate between the wire format and
// the domain packages; they hold no business rules of their own.
package api
