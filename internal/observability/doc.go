// Package observability wires OpenTelemetry tracing and metrics for the
// transcription service. Init stands up OTLP/HTTP exporters and
// registers global providers; PipelineMetrics carries the instruments
// the transcription pipeline records against.
package observability
