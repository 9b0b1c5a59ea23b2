// Package logger provides structured logging built on zerolog.
//
// It wraps zerolog with component tagging, context enrichment, and a
// global logger for packages that are not wired to an instance.
package logger
