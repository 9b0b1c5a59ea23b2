// Package database provides the GORM-backed persistence layer: users
// with usage counters, transcription projects, and payment records.
//
// Usage counter updates go through conditional SQL expressions rather
// than read-modify-write so concurrent commits for the same user cannot
// lose increments.
package database
