// Package validation provides request validation helpers.
//
// Two styles are supported: a fluent Validator for handler-level checks
// that accumulates field errors, and struct-tag validation via
// go-playground/validator for request payload structs. Both surface
// failures as apperrors validation errors carrying per-field detail.
package validation
