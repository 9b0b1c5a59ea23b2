// Package server hosts the Gin HTTP server: lifecycle, the standard
// middleware stack, and the response envelope helpers the API handlers
// use.
package server
