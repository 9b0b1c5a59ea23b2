// Package redis wraps go-redis for the caches and atomic counters the
// application needs. Its main consumer is the free-tier reservation,
// which turns "check then increment" into one atomic operation so two
// concurrent requests cannot both pass a one-video gate.
package redis
