package database

import (
	"context"
	"time"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// FreeSlotReserver guards the free tier's single in-flight transcription
// with a lease on the user row. It is the admission guard for deployments
// without Redis: the conditional update is the atomic check-and-take, so
// two interleaved requests race on one row and only one matches the WHERE
// clause. The lease expires so a crashed request cannot hold the slot
// forever.
type FreeSlotReserver struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewFreeSlotReserver creates a reservation guard backed by the users
// table. Zero ttl defaults to 30 minutes.
func NewFreeSlotReserver(db *DB, ttl time.Duration) *FreeSlotReserver {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &FreeSlotReserver{db: db, ttl: ttl, now: time.Now}
}

// Reserve takes the user's admission slot when committed usage is under
// the limit and no unexpired lease is held.
func (r *FreeSlotReserver) Reserve(ctx context.Context, userID string, committed, limit int) (bool, error) {
	if committed >= limit {
		return false, nil
	}
	now := r.now().UTC()
	result := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND free_videos_processed < ? AND (free_slot_held_until IS NULL OR free_slot_held_until <= ?)",
			userID, limit, now).
		Update("free_slot_held_until", now.Add(r.ttl))
	if result.Error != nil {
		return false, apperrors.DatabaseError("reserve free slot", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Release frees a previously taken lease. Call it on every exit path once
// the request's usage is durably committed or abandoned.
func (r *FreeSlotReserver) Release(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("free_slot_held_until", nil).Error
	if err != nil {
		return apperrors.DatabaseError("release free slot", err)
	}
	return nil
}
