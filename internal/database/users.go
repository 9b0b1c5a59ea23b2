package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// UserStore persists accounts and their usage counters.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. A duplicate email maps to an already-exists
// error.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.AlreadyExists("user", user.Email)
		}
		return apperrors.DatabaseError("create user", err)
	}
	return nil
}

// ByEmail looks a user up by email.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, apperrors.DatabaseError("load user by email", err)
	}
	return &user, nil
}

// ByID looks a user up by id.
func (s *UserStore) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", id.String())
		}
		return nil, apperrors.DatabaseError("load user", err)
	}
	return &user, nil
}

// RecordLogin stamps the user's last successful login time.
func (s *UserStore) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("last_login_at", at).Error
	if err != nil {
		return apperrors.DatabaseError("record login", err)
	}
	return nil
}

// CommitFreeUsage adds one processed video and its duration to the user's
// lifetime free-tier counters. The increment is conditional on the video
// counter still being under videoCap, so two racing requests cannot both
// spend the last free video. Increments run as SQL expressions so
// concurrent commits cannot lose updates.
func (s *UserStore) CommitFreeUsage(ctx context.Context, userID uuid.UUID, durationSeconds float64, videoCap int) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND free_videos_processed < ?", userID, videoCap).
		Updates(map[string]interface{}{
			"free_videos_processed":   gorm.Expr("free_videos_processed + 1"),
			"free_duration_processed": gorm.Expr("free_duration_processed + ?", durationSeconds),
		})
	if result.Error != nil {
		return apperrors.DatabaseError("commit free usage", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := s.ByID(ctx, userID); err != nil {
			return err
		}
		return apperrors.EntitlementDenied(
			fmt.Sprintf("free tier limit of %d video already used", videoCap), true)
	}
	return nil
}

// CommitPaidUsage adds one processed video and its duration to the user's
// period counters. When the stored period no longer matches periodStart,
// the counters reset before the increment — the first commit in a new
// billing month starts the count at one.
func (s *UserStore) CommitPaidUsage(ctx context.Context, userID uuid.UUID, durationSeconds float64, periodStart, periodEnd time.Time) error {
	return s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user", userID.String())
			}
			return apperrors.DatabaseError("load user for usage commit", err)
		}

		updates := map[string]interface{}{
			"videos_processed_in_period":   gorm.Expr("videos_processed_in_period + 1"),
			"duration_processed_in_period": gorm.Expr("duration_processed_in_period + ?", durationSeconds),
		}
		if user.PeriodStart == nil || !user.PeriodStart.Equal(periodStart) {
			updates = map[string]interface{}{
				"period_start":                 periodStart,
				"period_end":                   periodEnd,
				"videos_processed_in_period":   1,
				"duration_processed_in_period": durationSeconds,
			}
		}

		if err := tx.Model(&User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			return apperrors.DatabaseError("commit paid usage", err)
		}
		return nil
	})
}

// ActivateSubscription applies a verified plan purchase: sets plan,
// status, renewal time, opens a fresh billing period, and zeroes the
// period counters.
func (s *UserStore) ActivateSubscription(ctx context.Context, userID uuid.UUID, plan string, periodStart, periodEnd time.Time) error {
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":                         plan,
			"subscription_status":          SubscriptionActive,
			"subscription_renews_at":       periodEnd,
			"period_start":                 periodStart,
			"period_end":                   periodEnd,
			"videos_processed_in_period":   0,
			"duration_processed_in_period": 0,
		})
	if result.Error != nil {
		return apperrors.DatabaseError("activate subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("user", userID.String())
	}
	return nil
}

// ExpireSubscription marks an active subscription as expired. The write
// is conditional on the current status so two concurrent expiry checks
// produce one transition.
func (s *UserStore) ExpireSubscription(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND subscription_status = ?", userID, SubscriptionActive).
		Update("subscription_status", SubscriptionExpired).Error
	if err != nil {
		return apperrors.DatabaseError("expire subscription", err)
	}
	return nil
}
