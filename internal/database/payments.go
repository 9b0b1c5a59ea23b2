package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// Payment statuses.
const (
	PaymentCreated  = "created"
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
)

// PaymentStore persists checkout orders.
type PaymentStore struct {
	db *DB
}

// NewPaymentStore creates a PaymentStore.
func NewPaymentStore(db *DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// Create inserts a new order record.
func (s *PaymentStore) Create(ctx context.Context, payment *Payment) error {
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return apperrors.DatabaseError("create payment", err)
	}
	return nil
}

// ByOrderID loads a payment by gateway order id, scoped to its owner.
func (s *PaymentStore) ByOrderID(ctx context.Context, orderID string, userID uuid.UUID) (*Payment, error) {
	var payment Payment
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment", orderID)
		}
		return nil, apperrors.DatabaseError("load payment", err)
	}
	return &payment, nil
}

// MarkCaptured records a verified payment against its order. The update
// is conditional on the created status so replayed verifications cannot
// double-capture.
func (s *PaymentStore) MarkCaptured(ctx context.Context, orderID, paymentID string) error {
	result := s.db.WithContext(ctx).Model(&Payment{}).
		Where("order_id = ? AND status = ?", orderID, PaymentCreated).
		Updates(map[string]interface{}{
			"payment_id": paymentID,
			"status":     PaymentCaptured,
		})
	if result.Error != nil {
		return apperrors.DatabaseError("mark payment captured", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("payment", orderID)
	}
	return nil
}

// ListByUser returns the user's payment history, newest first.
func (s *PaymentStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, apperrors.DatabaseError("list payments", err)
	}
	return payments, nil
}
