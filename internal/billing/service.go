package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/logger"
)

// PaymentStore persists checkout records.
type PaymentStore interface {
	Create(ctx context.Context, payment *database.Payment) error
	ByOrderID(ctx context.Context, orderID string, userID uuid.UUID) (*database.Payment, error)
	MarkCaptured(ctx context.Context, orderID, paymentID string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]database.Payment, error)
}

// SubscriptionActivator flips a user onto a paid plan.
type SubscriptionActivator interface {
	ActivateSubscription(ctx context.Context, userID uuid.UUID, plan string, periodStart, periodEnd time.Time) error
}

// Order is what the checkout widget needs to open a payment.
type Order struct {
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// Service drives the two-step Razorpay checkout flow.
type Service struct {
	cfg      Config
	payments PaymentStore
	users    SubscriptionActivator
	http     *http.Client
	log      *logger.Logger

	now func() time.Time
}

// New builds a billing service. The config must already be validated.
func New(cfg Config, payments PaymentStore, users SubscriptionActivator, log *logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		payments: payments,
		users:    users,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log.WithComponent("billing"),
		now:      time.Now,
	}
}

// KeyID returns the public Razorpay key for the checkout widget.
func (s *Service) KeyID() string {
	return s.cfg.KeyID
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder registers an order with Razorpay for the given plan and
// records a pending payment against the user. The returned Order feeds
// the browser checkout widget.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, plan string) (*Order, error) {
	price, ok := PriceFor(plan)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("plan %q is not purchasable", plan))
	}

	body, err := json.Marshal(orderRequest{
		Amount:   price.AmountCents,
		Currency: price.Currency,
		Receipt:  fmt.Sprintf("rcpt_%d", s.now().UnixMilli()),
		Notes:    map[string]string{"plan": plan},
	})
	if err != nil {
		return nil, apperrors.Internal("encode order request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Internal("build order request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, apperrors.ExternalServiceError("create razorpay order", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, apperrors.AdapterAuth()
		case http.StatusTooManyRequests:
			return nil, apperrors.AdapterRateLimit()
		default:
			return nil, apperrors.ExternalServiceError("create razorpay order",
				fmt.Errorf("status %d: %s", resp.StatusCode, raw))
		}
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, apperrors.ExternalServiceError("decode razorpay order", err)
	}
	if order.ID == "" {
		return nil, apperrors.ExternalServiceError("create razorpay order", fmt.Errorf("empty order id"))
	}

	record := &database.Payment{
		UserID:      userID,
		OrderID:     order.ID,
		Plan:        plan,
		AmountCents: price.AmountCents,
		Currency:    price.Currency,
		Status:      database.PaymentCreated,
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("checkout order created", logger.Fields(
		"user_id", userID.String(),
		"order_id", order.ID,
		"plan", plan,
	))

	return &Order{
		OrderID:     order.ID,
		AmountCents: price.AmountCents,
		Currency:    price.Currency,
		KeyID:       s.cfg.KeyID,
	}, nil
}

// Activation describes a subscription window opened by a verified
// payment.
type Activation struct {
	Plan        string    `json:"plan"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
}

// VerifyPayment validates the signature Razorpay returned for a
// completed checkout, marks the payment captured, and activates the
// subscription for the current calendar month (UTC). Verifying an
// already-captured payment is a no-op for the payment record but still
// re-activates the subscription, so a retried callback cannot strand a
// paying user.
func (s *Service) VerifyPayment(ctx context.Context, userID uuid.UUID, orderID, paymentID, signature string) (*Activation, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, apperrors.Validation("missing payment details")
	}

	payment, err := s.payments.ByOrderID(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	expected := s.signPayment(orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.log.Warn("payment signature mismatch", logger.Fields(
			"user_id", userID.String(),
			"order_id", orderID,
		))
		return nil, apperrors.Validation("invalid payment signature")
	}

	if err := s.payments.MarkCaptured(ctx, orderID, paymentID); err != nil {
		return nil, err
	}

	periodStart, periodEnd := monthWindow(s.now())
	if err := s.users.ActivateSubscription(ctx, userID, payment.Plan, periodStart, periodEnd); err != nil {
		return nil, err
	}

	s.log.Info("subscription activated", logger.Fields(
		"user_id", userID.String(),
		"plan", payment.Plan,
		"period_end", periodEnd.Format(time.RFC3339),
	))
	return &Activation{Plan: payment.Plan, PeriodStart: periodStart, PeriodEnd: periodEnd}, nil
}

// History returns the user's payment records, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]database.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

// signPayment computes the hex HMAC-SHA256 Razorpay uses to attest a
// captured payment: the key secret over "order_id|payment_id".
func (s *Service) signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// monthWindow returns the UTC calendar month containing now.
func monthWindow(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
