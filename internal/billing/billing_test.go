package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/logger"
)

type fakePayments struct {
	records  map[string]*database.Payment
	captured map[string]string
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		records:  make(map[string]*database.Payment),
		captured: make(map[string]string),
	}
}

func (f *fakePayments) Create(_ context.Context, p *database.Payment) error {
	if _, ok := f.records[p.OrderID]; ok {
		return apperrors.AlreadyExists("payment", p.OrderID)
	}
	f.records[p.OrderID] = p
	return nil
}

func (f *fakePayments) ByOrderID(_ context.Context, orderID string, userID uuid.UUID) (*database.Payment, error) {
	p, ok := f.records[orderID]
	if !ok || p.UserID != userID {
		return nil, apperrors.NotFound("payment", orderID)
	}
	return p, nil
}

func (f *fakePayments) MarkCaptured(_ context.Context, orderID, paymentID string) error {
	p, ok := f.records[orderID]
	if !ok {
		return apperrors.NotFound("payment", orderID)
	}
	if p.Status == database.PaymentCreated {
		p.Status = database.PaymentCaptured
		p.PaymentID = paymentID
		f.captured[orderID] = paymentID
	}
	return nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID uuid.UUID) ([]database.Payment, error) {
	var out []database.Payment
	for _, p := range f.records {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeActivator struct {
	userID      uuid.UUID
	plan        string
	periodStart time.Time
	periodEnd   time.Time
	calls       int
}

func (f *fakeActivator) ActivateSubscription(_ context.Context, userID uuid.UUID, plan string, periodStart, periodEnd time.Time) error {
	f.userID = userID
	f.plan = plan
	f.periodStart = periodStart
	f.periodEnd = periodEnd
	f.calls++
	return nil
}

func newTestService(t *testing.T, baseURL string) (*Service, *fakePayments, *fakeActivator) {
	t.Helper()
	cfg := Config{KeyID: "rzp_test_key", KeySecret: "test_secret", BaseURL: baseURL}
	cfg.ApplyDefaults()
	payments := newFakePayments()
	users := &fakeActivator{}
	svc := New(cfg, payments, users, logger.NewDefault("billing-test"))
	svc.now = func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc, payments, users
}

func TestCreateOrder(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, _ := r.BasicAuth()
		gotAuth = user + ":" + pass
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(orderResponse{ID: "order_abc", Amount: gotBody.Amount, Currency: gotBody.Currency, Status: "created"})
	}))
	defer srv.Close()

	svc, payments, _ := newTestService(t, srv.URL)
	userID := uuid.New()

	order, err := svc.CreateOrder(context.Background(), userID, "creator")
	if err != nil {
		t.Fatalf("CreateOrder() error: %v", err)
	}
	if gotPath != "/orders" {
		t.Errorf("path = %q, want /orders", gotPath)
	}
	if gotAuth != "rzp_test_key:test_secret" {
		t.Errorf("basic auth = %q", gotAuth)
	}
	if gotBody.Amount != 1500 || gotBody.Currency != "USD" {
		t.Errorf("order body = %+v, want amount 1500 USD", gotBody)
	}
	if gotBody.Notes["plan"] != "creator" {
		t.Errorf("notes = %v, want plan=creator", gotBody.Notes)
	}
	if order.OrderID != "order_abc" || order.AmountCents != 1500 || order.KeyID != "rzp_test_key" {
		t.Errorf("order = %+v", order)
	}

	record, ok := payments.records["order_abc"]
	if !ok {
		t.Fatal("expected payment record persisted")
	}
	if record.Status != database.PaymentCreated || record.Plan != "creator" || record.UserID != userID {
		t.Errorf("record = %+v", record)
	}
}

func TestCreateOrder_UnknownPlan(t *testing.T) {
	svc, _, _ := newTestService(t, "http://localhost:1")
	_, err := svc.CreateOrder(context.Background(), uuid.New(), "platinum")
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestCreateOrder_AuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc, _, _ := newTestService(t, srv.URL)
	_, err := svc.CreateOrder(context.Background(), uuid.New(), "creator")
	if apperrors.CodeOf(err) != apperrors.ErrCodeAdapterAuth {
		t.Fatalf("error = %v, want adapter auth", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	svc, payments, users := newTestService(t, "http://localhost:1")
	userID := uuid.New()
	payments.records["order_abc"] = &database.Payment{
		UserID: userID, OrderID: "order_abc", Plan: "creator",
		AmountCents: 1500, Currency: "USD", Status: database.PaymentCreated,
	}

	// HMAC-SHA256("order_abc|pay_xyz", "test_secret")
	sig := "a734976b4a9aa4403181acd25d87b09ad8cb31f7d73be91e2bb9eb5c517ca319"
	act, err := svc.VerifyPayment(context.Background(), userID, "order_abc", "pay_xyz", sig)
	if err != nil {
		t.Fatalf("VerifyPayment() error: %v", err)
	}
	if act.Plan != "creator" {
		t.Errorf("activation plan = %q, want creator", act.Plan)
	}

	if payments.records["order_abc"].Status != database.PaymentCaptured {
		t.Error("expected payment captured")
	}
	if payments.records["order_abc"].PaymentID != "pay_xyz" {
		t.Errorf("payment id = %q", payments.records["order_abc"].PaymentID)
	}
	if users.calls != 1 || users.plan != "creator" || users.userID != userID {
		t.Errorf("activation = %+v", users)
	}
	wantStart := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	if !users.periodStart.Equal(wantStart) || !users.periodEnd.Equal(wantEnd) {
		t.Errorf("period = %v..%v, want %v..%v", users.periodStart, users.periodEnd, wantStart, wantEnd)
	}
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	svc, payments, users := newTestService(t, "http://localhost:1")
	userID := uuid.New()
	payments.records["order_abc"] = &database.Payment{
		UserID: userID, OrderID: "order_abc", Plan: "creator", Status: database.PaymentCreated,
	}

	_, err := svc.VerifyPayment(context.Background(), userID, "order_abc", "pay_xyz", "deadbeef")
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want validation", err)
	}
	if payments.records["order_abc"].Status != database.PaymentCreated {
		t.Error("payment must stay pending on signature mismatch")
	}
	if users.calls != 0 {
		t.Error("subscription must not activate on signature mismatch")
	}
}

func TestVerifyPayment_WrongUser(t *testing.T) {
	svc, payments, _ := newTestService(t, "http://localhost:1")
	payments.records["order_abc"] = &database.Payment{
		UserID: uuid.New(), OrderID: "order_abc", Plan: "creator", Status: database.PaymentCreated,
	}

	_, err := svc.VerifyPayment(context.Background(), uuid.New(), "order_abc", "pay_xyz", "deadbeef")
	if apperrors.CodeOf(err) != apperrors.ErrCodeNotFound {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestVerifyPayment_MissingDetails(t *testing.T) {
	svc, _, _ := newTestService(t, "http://localhost:1")
	_, err := svc.VerifyPayment(context.Background(), uuid.New(), "order_abc", "", "sig")
	if apperrors.CodeOf(err) != apperrors.ErrCodeInvalidInput {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestVerifyPayment_RetriedCallback(t *testing.T) {
	svc, payments, users := newTestService(t, "http://localhost:1")
	userID := uuid.New()
	payments.records["order_abc"] = &database.Payment{
		UserID: userID, OrderID: "order_abc", Plan: "creator", Status: database.PaymentCreated,
	}

	sig := "a734976b4a9aa4403181acd25d87b09ad8cb31f7d73be91e2bb9eb5c517ca319"
	for i := 0; i < 2; i++ {
		if _, err := svc.VerifyPayment(context.Background(), userID, "order_abc", "pay_xyz", sig); err != nil {
			t.Fatalf("VerifyPayment() attempt %d error: %v", i+1, err)
		}
	}
	if users.calls != 2 {
		t.Errorf("activation calls = %d, want 2 (retry re-activates)", users.calls)
	}
	if payments.records["order_abc"].Status != database.PaymentCaptured {
		t.Error("expected payment captured")
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := monthWindow(time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC))
	if !start.Equal(time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v, want january rollover", end)
	}
}

func TestSignPayment(t *testing.T) {
	svc, _, _ := newTestService(t, "http://localhost:1")
	got := svc.signPayment("order_abc", "pay_xyz")
	want := "a734976b4a9aa4403181acd25d87b09ad8cb31f7d73be91e2bb9eb5c517ca319"
	if got != want {
		t.Errorf("signPayment() = %q, want %q", got, want)
	}
}
