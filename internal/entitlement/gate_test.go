package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/logger"
)

type fakeUsageStore struct {
	freeCommits []float64
	freeCaps    []int
	paidCommits []paidCommit
	expired     []uuid.UUID
}

type paidCommit struct {
	duration    float64
	periodStart time.Time
	periodEnd   time.Time
}

func (f *fakeUsageStore) CommitFreeUsage(_ context.Context, _ uuid.UUID, d float64, videoCap int) error {
	f.freeCommits = append(f.freeCommits, d)
	f.freeCaps = append(f.freeCaps, videoCap)
	return nil
}

func (f *fakeUsageStore) CommitPaidUsage(_ context.Context, _ uuid.UUID, d float64, start, end time.Time) error {
	f.paidCommits = append(f.paidCommits, paidCommit{duration: d, periodStart: start, periodEnd: end})
	return nil
}

func (f *fakeUsageStore) ExpireSubscription(_ context.Context, id uuid.UUID) error {
	f.expired = append(f.expired, id)
	return nil
}

type fakeProjectCounter struct {
	completed int64
}

func (f *fakeProjectCounter) CountCompletedByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.completed, nil
}

type fakeReserver struct {
	slots    int
	limit    int
	released int
	denied   bool
}

func (f *fakeReserver) Reserve(_ context.Context, _ string, committed, limit int) (bool, error) {
	if f.denied || committed+f.slots >= limit {
		return false, nil
	}
	f.slots++
	return true, nil
}

func (f *fakeReserver) Release(_ context.Context, _ string) error {
	f.released++
	if f.slots > 0 {
		f.slots--
	}
	return nil
}

type gateFixture struct {
	gate     *Gate
	store    *fakeUsageStore
	projects *fakeProjectCounter
	reserver *fakeReserver
}

func newGateFixture(now time.Time) *gateFixture {
	f := &gateFixture{
		store:    &fakeUsageStore{},
		projects: &fakeProjectCounter{},
		reserver: &fakeReserver{},
	}
	f.gate = NewGate(f.store, f.projects, f.reserver, logger.NewDefault("entitlement-test"))
	f.gate.now = func() time.Time { return now }
	return f
}

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func freeUser() *database.User {
	u := &database.User{Plan: database.PlanFree, Role: "user"}
	u.ID = uuid.New()
	return u
}

func paidUser(plan string, renewsAt time.Time) *database.User {
	u := freeUser()
	u.Plan = plan
	u.SubscriptionStatus = database.SubscriptionActive
	u.SubscriptionRenewsAt = &renewsAt
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	u.PeriodStart = &start
	u.PeriodEnd = &end
	return u
}

func TestCheckAdminBypassesEverything(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()
	u.Role = "admin"
	u.FreeVideosProcessed = 99

	d, err := f.gate.Check(context.Background(), u, 1e9)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Allowed {
		t.Error("admin must always be allowed")
	}
}

func TestCheckFreeFirstVideoAllowed(t *testing.T) {
	f := newGateFixture(testNow)
	d, err := f.gate.Check(context.Background(), freeUser(), 300)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Allowed {
		t.Errorf("first free video must be allowed: %+v", d)
	}
	if d.Usage.VideoLimit != 1 || d.Usage.PerVideoMaxSeconds != 600 {
		t.Errorf("snapshot = %+v", d.Usage)
	}
}

func TestCheckFreeLifetimeCountExhausted(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()
	u.FreeVideosProcessed = 1

	d, _ := f.gate.Check(context.Background(), u, 60)
	if d.Allowed || !d.RequiresUpgrade {
		t.Errorf("exhausted free tier must deny with upgrade: %+v", d)
	}
}

func TestCheckFreeReconciliationUsesProjectCount(t *testing.T) {
	f := newGateFixture(testNow)
	f.projects.completed = 1
	u := freeUser() // cached counter still zero

	d, _ := f.gate.Check(context.Background(), u, 60)
	if d.Allowed {
		t.Error("completed project count must override stale cached counter")
	}
	if d.Usage.VideosUsed != 1 {
		t.Errorf("snapshot videos used = %d, want reconciled 1", d.Usage.VideosUsed)
	}
}

func TestCheckFreePerVideoDurationCap(t *testing.T) {
	f := newGateFixture(testNow)
	d, _ := f.gate.Check(context.Background(), freeUser(), 601)
	if d.Allowed {
		t.Error("videos over 600s must be denied on free tier")
	}
}

func TestCheckFreeLifetimeDurationCap(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()
	u.FreeDurationProcessed = 500

	d, _ := f.gate.Check(context.Background(), u, 101)
	if d.Allowed {
		t.Error("request pushing lifetime duration over 600s must be denied")
	}
}

func TestCheckFreeConcurrentReservation(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()

	first, _ := f.gate.Check(context.Background(), u, 60)
	second, _ := f.gate.Check(context.Background(), u, 60)
	if !first.Allowed {
		t.Fatal("first request must win the slot")
	}
	if second.Allowed {
		t.Error("second concurrent request must be denied the only free slot")
	}
}

func TestCheckPaidActiveUnderLimits(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.AddDate(0, 0, 10))
	u.VideosProcessedInPeriod = 5

	d, err := f.gate.Check(context.Background(), u, 300)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Allowed {
		t.Errorf("active creator under limits must be allowed: %+v", d)
	}
}

func TestCheckPaidVideoLimitReached(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.AddDate(0, 0, 10))
	u.VideosProcessedInPeriod = 10

	d, _ := f.gate.Check(context.Background(), u, 60)
	if d.Allowed || d.RequiresUpgrade {
		t.Errorf("limit-reached paid plan denies without upgrade flag: %+v", d)
	}
}

func TestCheckPaidPerVideoDuration(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.AddDate(0, 0, 10))

	d, _ := f.gate.Check(context.Background(), u, 601)
	if d.Allowed {
		t.Error("creator plan caps per-video duration at 600s")
	}

	pro := paidUser(database.PlanPro, testNow.AddDate(0, 0, 10))
	d, _ = f.gate.Check(context.Background(), pro, 601)
	if !d.Allowed {
		t.Error("pro plan allows videos up to 3600s")
	}
}

func TestCheckPaidLazyExpiry(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.Add(-time.Hour))

	d, err := f.gate.Check(context.Background(), u, 60)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed {
		t.Error("lapsed subscription must be denied")
	}
	if !d.RequiresUpgrade {
		t.Error("expiry denial must request renewal")
	}
	if len(f.store.expired) != 1 {
		t.Errorf("expiry must be written back before the decision, got %d writes", len(f.store.expired))
	}
}

func TestCheckPaidStaleCountersAfterPeriodEnd(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.AddDate(0, 1, 0))
	// Stored period lapsed; counters are stale and read as zero.
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	u.PeriodStart = &start
	u.PeriodEnd = &end
	u.VideosProcessedInPeriod = 10

	d, _ := f.gate.Check(context.Background(), u, 60)
	if !d.Allowed {
		t.Errorf("lapsed-period counters must not block a new month: %+v", d)
	}
	if d.Usage.VideosUsed != 0 {
		t.Errorf("effective videos used = %d, want 0", d.Usage.VideosUsed)
	}
}

func TestCheckCancelledPaidFallsBackToFree(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanCreator, testNow.AddDate(0, 0, 10))
	u.SubscriptionStatus = database.SubscriptionCancelled
	u.FreeVideosProcessed = 1

	d, _ := f.gate.Check(context.Background(), u, 60)
	if d.Allowed {
		t.Error("cancelled subscription falls back to exhausted free tier")
	}
	if d.Usage.Plan != database.PlanFree {
		t.Errorf("snapshot plan = %q, want free", d.Usage.Plan)
	}
}

func TestCommitAdminIsNoOp(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()
	u.Role = "admin"

	if err := f.gate.Commit(context.Background(), u, 300); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(f.store.freeCommits)+len(f.store.paidCommits) != 0 {
		t.Error("admin commit must not touch counters")
	}
}

func TestCommitFreeReleasesReservation(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()

	if d, _ := f.gate.Check(context.Background(), u, 60); !d.Allowed {
		t.Fatal("check must allow")
	}
	if err := f.gate.Commit(context.Background(), u, 120); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(f.store.freeCommits) != 1 || f.store.freeCommits[0] != 120 {
		t.Errorf("free commits = %v", f.store.freeCommits)
	}
	if want := LimitsFor(database.PlanFree).VideosPerPeriod; f.store.freeCaps[0] != want {
		t.Errorf("commit cap = %d, want %d", f.store.freeCaps[0], want)
	}
	if f.reserver.released != 1 {
		t.Errorf("reservation must be released on commit, released=%d", f.reserver.released)
	}
}

func TestCommitPaidSamePeriod(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanPro, testNow.AddDate(0, 0, 10))

	if err := f.gate.Commit(context.Background(), u, 500); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(f.store.paidCommits) != 1 {
		t.Fatalf("paid commits = %d", len(f.store.paidCommits))
	}
	c := f.store.paidCommits[0]
	if c.duration != 500 {
		t.Errorf("duration = %v", c.duration)
	}
	if !c.periodStart.Equal(*u.PeriodStart) {
		t.Errorf("period start = %v, want stored %v", c.periodStart, u.PeriodStart)
	}
}

func TestCommitPaidAdvancesLapsedPeriod(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser(database.PlanPro, testNow.AddDate(0, 1, 0))
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	u.PeriodStart = &start
	u.PeriodEnd = &end

	if err := f.gate.Commit(context.Background(), u, 60); err != nil {
		t.Fatalf("commit: %v", err)
	}
	c := f.store.paidCommits[0]
	wantStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !c.periodStart.Equal(wantStart) {
		t.Errorf("advanced period start = %v, want %v", c.periodStart, wantStart)
	}
	if !c.periodEnd.Equal(wantStart.AddDate(0, 1, 0)) {
		t.Errorf("advanced period end = %v", c.periodEnd)
	}
}

func TestAbandonReleasesFreeSlot(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()

	if d, _ := f.gate.Check(context.Background(), u, 60); !d.Allowed {
		t.Fatal("check must allow")
	}
	f.gate.Abandon(context.Background(), u)
	if f.reserver.released != 1 {
		t.Errorf("abandon must release the slot, released=%d", f.reserver.released)
	}

	// Slot is available again.
	if d, _ := f.gate.Check(context.Background(), u, 60); !d.Allowed {
		t.Error("slot must be reusable after abandon")
	}
}

func TestUsageDoesNotReserve(t *testing.T) {
	f := newGateFixture(testNow)
	u := freeUser()
	u.FreeDurationProcessed = 120
	f.projects.completed = 0

	snap, err := f.gate.Usage(context.Background(), u)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if snap.Plan != database.PlanFree || snap.VideosUsed != 0 || snap.VideoLimit != 1 {
		t.Errorf("unexpected free snapshot: %+v", snap)
	}
	if snap.DurationUsedSeconds != 120 {
		t.Errorf("duration used = %v, want 120", snap.DurationUsedSeconds)
	}
	if f.reserver.slots != 0 {
		t.Errorf("usage must not reserve a slot, slots=%d", f.reserver.slots)
	}
}

func TestUsagePaidReportsPeriodCounters(t *testing.T) {
	f := newGateFixture(testNow)
	u := paidUser("creator", testNow.AddDate(0, 1, 0))
	u.VideosProcessedInPeriod = 7
	u.DurationProcessedInPeriod = 4200

	snap, err := f.gate.Usage(context.Background(), u)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if snap.Plan != "creator" || snap.VideosUsed != 7 || snap.DurationUsedSeconds != 4200 {
		t.Errorf("unexpected paid snapshot: %+v", snap)
	}
	if snap.PeriodEnd == nil || !snap.PeriodEnd.Equal(*u.PeriodEnd) {
		t.Errorf("period end = %v, want %v", snap.PeriodEnd, u.PeriodEnd)
	}
}

// Without a reserver two interleaved requests can both pass Check; the
// conditional increment in the store must still let only one of them
// spend the free video.
func TestFreeTierCapHoldsWithoutReserver(t *testing.T) {
	cfg := database.Config{DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"}
	db, err := database.Open(context.Background(), cfg, logger.NewDefault("entitlement-test"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users := database.NewUserStore(db)
	projects := database.NewProjectStore(db)
	gate := NewGate(users, projects, nil, logger.NewDefault("entitlement-test"))

	u := &database.User{Email: "race@b.co", PasswordHash: "x", Role: "user", Plan: database.PlanFree}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := gate.Check(ctx, u, 300)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("check %d denied: %+v", i, d)
		}
	}

	if err := gate.Commit(ctx, u, 300); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	err = gate.Commit(ctx, u, 300)
	if apperrors.CodeOf(err) != apperrors.ErrCodeEntitlementDenied {
		t.Fatalf("second commit error = %v, want entitlement denied", err)
	}

	reloaded, err := users.ByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FreeVideosProcessed != 1 {
		t.Errorf("free videos = %d, want exactly 1", reloaded.FreeVideosProcessed)
	}
}
