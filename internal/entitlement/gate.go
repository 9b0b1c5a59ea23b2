package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/logger"
)

// UsageStore persists usage counters and subscription transitions.
type UsageStore interface {
	CommitFreeUsage(ctx context.Context, userID uuid.UUID, durationSeconds float64, videoCap int) error
	CommitPaidUsage(ctx context.Context, userID uuid.UUID, durationSeconds float64, periodStart, periodEnd time.Time) error
	ExpireSubscription(ctx context.Context, userID uuid.UUID) error
}

// ProjectCounter supplies the authoritative completed-project count,
// used to reconcile the cached free-tier counter.
type ProjectCounter interface {
	CountCompletedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Reserver admits requests atomically against a concurrent limit.
type Reserver interface {
	Reserve(ctx context.Context, userID string, committed, limit int) (bool, error)
	Release(ctx context.Context, userID string) error
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed         bool          `json:"allowed"`
	Reason          string        `json:"reason,omitempty"`
	RequiresUpgrade bool          `json:"requiresUpgrade,omitempty"`
	Usage           UsageSnapshot `json:"usage"`
}

// UsageSnapshot reports current counters alongside a decision.
type UsageSnapshot struct {
	Plan                    string     `json:"plan"`
	VideosUsed              int        `json:"videosUsed"`
	VideoLimit              int        `json:"videoLimit"`
	DurationUsedSeconds     float64    `json:"durationUsedSeconds"`
	PerVideoMaxSeconds      float64    `json:"perVideoMaxSeconds"`
	LifetimeDurationSeconds float64    `json:"lifetimeDurationSeconds,omitempty"`
	PeriodEnd               *time.Time `json:"periodEnd,omitempty"`
}

// Gate is the entitlement state machine.
type Gate struct {
	users    UsageStore
	projects ProjectCounter
	reserver Reserver
	log      *logger.Logger
	now      func() time.Time
}

// NewGate creates a Gate. reserver holds the free tier's in-flight
// admission slot; deployments pass either the Redis reservation store or
// the database-backed lease. A nil reserver disables the in-flight guard;
// the store's conditional commit still enforces the durable cap.
func NewGate(users UsageStore, projects ProjectCounter, reserver Reserver, log *logger.Logger) *Gate {
	return &Gate{
		users:    users,
		projects: projects,
		reserver: reserver,
		log:      log.WithComponent("entitlement"),
		now:      time.Now,
	}
}

func allow(snapshot UsageSnapshot) Decision {
	return Decision{Allowed: true, Usage: snapshot}
}

func deny(snapshot UsageSnapshot, reason string, upgrade bool) Decision {
	return Decision{Allowed: false, Reason: reason, RequiresUpgrade: upgrade, Usage: snapshot}
}

// Check decides whether the user may start a transcription of the
// estimated duration. The estimate is a byte-size proxy; Commit later
// records the adapter-reported actual duration.
func (g *Gate) Check(ctx context.Context, user *database.User, estimatedDurationSeconds float64) (Decision, error) {
	if user.Role == "admin" {
		return allow(UsageSnapshot{Plan: user.Plan}), nil
	}

	user, err := g.applyLazyExpiry(ctx, user)
	if err != nil {
		return Decision{}, err
	}

	if g.paidRulesApply(user) {
		return g.checkPaid(user, estimatedDurationSeconds)
	}
	return g.checkFree(ctx, user, estimatedDurationSeconds)
}

// Usage returns the current counters for the user without reserving an
// admission slot. It applies the same lazy expiry and reconciliation as
// Check, so the snapshot matches what a check at this instant would see.
func (g *Gate) Usage(ctx context.Context, user *database.User) (UsageSnapshot, error) {
	if user.Role == "admin" {
		return UsageSnapshot{Plan: user.Plan}, nil
	}

	user, err := g.applyLazyExpiry(ctx, user)
	if err != nil {
		return UsageSnapshot{}, err
	}

	if g.paidRulesApply(user) {
		limits := LimitsFor(user.Plan)
		videosUsed, durationUsed := g.effectivePaidCounters(user)
		return UsageSnapshot{
			Plan:                user.Plan,
			VideosUsed:          videosUsed,
			VideoLimit:          limits.VideosPerPeriod,
			DurationUsedSeconds: durationUsed,
			PerVideoMaxSeconds:  limits.PerVideoMaxSeconds,
			PeriodEnd:           user.PeriodEnd,
		}, nil
	}

	limits := LimitsFor(database.PlanFree)
	videosUsed, err := g.reconcileFreeCount(ctx, user)
	if err != nil {
		return UsageSnapshot{}, err
	}
	return UsageSnapshot{
		Plan:                    database.PlanFree,
		VideosUsed:              videosUsed,
		VideoLimit:              limits.VideosPerPeriod,
		DurationUsedSeconds:     user.FreeDurationProcessed,
		PerVideoMaxSeconds:      limits.PerVideoMaxSeconds,
		LifetimeDurationSeconds: FreeLifetimeDurationSeconds,
	}, nil
}

// paidRulesApply reports whether the paid-plan state machine governs
// this user. A paid plan that was never activated or was cancelled falls
// back to free-tier rules.
func (g *Gate) paidRulesApply(user *database.User) bool {
	if !g.isPaid(user) {
		return false
	}
	return user.SubscriptionStatus == database.SubscriptionActive ||
		user.SubscriptionStatus == database.SubscriptionExpired
}

// applyLazyExpiry transitions an active subscription to expired the
// first time a check observes a past renewal time. The write-back
// happens before the decision for the current request.
func (g *Gate) applyLazyExpiry(ctx context.Context, user *database.User) (*database.User, error) {
	if user.SubscriptionStatus != database.SubscriptionActive ||
		user.SubscriptionRenewsAt == nil ||
		g.now().Before(*user.SubscriptionRenewsAt) {
		return user, nil
	}

	if err := g.users.ExpireSubscription(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("expire subscription: %w", err)
	}
	g.log.Info("subscription lapsed", map[string]interface{}{
		"user_id":   user.ID.String(),
		"plan":      user.Plan,
		"renews_at": user.SubscriptionRenewsAt,
	})
	updated := *user
	updated.SubscriptionStatus = database.SubscriptionExpired
	return &updated, nil
}

func (g *Gate) isPaid(user *database.User) bool {
	return user.Plan != database.PlanFree && user.Plan != ""
}

func (g *Gate) checkPaid(user *database.User, estimated float64) (Decision, error) {
	limits := LimitsFor(user.Plan)

	videosUsed, durationUsed := g.effectivePaidCounters(user)
	snapshot := UsageSnapshot{
		Plan:                user.Plan,
		VideosUsed:          videosUsed,
		VideoLimit:          limits.VideosPerPeriod,
		DurationUsedSeconds: durationUsed,
		PerVideoMaxSeconds:  limits.PerVideoMaxSeconds,
		PeriodEnd:           user.PeriodEnd,
	}

	if user.SubscriptionStatus == database.SubscriptionExpired {
		return deny(snapshot, "subscription expired; renew to continue", true), nil
	}
	if videosUsed >= limits.VideosPerPeriod {
		return deny(snapshot, fmt.Sprintf("monthly video limit of %d reached", limits.VideosPerPeriod), false), nil
	}
	if estimated > limits.PerVideoMaxSeconds {
		return deny(snapshot, fmt.Sprintf("video exceeds the %s plan's per-video limit of %.0f seconds", user.Plan, limits.PerVideoMaxSeconds), false), nil
	}
	return allow(snapshot), nil
}

// effectivePaidCounters returns the period counters, treating them as
// zero when the stored period has lapsed. The durable reset happens at
// the next commit.
func (g *Gate) effectivePaidCounters(user *database.User) (int, float64) {
	if user.PeriodEnd != nil && !g.now().Before(*user.PeriodEnd) {
		return 0, 0
	}
	return user.VideosProcessedInPeriod, user.DurationProcessedInPeriod
}

func (g *Gate) checkFree(ctx context.Context, user *database.User, estimated float64) (Decision, error) {
	limits := LimitsFor(database.PlanFree)

	videosUsed, err := g.reconcileFreeCount(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	snapshot := UsageSnapshot{
		Plan:                    database.PlanFree,
		VideosUsed:              videosUsed,
		VideoLimit:              limits.VideosPerPeriod,
		DurationUsedSeconds:     user.FreeDurationProcessed,
		PerVideoMaxSeconds:      limits.PerVideoMaxSeconds,
		LifetimeDurationSeconds: FreeLifetimeDurationSeconds,
	}

	if videosUsed >= limits.VideosPerPeriod {
		return deny(snapshot, "free tier limit reached: 1 video per account", true), nil
	}
	if estimated > limits.PerVideoMaxSeconds {
		return deny(snapshot, "free tier supports videos up to 10 minutes", true), nil
	}
	if user.FreeDurationProcessed+estimated > FreeLifetimeDurationSeconds {
		return deny(snapshot, "free tier total duration limit reached", true), nil
	}

	if g.reserver != nil {
		ok, err := g.reserver.Reserve(ctx, user.ID.String(), videosUsed, limits.VideosPerPeriod)
		if err != nil {
			return Decision{}, fmt.Errorf("reserve free slot: %w", err)
		}
		if !ok {
			return deny(snapshot, "another transcription is already using your free video", true), nil
		}
	}
	return allow(snapshot), nil
}

// reconcileFreeCount reconciles the cached lifetime counter against the
// authoritative completed-project count, taking the maximum.
func (g *Gate) reconcileFreeCount(ctx context.Context, user *database.User) (int, error) {
	cached := user.FreeVideosProcessed
	completed, err := g.projects.CountCompletedByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("count completed projects: %w", err)
	}
	if int(completed) > cached {
		return int(completed), nil
	}
	return cached, nil
}

// Commit records usage for one completed transcription attempt. It is
// called exactly once per attempt with the actual processed duration,
// regardless of which processing path ran, and even when result
// persistence failed.
func (g *Gate) Commit(ctx context.Context, user *database.User, actualDurationSeconds float64) error {
	if user.Role == "admin" {
		// Admins are not limited; usage MAY be recorded elsewhere for
		// observability only.
		return nil
	}

	if g.isPaid(user) && user.SubscriptionStatus == database.SubscriptionActive {
		periodStart, periodEnd := g.currentPeriod(user)
		return g.users.CommitPaidUsage(ctx, user.ID, actualDurationSeconds, periodStart, periodEnd)
	}

	err := g.users.CommitFreeUsage(ctx, user.ID, actualDurationSeconds, LimitsFor(database.PlanFree).VideosPerPeriod)
	if g.reserver != nil {
		if relErr := g.reserver.Release(ctx, user.ID.String()); relErr != nil {
			g.log.Warn("release free slot failed", map[string]interface{}{
				"user_id": user.ID.String(),
				"error":   relErr.Error(),
			})
		}
	}
	return err
}

// Abandon releases a free-tier admission slot for a request that ended
// without a commit (validation failure after check, cancellation before
// any chunk completed).
func (g *Gate) Abandon(ctx context.Context, user *database.User) {
	if g.reserver == nil || g.isPaid(user) || user.Role == "admin" {
		return
	}
	if err := g.reserver.Release(ctx, user.ID.String()); err != nil {
		g.log.Warn("release free slot failed", map[string]interface{}{
			"user_id": user.ID.String(),
			"error":   err.Error(),
		})
	}
}

// currentPeriod returns the billing window containing now, advancing
// whole months from the stored period start. The first commit after a
// boundary crossing lands in the advanced window, triggering the counter
// reset in the store.
func (g *Gate) currentPeriod(user *database.User) (time.Time, time.Time) {
	now := g.now().UTC()
	if user.PeriodStart == nil {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}

	start := user.PeriodStart.UTC()
	end := start.AddDate(0, 1, 0)
	for !now.Before(end) {
		start = end
		end = start.AddDate(0, 1, 0)
	}
	return start, end
}
