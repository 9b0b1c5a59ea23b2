package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan names. Limits for each plan live in the entitlement package.
const (
	PlanFree       = "free"
	PlanCreator    = "creator"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Subscription statuses.
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Project statuses.
const (
	ProjectProcessing = "processing"
	ProjectCompleted  = "completed"
	ProjectFailed     = "failed"
)

// BaseModel carries the common columns for all models.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// BeforeCreate assigns an id when none was set.
func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// User is an account with its subscription state and usage counters.
//
// Paid-period counters reset when the billing period rolls over. Free-tier
// counters are lifetime totals and never reset.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Role         string `gorm:"default:user"`
	LastLoginAt  *time.Time

	Plan                 string `gorm:"default:free"`
	SubscriptionStatus   string `gorm:"default:inactive"`
	SubscriptionRenewsAt *time.Time

	PeriodStart               *time.Time
	PeriodEnd                 *time.Time
	VideosProcessedInPeriod   int     `gorm:"default:0"`
	DurationProcessedInPeriod float64 `gorm:"default:0"`

	FreeVideosProcessed   int     `gorm:"default:0"`
	FreeDurationProcessed float64 `gorm:"default:0"`

	// FreeSlotHeldUntil is the expiry of the free tier's in-flight
	// admission lease when no Redis reserver is configured.
	FreeSlotHeldUntil *time.Time
}

// Project is a transcription job and its stored result.
type Project struct {
	BaseModel
	UserID uuid.UUID `gorm:"type:uuid;index;not null"`
	Title  string
	Status string `gorm:"default:processing;index"`

	SourceURL       string
	Quality         string
	Language        string
	DurationSeconds float64

	FullText     string `gorm:"type:text"`
	SegmentsJSON string `gorm:"type:text"`
	SRT          string `gorm:"type:text"`
	VTT          string `gorm:"type:text"`
	WordCount    int
	SegmentCount int
	FailedChunks int
}

// Payment records a checkout order and its verification outcome.
type Payment struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`
	OrderID     string    `gorm:"uniqueIndex;not null"`
	PaymentID   string
	Plan        string
	AmountCents int64
	Currency    string `gorm:"default:USD"`
	Status      string `gorm:"default:created"`
}
