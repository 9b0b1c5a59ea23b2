package entitlement

import "github.com/clipscribe/clipscribe/internal/database"

// Limits caps what a plan may process in one billing period.
type Limits struct {
	// VideosPerPeriod is the number of videos a paid plan may process
	// per billing month. For the free plan it is the lifetime cap.
	VideosPerPeriod int
	// PerVideoMaxSeconds bounds a single video's duration.
	PerVideoMaxSeconds float64
}

// FreeLifetimeDurationSeconds is the free tier's lifetime total duration
// cap across all videos.
const FreeLifetimeDurationSeconds = 600.0

var planLimits = map[string]Limits{
	database.PlanFree:       {VideosPerPeriod: 1, PerVideoMaxSeconds: 600},
	database.PlanCreator:    {VideosPerPeriod: 10, PerVideoMaxSeconds: 600},
	database.PlanPro:        {VideosPerPeriod: 1000, PerVideoMaxSeconds: 3600},
	database.PlanEnterprise: {VideosPerPeriod: 1_000_000, PerVideoMaxSeconds: 86_400},
}

// LimitsFor returns the caps for a plan. Unknown plans get free-tier
// limits.
func LimitsFor(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[database.PlanFree]
}
