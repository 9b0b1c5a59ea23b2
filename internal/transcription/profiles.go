package transcription

// Quality profile names.
const (
	QualityHigh     = "high"
	QualityBalanced = "balanced"
	QualityFast     = "fast"
)

// Profile holds the decoding trade-off parameters for a quality level.
// Smaller windows with more overlap improve word-boundary accuracy at
// the cost of more decoding passes.
type Profile struct {
	Name           string
	WindowSeconds  float64
	OverlapSeconds float64
}

var profiles = map[string]Profile{
	QualityHigh:     {Name: QualityHigh, WindowSeconds: 15, OverlapSeconds: 3},
	QualityBalanced: {Name: QualityBalanced, WindowSeconds: 30, OverlapSeconds: 5},
	QualityFast:     {Name: QualityFast, WindowSeconds: 60, OverlapSeconds: 2},
}

// ProfileFor returns the profile for a quality name. Unknown or empty
// names fall back to balanced.
func ProfileFor(quality string) Profile {
	if p, ok := profiles[quality]; ok {
		return p
	}
	return profiles[QualityBalanced]
}

// ValidQualities lists the accepted quality names for request validation.
func ValidQualities() []string {
	return []string{QualityHigh, QualityBalanced, QualityFast}
}
