package detector

import "github.com/tphakala/phishguard/internal/heuristics"

// Detection method names, in tier order.
const (
	MethodLocalDatabase    = "local_database"
	MethodURLhaus          = "urlhaus"
	MethodURLhausHost      = "urlhaus_host"
	MethodPhishTank        = "phish_tank"
	MethodPatternAnalysis  = "pattern_analysis"
	MethodURLStructure     = "url_structure"
	MethodRegionalSpecific = "regional_specific"
)

// Confidence contributions per tier. The local database tier adds the stored
// record confidence instead of a constant.
const (
	weightURLhaus           = 0.95
	weightURLhausHostExtra  = 0.1 // host evidence on top of a URL hit
	weightURLhausHost       = 0.85
	weightPhishTank         = 0.8
	weightPatternMultiplier = 0.4
	weightURLStructure      = 0.2
	weightRegional          = 0.4

	// pattern scores above this escalate straight to high
	patternHighScore = 0.7
)

// Thresholds gate the heuristic tiers; a score must exceed its threshold to count.
type Thresholds struct {
	Pattern   float64
	Structure float64
	Regional  float64
}

// DefaultThresholds returns the stock heuristic thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Pattern:   heuristics.PatternThreshold,
		Structure: heuristics.StructureThreshold,
		Regional:  heuristics.RegionalThreshold,
	}
}
