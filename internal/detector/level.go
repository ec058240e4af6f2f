package detector

import "strings"

// ThreatLevel is the severity of a verdict. Levels are ordered
// unknown < safe < medium < high < critical.
type ThreatLevel string

const (
	LevelUnknown  ThreatLevel = "unknown"
	LevelSafe     ThreatLevel = "safe"
	LevelMedium   ThreatLevel = "medium"
	LevelHigh     ThreatLevel = "high"
	LevelCritical ThreatLevel = "critical"
)

var levelRank = map[ThreatLevel]int{
	LevelUnknown:  0,
	LevelSafe:     1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// Rank returns the position of l in the severity order; unrecognized levels rank lowest.
func (l ThreatLevel) Rank() int {
	return levelRank[l]
}

// AtLeast reports whether l is as severe as other.
func (l ThreatLevel) AtLeast(other ThreatLevel) bool {
	return l.Rank() >= other.Rank()
}

// ParseThreatLevel parses a level name case-insensitively.
func ParseThreatLevel(s string) (ThreatLevel, bool) {
	l := ThreatLevel(strings.ToLower(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}
