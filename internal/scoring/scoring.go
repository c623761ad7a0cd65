// Package scoring computes the lead quality score, a pure function of the
// company profile and contact bundle.
package scoring

import (
	"math"
	"strings"

	"github.com/sells-group/leadintel/internal/model"
)

// Score bounds and the starting value of every lead.
const (
	Base = 5.0
	Max  = 10.0
	Min  = 0.0
)

var (
	largeSizePatterns = []string{"200+", "50-200", "201-500", "500+", "1000+", "enterprise", "large"}
	midSizePatterns   = []string{"10-50", "11-50", "medium", "mid"}
)

// SizeBonus returns the size-bucket contribution. Large wins over mid.
func SizeBonus(size string) float64 {
	s := strings.ToLower(size)
	switch {
	case containsAny(s, largeSizePatterns):
		return 2
	case containsAny(s, midSizePatterns):
		return 1
	default:
		return 0
	}
}

// Score returns a value in [0, 10] rounded to one decimal.
func Score(p model.CompanyProfile, c model.ContactBundle) float64 {
	score := Base + SizeBonus(p.Size)

	if c.HasEmail() {
		score += 1
	}
	if c.HasPhone() {
		score += 0.5
	}
	if c.HasSocial() {
		score += 0.5
	}

	if len(p.Services) >= 3 {
		score += 1
	}
	if len(p.KeyDifferentiators) >= 3 {
		score += 0.5
	}
	if len(p.Technologies) >= 2 {
		score += 0.5
	}

	return Round1(math.Max(Min, math.Min(Max, score)))
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
