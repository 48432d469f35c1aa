package similarity

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MatchResult is the outcome of comparing two parameter values.
type MatchResult struct {
	Score   int  `json:"score"` // 0-100
	Matched bool `json:"matched"`
}

// match dispatches to the matcher configured for this parameter. All
// matchers are total over arbitrary strings: unparseable input scores 0.
func (p Parameter) match(target, candidate string) MatchResult {
	switch p.Matcher {
	case MatcherNumeric:
		return matchNumeric(target, candidate, p.Tolerance)
	case MatcherTolerance:
		return matchTolerance(target, candidate)
	case MatcherRange:
		return matchRange(target, candidate)
	default:
		return matchExact(target, candidate)
	}
}

// matchExact scores 100 on case-insensitive, whitespace-trimmed equality.
func matchExact(target, candidate string) MatchResult {
	if target == "" || candidate == "" {
		return MatchResult{}
	}
	t := strings.ToLower(strings.TrimSpace(target))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if t == c {
		return MatchResult{Score: 100, Matched: true}
	}
	return MatchResult{}
}

// matchNumeric compares the first numeric literal of each value by ratio.
// Inside the tolerance band the score decays linearly from 100 at an exact
// ratio to 80 at the band edge; outside it decays with distance and counts
// as matched only at 50 or above.
func matchNumeric(target, candidate string, tolerance float64) MatchResult {
	if target == "" || candidate == "" {
		return MatchResult{}
	}
	if tolerance <= 0 {
		tolerance = defaultNumericTolerance
	}

	t, ok := extractNumber(target)
	if !ok {
		return MatchResult{}
	}
	c, ok := extractNumber(candidate)
	if !ok {
		return MatchResult{}
	}
	if t == 0 {
		return MatchResult{}
	}

	dist := math.Abs(1 - c/t)
	if dist <= tolerance {
		score := math.Max(80, 100-(dist/tolerance)*20)
		return MatchResult{Score: int(math.Round(score)), Matched: true}
	}

	score := math.Max(0, 100-dist*100)
	return MatchResult{Score: int(math.Round(score)), Matched: score >= 50}
}

// matchTolerance treats the target as a minimum rating: any candidate at or
// above it is a full match. Below it the score is the ratio, never matched.
func matchTolerance(target, candidate string) MatchResult {
	if target == "" || candidate == "" {
		return MatchResult{}
	}

	t, ok := extractNumber(target)
	if !ok {
		return MatchResult{}
	}
	c, ok := extractNumber(candidate)
	if !ok {
		return MatchResult{}
	}

	if c >= t {
		return MatchResult{Score: 100, Matched: true}
	}
	if t == 0 {
		return MatchResult{}
	}
	score := int(math.Round(c / t * 100))
	if score < 0 {
		score = 0
	}
	return MatchResult{Score: score}
}

// matchRange compares two intervals like "-55 to 85" or "-55 - 85". The
// score is the overlap measured against the target's width: the target is
// the reference, so a candidate that spans far beyond it is not penalized.
func matchRange(target, candidate string) MatchResult {
	if target == "" || candidate == "" {
		return MatchResult{}
	}

	tMin, tMax, ok := parseRange(target)
	if !ok {
		return MatchResult{}
	}
	cMin, cMax, ok := parseRange(candidate)
	if !ok {
		return MatchResult{}
	}

	overlapStart := math.Max(tMin, cMin)
	overlapEnd := math.Min(tMax, cMax)
	if overlapStart >= overlapEnd {
		return MatchResult{}
	}

	overlapPercent := (overlapEnd - overlapStart) / (tMax - tMin) * 100
	return MatchResult{Score: int(math.Round(overlapPercent)), Matched: overlapPercent >= 50}
}

// numberRe matches the first numeric literal in a value, tolerating signs,
// decimals, and exponents: "DC 6.3 V" -> 6.3, "1e-6 F" -> 1e-6.
var numberRe = regexp.MustCompile(`-?\d+\.?\d*(?:[eE][+-]?\d+)?`)

func extractNumber(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

var rangePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(-?\d+\.?\d*)\s+to\s+(-?\d+\.?\d*)`),
	regexp.MustCompile(`(-?\d+\.?\d*)\s*-\s*(-?\d+\.?\d*)`),
}

func parseRange(s string) (min, max float64, ok bool) {
	for _, re := range rangePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		return lo, hi, true
	}
	return 0, 0, false
}
