package similarity

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/procurewatch/bomrisk/internal/model"
)

// missingLiterals are placeholder values that mean "no data" after
// trimming, width folding, and lowercasing.
var missingLiterals = map[string]struct{}{
	"-":             {},
	"—":             {},
	"n/a":           {},
	"na":            {},
	"not specified": {},
	"not available": {},
}

// referencePhrases mark values that defer to an external table, graph, or
// URL instead of stating a number. Japanese datasheets use the 参照 forms.
var referencePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)refer\s+to\s+url`),
	regexp.MustCompile(`(?i)refer\s+to\s+https`),
	regexp.MustCompile(`(?i)see\s+table`),
	regexp.MustCompile(`(?i)see\s+graph`),
	regexp.MustCompile(`(?i)see\s+cap\s+chart`),
	regexp.MustCompile(`(?i)see\s+packaging\s+codes`),
	regexp.MustCompile(`(?i)see\s+.*\s+table`),
	regexp.MustCompile(`(?i)individual\s+part\s+number\s+specification`),
	regexp.MustCompile(`数値比較不能`),
	regexp.MustCompile(`比較不能`),
	regexp.MustCompile(`直接比較不可`),
	regexp.MustCompile(`別表参照`),
	regexp.MustCompile(`表参照`),
	regexp.MustCompile(`グラフ参照`),
}

// IsComparableValue reports whether a single parameter value carries real
// data worth comparing. Missing values, placeholder literals, and
// reference-only phrases are not comparable. Full-width characters are
// folded first so "－" and "ＮＡ" behave like their ASCII forms.
func IsComparableValue(value *string) bool {
	if value == nil {
		return false
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return false
	}

	folded := width.Fold.String(trimmed)
	if _, missing := missingLiterals[strings.ToLower(strings.TrimSpace(folded))]; missing {
		return false
	}
	for _, re := range referencePhrases {
		if re.MatchString(trimmed) || re.MatchString(folded) {
			return false
		}
	}
	return true
}

// IsComparableParameter reports whether an evaluation compared two real
// values. One missing side is enough to disqualify the pair.
func IsComparableParameter(p model.ParameterEvaluation) bool {
	return IsComparableValue(p.TargetValue) && IsComparableValue(p.CandidateValue)
}
