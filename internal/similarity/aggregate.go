package similarity

import (
	"math"

	"github.com/procurewatch/bomrisk/internal/model"
)

// ComparableParameters filters an evaluation list down to the entries where
// both sides carried a real value.
func ComparableParameters(evals []model.ParameterEvaluation) []model.ParameterEvaluation {
	var out []model.ParameterEvaluation
	for _, p := range evals {
		if IsComparableParameter(p) {
			out = append(out, p)
		}
	}
	return out
}

// AverageScore is the rounded mean score over comparable entries. ok is
// false when nothing was comparable; 0 would read as "maximally dissimilar"
// when the real situation is "nothing to compare".
func AverageScore(evals []model.ParameterEvaluation) (int, bool) {
	comparable := ComparableParameters(evals)
	if len(comparable) == 0 {
		return 0, false
	}
	var sum int
	for _, p := range comparable {
		sum += p.Score
	}
	return int(math.Round(float64(sum) / float64(len(comparable)))), true
}

// Confidence reports how much of an evaluation was actually comparable.
// It is a separate axis from the score: the score is never discounted by it.
type Confidence struct {
	TotalParams            int     `json:"total_params"`
	ComparableParams       int     `json:"comparable_params"`
	ConfidenceRatioPercent float64 `json:"confidence_ratio_percent"`
}

// ComputeConfidence measures the comparable fraction of a single
// evaluation list.
func ComputeConfidence(evals []model.ParameterEvaluation) Confidence {
	c := Confidence{
		TotalParams:      len(evals),
		ComparableParams: len(ComparableParameters(evals)),
	}
	if c.TotalParams > 0 {
		c.ConfidenceRatioPercent = float64(c.ComparableParams) / float64(c.TotalParams) * 100
	}
	return c
}

// ConfidenceWithFixedDenominator measures the comparable count against an
// externally fixed total, so confidence percentages stay comparable across
// candidates evaluated against the same target even when each candidate
// reported a different number of parameters.
func ConfidenceWithFixedDenominator(targetTotalCount int, evals []model.ParameterEvaluation) Confidence {
	c := Confidence{
		TotalParams:      targetTotalCount,
		ComparableParams: len(ComparableParameters(evals)),
	}
	if targetTotalCount > 0 {
		c.ConfidenceRatioPercent = float64(c.ComparableParams) / float64(targetTotalCount) * 100
	}
	return c
}

// TargetTotalParamCount counts the distinct parameter ids across candidate
// evaluation lists. This is the canonical denominator for
// ConfidenceWithFixedDenominator.
func TargetTotalParamCount(evalLists [][]model.ParameterEvaluation) int {
	ids := make(map[string]struct{})
	for _, evals := range evalLists {
		for _, p := range evals {
			ids[p.ParameterID] = struct{}{}
		}
	}
	return len(ids)
}

// FlaggedEvaluation is a ParameterEvaluation annotated with its
// comparability, for JSON export.
type FlaggedEvaluation struct {
	model.ParameterEvaluation
	IsComparable bool `json:"is_comparable"`
}

// WithComparableFlags annotates each evaluation with its comparability.
func WithComparableFlags(evals []model.ParameterEvaluation) []FlaggedEvaluation {
	out := make([]FlaggedEvaluation, len(evals))
	for i, p := range evals {
		out[i] = FlaggedEvaluation{ParameterEvaluation: p, IsComparable: IsComparableParameter(p)}
	}
	return out
}
