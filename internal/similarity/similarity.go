package similarity

import (
	"math"

	"github.com/procurewatch/bomrisk/internal/model"
)

// Status records how a registry parameter fared in one comparison.
type Status string

const (
	StatusCompared      Status = "compared"
	StatusTargetOnly    Status = "target_only"
	StatusCandidateOnly Status = "candidate_only"
	StatusBothMissing   Status = "both_missing"
	StatusExcluded      Status = "excluded"
)

// ParameterScore is the breakdown entry for one registry parameter.
// Only compared entries carry a meaningful score.
type ParameterScore struct {
	ParameterID    string  `json:"parameter_id"` // "<source>:<id>"
	DisplayName    string  `json:"display_name"`
	Score          int     `json:"score"`
	Matched        bool    `json:"matched"`
	TargetValue    *string `json:"target_value"`
	CandidateValue *string `json:"candidate_value"`
	Status         Status  `json:"status"`
	ExcludeReason  string  `json:"exclude_reason,omitempty"`
}

// Result is a full similarity computation: the weighted total over the
// compared subset plus the per-parameter breakdown. TotalScore is 0 when
// nothing was comparable.
type Result struct {
	TotalScore int              `json:"total_score"`
	Breakdown  []ParameterScore `json:"breakdown"`
}

// Calculator scores candidate parts against a target using a comparison
// registry. The zero-cost construction makes it safe to share across
// goroutines; Calculate touches no shared state.
type Calculator struct {
	registry *Registry
}

// NewCalculator returns a Calculator over the given registry, or the
// built-in default when registry is nil.
func NewCalculator(registry *Registry) *Calculator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Calculator{registry: registry}
}

// Calculate compares every registry parameter between target and candidate
// and aggregates a weighted mean over the entries where both sides carried
// a value. The breakdown always has one entry per registry parameter, in
// registry order.
func (c *Calculator) Calculate(target, candidate model.PartParameters) Result {
	targetDist := parameterMap(target.Parameters)
	candidateDist := parameterMap(candidate.Parameters)

	breakdown := make([]ParameterScore, 0, c.registry.Len())
	var weightedSum, weightTotal float64

	for _, param := range c.registry.All() {
		var targetValue, candidateValue *string
		switch param.Source {
		case SourceDigiKey:
			targetValue = targetDist[param.ID]
			candidateValue = candidateDist[param.ID]
		case SourceDatasheet:
			targetValue = datasheetValue(target.DatasheetParameters, param.ID)
			candidateValue = datasheetValue(candidate.DatasheetParameters, param.ID)
		}

		entry := ParameterScore{
			ParameterID:    param.Key(),
			DisplayName:    param.DisplayName,
			TargetValue:    targetValue,
			CandidateValue: candidateValue,
		}

		if param.Excluded {
			entry.Status = StatusExcluded
			entry.ExcludeReason = param.ExcludeReason
			breakdown = append(breakdown, entry)
			continue
		}

		hasTarget := targetValue != nil && *targetValue != ""
		hasCandidate := candidateValue != nil && *candidateValue != ""

		switch {
		case hasTarget && hasCandidate:
			entry.Status = StatusCompared
			res := param.match(*targetValue, *candidateValue)
			entry.Score = res.Score
			entry.Matched = res.Matched
			weightedSum += float64(res.Score) * param.Weight
			weightTotal += param.Weight
		case hasTarget:
			entry.Status = StatusTargetOnly
		case hasCandidate:
			entry.Status = StatusCandidateOnly
		default:
			entry.Status = StatusBothMissing
		}

		breakdown = append(breakdown, entry)
	}

	result := Result{Breakdown: breakdown}
	if weightTotal > 0 {
		result.TotalScore = int(math.Round(weightedSum / weightTotal))
	}
	return result
}

func parameterMap(params []model.Parameter) map[string]*string {
	m := make(map[string]*string, len(params))
	for i := range params {
		m[params[i].Name] = &params[i].Value
	}
	return m
}

func datasheetValue(params map[string]model.DatasheetValue, id string) *string {
	if params == nil {
		return nil
	}
	v, ok := params[id]
	if !ok {
		return nil
	}
	return v.Value
}
