package model

import "time"

// ParameterEvaluation is one externally-scored parameter comparison,
// typically produced by the LLM datasheet evaluator. Target and candidate
// values are nil when the evaluator had no value for that side.
type ParameterEvaluation struct {
	ParameterID    string  `json:"parameterId"`
	Description    string  `json:"description"`
	TargetValue    *string `json:"targetValue"`
	CandidateValue *string `json:"candidateValue"`
	Score          int     `json:"score"` // 0-100
	Reason         string  `json:"reason"`
}

// EvaluationReport is a full evaluator run for one target/candidate pair.
type EvaluationReport struct {
	TargetID    string                `json:"targetId"`
	CandidateID string                `json:"candidateId"`
	EvaluatedAt time.Time             `json:"evaluatedAt"`
	Summary     string                `json:"summary"`
	Parameters  []ParameterEvaluation `json:"parameters"`
}
