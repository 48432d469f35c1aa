package risk

import (
	"fmt"
	"strings"

	"github.com/procurewatch/bomrisk/internal/model"
)

// Level derives a risk level from normalized compliance, the raw lifecycle
// text, and the number of known substitute candidates.
//
// substitutionCount semantics:
//   - nil: substitute data was never fetched; the base level stands.
//   - 0:   no substitutes exist; escalate one level (High stays High).
//   - >=1: substitutes exist; the base level stands.
func Level(compliance model.NormalizedCompliance, lifecycleText string, substitutionCount *int) model.RiskLevel {
	base := baseLevel(compliance, lifecycleText)
	if substitutionCount != nil && *substitutionCount == 0 {
		return Escalate(base)
	}
	return base
}

// baseLevel applies the priority-ordered risk rules; first match wins.
func baseLevel(compliance model.NormalizedCompliance, lifecycleText string) model.RiskLevel {
	status := strings.ToLower(lifecycleText)

	switch {
	case compliance.Rohs == model.ComplianceNonCompliant,
		compliance.Reach == model.ComplianceNonCompliant:
		return model.RiskHigh

	case status != "" && containsAny(status, "obsolete", "discontinued", "eol", "end of life"):
		return model.RiskHigh

	case compliance.Rohs == model.ComplianceUnknown,
		compliance.Reach == model.ComplianceUnknown:
		return model.RiskMedium

	case status != "" && containsAny(status, "last time buy", "not for new designs"):
		return model.RiskMedium

	case compliance.Rohs == model.ComplianceCompliant && compliance.Reach == model.ComplianceCompliant:
		if lifecycleText == "" || strings.EqualFold(lifecycleText, "active") {
			return model.RiskLow
		}
		// Compliant but carrying a lifecycle status the rules above did
		// not recognize.
		return model.RiskMedium

	default:
		return model.RiskMedium
	}
}

// Escalate raises a risk level by one step. High is the ceiling.
func Escalate(level model.RiskLevel) model.RiskLevel {
	switch level {
	case model.RiskLow:
		return model.RiskMedium
	case model.RiskMedium:
		return model.RiskHigh
	default:
		return model.RiskHigh
	}
}

// Classify splits part risk into current (already unprocurable or
// non-compliant) and future (drying up) flags. The flags are computed
// independently and may both be set.
func Classify(compliance model.NormalizedCompliance, lifecycleText string, substitutionCount *int) model.PartRiskClassification {
	status := strings.ToLower(lifecycleText)

	current := compliance.Rohs == model.ComplianceNonCompliant ||
		compliance.Reach == model.ComplianceNonCompliant ||
		containsAny(status, "obsolete", "discontinued", "eol", "end of life")

	future := containsAny(status, "not for new designs", "nrnd", "last time buy") ||
		(substitutionCount != nil && *substitutionCount == 0)

	return model.PartRiskClassification{Current: current, Future: future}
}

// Reasons lists the human-readable conditions behind each classification flag.
type Reasons struct {
	CurrentReasons []string `json:"current_reasons"`
	FutureReasons  []string `json:"future_reasons"`
}

// ContributingReasons explains which conditions set each flag of a
// classification. A flag can have several reasons at once, e.g. a part
// that is both RoHS and REACH non-compliant.
func ContributingReasons(compliance model.NormalizedCompliance, lifecycleText string, substitutionCount *int, cls model.PartRiskClassification) Reasons {
	status := strings.TrimSpace(lifecycleText)
	statusLower := strings.ToLower(status)
	var r Reasons

	if cls.Current {
		if compliance.Rohs == model.ComplianceNonCompliant {
			r.CurrentReasons = append(r.CurrentReasons, "RoHS status is non-compliant, so the part is a current risk.")
		}
		if compliance.Reach == model.ComplianceNonCompliant {
			r.CurrentReasons = append(r.CurrentReasons, "REACH status is non-compliant, so the part is a current risk.")
		}
		switch {
		case strings.Contains(statusLower, "obsolete"):
			r.CurrentReasons = append(r.CurrentReasons, fmt.Sprintf("Lifecycle is %s (obsolete), so the part is a current risk.", orDefault(status, "Obsolete")))
		case strings.Contains(statusLower, "discontinued"):
			r.CurrentReasons = append(r.CurrentReasons, fmt.Sprintf("Lifecycle is %s, so the part is a current risk.", orDefault(status, "Discontinued")))
		case strings.Contains(statusLower, "eol"), strings.Contains(statusLower, "end of life"):
			r.CurrentReasons = append(r.CurrentReasons, fmt.Sprintf("Lifecycle is %s (end of life), so the part is a current risk.", orDefault(status, "EOL")))
		}
	}

	if cls.Future {
		switch {
		case strings.Contains(statusLower, "not for new designs"), strings.Contains(statusLower, "nrnd"):
			r.FutureReasons = append(r.FutureReasons, fmt.Sprintf("Lifecycle is %s (not recommended for new designs), so the part is a future risk.", orDefault(status, "NRND")))
		case strings.Contains(statusLower, "last time buy"):
			r.FutureReasons = append(r.FutureReasons, fmt.Sprintf("Lifecycle is %s, so the part is a future risk.", orDefault(status, "Last Time Buy")))
		}
		if substitutionCount != nil && *substitutionCount == 0 {
			r.FutureReasons = append(r.FutureReasons, "No substitute or similar candidates were found, so the part is a future risk.")
		}
	}

	return r
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
