// Package risk normalizes distributor compliance and lifecycle strings and
// derives procurement risk verdicts from them. All functions here are pure
// and total: unrecognized input degrades to the Unknown bucket instead of
// returning an error.
package risk

import (
	"strings"

	"github.com/procurewatch/bomrisk/internal/model"
)

// NormalizeCompliance maps free-text vendor RoHS/REACH status to the fixed
// taxonomy. DigiKey reports RoHS as "ROHS3 Compliant" / "RoHS non-compliant"
// and REACH as "REACH Unaffected" / "REACH Affected"; Mouser uses bare
// "Compliant"/"Non-Compliant" strings.
func NormalizeCompliance(raw string) model.ComplianceStatus {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.ComplianceUnknown
	}
	if strings.EqualFold(s, "n/a") {
		return model.ComplianceNA
	}

	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "non-compliant"), strings.Contains(lower, "noncompliant"):
		return model.ComplianceNonCompliant
	case strings.Contains(lower, "compliant"):
		return model.ComplianceCompliant
	}

	if strings.Contains(lower, "reach") {
		// "unaffected" contains "affected", so check it first.
		if strings.Contains(lower, "unaffected") {
			return model.ComplianceCompliant
		}
		if strings.Contains(lower, "affected") {
			return model.ComplianceNonCompliant
		}
	}

	return model.ComplianceUnknown
}

// lifecycleRules maps vendor lifecycle phrases to normalized statuses.
// Obsolete and EOL rules come before NRND: strings like
// "Last Time Buy - Obsolete" must land in the terminal bucket.
var lifecycleRules = []struct {
	phrases []string
	status  model.LifecycleStatus
}{
	{[]string{"obsolete", "discontinued"}, model.LifecycleObsolete},
	{[]string{"end of life", "eol"}, model.LifecycleEOL},
	{[]string{"last time buy", "not for new designs", "nrnd"}, model.LifecycleNRND},
}

// NormalizeLifecycle maps free-text vendor part status to the fixed
// lifecycle taxonomy.
func NormalizeLifecycle(raw string) model.LifecycleStatus {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.LifecycleUnknown
	}
	if strings.EqualFold(s, "n/a") {
		return model.LifecycleNA
	}

	lower := strings.ToLower(s)
	for _, rule := range lifecycleRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.status
			}
		}
	}

	if strings.EqualFold(s, "active") {
		return model.LifecycleActive
	}
	return model.LifecycleUnknown
}
