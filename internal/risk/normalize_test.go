package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/procurewatch/bomrisk/internal/model"
)

func TestNormalizeCompliance(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.ComplianceStatus
	}{
		{"empty", "", model.ComplianceUnknown},
		{"whitespace only", "   ", model.ComplianceUnknown},
		{"na literal", "n/a", model.ComplianceNA},
		{"na uppercase", "N/A", model.ComplianceNA},
		{"rohs compliant", "ROHS3 Compliant", model.ComplianceCompliant},
		{"bare compliant", "Compliant", model.ComplianceCompliant},
		{"non-compliant hyphenated", "RoHS Non-Compliant", model.ComplianceNonCompliant},
		{"noncompliant joined", "NonCompliant", model.ComplianceNonCompliant},
		{"reach unaffected", "REACH Unaffected", model.ComplianceCompliant},
		{"reach affected", "REACH Affected", model.ComplianceNonCompliant},
		{"vendor exempt text", "Exempt per Annex III", model.ComplianceUnknown},
		{"gibberish", "contact manufacturer", model.ComplianceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCompliance(tt.raw))
		})
	}
}

// "Compliant" is a substring of "Non-Compliant"; any string carrying the
// negated form must never normalize to Compliant.
func TestNormalizeCompliance_NonCompliantNeverCompliant(t *testing.T) {
	for _, raw := range []string{
		"Non-Compliant",
		"RoHS non-compliant by exemption",
		"NonCompliant",
		"ROHS NonCompliant (contains lead)",
	} {
		assert.Equal(t, model.ComplianceNonCompliant, NormalizeCompliance(raw), "raw=%q", raw)
	}
}

func TestNormalizeLifecycle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want model.LifecycleStatus
	}{
		{"empty", "", model.LifecycleUnknown},
		{"na", "N/A", model.LifecycleNA},
		{"active exact", "Active", model.LifecycleActive},
		{"active lowercase", "active", model.LifecycleActive},
		{"obsolete", "Obsolete", model.LifecycleObsolete},
		{"discontinued at digikey", "Discontinued at Digi-Key", model.LifecycleObsolete},
		{"eol", "EOL", model.LifecycleEOL},
		{"end of life phrase", "End of Life", model.LifecycleEOL},
		{"nrnd", "NRND", model.LifecycleNRND},
		{"not for new designs", "Not For New Designs", model.LifecycleNRND},
		{"last time buy", "Last Time Buy", model.LifecycleNRND},
		{"active in sentence is unknown", "Currently Active Stock", model.LifecycleUnknown},
		{"unrecognized", "Preliminary", model.LifecycleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLifecycle(tt.raw))
		})
	}
}

// Strings that could match both a terminal rule and the NRND rule must land
// in the terminal bucket; the rule order is load-bearing.
func TestNormalizeLifecycle_TerminalBeatsNRND(t *testing.T) {
	assert.Equal(t, model.LifecycleObsolete, NormalizeLifecycle("Last Time Buy - Obsolete"))
	assert.Equal(t, model.LifecycleEOL, NormalizeLifecycle("NRND, End of Life 2027"))
}
