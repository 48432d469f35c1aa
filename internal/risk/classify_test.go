package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewatch/bomrisk/internal/model"
)

func intPtr(n int) *int { return &n }

func compliance(rohs, reach model.ComplianceStatus) model.NormalizedCompliance {
	return model.NormalizedCompliance{Rohs: rohs, Reach: reach}
}

func TestLevel_BaseRules(t *testing.T) {
	tests := []struct {
		name      string
		c         model.NormalizedCompliance
		lifecycle string
		want      model.RiskLevel
	}{
		{"both compliant active", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Active", model.RiskLow},
		{"both compliant no status", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "", model.RiskLow},
		{"rohs non-compliant", compliance(model.ComplianceNonCompliant, model.ComplianceCompliant), "Active", model.RiskHigh},
		{"reach non-compliant", compliance(model.ComplianceCompliant, model.ComplianceNonCompliant), "Active", model.RiskHigh},
		{"obsolete status", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Obsolete", model.RiskHigh},
		{"discontinued status", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Discontinued at Digi-Key", model.RiskHigh},
		{"eol status", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "End of Life", model.RiskHigh},
		{"rohs unknown", compliance(model.ComplianceUnknown, model.ComplianceCompliant), "Active", model.RiskMedium},
		{"reach unknown", compliance(model.ComplianceCompliant, model.ComplianceUnknown), "", model.RiskMedium},
		{"last time buy", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Last Time Buy", model.RiskMedium},
		{"nfnd", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Not For New Designs", model.RiskMedium},
		{"compliant but odd status", compliance(model.ComplianceCompliant, model.ComplianceCompliant), "Preliminary", model.RiskMedium},
		{"na compliance falls through", compliance(model.ComplianceNA, model.ComplianceNA), "", model.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Level(tt.c, tt.lifecycle, nil))
		})
	}
}

func TestLevel_SubstituteEscalation(t *testing.T) {
	both := compliance(model.ComplianceCompliant, model.ComplianceCompliant)

	// 5 substitutes: no change.
	assert.Equal(t, model.RiskLow, Level(both, "Active", intPtr(5)))
	// 0 substitutes: Low escalates to Medium.
	assert.Equal(t, model.RiskMedium, Level(both, "Active", intPtr(0)))
	// 0 substitutes on a Medium base: escalates to High.
	assert.Equal(t, model.RiskHigh, Level(compliance(model.ComplianceUnknown, model.ComplianceCompliant), "", intPtr(0)))
	// Already High: escalation is a no-op.
	assert.Equal(t, model.RiskHigh, Level(compliance(model.ComplianceNonCompliant, model.ComplianceCompliant), "Active", intPtr(0)))
	// nil count never escalates.
	assert.Equal(t, model.RiskMedium, Level(compliance(model.ComplianceUnknown, model.ComplianceCompliant), "", nil))
}

func TestEscalate(t *testing.T) {
	assert.Equal(t, model.RiskMedium, Escalate(model.RiskLow))
	assert.Equal(t, model.RiskHigh, Escalate(model.RiskMedium))
	assert.Equal(t, model.RiskHigh, Escalate(model.RiskHigh))
}

func TestClassify(t *testing.T) {
	both := compliance(model.ComplianceCompliant, model.ComplianceCompliant)

	t.Run("clean part", func(t *testing.T) {
		cls := Classify(both, "Active", intPtr(3))
		assert.False(t, cls.Current)
		assert.False(t, cls.Future)
	})

	t.Run("non-compliant is current", func(t *testing.T) {
		cls := Classify(compliance(model.ComplianceNonCompliant, model.ComplianceCompliant), "Active", intPtr(3))
		assert.True(t, cls.Current)
		assert.False(t, cls.Future)
	})

	t.Run("obsolete is current", func(t *testing.T) {
		cls := Classify(both, "Obsolete", nil)
		assert.True(t, cls.Current)
		assert.False(t, cls.Future)
	})

	t.Run("nrnd is future", func(t *testing.T) {
		cls := Classify(both, "NRND", intPtr(2))
		assert.False(t, cls.Current)
		assert.True(t, cls.Future)
	})

	t.Run("zero substitutes is future", func(t *testing.T) {
		cls := Classify(both, "Active", intPtr(0))
		assert.False(t, cls.Current)
		assert.True(t, cls.Future)
	})

	t.Run("nil substitute count is not future", func(t *testing.T) {
		cls := Classify(both, "Active", nil)
		assert.False(t, cls.Future)
	})

	t.Run("both flags at once", func(t *testing.T) {
		cls := Classify(compliance(model.ComplianceNonCompliant, model.ComplianceCompliant), "Last Time Buy", intPtr(0))
		assert.True(t, cls.Current)
		assert.True(t, cls.Future)
	})
}

func TestContributingReasons(t *testing.T) {
	t.Run("multiple current reasons", func(t *testing.T) {
		c := compliance(model.ComplianceNonCompliant, model.ComplianceNonCompliant)
		cls := Classify(c, "Obsolete", nil)
		r := ContributingReasons(c, "Obsolete", nil, cls)
		require.Len(t, r.CurrentReasons, 3)
		assert.Contains(t, r.CurrentReasons[0], "RoHS")
		assert.Contains(t, r.CurrentReasons[1], "REACH")
		assert.Contains(t, r.CurrentReasons[2], "Obsolete")
		assert.Empty(t, r.FutureReasons)
	})

	t.Run("future from zero substitutes only", func(t *testing.T) {
		c := compliance(model.ComplianceCompliant, model.ComplianceCompliant)
		cls := Classify(c, "Active", intPtr(0))
		r := ContributingReasons(c, "Active", intPtr(0), cls)
		assert.Empty(t, r.CurrentReasons)
		require.Len(t, r.FutureReasons, 1)
		assert.Contains(t, r.FutureReasons[0], "substitute")
	})

	t.Run("no flags no reasons", func(t *testing.T) {
		c := compliance(model.ComplianceCompliant, model.ComplianceCompliant)
		cls := Classify(c, "Active", intPtr(4))
		r := ContributingReasons(c, "Active", intPtr(4), cls)
		assert.Empty(t, r.CurrentReasons)
		assert.Empty(t, r.FutureReasons)
	})

	t.Run("nrnd and zero substitutes stack", func(t *testing.T) {
		c := compliance(model.ComplianceCompliant, model.ComplianceCompliant)
		cls := Classify(c, "NRND", intPtr(0))
		r := ContributingReasons(c, "NRND", intPtr(0), cls)
		require.Len(t, r.FutureReasons, 2)
	})
}

func TestBuildEvidence(t *testing.T) {
	p := model.UnifiedProduct{
		LifecycleStatus: "Active",
		RohsStatus:      "ROHS3 Compliant",
		ReachStatus:     "",
		ProductURL:      "https://www.digikey.com/p/123",
	}
	ev := BuildEvidence(p, compliance(model.ComplianceCompliant, model.ComplianceCompliant))
	assert.Equal(t, "Active", ev.Lifecycle)
	assert.Equal(t, "ROHS3 Compliant", ev.Rohs)
	// Blank vendor field falls back to the normalized label.
	assert.Equal(t, "Compliant", ev.Reach)
	assert.Equal(t, "https://www.digikey.com/p/123", ev.ProductURL)
	assert.Empty(t, ev.DatasheetURL)
}
