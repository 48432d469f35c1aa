package risk

import (
	"strings"

	"github.com/procurewatch/bomrisk/internal/model"
)

// BuildEvidence assembles the display evidence behind a risk verdict from a
// vendor product record. Raw vendor strings are preferred; when a vendor
// field is blank the normalized label is shown instead so the row is never
// empty for a part that was actually fetched.
func BuildEvidence(product model.UnifiedProduct, compliance model.NormalizedCompliance) model.RiskEvidence {
	ev := model.RiskEvidence{
		Lifecycle:    strings.TrimSpace(product.LifecycleStatus),
		Rohs:         strings.TrimSpace(product.RohsStatus),
		Reach:        strings.TrimSpace(product.ReachStatus),
		ProductURL:   strings.TrimSpace(product.ProductURL),
		DatasheetURL: strings.TrimSpace(product.DatasheetURL),
	}
	if ev.Rohs == "" {
		ev.Rohs = string(compliance.Rohs)
	}
	if ev.Reach == "" {
		ev.Reach = string(compliance.Reach)
	}
	return ev
}
