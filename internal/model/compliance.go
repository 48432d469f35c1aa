package model

import "time"

// ComplianceStatus is the normalized RoHS/REACH compliance taxonomy.
// NA means "no data was ever fetched"; Unknown means "fetched but the
// vendor text was ambiguous or unrecognized".
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "Compliant"
	ComplianceNonCompliant ComplianceStatus = "NonCompliant"
	ComplianceUnknown      ComplianceStatus = "Unknown"
	ComplianceNA           ComplianceStatus = "N/A"
)

// LifecycleStatus is the normalized manufacturing lifecycle taxonomy.
type LifecycleStatus string

const (
	LifecycleActive   LifecycleStatus = "Active"
	LifecycleNRND     LifecycleStatus = "NRND"
	LifecycleObsolete LifecycleStatus = "Obsolete"
	LifecycleEOL      LifecycleStatus = "EOL"
	LifecycleUnknown  LifecycleStatus = "Unknown"
	LifecycleNA       LifecycleStatus = "N/A"
)

// RiskLevel is a three-level procurement risk rating, ordered Low < Medium < High.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// NormalizedCompliance holds the per-regime compliance status for one part.
// Derived once from raw vendor strings and not mutated afterwards.
type NormalizedCompliance struct {
	Rohs  ComplianceStatus `json:"rohs"`
	Reach ComplianceStatus `json:"reach"`
}

// PartRiskClassification splits part risk into an active supply problem
// (Current) and a looming one (Future). The flags are independent and may
// both be set.
type PartRiskClassification struct {
	Current bool `json:"current"`
	Future  bool `json:"future"`
}

// RiskEvidence carries the raw vendor strings behind a risk verdict for
// display. Empty fields are omitted rather than rendered.
type RiskEvidence struct {
	Lifecycle    string `json:"lifecycle,omitempty"`
	Rohs         string `json:"rohs,omitempty"`
	Reach        string `json:"reach,omitempty"`
	ProductURL   string `json:"product_url,omitempty"`
	DatasheetURL string `json:"datasheet_url,omitempty"`
}

// RiskAssessment is the full risk verdict for one part.
type RiskAssessment struct {
	MPN             string                 `json:"mpn"`
	Manufacturer    string                 `json:"manufacturer,omitempty"`
	Compliance      NormalizedCompliance   `json:"compliance"`
	Lifecycle       LifecycleStatus        `json:"lifecycle"`
	RiskLevel       RiskLevel              `json:"risk_level"`
	Classification  PartRiskClassification `json:"classification"`
	CurrentReasons  []string               `json:"current_reasons,omitempty"`
	FutureReasons   []string               `json:"future_reasons,omitempty"`
	SubstituteCount *int                   `json:"substitute_count,omitempty"`
	Evidence        RiskEvidence           `json:"evidence"`
	AssessedAt      time.Time              `json:"assessed_at"`
}
