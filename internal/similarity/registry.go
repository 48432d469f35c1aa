// Package similarity scores how close a candidate part is to a target part
// across a fixed registry of comparison parameters, and aggregates
// externally-scored parameter evaluations into average-score and confidence
// figures.
package similarity

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Source identifies where a comparison parameter's values come from.
type Source string

const (
	SourceDigiKey   Source = "digikey"
	SourceDatasheet Source = "datasheet"
)

// MatcherType selects the comparison behavior for a parameter.
type MatcherType string

const (
	MatcherExact     MatcherType = "exact"
	MatcherNumeric   MatcherType = "numeric"
	MatcherTolerance MatcherType = "tolerance"
	MatcherRange     MatcherType = "range"
)

// defaultNumericTolerance is the relative tolerance used by numeric
// matchers when the registry entry does not set one.
const defaultNumericTolerance = 0.2

// Parameter defines one entry of the comparison registry: which attribute
// to compare, how, and with what weight. Excluded entries stay in the
// breakdown for display but never contribute to the score.
type Parameter struct {
	Source        Source      `yaml:"source"`
	ID            string      `yaml:"id"`
	DisplayName   string      `yaml:"display_name"`
	Matcher       MatcherType `yaml:"matcher"`
	Weight        float64     `yaml:"weight"`
	Tolerance     float64     `yaml:"tolerance"`
	Excluded      bool        `yaml:"excluded"`
	ExcludeReason string      `yaml:"exclude_reason"`
}

// Key returns the registry key for a parameter, e.g. "digikey:Capacitance".
func (p Parameter) Key() string {
	return fmt.Sprintf("%s:%s", p.Source, p.ID)
}

// Registry is an immutable, validated comparison parameter table.
type Registry struct {
	params []Parameter
	byKey  map[string]*Parameter
}

// NewRegistry validates and indexes a parameter list. Weights default to 1
// and numeric tolerances to 0.2; a duplicate (source, id) pair, an unknown
// matcher, or an excluded entry without a reason is a configuration error.
func NewRegistry(params []Parameter) (*Registry, error) {
	r := &Registry{
		params: make([]Parameter, len(params)),
		byKey:  make(map[string]*Parameter, len(params)),
	}
	copy(r.params, params)

	for i := range r.params {
		p := &r.params[i]

		if p.ID == "" {
			return nil, eris.Errorf("similarity: registry entry %d has empty id", i)
		}
		switch p.Source {
		case SourceDigiKey, SourceDatasheet:
		default:
			return nil, eris.Errorf("similarity: parameter %q has unknown source %q", p.ID, p.Source)
		}
		switch p.Matcher {
		case MatcherExact, MatcherNumeric, MatcherTolerance, MatcherRange:
		default:
			return nil, eris.Errorf("similarity: parameter %q has unknown matcher %q", p.ID, p.Matcher)
		}

		if p.Weight < 0 {
			return nil, eris.Errorf("similarity: parameter %q has negative weight", p.ID)
		}
		if p.Weight == 0 {
			p.Weight = 1
		}
		if p.Tolerance < 0 {
			return nil, eris.Errorf("similarity: parameter %q has negative tolerance", p.ID)
		}
		if p.Matcher == MatcherNumeric && p.Tolerance == 0 {
			p.Tolerance = defaultNumericTolerance
		}
		if p.Excluded && p.ExcludeReason == "" {
			return nil, eris.Errorf("similarity: excluded parameter %q has no exclude_reason", p.ID)
		}

		key := p.Key()
		if _, dup := r.byKey[key]; dup {
			return nil, eris.Errorf("similarity: duplicate registry entry %s", key)
		}
		r.byKey[key] = p
	}

	return r, nil
}

// All returns the registry entries in definition order.
func (r *Registry) All() []Parameter {
	out := make([]Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// Get returns the entry for (source, id), or nil if not defined.
func (r *Registry) Get(source Source, id string) *Parameter {
	return r.byKey[fmt.Sprintf("%s:%s", source, id)]
}

// Len returns the number of registry entries.
func (r *Registry) Len() int {
	return len(r.params)
}

// LoadRegistry reads a parameter registry from a YAML file. The file has a
// top-level "parameters" key holding the entry list.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "similarity: read registry %s", path)
	}

	var wrapper struct {
		Parameters []Parameter `yaml:"parameters"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "similarity: parse registry")
	}
	if len(wrapper.Parameters) == 0 {
		return nil, eris.Errorf("similarity: registry %s defines no parameters", path)
	}

	return NewRegistry(wrapper.Parameters)
}

// DefaultRegistry returns the built-in comparison table for MLCC-class
// passives: distributor attributes plus datasheet fields. Packaging and
// test-condition fields are kept visible in breakdowns but excluded from
// scoring.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultParameters)
	if err != nil {
		// The table below is static; a validation failure is a programming
		// error, not a runtime condition.
		panic(err)
	}
	return r
}

var defaultParameters = []Parameter{
	// Distributor attributes.
	{Source: SourceDigiKey, ID: "Capacitance", DisplayName: "Capacitance", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Voltage - Rated", DisplayName: "Rated Voltage", Matcher: MatcherTolerance},
	{Source: SourceDigiKey, ID: "Package / Case", DisplayName: "Package", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Temperature Coefficient", DisplayName: "Temperature Coefficient", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Operating Temperature", DisplayName: "Operating Temperature", Matcher: MatcherRange},
	{Source: SourceDigiKey, ID: "Tolerance", DisplayName: "Tolerance", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Mounting Type", DisplayName: "Mounting Type", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Size / Dimension", DisplayName: "Size", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Thickness (Max)", DisplayName: "Thickness", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Height - Seated (Max)", DisplayName: "Seated Height", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Applications", DisplayName: "Applications", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Features", DisplayName: "Features", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Ratings", DisplayName: "Ratings", Matcher: MatcherExact},
	{Source: SourceDigiKey, ID: "Lead Spacing", DisplayName: "Lead Spacing", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Lead Style", DisplayName: "Lead Style", Matcher: MatcherExact},
	// ESR varies widely between vendor measurement conditions; allow more slack.
	{Source: SourceDigiKey, ID: "ESR (Equivalent Series Resistance)", DisplayName: "ESR", Matcher: MatcherNumeric, Tolerance: 0.3},
	{Source: SourceDigiKey, ID: "Inductance", DisplayName: "Inductance", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Resistance", DisplayName: "Resistance", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDigiKey, ID: "Current - Rated", DisplayName: "Rated Current", Matcher: MatcherTolerance},

	// Datasheet fields.
	{Source: SourceDatasheet, ID: "NominalCapacitance", DisplayName: "Nominal Capacitance", Matcher: MatcherNumeric, Tolerance: 0.2},
	{Source: SourceDatasheet, ID: "RatedVoltage", DisplayName: "Rated Voltage (Datasheet)", Matcher: MatcherTolerance},
	{Source: SourceDatasheet, ID: "CapacitanceTolerance", DisplayName: "Capacitance Tolerance", Matcher: MatcherExact},
	{Source: SourceDatasheet, ID: "TemperatureCharacteristics_PublicSTD", DisplayName: "Temperature Characteristic", Matcher: MatcherExact},
	{Source: SourceDatasheet, ID: "TemperatureCharacteristics_CapChange", DisplayName: "Capacitance Change over Temperature", Matcher: MatcherRange},
	{Source: SourceDatasheet, ID: "TemperatureCharacteristics_TempRange", DisplayName: "Temperature Range", Matcher: MatcherRange},
	// Dimensions are tight-tolerance fields.
	{Source: SourceDatasheet, ID: "L_Dimensions", DisplayName: "Length", Matcher: MatcherNumeric, Tolerance: 0.1},
	{Source: SourceDatasheet, ID: "W_Dimensions", DisplayName: "Width", Matcher: MatcherNumeric, Tolerance: 0.1},
	{Source: SourceDatasheet, ID: "T_Dimensions", DisplayName: "Thickness (Datasheet)", Matcher: MatcherNumeric, Tolerance: 0.1},
	{Source: SourceDatasheet, ID: "e_Dimensions", DisplayName: "Terminal Width", Matcher: MatcherNumeric, Tolerance: 0.1},
	{Source: SourceDatasheet, ID: "g_Dimensions", DisplayName: "Terminal Gap", Matcher: MatcherNumeric, Tolerance: 0.1},

	// Recorded but never scored.
	{Source: SourceDatasheet, ID: "Packaging_180mmReel", DisplayName: "180mm Reel Packaging", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "packaging is not an electrical fit criterion"},
	{Source: SourceDatasheet, ID: "Packaging_330mmReel", DisplayName: "330mm Reel Packaging", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "packaging is not an electrical fit criterion"},
	{Source: SourceDatasheet, ID: "RatedVoltage_Spec", DisplayName: "Rated Voltage Test Spec", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "test condition, not a device characteristic"},
	{Source: SourceDatasheet, ID: "VoltageProof_Spec", DisplayName: "Voltage Proof Test Spec", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "test condition, not a device characteristic"},
	{Source: SourceDatasheet, ID: "VoltageProof_TestVoltage", DisplayName: "Voltage Proof Test Voltage", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "test condition, not a device characteristic"},
	{Source: SourceDatasheet, ID: "InsulationResistance_Spec", DisplayName: "Insulation Resistance Test Spec", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "test condition, not a device characteristic"},
	{Source: SourceDatasheet, ID: "Capacitance_Frequency", DisplayName: "Capacitance Measurement Frequency", Matcher: MatcherExact,
		Excluded: true, ExcludeReason: "test condition, not a device characteristic"},
}
