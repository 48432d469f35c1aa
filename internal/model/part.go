// Package model defines the shared value types for parts, compliance,
// risk classification, and similarity evaluation.
package model

import (
	"strings"
	"time"
)

// Parameter is a single name/value attribute reported by a distributor.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DatasheetValue is a single extracted datasheet field. Value is nil when
// the extractor found the field but could not read a value.
type DatasheetValue struct {
	Value *string `json:"value"`
}

// PartParameters holds the comparable attribute sets for one part:
// distributor parameters keyed by display name and datasheet fields keyed
// by field id.
type PartParameters struct {
	Parameters          []Parameter               `json:"parameters,omitempty"`
	DatasheetParameters map[string]DatasheetValue `json:"datasheet_parameters,omitempty"`
}

// BOMLine is one row of an imported bill of materials.
type BOMLine struct {
	MPN          string `json:"mpn"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Description  string `json:"description,omitempty"`
	Quantity     int    `json:"quantity,omitempty"`
	RefDes       string `json:"ref_des,omitempty"`
}

// UnifiedProduct is a vendor-agnostic part record merged from distributor
// API responses.
type UnifiedProduct struct {
	MPN               string      `json:"mpn"`
	Manufacturer      string      `json:"manufacturer"`
	Description       string      `json:"description"`
	Source            string      `json:"source"` // "digikey" or "mouser"
	ProductURL        string      `json:"product_url,omitempty"`
	DatasheetURL      string      `json:"datasheet_url,omitempty"`
	PhotoURL          string      `json:"photo_url,omitempty"`
	QuantityAvailable int         `json:"quantity_available"`
	UnitPrice         float64     `json:"unit_price,omitempty"`
	LifecycleStatus   string      `json:"lifecycle_status,omitempty"` // raw vendor text
	RohsStatus        string      `json:"rohs_status,omitempty"`      // raw vendor text
	ReachStatus       string      `json:"reach_status,omitempty"`     // raw vendor text
	Parameters        []Parameter `json:"parameters,omitempty"`
	RetrievedAt       time.Time   `json:"retrieved_at"`
}

// PartKey normalizes a manufacturer part number for use as a cache key:
// uppercase with whitespace removed. Hyphens and other separators are
// preserved because some manufacturers use them to distinguish variants.
func PartKey(mpn string) string {
	return strings.ToUpper(strings.Join(strings.Fields(mpn), ""))
}
