package bom

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/procurewatch/bomrisk/internal/model"
)

// LineResult is the assessment outcome for one BOM line. Err is set when
// the part could not be assessed, and Assessment is nil in that case.
type LineResult struct {
	Line       model.BOMLine         `json:"line"`
	Assessment *model.RiskAssessment `json:"assessment,omitempty"`
	Err        string                `json:"error,omitempty"`
}

var exportHeader = []string{
	"MPN", "Manufacturer", "Quantity", "Ref Des",
	"Lifecycle", "RoHS", "REACH", "Risk Level",
	"Current Risk", "Future Risk", "Substitutes", "Reasons", "Error",
}

// WriteResultsCSV writes enriched BOM lines as CSV. Fields that could not
// be determined render as "N/A".
func WriteResultsCSV(w io.Writer, results []LineResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "bom: write csv header")
	}

	for _, res := range results {
		row := []string{
			res.Line.MPN,
			res.Line.Manufacturer,
			strconv.Itoa(res.Line.Quantity),
			res.Line.RefDes,
		}
		if a := res.Assessment; a != nil {
			row = append(row,
				string(a.Lifecycle),
				string(a.Compliance.Rohs),
				string(a.Compliance.Reach),
				string(a.RiskLevel),
				boolCell(a.Classification.Current),
				boolCell(a.Classification.Future),
				substituteCell(a.SubstituteCount),
				strings.Join(append(append([]string{}, a.CurrentReasons...), a.FutureReasons...), "; "),
				"",
			)
		} else {
			row = append(row, "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "N/A", "", res.Err)
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "bom: write csv row %s", res.Line.MPN)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "bom: flush csv")
}

func boolCell(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func substituteCell(count *int) string {
	if count == nil {
		return "N/A"
	}
	return strconv.Itoa(*count)
}
