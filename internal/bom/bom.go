// Package bom imports bills of materials from CSV and XLSX files and
// exports enriched assessment reports.
package bom

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/procurewatch/bomrisk/internal/model"
)

// Column synonyms seen across EDA tool exports. Matching is case-insensitive
// on the trimmed header text.
var headerSynonyms = map[string][]string{
	"mpn":          {"mpn", "part number", "manufacturer part number", "mfr part number", "mfg part number", "part no", "p/n"},
	"manufacturer": {"manufacturer", "mfr", "mfg", "brand", "vendor"},
	"description":  {"description", "desc", "part description", "value"},
	"quantity":     {"quantity", "qty", "count"},
	"refdes":       {"ref des", "refdes", "reference", "references", "designator", "designators"},
}

type columnMap map[string]int

func mapHeader(header []string) (columnMap, error) {
	cm := columnMap{}
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		for field, synonyms := range headerSynonyms {
			if _, taken := cm[field]; taken {
				continue
			}
			for _, syn := range synonyms {
				if name == syn {
					cm[field] = i
					break
				}
			}
		}
	}
	if _, ok := cm["mpn"]; !ok {
		return nil, eris.Errorf("bom: no part number column found in header %v", header)
	}
	return cm, nil
}

func (cm columnMap) get(row []string, field string) string {
	i, ok := cm[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (cm columnMap) line(row []string) (model.BOMLine, bool) {
	line := model.BOMLine{
		MPN:          cm.get(row, "mpn"),
		Manufacturer: cm.get(row, "manufacturer"),
		Description:  cm.get(row, "description"),
		RefDes:       cm.get(row, "refdes"),
	}
	if line.MPN == "" {
		return line, false
	}
	if qty := cm.get(row, "quantity"); qty != "" {
		if n, err := strconv.Atoi(strings.ReplaceAll(qty, ",", "")); err == nil {
			line.Quantity = n
		}
	}
	return line, true
}

// ImportCSV reads a BOM from CSV. The first row must be a header naming at
// least a part number column; rows without a part number are skipped.
func ImportCSV(r io.Reader) ([]model.BOMLine, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "bom: read csv header")
	}
	cm, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var lines []model.BOMLine
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "bom: read csv row")
		}
		if line, ok := cm.line(row); ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// ImportXLSX reads a BOM from the named sheet of an XLSX file, or the first
// sheet when sheetName is empty.
func ImportXLSX(path, sheetName string) ([]model.BOMLine, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "bom: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		var ok bool
		sheet, ok = f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("bom: sheet %q not found", sheetName)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("bom: xlsx file has no sheets")
		}
		sheet = f.Sheets[0]
	}

	if len(sheet.Rows) == 0 {
		return nil, eris.New("bom: sheet is empty")
	}

	cm, err := mapHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var lines []model.BOMLine
	for _, row := range sheet.Rows[1:] {
		if line, ok := cm.line(rowToStrings(row)); ok {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// ImportFile dispatches on the file extension (.csv, .xlsx).
func ImportFile(path string) ([]model.BOMLine, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "bom: open csv")
		}
		defer f.Close()
		return ImportCSV(f)
	case ".xlsx":
		return ImportXLSX(path, "")
	default:
		return nil, eris.Errorf("bom: unsupported file type %q", filepath.Ext(path))
	}
}
