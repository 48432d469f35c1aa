package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procurewatch/bomrisk/internal/bom"
	"github.com/procurewatch/bomrisk/internal/model"
)

var assessCmd = &cobra.Command{
	Use:   "assess [mpn...]",
	Short: "Assess procurement risk for parts or a whole BOM",
	Long: `Assess procurement risk for one or more part numbers, or for every
line of a BOM file.

Each part is looked up at DigiKey (Mouser as fallback), its compliance and
lifecycle status normalized, and a Low/Medium/High risk level assigned.
Parts with no available substitutes are escalated one level.

Examples:
  # Single part
  assess GRM188R61A475KE15D

  # Several parts
  assess GRM188R61A475KE15D CL10A475KO8NNNC

  # Whole BOM, exported as CSV
  assess --bom board.xlsx --format csv --output report.csv`,
	RunE: runAssess,
}

func init() {
	f := assessCmd.Flags()
	f.String("bom", "", "BOM file to assess (.csv or .xlsx)")
	f.String("format", "table", "output format: table, csv, or json")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(assessCmd)
}

func runAssess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bomPath, _ := cmd.Flags().GetString("bom")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	if format != "table" && format != "csv" && format != "json" {
		return eris.Errorf("assess: --format must be table, csv, or json (got %q)", format)
	}
	if bomPath == "" && len(args) == 0 {
		return eris.New("assess: provide part numbers or --bom")
	}

	var lines []model.BOMLine
	if bomPath != "" {
		var err error
		lines, err = bom.ImportFile(bomPath)
		if err != nil {
			return err
		}
		zap.L().Info("BOM imported", zap.String("file", bomPath), zap.Int("lines", len(lines)))
	}
	for _, mpn := range args {
		lines = append(lines, model.BOMLine{MPN: mpn, Quantity: 1})
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	enricher, err := newEnricher(st)
	if err != nil {
		return err
	}

	results := make([]bom.LineResult, 0, len(lines))
	for _, line := range lines {
		res := bom.LineResult{Line: line}
		assessment, err := enricher.Assess(ctx, line.MPN)
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "assess: interrupted")
			}
			zap.L().Warn("assessment failed", zap.String("mpn", line.MPN), zap.Error(err))
			res.Err = err.Error()
		} else {
			res.Assessment = assessment
		}
		results = append(results, res)
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "assess: create %s", outputPath)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "csv":
		if err := bom.WriteResultsCSV(out, results); err != nil {
			return err
		}
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return eris.Wrap(err, "assess: encode json")
		}
	default:
		printAssessTable(out, results)
	}

	printAssessSummary(results)
	return nil
}

func printAssessTable(out *os.File, results []bom.LineResult) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MPN\tLIFECYCLE\tROHS\tREACH\tRISK\tSUBS\tREASONS")
	for _, res := range results {
		if a := res.Assessment; a != nil {
			reasons := strings.Join(append(append([]string{}, a.CurrentReasons...), a.FutureReasons...), " ")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				res.Line.MPN, a.Lifecycle, a.Compliance.Rohs, a.Compliance.Reach,
				a.RiskLevel, substituteText(a.SubstituteCount), reasons)
		} else {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\terror: %s\n", res.Line.MPN, res.Err)
		}
	}
	w.Flush()
}

func printAssessSummary(results []bom.LineResult) {
	var low, medium, high, failed int
	for _, res := range results {
		if res.Assessment == nil {
			failed++
			continue
		}
		switch res.Assessment.RiskLevel {
		case model.RiskLow:
			low++
		case model.RiskMedium:
			medium++
		case model.RiskHigh:
			high++
		}
	}
	fmt.Printf("\n%d parts: %d low, %d medium, %d high", len(results), low, medium, high)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
}

func substituteText(count *int) string {
	if count == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *count)
}
