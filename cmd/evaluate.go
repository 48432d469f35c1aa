package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procurewatch/bomrisk/internal/evaluate"
	"github.com/procurewatch/bomrisk/internal/similarity"
	"github.com/procurewatch/bomrisk/pkg/anthropic"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <target-mpn> <candidate-mpn>",
	Short: "LLM evaluation of a substitute candidate",
	Long: `Ask the evaluator model to judge a candidate part against a target,
parameter by parameter.

Both parts are fetched from the distributors first. The model scores each
shared parameter 0-100 and the report is stored alongside a comparability
summary: parameters whose values cannot be compared numerically (table
references, missing data) are excluded from the average.

Examples:
  evaluate GRM188R61A475KE15D CL10A475KO8NNNC
  evaluate GRM188R61A475KE15D CL10A475KO8NNNC --model claude-haiku-4-5-20251001`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().String("model", "", "evaluator model (default from config)")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("anthropic"); err != nil {
		return err
	}

	modelName, _ := cmd.Flags().GetString("model")
	if modelName == "" {
		modelName = cfg.Anthropic.Model
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

	target, err := enricher.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	candidate, err := enricher.Lookup(ctx, args[1])
	if err != nil {
		return err
	}

	evaluator := evaluate.New(anthropic.NewClient(cfg.Anthropic.Key), evaluate.WithModel(modelName))
	report, err := evaluator.Evaluate(ctx, *target, *candidate)
	if err != nil {
		return err
	}

	if err := st.SaveEvaluationReport(ctx, *report); err != nil {
		zap.L().Warn("report save failed", zap.Error(err))
	}

	fmt.Printf("%s vs %s\n%s\n\n", report.TargetID, report.CandidateID, report.Summary)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARAMETER\tTARGET\tCANDIDATE\tSCORE\tREASON")
	for _, f := range similarity.WithComparableFlags(report.Parameters) {
		score := fmt.Sprintf("%d", f.Score)
		if !f.IsComparable {
			score = "N/A"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.ParameterID, derefOr(f.TargetValue, "-"), derefOr(f.CandidateValue, "-"), score, f.Reason)
	}
	w.Flush()

	conf := similarity.ComputeConfidence(report.Parameters)
	if avg, ok := similarity.AverageScore(report.Parameters); ok {
		fmt.Printf("\nAverage score: %d (%d/%d parameters comparable, %.0f%% confidence)\n",
			avg, conf.ComparableParams, conf.TotalParams, conf.ConfidenceRatioPercent)
	} else {
		fmt.Println("\nAverage score: N/A (no comparable parameters)")
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
