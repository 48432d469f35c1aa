package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/procurewatch/bomrisk/internal/similarity"
)

var similarCmd = &cobra.Command{
	Use:   "similar <mpn>",
	Short: "Find and rank substitute candidates for a part",
	Long: `Find substitute candidates for a part and rank them by technical
similarity.

Candidates come from a DigiKey keyword search on the part description.
Each is scored parameter by parameter against the target using the
similarity registry, and the weighted total decides the ranking.

Examples:
  similar GRM188R61A475KE15D
  similar GRM188R61A475KE15D --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().Int("limit", 0, "maximum candidates to show (0 = all)")
	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	enricher, err := newEnricher(st)
	if err != nil {
		return err
	}

	target, ranked, err := enricher.RankSubstitutes(ctx, args[0])
	if err != nil {
		return err
	}
	zap.L().Info("substitutes ranked",
		zap.String("mpn", target.MPN),
		zap.Int("candidates", len(ranked)),
	)

	if len(ranked) == 0 {
		fmt.Printf("No substitute candidates found for %s\n", target.MPN)
		return nil
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	fmt.Printf("Substitutes for %s (%s):\n\n", target.MPN, target.Manufacturer)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MPN\tMANUFACTURER\tSCORE\tCOMPARED\tRISK")
	for _, c := range ranked {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			c.Product.MPN, c.Product.Manufacturer,
			c.Similarity.TotalScore, comparedCount(c.Similarity),
			c.Assessment.RiskLevel)
	}
	w.Flush()
	return nil
}

func comparedCount(res similarity.Result) int {
	n := 0
	for _, p := range res.Breakdown {
		if p.Status == similarity.StatusCompared {
			n++
		}
	}
	return n
}
