package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the vendor response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.DeleteExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired entries\n", n)
		return nil
	},
}

var cacheHistoryCmd = &cobra.Command{
	Use:   "history [mpn]",
	Short: "List stored risk assessments",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		level, _ := cmd.Flags().GetString("level")

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.AssessmentFilter{Limit: limit, RiskLevel: model.RiskLevel(level)}
		if len(args) == 1 {
			filter.MPN = args[0]
		}
		assessments, err := st.ListAssessments(cmd.Context(), filter)
		if err != nil {
			return err
		}

		for _, a := range assessments {
			fmt.Printf("%s  %-8s %s\n", a.AssessedAt.Format("2006-01-02 15:04"), a.RiskLevel, a.MPN)
		}
		fmt.Printf("\n%d assessments\n", len(assessments))
		return nil
	},
}

func init() {
	cacheHistoryCmd.Flags().Int("limit", 50, "maximum assessments to list")
	cacheHistoryCmd.Flags().String("level", "", "filter by risk level (Low, Medium, High)")

	cacheCmd.AddCommand(cachePurgeCmd, cacheHistoryCmd)
	rootCmd.AddCommand(cacheCmd)
}
