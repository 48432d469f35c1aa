package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/procurewatch/bomrisk/internal/bom"
	"github.com/procurewatch/bomrisk/internal/model"
)

var bomCmd = &cobra.Command{
	Use:   "bom <file>",
	Short: "Parse a BOM file and show what was recognized",
	Long: `Parse a BOM file (.csv or .xlsx) and print the recognized lines
without contacting any vendor. Useful to check header mapping before
running a full assessment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := bom.ImportFile(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MPN\tKEY\tMANUFACTURER\tQTY\tREF DES\tDESCRIPTION")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				line.MPN, model.PartKey(line.MPN), line.Manufacturer,
				line.Quantity, line.RefDes, line.Description)
		}
		w.Flush()

		fmt.Printf("\n%d lines recognized\n", len(lines))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bomCmd)
}
