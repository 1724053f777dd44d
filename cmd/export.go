package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teleconseil/prospect-cli/internal/export"
)

var (
	exportSector     string
	exportDepartment string
	exportLimit      int
	exportOut        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export active companies to an Excel spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		limit := exportLimit
		if limit == 0 {
			limit = cfg.Search.Limit
		}

		records, err := env.enricher.Run(cmd.Context(), exportSector, exportDepartment, limit)
		if err != nil {
			return err
		}

		data, err := export.XLSX(records)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = export.Filename(time.Now())
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}

		fmt.Printf("Export écrit : %s (%d entreprises)\n", out, len(records))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportSector, "secteur", "s", "", "sector keyword or NAF code (required)")
	exportCmd.Flags().StringVarP(&exportDepartment, "departement", "d", "", "department number (required)")
	exportCmd.Flags().IntVar(&exportLimit, "limite", 0, "maximum results (default from config)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default entreprises_<timestamp>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
