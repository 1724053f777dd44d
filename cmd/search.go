package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/teleconseil/prospect-cli/internal/model"
)

var (
	searchSector     string
	searchDepartment string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search companies by sector and department",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.enricher.Demo() {
			color.Yellow("Mode démo : aucune clé API SIRENE configurée, résultats synthétiques.")
		}

		limit := searchLimit
		if limit == 0 {
			limit = cfg.Search.Limit
		}

		records, err := env.enricher.Run(cmd.Context(), searchSector, searchDepartment, limit)
		if err != nil {
			return err
		}

		printRecords(records)
		return nil
	},
}

func printRecords(records []model.EnrichedRecord) {
	if len(records) == 0 {
		fmt.Println("Aucune entreprise active trouvée.")
		return
	}

	bold := color.New(color.Bold).SprintFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		bold("Nom"), bold("Téléphone"), bold("SIRET"), bold("Effectif"), bold("OPCO"), bold("Statut"))
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, r.Phone, r.Siret, r.Workforce, r.Opco, r.Annotation.Status)
	}
	w.Flush() //nolint:errcheck

	fmt.Println()
	fmt.Println(bold("Liens dirigeants (Pappers) :"))
	for _, r := range records {
		if r.PappersURL != "" {
			fmt.Printf("  %s : %s\n", r.Name, r.PappersURL)
		}
	}

	fmt.Printf("\n%d entreprise(s) trouvée(s)\n", len(records))
}

func init() {
	searchCmd.Flags().StringVarP(&searchSector, "secteur", "s", "", "sector keyword or NAF code (required)")
	searchCmd.Flags().StringVarP(&searchDepartment, "departement", "d", "", "department number (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limite", 0, "maximum results (default from config)")
	rootCmd.AddCommand(searchCmd)
}
