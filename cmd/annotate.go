package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teleconseil/prospect-cli/internal/store"
)

var (
	annotateStatus      string
	annotateFunbooster  string
	annotateObservation string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate SIRET",
	Short: "Record prospecting notes for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		// Only flags the operator actually passed become part of the patch;
		// everything else keeps its stored value.
		var patch store.AnnotationPatch
		if cmd.Flags().Changed("statut") {
			patch.Status = &annotateStatus
		}
		if cmd.Flags().Changed("funbooster") {
			patch.Funbooster = &annotateFunbooster
		}
		if cmd.Flags().Changed("observation") {
			patch.Observation = &annotateObservation
		}

		ann, err := env.store.Upsert(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}

		fmt.Printf("SIRET        : %s\n", ann.Siret)
		fmt.Printf("Statut       : %s\n", ann.Status)
		fmt.Printf("FunBooster   : %s\n", ann.Funbooster)
		fmt.Printf("Observation  : %s\n", ann.Observation)
		fmt.Printf("Modifié le   : %s\n", ann.LastModified)
		return nil
	},
}

func init() {
	annotateCmd.Flags().StringVar(&annotateStatus, "statut", "", "prospecting status")
	annotateCmd.Flags().StringVar(&annotateFunbooster, "funbooster", "", "assigned funbooster")
	annotateCmd.Flags().StringVar(&annotateObservation, "observation", "", "free-form note")
	rootCmd.AddCommand(annotateCmd)
}
