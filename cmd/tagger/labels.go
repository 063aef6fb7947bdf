package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/engine/prompt"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the category labels of the taxonomy",
	Long:  "labels prints one label per line in taxonomy order. With --prompts it prints every prompt of the ensemble next to its label instead.",
	Args:  cobra.NoArgs,
	RunE:  runLabels,
}

func init() {
	labelsCmd.Flags().Bool("prompts", false, "print each prompt with its label, tab separated")
}

func runLabels(cmd *cobra.Command, _ []string) error {
	tax, err := loadTaxonomy(cfg.Engine.TaxonomyPath)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	showPrompts, _ := cmd.Flags().GetBool("prompts")
	if !showPrompts {
		for _, l := range tax.Labels() {
			fmt.Fprintln(w, l)
		}
		return nil
	}

	set, err := prompt.Generate(tax)
	if err != nil {
		return err
	}
	for _, r := range set.Records() {
		fmt.Fprintf(w, "%s\t%s\n", r.Label, r.Text)
	}
	return nil
}
