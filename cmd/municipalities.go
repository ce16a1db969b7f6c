package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

func newMunicipalitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "municipalities",
		Short: "Lists the selectable municipalities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return printMunicipalities(cmd.OutOrStdout(), appInstance.GetService().Municipalities())
		},
	}
}

func printMunicipalities(w io.Writer, list []scanner.Municipality) error {
	if _, err := fmt.Fprintln(w, "\nAvailable municipalities:"); err != nil {
		return fmt.Errorf("print municipalities: %w", err)
	}
	for _, m := range list {
		if _, err := fmt.Fprintf(w, "  %s: %s (%s)\n", m.Code, m.Name, m.Region); err != nil {
			return fmt.Errorf("print municipalities: %w", err)
		}
	}
	return nil
}
