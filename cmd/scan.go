package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/export"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/export/sink"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/hash/sha256"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

type scanOptions struct {
	municipality string
	maxTargets   int
	output       string
	format       string
	sequential   bool
}

func newScanCmd() *cobra.Command {
	opts := scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scans hotels and exports the ranked opportunities",
		Long: `Lists accommodation businesses, analyzes their websites, prints the
top opportunities and exports every result as CSV and/or JSON. Without
--municipality the whole country is scanned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.municipality, "municipality", "m", "", "municipality code (e.g. 0301 for Oslo)")
	cmd.Flags().IntVarP(&opts.maxTargets, "max", "n", 30, "maximum companies to analyze")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path without extension")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "both", "output format: csv, json or both")
	cmd.Flags().BoolVarP(&opts.sequential, "sequential", "s", false, "analyze one site at a time (slower but gentler)")
	return cmd
}

func runScan(cmd *cobra.Command, opts scanOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if opts.maxTargets <= 0 {
		return fmt.Errorf("--max must be > 0")
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	logger := appInstance.GetLogger()
	service := appInstance.GetService()

	if opts.municipality == "" {
		if err := printMunicipalities(out, service.Municipalities()); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nUse --municipality CODE or -m CODE to filter by municipality")
		fmt.Fprintln(out, "Or run without filter to scan all of Norway")
	}

	query := scanner.Query{
		MunicipalityCode: opts.municipality,
		IndustryCode:     appInstance.GetConfig().Registry.IndustryCode,
		MaxTargets:       opts.maxTargets,
		Sequential:       opts.sequential,
	}
	logger.Info("scan started",
		zap.String("municipality_code", query.MunicipalityCode),
		zap.Int("max_companies", query.MaxTargets),
		zap.Bool("sequential", query.Sequential),
	)
	results, err := service.Scan(cmd.Context(), query, func(done, total int, last scanner.Target) {
		logger.Info("target analyzed", zap.Int("done", done), zap.Int("total", total), zap.String("name", last.Name))
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if cmd.Context().Err() != nil {
		return fmt.Errorf("scan: %w", context.Cause(cmd.Context()))
	}
	fmt.Fprintf(out, "\nAnalysis complete! %d companies analyzed.\n", len(results))
	if len(results) == 0 {
		return nil
	}

	if err := export.PrintSummary(out, results, export.DefaultTopN); err != nil {
		return err
	}

	dir, base := outputLocation(opts.output, appInstance.GetConfig().Export.Dir, opts.municipality)
	blobs, err := sink.NewLocalBlobStore(dir)
	if err != nil {
		return fmt.Errorf("open export directory: %w", err)
	}
	files, err := export.NewExporter(blobs, format, sha256.New()).Export(cmd.Context(), base, results)
	for _, f := range files {
		fmt.Fprintf(out, "Results exported to: %s\n", f.URI)
	}
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	return nil
}

// outputLocation splits an -o value into the export directory and the base
// file name. Without -o the files land in defaultDir under the default name.
func outputLocation(output, defaultDir, municipality string) (string, string) {
	if output == "" {
		if defaultDir == "" {
			defaultDir = "."
		}
		return defaultDir, export.DefaultBaseName(municipality)
	}
	return filepath.Dir(output), filepath.Base(output)
}
