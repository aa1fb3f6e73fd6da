package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"postergen/internal/common/config"
	"postergen/internal/common/logger"
	"postergen/internal/pipeline"
	"postergen/internal/poster"

	// Registered data source backends.
	_ "postergen/internal/datasource/csvfile"
	_ "postergen/internal/datasource/postgres"
	_ "postergen/internal/datasource/sheets"
)

func main() {
	var (
		configPath      string
		listPages       bool
		listColumnNames bool
		listColumnValue int
	)

	rootCmd := &cobra.Command{
		Use:   "postergen [case-id]",
		Short: "Generate posters for a case from configured data sources",
		Long: `postergen resolves a case profile from a configured tabular backend
(Google Sheets, CSV file or Postgres), fills the configured SVG templates
and writes one poster per template and output format.

Inspection flags query the backend directly and skip generation:

  postergen --list-sheet-pages
  postergen --list-column-names
  postergen --list-column-values 3
  postergen 2021-05-04`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, args, listPages, listColumnNames, listColumnValue)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "postergen.ini", "Path to the top level configuration file")
	rootCmd.Flags().BoolVar(&listPages, "list-sheet-pages", false, "List the pages of the configured data source and exit")
	rootCmd.Flags().BoolVar(&listColumnNames, "list-column-names", false, "List the header row of the configured page and exit")
	rootCmd.Flags().IntVar(&listColumnValue, "list-column-values", 0, "List all values of the given 1-based column and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, args []string, listPages, listColumnNames bool, listColumnValue int) error {
	root, err := config.LoadRoot(configPath)
	if err != nil {
		return err
	}
	zapLog := logger.New(root.Logging.Level, root.Logging.Format)
	defer zapLog.Sync() //nolint:errcheck

	appLog := logger.NewZapAdapter(zapLog)

	mapPaths, err := filepath.Glob(filepath.Join(root.MapsFolder, "*.map"))
	if err != nil {
		return err
	}
	if len(mapPaths) == 0 {
		return fmt.Errorf("no map files found in %s", root.MapsFolder)
	}
	sort.Strings(mapPaths)

	inspecting := listPages || listColumnNames || listColumnValue > 0
	if !inspecting && len(args) == 0 {
		return fmt.Errorf("a case id is required unless an inspection flag is given")
	}

	var converter poster.Converter
	if !inspecting {
		browser := poster.NewBrowserConverter(appLog)
		defer browser.Close() //nolint:errcheck
		converter = browser
	}

	var failedJobs []string
	for _, mapPath := range mapPaths {
		cfg, err := config.LoadMap(mapPath)
		if err != nil {
			return err
		}
		mapLog := appLog.WithFields(map[string]interface{}{"map": filepath.Base(mapPath)})

		p, err := pipeline.New(cfg, converter, mapLog)
		if err != nil {
			return err
		}

		switch {
		case listPages:
			err = printList(ctx, p.ListPages)
		case listColumnNames:
			err = printList(ctx, p.ListColumnNames)
		case listColumnValue > 0:
			err = printList(ctx, func(ctx context.Context) ([]string, error) {
				return p.ListColumnValues(ctx, listColumnValue)
			})
		default:
			var result *pipeline.Result
			result, err = p.Run(ctx, args[0])
			if err == nil {
				for _, f := range result.Failures {
					failedJobs = append(failedJobs, f.Scope)
				}
			}
		}
		closeErr := p.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			mapLog.WithError(closeErr).Warn("closing data source handler", nil)
		}
	}
	if len(failedJobs) > 0 {
		return fmt.Errorf("posters could not be generated for: %s", strings.Join(failedJobs, ", "))
	}
	return nil
}

func printList(ctx context.Context, list func(context.Context) ([]string, error)) error {
	values, err := list(ctx)
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Println(v)
	}
	return nil
}
