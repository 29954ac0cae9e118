// Package main provides the sheetpipe command: generate sample workbooks,
// consolidate them into a report, and safely update single sheets.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	sheetpipe "github.com/ideamans/go-sheetpipe"
	"github.com/ideamans/go-sheetpipe/adapters/excel"
	"github.com/ideamans/go-sheetpipe/adapters/googlesheets"
	"github.com/ideamans/go-sheetpipe/gologger"
	"github.com/ideamans/go-sheetpipe/pipeline"
	"github.com/ideamans/go-sheetpipe/sample"
	"github.com/ideamans/go-sheetpipe/utils"
	"github.com/spf13/cobra"
)

var logger = gologger.NewLogger()

type options struct {
	dir        string
	seed       int64
	dbPath     string
	reportPath string
	skipSample bool

	spreadsheetID string
	credentials   string

	file      string
	sheet     string
	from      string
	fromSheet string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "sheetpipe",
		Short: "Consolidate spreadsheets into a relational store and report on them",
		Long: `sheetpipe loads business workbooks into SQLite, runs the standard
analyses, and writes the results to a report workbook. Without a
subcommand it behaves like "sheetpipe run".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", utils.GetEnvOrDefault("SHEETPIPE_DIR", "."), "Directory holding the source workbooks")
	rootCmd.PersistentFlags().Int64Var(&opts.seed, "seed", utils.GetEnvOrDefaultInt("SHEETPIPE_SEED", 42), "Seed for sample data")
	addRunFlags(rootCmd, opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Generate sample data, run the pipeline and write the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	addRunFlags(runCmd, opts)

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Only generate the sample workbooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := sample.Generate(cmd.Context(), opts.dir, opts.seed)
			if err != nil {
				return err
			}
			for _, path := range files.Paths() {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			}
			return nil
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Replace or add one sheet of a workbook, leaving the other sheets untouched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	updateCmd.Flags().StringVar(&opts.file, "file", "", "Workbook to update")
	updateCmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet to replace or add")
	updateCmd.Flags().StringVar(&opts.from, "from", "", "Workbook to copy the sheet contents from")
	updateCmd.Flags().StringVar(&opts.fromSheet, "from-sheet", "", "Sheet of --from to copy (default: the first sheet)")
	for _, name := range []string{"file", "sheet", "from"} {
		if err := updateCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd, sampleCmd, updateCmd)
	return rootCmd
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVar(&opts.dbPath, "db", utils.GetEnvOrDefault("SHEETPIPE_DB", ""), "Store database file (default: in memory)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Report workbook (default: <dir>/"+pipeline.ReportFile+")")
	cmd.Flags().BoolVar(&opts.skipSample, "skip-sample", false, "Use the workbooks already in --dir")
	cmd.Flags().StringVar(&opts.spreadsheetID, "spreadsheet-id", "", "Also publish the report to this Google spreadsheet")
	cmd.Flags().StringVar(&opts.credentials, "credentials", "", "Service account JSON key for --spreadsheet-id (default: application default credentials)")
}

func runPipeline(ctx context.Context, out io.Writer, opts *options) error {
	if !opts.skipSample {
		if _, err := sample.Generate(ctx, opts.dir, opts.seed); err != nil {
			return fmt.Errorf("failed to generate sample data: %w", err)
		}
	}

	cfg := pipeline.DefaultConfig(opts.dir)
	cfg.StorePath = opts.dbPath
	if opts.reportPath != "" {
		cfg.ReportPath = opts.reportPath
	}

	var pipeOpts []pipeline.Option
	if opts.spreadsheetID != "" {
		sheets, err := googlesheets.NewWithCredentials(ctx, googlesheets.Config{SpreadsheetID: opts.spreadsheetID}, opts.credentials)
		if err != nil {
			return fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithSinks(sheets))
	}

	p, err := pipeline.New(cfg, pipeOpts...)
	if err != nil {
		return err
	}
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	for _, table := range result.Analyses {
		if err := printTable(out, table); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Report written to %s (run %s, %s)\n", result.ReportPath, result.RunID, result.Duration.Round(time.Millisecond))
	return nil
}

func runUpdate(ctx context.Context, out io.Writer, opts *options) error {
	src, err := excel.New(&excel.Config{FilePath: opts.from})
	if err != nil {
		return err
	}
	fromSheet := opts.fromSheet
	if fromSheet == "" {
		names, err := src.SheetNames(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return sheetpipe.NewSheetError("load", opts.from, "", sheetpipe.ErrSheetNotFound)
		}
		fromSheet = names[0]
	}

	dst, err := excel.New(&excel.Config{FilePath: opts.file})
	if err != nil {
		return err
	}
	if err := pipeline.Patch(ctx, src, sheetpipe.SheetNamed(fromSheet), dst, opts.sheet); err != nil {
		return err
	}

	logger.Debug().Str("path", opts.file).Str("sheet", opts.sheet).Msg("update command finished")
	fmt.Fprintf(out, "Updated sheet %q of %s from %s\n", opts.sheet, filepath.Clean(opts.file), filepath.Clean(opts.from))
	return nil
}

// printTable writes a result as aligned columns under its name.
func printTable(out io.Writer, t *sheetpipe.Table) error {
	fmt.Fprintf(out, "\n%s\n", t.Name)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, name := range t.ColumnNames() {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, name)
	}
	fmt.Fprintln(w)
	for _, row := range t.Rows() {
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, sheetpipe.FormatValue(v))
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
