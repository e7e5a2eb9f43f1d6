package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/catalog"
	"github.com/Trizzoto/FabrowxWebsite-sub001/internal/services"
)

// errImportRejected is returned when rows were rejected and --strict is set.
var errImportRejected = errors.New("import rejected rows")

type importOptions struct {
	format         string
	dryRun         bool
	replace        bool
	archiveMissing bool
	strict         bool
	jsonOutput     bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a CSV or XLSX export",
		Long: `Import products from a Shopify-style CSV or XLSX export.

Products are matched by handle. Existing products keep their inventory unless --replace is set.
Use "-" to read CSV from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, root, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.format, "format", "", "file format: csv or xlsx (default from the file extension)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "report what would change without saving")
	flags.BoolVar(&opts.replace, "replace", false, "overwrite inventory levels of existing products")
	flags.BoolVar(&opts.archiveMissing, "archive-missing", false, "archive products absent from the file")
	flags.BoolVar(&opts.strict, "strict", false, "fail when any row is rejected")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")
	return cmd
}

func runImport(cmd *cobra.Command, root *rootOptions, opts *importOptions, path string) error {
	format, err := importFormat(opts.format, path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if path == "-" {
		reader = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		reader = f
	}

	ctx := cmd.Context()
	reg, err := root.openRegistry(ctx)
	if err != nil {
		return err
	}
	defer reg.Close(ctx)

	svc, err := services.NewImportService(services.ImportServiceDeps{
		Products: reg.Products(),
		Logger:   root.eventLogger("import"),
	})
	if err != nil {
		return err
	}

	summary, err := svc.Import(ctx, services.ImportCommand{
		Reader:         reader,
		Format:         format,
		Strict:         opts.strict,
		DryRun:         opts.dryRun,
		Replace:        opts.replace,
		ArchiveMissing: opts.archiveMissing,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printImportSummary(out, summary)
	}
	if opts.strict && len(summary.Errors) > 0 {
		return fmt.Errorf("%w: %d", errImportRejected, len(summary.Errors))
	}
	return nil
}

func importFormat(flag, path string) (catalog.Format, error) {
	if flag != "" {
		return catalog.ParseFormat(flag)
	}
	if path == "-" {
		return catalog.FormatCSV, nil
	}
	return catalog.FormatFromFilename(path)
}

func printImportSummary(w io.Writer, s services.ImportSummary) {
	verb := "Imported"
	if s.DryRun {
		verb = "Dry run:"
	}
	fmt.Fprintf(w, "%s %d rows: %d created, %d updated, %d archived, %d skipped\n",
		verb, s.RowsRead, len(s.Created), len(s.Updated), len(s.Archived), s.Skipped)
	for _, handle := range s.Created {
		fmt.Fprintf(w, "  + %s\n", handle)
	}
	for _, handle := range s.Updated {
		fmt.Fprintf(w, "  ~ %s\n", handle)
	}
	for _, handle := range s.Archived {
		fmt.Fprintf(w, "  - %s\n", handle)
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "warning: row %d %s: %s\n", warn.Row, warn.Handle, warn.Message)
	}
	for _, rowErr := range s.Errors {
		if rowErr.Field != "" {
			fmt.Fprintf(w, "error: row %d %s [%s]: %s\n", rowErr.Row, rowErr.Handle, rowErr.Field, rowErr.Message)
			continue
		}
		fmt.Fprintf(w, "error: row %d %s: %s\n", rowErr.Row, rowErr.Handle, rowErr.Message)
	}
}
