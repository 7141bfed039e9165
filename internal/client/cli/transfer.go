package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atinyakov/journalon/internal/models"
	"github.com/atinyakov/journalon/internal/service"
	"github.com/spf13/cobra"
)

// exportData renders the export file of id.
func exportData(ctx context.Context, app *App, id string) (*models.Journal, []byte, error) {
	j, err := getJournal(ctx, app, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := service.MarshalExport(app.Journals.Export(*j))
	if err != nil {
		return nil, nil, err
	}
	return j, data, nil
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a journal to a JSON file without its private key",
		Long: `Write a journal to a JSON file without its private key. The file is named
journal-<title>.json unless --output is given; "-" writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			if output == "-" {
				_, data, err := exportData(cmd.Context(), app, args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			path, err := exportTo(cmd.Context(), app, args[0], []string{output})
			if err != nil {
				return err
			}
			return f.Success(map[string]string{"id": args[0], "path": path}, fmt.Sprintf("Exported to %s", path))
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout`)
	return cmd
}

// importData imports an export file and describes where it landed.
func importData(ctx context.Context, app *App, data []byte, overwrite bool) (*models.Journal, string, error) {
	exported, err := service.UnmarshalExport(data)
	if err != nil {
		return nil, "", err
	}
	j, err := app.Journals.Import(ctx, *exported, overwrite)
	if err != nil {
		return nil, "", err
	}
	if j.ID == exported.ID {
		return j, fmt.Sprintf("Overwrote journal %s", j.ID), nil
	}
	return j, fmt.Sprintf("Imported as new journal %s", j.ID), nil
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported journal",
		Long: `Import an exported journal; "-" reads from stdin.

If this device already holds the journal, the import is refused unless
--overwrite is set. A journal this device does not hold is published as a
new journal with its own id.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			j, text, err := importData(cmd.Context(), app, data, overwrite)
			if err != nil {
				return err
			}
			return f.Success(viewOf(*j), text)
		}),
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace a journal this device already holds")
	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand(opts *RootOptions, info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, date := cmp.Or(info.Version, "N/A"), cmp.Or(info.BuildDate, "N/A")
			return opts.formatter(cmd).Success(
				map[string]string{"version": version, "buildDate": date},
				fmt.Sprintf("journalon client\nVersion: %s\nBuild Date: %s", version, date),
			)
		},
	}
}
