// Package cli implements the journalon command line client.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/atinyakov/journalon/internal/config"
	"github.com/atinyakov/journalon/internal/logger"
	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary with ldflags.
type BuildInfo struct {
	Version   string
	BuildDate string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	BaseURL    string
	DataDir    string
	Index      string
	CAFile     string
	Timeout    time.Duration
	LogLevel   string
	Format     string // "json" | "text"

	app *App
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// flagSettings maps persistent flag names to the config fields they override.
var flagSettings = map[string]func(o *RootOptions, c *config.Client){
	"url":       func(o *RootOptions, c *config.Client) { c.BaseURL = o.BaseURL },
	"data-dir":  func(o *RootOptions, c *config.Client) { c.DataDir = o.DataDir },
	"index":     func(o *RootOptions, c *config.Client) { c.Index = o.Index },
	"ca":        func(o *RootOptions, c *config.Client) { c.CAFile = o.CAFile },
	"timeout":   func(o *RootOptions, c *config.Client) { c.Timeout = o.Timeout },
	"log-level": func(o *RootOptions, c *config.Client) { c.LogLevel = o.LogLevel },
}

// NewRootCommand creates the root command of the journalon client.
func NewRootCommand(info BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "journalon",
		Short: "journalon - journals kept in a content-addressed store",
		Long: `journalon keeps journals in a hashkeep store. Each journal lives at the
SHA-1 of a private key that only this installation holds; anyone with the
journal id can read it, only the key holder can write it.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main reports errors that commands did not
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	defaults := config.DefaultClient()
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to JSON config file")
	pf.StringVar(&opts.BaseURL, "url", defaults.BaseURL, "hashkeep store base URL")
	pf.StringVar(&opts.DataDir, "data-dir", defaults.DataDir, "directory holding the local index")
	pf.StringVar(&opts.Index, "index", defaults.Index, "local index backend (file|sqlite)")
	pf.StringVar(&opts.CAFile, "ca", "", "path to CA cert trusted for the store")
	pf.DurationVar(&opts.Timeout, "timeout", defaults.Timeout, "store request timeout")
	pf.StringVar(&opts.LogLevel, "log-level", defaults.LogLevel, "log level")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRemoveEntryCommand(opts))
	cmd.AddCommand(NewRenameCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewForgetAllCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts, info))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}

// App builds the client on first use: config file and environment first,
// explicitly set flags on top.
func (o *RootOptions) App(cmd *cobra.Command) (*App, error) {
	if o.app != nil {
		return o.app, nil
	}

	cfg, err := config.LoadClient(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	for name, apply := range flagSettings {
		if cmd.Flags().Changed(name) {
			apply(o, cfg)
		}
	}

	log := logger.New()
	if err := log.InitConsole(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}

	app, err := NewApp(cfg, log.Log)
	if err != nil {
		return nil, err
	}
	o.app = app
	return app, nil
}

func (o *RootOptions) close() error {
	if o.app == nil {
		return nil
	}
	_ = o.app.Log.Sync()
	err := o.app.Close()
	o.app = nil
	return err
}
