package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/journalon/internal/models"
	"github.com/atinyakov/journalon/internal/service"
	"github.com/spf13/cobra"
)

// getJournal resolves id, treating an inaccessible journal as not found.
func getJournal(ctx context.Context, app *App, id string) (*models.Journal, error) {
	j, err := app.Journals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return nil, fmt.Errorf("%s: %w", id, service.ErrJournalNotFound)
	}
	return j, nil
}

// NewCreateCommand creates the create command.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a journal and publish it",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			j, err := app.Journals.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return f.Success(viewOf(*j), fmt.Sprintf("Created journal %s", j.ID))
		}),
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accessible journals, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			journals, err := app.Journals.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]journalView, 0, len(journals))
			for _, j := range journals {
				views = append(views, viewOf(j))
			}
			return f.Success(views, renderList(journals))
		}),
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a journal with its entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			j, err := getJournal(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			return f.Success(viewOf(*j), renderJournal(*j))
		}),
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <content>",
		Short: "Append an entry to a journal",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			e, err := app.Journals.AddEntry(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return f.Success(e, fmt.Sprintf("Added entry %s", e.ID))
		}),
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <entry-id> <content>",
		Short: "Replace the content of an entry",
		Args:  cobra.MinimumNArgs(3),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			if err := app.Journals.UpdateEntry(cmd.Context(), args[0], args[1], strings.Join(args[2:], " ")); err != nil {
				return err
			}
			return f.Success(map[string]string{"id": args[0], "entryId": args[1]}, "Entry updated")
		}),
	}
}

// NewRemoveEntryCommand creates the rm-entry command.
func NewRemoveEntryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-entry <id> <entry-id>",
		Short: "Remove an entry from a journal",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			if err := app.Journals.DeleteEntry(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return f.Success(map[string]string{"id": args[0], "entryId": args[1]}, "Entry removed")
		}),
	}
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change the title of a journal",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			j, err := app.Journals.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return f.Success(viewOf(*j), fmt.Sprintf("Renamed to %q", j.Title))
		}),
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Forget a journal on this device",
		Long: `Forget a journal on this device. The store has no delete: the published
blob stays readable by id, but this device gives up the key to change it.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			if err := app.Journals.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return f.Success(map[string]string{"id": args[0]}, "Journal removed from this device")
		}),
	}
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <id>",
		Short: "Report whether a journal is accessible from this device",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			j := app.Journals.CheckExists(cmd.Context(), args[0])
			result := map[string]any{"id": args[0], "exists": j != nil}
			if j == nil {
				return f.Success(result, "no")
			}
			result["title"] = j.Title
			return f.Success(result, fmt.Sprintf("yes: %s", j.Title))
		}),
	}
}

// NewForgetAllCommand creates the forget-all command.
func NewForgetAllCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "forget-all",
		Short: "Drop every journal id and private key held on this device",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			if !yes {
				return f.Fail(ExitCommandError, fmt.Errorf("refusing to forget all journals without --yes"))
			}
			if err := app.ForgetAll(cmd.Context()); err != nil {
				return err
			}
			return f.Success(map[string]bool{"forgotten": true}, "All journals forgotten on this device")
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping every private key")
	return cmd
}
