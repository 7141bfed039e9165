package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/journalon/internal/service"
	"github.com/spf13/cobra"
)

const shellHelp = `Available commands:
  help                      show this help
  list                      list journals
  create                    create a journal
  show <id>                 show a journal
  add <id>                  append an entry
  edit <id> <entry-id>      replace an entry
  rm-entry <id> <entry-id>  remove an entry
  rename <id>               change the title
  delete <id>               forget a journal on this device
  export <id> [path]        write the export file
  import <path> [--overwrite]
                            import an export file
  exists <id>               probe a journal
  exit                      leave the shell`

// NewShellCommand creates the interactive shell command.
func NewShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error {
			repl(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		}),
	}
}

// repl runs the interactive shell loop until exit or end of input.
func repl(ctx context.Context, app *App, in io.Reader, out io.Writer) {
	p := newPrompter(in, out)
	svc := app.Journals

	for {
		line, ok := p.ask("journalon> ")
		if !ok {
			break
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		var err error
		switch args[0] {
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "list":
			journals, lerr := svc.ListAll(ctx)
			if err = lerr; err == nil {
				fmt.Fprintln(out, renderList(journals))
			}
		case "create":
			title, ok := p.ask("Title: ")
			if !ok {
				return
			}
			j, cerr := svc.Create(ctx, title)
			if err = cerr; err == nil {
				fmt.Fprintf(out, "Created journal %s\n", j.ID)
			}
		case "show":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: show <id>")
				continue
			}
			j, gerr := getJournal(ctx, app, args[1])
			if err = gerr; err == nil {
				fmt.Fprintln(out, renderJournal(*j))
			}
		case "add":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: add <id>")
				continue
			}
			content, ok := p.askText(`Entry (end with a line holding "."):`)
			if !ok {
				return
			}
			e, aerr := svc.AddEntry(ctx, args[1], content)
			if err = aerr; err == nil {
				fmt.Fprintf(out, "Added entry %s\n", e.ID)
			}
		case "edit":
			if len(args) < 3 {
				fmt.Fprintln(out, "Usage: edit <id> <entry-id>")
				continue
			}
			content, ok := p.askText(`New content (end with a line holding "."):`)
			if !ok {
				return
			}
			if err = svc.UpdateEntry(ctx, args[1], args[2], content); err == nil {
				fmt.Fprintln(out, "Entry updated")
			}
		case "rm-entry":
			if len(args) < 3 {
				fmt.Fprintln(out, "Usage: rm-entry <id> <entry-id>")
				continue
			}
			if err = svc.DeleteEntry(ctx, args[1], args[2]); err == nil {
				fmt.Fprintln(out, "Entry removed")
			}
		case "rename":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: rename <id>")
				continue
			}
			title, ok := p.ask("New title: ")
			if !ok {
				return
			}
			if _, err = svc.Rename(ctx, args[1], title); err == nil {
				fmt.Fprintln(out, "Journal renamed")
			}
		case "delete":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: delete <id>")
				continue
			}
			if err = svc.Delete(ctx, args[1]); err == nil {
				fmt.Fprintln(out, "Journal removed from this device")
			}
		case "export":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: export <id> [path]")
				continue
			}
			var path string
			if path, err = exportTo(ctx, app, args[1], args[2:]); err == nil {
				fmt.Fprintf(out, "Exported to %s\n", path)
			}
		case "import":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: import <path> [--overwrite]")
				continue
			}
			overwrite := len(args) > 2 && args[2] == "--overwrite"
			data, rerr := os.ReadFile(args[1])
			if rerr != nil {
				err = fmt.Errorf("read import: %w", rerr)
				break
			}
			var text string
			if _, text, err = importData(ctx, app, data, overwrite); err == nil {
				fmt.Fprintln(out, text)
			}
		case "exists":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: exists <id>")
				continue
			}
			if j := svc.CheckExists(ctx, args[1]); j != nil {
				fmt.Fprintf(out, "yes: %s\n", j.Title)
			} else {
				fmt.Fprintln(out, "no")
			}
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}

		if err != nil {
			fmt.Fprintf(out, "Error [%s]: %v\n", errorCode(err), err)
		}
	}
}

// exportTo writes the export file of id to rest[0], or to the suggested file
// name when no path is given.
func exportTo(ctx context.Context, app *App, id string, rest []string) (string, error) {
	j, data, err := exportData(ctx, app, id)
	if err != nil {
		return "", err
	}
	path := service.ExportFileName(j.Title)
	if len(rest) > 0 && rest[0] != "" {
		path = rest[0]
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
