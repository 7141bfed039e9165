package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/journalon/internal/models"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

// journalView is the JSON rendering of a journal. The private key is never printed.
type journalView struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Entries    []models.Entry `json:"entries"`
	CreatedAt  time.Time      `json:"createdAt"`
	ModifiedAt time.Time      `json:"modifiedAt"`
}

func viewOf(j models.Journal) journalView {
	return journalView{
		ID:         j.ID,
		Title:      j.Title,
		Entries:    j.Clone().Entries,
		CreatedAt:  j.CreatedAt,
		ModifiedAt: j.ModifiedAt,
	}
}

func summaryLine(j models.Journal) string {
	return fmt.Sprintf("%s  %s  (%d entries, modified %s)",
		j.ID, j.Title, len(j.Entries), j.ModifiedAt.Local().Format(timeLayout))
}

func renderList(journals []models.Journal) string {
	if len(journals) == 0 {
		return "No journals."
	}
	lines := make([]string, 0, len(journals))
	for _, j := range journals {
		lines = append(lines, summaryLine(j))
	}
	return strings.Join(lines, "\n")
}

func renderJournal(j models.Journal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", j.Title)
	fmt.Fprintf(&b, "id:       %s\n", j.ID)
	fmt.Fprintf(&b, "created:  %s\n", j.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(&b, "modified: %s\n", j.ModifiedAt.Local().Format(timeLayout))
	if len(j.Entries) == 0 {
		b.WriteString("\nNo entries.")
		return b.String()
	}
	for _, e := range j.Entries {
		fmt.Fprintf(&b, "\n[%s] %s\n%s\n", e.Timestamp.Local().Format(timeLayout), e.ID, e.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// withApp wraps a command body that needs the wired client.
func withApp(opts *RootOptions, run func(cmd *cobra.Command, f *OutputFormatter, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		f := opts.formatter(cmd)
		app, err := opts.App(cmd)
		if err != nil {
			return f.Fail(ExitCommandError, err)
		}
		defer func() { _ = opts.close() }()
		if err := run(cmd, f, app, args); err != nil {
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				return err
			}
			return f.Fail(ExitFailure, err)
		}
		return nil
	}
}
