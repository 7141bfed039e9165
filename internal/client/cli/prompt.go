package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads answers line by line from the shell input.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: out}
}

// ask prints label and returns the next line, trimmed. ok is false once the
// input is exhausted.
func (p *prompter) ask(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// askText collects lines until a line holding a single "." or the end of input.
func (p *prompter) askText(label string) (string, bool) {
	fmt.Fprintln(p.out, label)
	var lines []string
	for p.scanner.Scan() {
		line := p.scanner.Text()
		if line == "." {
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), len(lines) > 0
}
