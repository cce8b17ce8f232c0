// Package repl is the interactive front end for a wallpapergen Session.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mhpenta/wallpapergen"
)

type REPL struct {
	in       io.Reader
	out      io.Writer
	err      io.Writer
	session  *wallpapergen.Session
	commands map[string]Command
	ordered  []Command
	running  bool
}

type Config struct {
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
	Session *wallpapergen.Session
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:       cfg.In,
		out:      cfg.Out,
		err:      cfg.Err,
		session:  cfg.Session,
		commands: make(map[string]Command),
	}
	r.registerCommands()
	return r
}

// Run reads commands until quit or end of input. The session must already be
// bootstrapped.
func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "wallpapergen interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")

	st := r.session.State()
	if st.SetupRequired() {
		fmt.Fprintln(r.out)
		r.printSetupHint(st)
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) printSetupHint(st wallpapergen.State) {
	if st.SetupMessage != "" {
		fmt.Fprintln(r.out, st.SetupMessage)
	}
	fmt.Fprintln(r.out, "An API key is required. Use: key set <api-key>")
}

func (r *REPL) printPrompt() {
	st := r.session.State()
	switch {
	case st.SetupRequired():
		fmt.Fprint(r.out, "wallpapergen (setup)> ")
	case st.Selected != nil:
		fmt.Fprintf(r.out, "wallpapergen [%s]> ", st.Selected.ID)
	default:
		fmt.Fprint(r.out, "wallpapergen> ")
	}
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
