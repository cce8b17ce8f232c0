package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mhpenta/wallpapergen"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func (r *REPL) registerCommands() {
	r.ordered = []Command{
		&PromptCommand{},
		&GenerateCommand{},
		&RemixCommand{},
		&ListCommand{},
		&SelectCommand{},
		&CloseCommand{},
		&DownloadCommand{},
		&KeyCommand{},
		&StatusCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}

	for _, cmd := range r.ordered {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// PromptCommand edits the prompt without generating
type PromptCommand struct{}

func (c *PromptCommand) Name() string        { return "prompt" }
func (c *PromptCommand) Aliases() []string   { return []string{"p"} }
func (c *PromptCommand) Description() string { return "Set or show the current prompt" }
func (c *PromptCommand) Usage() string       { return "prompt [text]" }

func (c *PromptCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		r.session.SetPrompt(strings.Join(args, " "))
	}
	fmt.Fprintf(r.out, "Prompt: %s\n", r.session.State().PromptText)
	return nil
}

// GenerateCommand generates a batch of wallpapers
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string        { return "generate" }
func (c *GenerateCommand) Aliases() []string   { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string { return "Generate wallpapers from the prompt" }
func (c *GenerateCommand) Usage() string       { return "generate [prompt]" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		r.session.SetPrompt(strings.Join(args, " "))
	}

	fmt.Fprintf(r.out, "Generating %d wallpapers...\n", wallpapergen.BatchSize)

	err := r.session.Generate(ctx)
	st := r.session.State()
	switch {
	case err == nil:
		printImages(r, st)
		return nil
	case errors.Is(err, wallpapergen.ErrNeedsSetup), wallpapergen.IsCredentialRejected(err):
		r.printSetupHint(st)
		return nil
	case errors.Is(err, wallpapergen.ErrEmptyPrompt):
		return fmt.Errorf("usage: %s", c.Usage())
	case errors.Is(err, wallpapergen.ErrGenerationFailed):
		return errors.New(st.ErrorMessage)
	default:
		return err
	}
}

// RemixCommand restores the last successful prompt
type RemixCommand struct{}

func (c *RemixCommand) Name() string        { return "remix" }
func (c *RemixCommand) Aliases() []string   { return []string{"r"} }
func (c *RemixCommand) Description() string { return "Restore the prompt of the current wallpapers for editing" }
func (c *RemixCommand) Usage() string       { return "remix" }

func (c *RemixCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if err := r.session.Remix(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Prompt: %s\n", r.session.State().PromptText)
	return nil
}

// ListCommand lists the current batch
type ListCommand struct{}

func (c *ListCommand) Name() string        { return "list" }
func (c *ListCommand) Aliases() []string   { return []string{"ls"} }
func (c *ListCommand) Description() string { return "List the current wallpapers" }
func (c *ListCommand) Usage() string       { return "list" }

func (c *ListCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	st := r.session.State()
	if len(st.Images) == 0 {
		fmt.Fprintln(r.out, "No wallpapers yet. Use: generate <prompt>")
		return nil
	}
	printImages(r, st)
	return nil
}

// SelectCommand opens the detail view for one image
type SelectCommand struct{}

func (c *SelectCommand) Name() string        { return "select" }
func (c *SelectCommand) Aliases() []string   { return []string{"s", "view"} }
func (c *SelectCommand) Description() string { return "Open a wallpaper by number or id" }
func (c *SelectCommand) Usage() string       { return "select <number|id>" }

func (c *SelectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	id := args[0]
	if n, err := strconv.Atoi(id); err == nil {
		images := r.session.State().Images
		if n < 1 || n > len(images) {
			return fmt.Errorf("no wallpaper %d (have %d)", n, len(images))
		}
		id = images[n-1].ID
	}

	if err := r.session.Select(id); err != nil {
		return err
	}

	st := r.session.State()
	fmt.Fprintf(r.out, "Selected %s (%s, %d bytes)\n", st.Selected.ID, st.Selected.MIMEType, len(st.Selected.Data))
	fmt.Fprintln(r.out, "Use 'download' to save it or 'close' to go back.")
	return nil
}

// CloseCommand closes the detail view
type CloseCommand struct{}

func (c *CloseCommand) Name() string        { return "close" }
func (c *CloseCommand) Aliases() []string   { return nil }
func (c *CloseCommand) Description() string { return "Close the selected wallpaper" }
func (c *CloseCommand) Usage() string       { return "close" }

func (c *CloseCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.session.CloseViewer()
	return nil
}

// DownloadCommand saves the selected image
type DownloadCommand struct{}

func (c *DownloadCommand) Name() string        { return "download" }
func (c *DownloadCommand) Aliases() []string   { return []string{"save", "d"} }
func (c *DownloadCommand) Description() string { return "Save the selected wallpaper" }
func (c *DownloadCommand) Usage() string       { return "download" }

func (c *DownloadCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	result, err := r.session.Download(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved: %s\n", result.Location)
	return nil
}

// KeyCommand manages the stored API key
type KeyCommand struct{}

func (c *KeyCommand) Name() string        { return "key" }
func (c *KeyCommand) Aliases() []string   { return nil }
func (c *KeyCommand) Description() string { return "Set, clear or show the API key" }
func (c *KeyCommand) Usage() string       { return "key [set <api-key>|clear|rotate|status]" }

func (c *KeyCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	sub := "status"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("usage: key set <api-key>")
		}
		fmt.Fprintln(r.out, "Checking API key...")
		if err := r.session.Configure(ctx, args[1]); err != nil {
			if msg := r.session.State().SetupMessage; msg != "" {
				return errors.New(msg)
			}
			return err
		}
		fmt.Fprintf(r.out, "API key saved: %s\n", r.session.State().MaskedCredential)
		return nil

	case "clear", "rotate":
		if err := r.session.ResetCredential(ctx, sub == "rotate"); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "API key removed.")
		return nil

	case "status":
		st := r.session.State()
		if !st.HasCredential {
			fmt.Fprintln(r.out, "API key: not configured")
			return nil
		}
		fmt.Fprintf(r.out, "API key: %s\n", st.MaskedCredential)
		return nil

	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}
}

// StatusCommand shows the session state
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st"} }
func (c *StatusCommand) Description() string { return "Show the session state" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	st := r.session.State()

	fmt.Fprintf(r.out, "State:       %s\n", st.Phase)
	if st.HasCredential {
		fmt.Fprintf(r.out, "API key:     %s\n", st.MaskedCredential)
	} else {
		fmt.Fprintln(r.out, "API key:     not configured")
	}
	fmt.Fprintf(r.out, "Prompt:      %s\n", st.PromptText)
	if st.CanRemix() {
		fmt.Fprintf(r.out, "Last prompt: %s\n", st.OriginalPromptText)
	}
	fmt.Fprintf(r.out, "Wallpapers:  %d\n", len(st.Images))
	if st.Selected != nil {
		fmt.Fprintf(r.out, "Selected:    %s\n", st.Selected.ID)
	}
	if st.ErrorMessage != "" {
		fmt.Fprintf(r.out, "Error:       %s\n", st.ErrorMessage)
	}
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range r.ordered {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-16s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                  Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func printImages(r *REPL, st wallpapergen.State) {
	for i, img := range st.Images {
		fmt.Fprintf(r.out, "  %d. %s (%s, %d bytes)\n", i+1, img.ID, img.MIMEType, len(img.Data))
	}
}
