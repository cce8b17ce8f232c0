package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mhpenta/wallpapergen"
	"github.com/mhpenta/wallpapergen/internal/config"
	"github.com/mhpenta/wallpapergen/internal/httpserver"
	"github.com/mhpenta/wallpapergen/internal/repl"
	"github.com/mhpenta/wallpapergen/provider/gemini"
)

var (
	version = "dev"
	commit  = "none"
)

// envFile is read from the working directory when present.
const envFile = ".env"

var errSetupRequired = errors.New("no API key configured: run 'wallpapergen key set'")

type App struct {
	In           io.Reader
	Out          io.Writer
	Err          io.Writer
	StdinFd      int
	IsTerminal   func(fd int) bool
	ReadPassword func(fd int) ([]byte, error)
	LoadConfig   func() (*config.Config, error)
	NewBackend   func(cfg *config.Config, logger *slog.Logger) (Backend, error)
	Now          func() time.Time
}

func DefaultApp() *App {
	return &App{
		In:           os.Stdin,
		Out:          os.Stdout,
		Err:          os.Stderr,
		StdinFd:      int(os.Stdin.Fd()),
		IsTerminal:   defaultIsTerminal,
		ReadPassword: term.ReadPassword,
		LoadConfig:   func() (*config.Config, error) { return config.Load(envFile) },
		NewBackend:   newBackend,
		Now:          time.Now,
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(app, cfg).ExecuteContext(ctx)
}

func newRootCmd(app *App, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallpapergen",
		Short: "Generate phone wallpapers with Imagen",
		Long: `wallpapergen generates four 9:16 phone wallpapers per prompt using
Google's Imagen model through the Gemini API.

The API key is validated before it is stored, and kept encrypted at rest.

Examples:
  wallpapergen key set
  wallpapergen generate "a misty pine forest at dawn"
  wallpapergen interactive
  wallpapergen serve --listen :8080`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
	}

	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)
	cfg.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newGenerateCmd(app, cfg),
		newKeyCmd(app, cfg),
		newInteractiveCmd(app, cfg),
		newServeCmd(app, cfg),
		newModelsCmd(app, cfg),
	)
	return cmd
}

func newGenerateCmd(app *App, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a batch of wallpapers and save them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), app, cfg, strings.Join(args, " "))
		},
	}
}

func runGenerate(ctx context.Context, app *App, cfg *config.Config, prompt string) error {
	env, err := app.newEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	session := env.newSession()
	defer session.Close()

	if err := session.Bootstrap(ctx); err != nil {
		return err
	}
	if st := session.State(); st.SetupRequired() {
		if st.SetupMessage != "" {
			fmt.Fprintln(app.Err, st.SetupMessage)
		}
		return errSetupRequired
	}

	session.SetPrompt(prompt)
	fmt.Fprintf(app.Out, "Generating %d wallpapers...\n", wallpapergen.BatchSize)

	if err := session.Generate(ctx); err != nil {
		st := session.State()
		switch {
		case wallpapergen.IsCredentialRejected(err):
			return fmt.Errorf("%s: %w", st.SetupMessage, errSetupRequired)
		case errors.Is(err, wallpapergen.ErrGenerationFailed):
			return fmt.Errorf("%s (%w)", st.ErrorMessage, err)
		default:
			return err
		}
	}

	results, err := wallpapergen.SaveImages(ctx, wallpapergen.NewDirStorage(cfg.OutputDir), session.State().Images, app.Now())
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(app.Out, "Saved: %s\n", r.Location)
	}
	fmt.Fprintln(app.Out, "Done!")
	return nil
}

func newKeyCmd(app *App, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API key",
	}

	setCmd := &cobra.Command{
		Use:   "set [api-key]",
		Short: "Validate and store an API key",
		Long: `Validate an API key and store it encrypted. Without an argument the key is
read from the terminal without echo, or from standard input when piped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeySet(cmd.Context(), app, cfg, args)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyStatus(cmd.Context(), app, cfg)
		},
	}

	var rotate bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyClear(cmd.Context(), app, cfg, rotate)
		},
	}
	clearCmd.Flags().BoolVar(&rotate, "rotate", false, "also replace the encryption key")

	cmd.AddCommand(setCmd, statusCmd, clearCmd)
	return cmd
}

func runKeySet(ctx context.Context, app *App, cfg *config.Config, args []string) error {
	var candidate string
	if len(args) == 1 {
		candidate = args[0]
	} else {
		var err error
		candidate, err = app.readSecret("Gemini API key: ")
		if err != nil {
			return err
		}
	}

	env, err := app.newEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	session := env.newSession()
	defer session.Close()

	fmt.Fprintln(app.Out, "Checking API key...")
	if err := session.Configure(ctx, candidate); err != nil {
		if msg := session.State().SetupMessage; msg != "" {
			return fmt.Errorf("%s (%w)", msg, err)
		}
		return err
	}

	fmt.Fprintf(app.Out, "API key saved: %s\n", session.State().MaskedCredential)
	return nil
}

func runKeyStatus(ctx context.Context, app *App, cfg *config.Config) error {
	env, err := app.newEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	fmt.Fprintf(app.Out, "Storage: %s\n", cfg.Storage)
	if cfg.Storage == config.StorageKeyring {
		fmt.Fprintf(app.Out, "Keyring backends: %s\n", strings.Join(keyringBackends(), ", "))
	}

	credential, ok := env.vault.Load(ctx)
	if !ok {
		fmt.Fprintln(app.Out, "API key: not configured")
		return nil
	}
	fmt.Fprintf(app.Out, "API key: %s\n", credential)
	return nil
}

func runKeyClear(ctx context.Context, app *App, cfg *config.Config, rotate bool) error {
	env, err := app.newEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	if rotate {
		err = env.vault.Reset(ctx)
	} else {
		err = env.vault.Clear(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, "API key removed.")
	return nil
}

func newInteractiveCmd(app *App, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i", "repl"},
		Short:   "Start an interactive session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := app.newEnvironment(ctx, cfg)
			if err != nil {
				return err
			}
			defer env.close()

			session := env.newSession()
			defer session.Close()

			if err := session.Bootstrap(ctx); err != nil {
				return err
			}

			r := repl.New(&repl.Config{
				In:      app.In,
				Out:     app.Out,
				Err:     app.Err,
				Session: session,
			})
			err = r.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newServeCmd(app *App, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy for /api/generate and /api/test-key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(app.Err, cfg)
			if err != nil {
				return err
			}
			backend, err := app.NewBackend(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create backend: %w", err)
			}
			if c, ok := backend.(io.Closer); ok {
				defer c.Close()
			}

			handler := httpserver.NewRouter(backend, backend, logger)
			return httpserver.New(cfg.ListenAddr, handler, logger).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to listen on")
	return cmd
}

func newModelsCmd(app *App, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models used for generation and key checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := gemini.New(&gemini.Config{
				ImageModel:      wallpapergen.Model(cfg.ImageModel),
				ValidationModel: wallpapergen.Model(cfg.ValidationModel),
			})
			for _, m := range g.Models() {
				fmt.Fprintf(app.Out, "%-28s %-20s %s\n", m.Name, m.Role, m.Description)
				if m.Capabilities.MaxOutputImages > 0 {
					fmt.Fprintf(app.Out, "%-28s images: %d, aspect ratios: %s, output: %s\n", "",
						m.Capabilities.MaxOutputImages,
						joinRatios(m.Capabilities.SupportedAspectRatios),
						strings.Join(m.Capabilities.OutputMIMETypes, ", "),
					)
				}
			}
			return nil
		},
	}
}

func joinRatios(ratios []wallpapergen.AspectRatio) string {
	names := make([]string, len(ratios))
	for i, r := range ratios {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
