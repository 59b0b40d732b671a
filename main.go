package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"captioncraft/ai"
	"captioncraft/caption"
	"captioncraft/client"
	"captioncraft/config"
	"captioncraft/session"
	"captioncraft/store"
	"captioncraft/tui"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Build info - set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// isInteractive reports whether prompts can be shown
var isInteractive = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// globalFlags are shared by every command
type globalFlags struct {
	debug   bool
	direct  bool
	apiURL  string
	envFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "captioncraft",
		Short: "AI image captions in your terminal",
		Long: `CaptionCraft writes social captions for your images.

Pick an image, pick a tone (casual, professional, witty, poetic, instagram)
and get a caption. Captions come from a CaptionCraft server (see "serve")
or, with --direct, straight from the configured model provider.

Running without a command opens the interactive UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}

	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&g.direct, "direct", false, "call the model provider directly instead of a CaptionCraft server")
	root.PersistentFlags().StringVar(&g.apiURL, "api-url", "", "CaptionCraft server URL (default $CAPTIONCRAFT_API_URL or "+client.DefaultBaseURL+")")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", "", "load settings from this file instead of ./.env")

	root.AddCommand(
		newCaptionCmd(g),
		newHistoryCmd(g),
		newServeCmd(g),
		newVersionCmd(),
		newUpdateCmd(),
	)
	return root
}

// loadConfig reads config and applies global flag overrides
func loadConfig(g *globalFlags) (config.Config, error) {
	var files []string
	if g.envFile != "" {
		if _, err := os.Stat(g.envFile); err != nil {
			return config.Config{}, fmt.Errorf("env file: %w", err)
		}
		files = append(files, g.envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}
	if g.apiURL != "" {
		cfg.Client.APIURL = g.apiURL
	}
	if g.direct {
		cfg.Client.Direct = true
	}
	if g.debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

// newLogger logs to stderr, or to <data dir>/captioncraft.log when the
// terminal belongs to the UI.
func newLogger(cfg config.Config, toFile bool) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if !toFile {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nopCloser{}, nil
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.Storage.DataDir, "captioncraft.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openHistory(cfg config.Config) (*store.HistoryStore, io.Closer, error) {
	kv, closer, err := store.Open(cfg.Storage.HistoryBackend, cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}
	return store.NewHistoryStore(kv), closer, nil
}

// newCaptioner returns the server client, or the provider itself in direct
// mode, plus a short description of where captions come from.
func newCaptioner(cfg config.Config, logger *slog.Logger, observer client.Observer) (caption.Captioner, string, error) {
	if cfg.Client.Direct {
		if err := cfg.CheckProvider(); err != nil {
			return nil, "", err
		}
		c, err := ai.New(cfg.Provider, logger)
		if err != nil {
			return nil, "", err
		}
		return c, string(cfg.Provider.Provider) + " (direct)", nil
	}

	c := client.New(
		client.WithBaseURL(cfg.Client.APIURL),
		client.WithLogger(logger),
		client.WithObserver(observer),
	)
	return c, c.BaseURL(), nil
}

func runTUI(g *globalFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}

	logger, logFile, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	history, closer, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	// The observer runs on the request goroutine; drop events if the UI lags
	events := make(chan client.Event, 16)
	observer := func(ev client.Event) {
		select {
		case events <- ev:
		default:
		}
	}

	captioner, source, err := newCaptioner(cfg, logger, observer)
	if err != nil {
		return err
	}

	var activity <-chan client.Event
	if !cfg.Client.Direct {
		activity = events
	}

	logger.Info("starting ui", "source", source, "backend", cfg.Storage.HistoryBackend, "version", version)

	opts := tui.Options{
		Controller: session.New(captioner, history, session.WithLogger(logger), session.WithTone(cfg.Tone())),
		Activity:   activity,
		Source:     source,
	}
	if c, ok := captioner.(*client.Client); ok {
		opts.Health = c.Health
	}
	return tui.RunUI(opts)
}

// printError renders err, with setup help for missing credentials
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
	var pe *config.ProviderError
	if errors.As(err, &pe) && pe.Help != "" {
		fmt.Fprintln(w, infoStyle.Render(pe.Help))
	}
}
