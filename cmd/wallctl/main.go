package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/davenicholson-xyz/wallctl/internal/adapter"
	"github.com/davenicholson-xyz/wallctl/internal/command"
	"github.com/davenicholson-xyz/wallctl/internal/config"
	"github.com/davenicholson-xyz/wallctl/internal/log"
	"github.com/davenicholson-xyz/wallctl/internal/preview"
	"github.com/davenicholson-xyz/wallctl/internal/wallpaper"
)

// backend is what the commands need from a platform's wallpaper support.
type backend interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, path string) error
}

type backendFactory func(cfg *config.Config) (backend, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{}
	if err := execute(ctx, newRootCmd(a, newBackend), a); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	backend backend
	logFile io.Closer
}

// execute runs cmd and releases the log file whether or not the command
// succeeded. The command's error wins over a close error.
func execute(ctx context.Context, cmd *cobra.Command, a *app) error {
	err := cmd.ExecuteContext(ctx)
	if cerr := a.closeLog(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) closeLog() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	log.SetOutput(os.Stderr)
	return err
}

// stdoutIsTerminal decides whether progress messages are printed.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func newRootCmd(a *app, factory backendFactory) *cobra.Command {
	var (
		configPath string
		timeout    string
		prober     string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "wallctl",
		Short: "Get or set the desktop wallpaper using whichever desktop tool is installed",
		Long: `wallctl reports and changes the desktop wallpaper by delegating to the
first installed tool out of gsettings, setroot, pcmanfm, feh, xfconf-query,
gconftool-2, dcop and dconf.

Flags override values from ~/.config/wallctl/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// Flags override config file values when explicitly provided.
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}
			if cmd.Flags().Changed("prober") {
				cfg.Prober = prober
			}
			if verbose {
				cfg.Debug = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log.SetDebug(cfg.Debug)
			if f := cfg.ResolvedLogFile(); f != "" {
				closer, err := log.SetFile(f)
				if err != nil {
					return err
				}
				a.logFile = closer
			}

			b, err := factory(cfg)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.backend = b
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (.yaml or .toml)")
	cmd.PersistentFlags().StringVar(&timeout, "timeout", config.DefaultTimeout, "deadline for each external tool, 0 to disable")
	cmd.PersistentFlags().StringVar(&prober, "prober", config.DefaultProber, "tool discovery: shell (one which -a call) or path (scan $PATH)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log discovery and tool invocations")

	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newSetCmd(a))
	cmd.AddCommand(newAdaptersCmd(a))
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var showPreview bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the current wallpaper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.backend.Get(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, current)

			if !showPreview || !stdoutIsTerminal() {
				return nil
			}
			timeout, _ := a.cfg.TimeoutDuration()
			r := preview.New(&command.Exec{Timeout: timeout})
			w, h := previewSize()
			rendered, err := r.Render(cmd.Context(), current, w, h)
			if err != nil {
				log.Printf("preview: %v", err)
				rendered, _ = preview.Placeholder{}.Render(cmd.Context(), current, w, h)
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showPreview, "preview", "p", false, "render the image in the terminal (uses chafa when installed)")
	return cmd
}

const minPreviewHeight = 5

// previewSize fits a 16:9 image into half the terminal width. Terminal cells
// are about twice as tall as wide, so height = width * 9/16 * 0.5.
func previewSize() (int, int) {
	cols, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols = 80
	}
	w := cols / 2
	h := w * 9 / 32
	if h < minPreviewHeight {
		h = minPreviewHeight
	}
	return w, h
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "set <path|url>",
		Aliases: []string{"s"},
		Short:   "Set the wallpaper to a local image or a downloaded URL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			target := args[0]

			if wallpaper.IsURL(target) {
				if stdoutIsTerminal() {
					fmt.Fprintf(out, "Downloading %s...\n", target)
				}
				path, err := wallpaper.Download(ctx, http.DefaultClient, target, a.cfg.ResolvedDownloadDir())
				if err != nil {
					return fmt.Errorf("downloading wallpaper: %w", err)
				}
				target = path
			}

			if err := a.backend.Set(ctx, target); err != nil {
				return fmt.Errorf("setting wallpaper: %w", err)
			}
			if stdoutIsTerminal() {
				fmt.Fprintf(out, "Wallpaper set: %s\n", target)
			}
			return nil
		},
	}
}

func newAdaptersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "adapters",
		Aliases: []string{"tools", "ls"},
		Short:   "List known wallpaper tools and which ones were found",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := a.backend.(*wallpaper.Resolver)
			if !ok {
				return errors.New("adapter listing is only supported on Linux")
			}
			return printAdapters(cmd.Context(), cmd.OutOrStdout(), r)
		},
	}
}

func printAdapters(ctx context.Context, w io.Writer, r *wallpaper.Resolver) error {
	avail, availErr := r.Available(ctx)
	if availErr != nil && !errors.Is(availErr, wallpaper.ErrDetection) {
		return availErr
	}
	found := make(map[string]bool, len(avail))
	for _, s := range avail {
		found[s.Command] = true
	}
	selected := map[string][]string{}
	for _, c := range []adapter.Capability{adapter.CanGet, adapter.CanSet} {
		if s, err := r.Adapter(ctx, c); err == nil {
			selected[s.Command] = append(selected[s.Command], c.String())
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSUPPORTS\tFOUND\tUSED FOR")
	for _, s := range r.Catalogue().Specs() {
		status := "no"
		if found[s.Command] {
			status = "yes"
		}
		used := strings.Join(selected[s.Command], ",")
		if used == "" {
			used = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Command, s.Caps, status, used)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if availErr != nil {
		fmt.Fprintln(w, "\nNo supported tool was found on PATH.")
	}
	return nil
}
