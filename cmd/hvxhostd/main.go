package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hvxhost/internal/config"
	"hvxhost/internal/httpapi"
	"hvxhost/internal/kernel"
	"hvxhost/internal/manager"
	"hvxhost/internal/registry"
	"hvxhost/internal/stack"
)

type options struct {
	configPath  string
	addr        string
	kernelsDir  string
	codeMode    string
	logLevel    string
	logFormat   string
	corsOrigins string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	root := &cobra.Command{
		Use:           "hvxhostd",
		Short:         "Serve the kernel loader over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, o)
			if err != nil {
				return err
			}
			log, err := stack.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, nil, log)
		},
	}
	// Flags with environment variable defaults
	f := root.Flags()
	f.StringVar(&o.configPath, "config", os.Getenv("HVXHOST_CONFIG"), "Path to a YAML, JSON or TOML config file")
	f.StringVar(&o.addr, "addr", os.Getenv("HVXHOST_ADDR"), "HTTP listen address, e.g. :8080")
	f.StringVar(&o.kernelsDir, "kernels-dir", "", "Directory to scan for *.so kernel images")
	f.StringVar(&o.codeMode, "code-mode", "", "How load requests carry code: path|bytes")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	f.StringVar(&o.logFormat, "log-format", "", "Log format: json|console")
	f.StringVar(&o.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return root
}

// resolveConfig loads the optional config file, applies explicit flags on
// top and fills defaults.
func resolveConfig(cmd *cobra.Command, o options) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.kernelsDir != "" {
		cfg.KernelsDir = o.kernelsDir
	}
	if o.codeMode != "" {
		cfg.CodeMode = o.codeMode
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if cmd.Flags().Changed("cors-origins") {
		cfg.CORSOrigins = splitCSV(o.corsOrigins)
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// newServer wires the runtime, manager and HTTP handler. A nil opener uses
// the platform loader.
func newServer(cfg config.Config, opener kernel.Opener, log zerolog.Logger) (*http.Server, *manager.Manager, error) {
	st, err := stack.Build(cfg, opener, log)
	if err != nil {
		return nil, nil, err
	}
	images, err := registry.LoadDir(cfg.KernelsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan kernels dir: %w", err)
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Loader:        st.Loader,
		Allocator:     st.Alloc,
		Registry:      images,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		DrainTimeout:  cfg.DrainTimeout(),
		Logger:        log,
	})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().
		Str("kernels_dir", cfg.KernelsDir).
		Int("images", len(images)).
		Str("code_mode", st.Loader.CodeMode().String()).
		Str("power_off_mode", st.Power.Mode().String()).
		Msg("runtime ready")
	return srv, mgr, nil
}

// serve runs until ctx is canceled, then shuts the server down and unloads
// every module so the accelerator is powered off.
func serve(ctx context.Context, cfg config.Config, opener kernel.Opener, log zerolog.Logger) error {
	srv, mgr, err := newServer(cfg, opener, log)
	if err != nil {
		return err
	}
	httpapi.SetBaseContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("hvxhostd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(); err != nil {
		log.Error().Err(err).Msg("unload on shutdown")
		return errors.Join(serveErr, err)
	}
	return serveErr
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
