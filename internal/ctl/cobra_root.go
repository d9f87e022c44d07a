package ctl

import (
	"time"

	"github.com/spf13/cobra"
)

// buildRootCmdWith constructs the Cobra command tree wired to the fn* actions.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "hvxctl",
		Short:         "Run, inspect and transform accelerator kernels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Addr, "addr", cfg.Addr, "Daemon address (defaults HVXCTL_ADDR or :8080)")
	pf.StringVar(&cfg.KernelsDir, "kernels-dir", cfg.KernelsDir, "Directory of *.so kernel images (defaults to the config value)")
	pf.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Daemon config file used for local runs")
	pf.StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	var ro RunOptions
	runCmd := &cobra.Command{
		Use:   "run <image> <symbol>",
		Short: "Load an image, invoke one entry point and release it",
		Example: "  hvxctl run blur3x3.so blur3x3 --in frame.raw --scalar i32:640 --scalar i32:480 --out 307200\n" +
			"  hvxctl run ./k.so k --code-mode bytes --out 16 --out-prefix /tmp/k_",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ro.Image, ro.Symbol = args[0], args[1]
			return fnRunKernel(cfg, ro, cmd.OutOrStdout())
		},
	}
	rf := runCmd.Flags()
	rf.StringArrayVar(&ro.Inputs, "in", nil, "Input buffer file (repeatable, positional order)")
	rf.StringArrayVar(&ro.Scalars, "scalar", nil, "Scalar as type:value, e.g. i32:640 (repeatable)")
	rf.IntSliceVar(&ro.Outputs, "out", nil, "Output buffer size in bytes (repeatable)")
	rf.StringVar(&ro.OutPrefix, "out-prefix", "", "Write outputs to <prefix><n>.bin instead of printing base64")
	rf.StringVar(&ro.CodeMode, "code-mode", "", "path|bytes (overrides config)")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "images",
		Short: "List kernel images in the kernels directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnListImages(cfg, cmd.OutOrStdout())
		},
	})

	var wait time.Duration
	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Show daemon status",
		Example: "  hvxctl status --addr :8080 --wait 10s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnShowStatus(cfg, wait, cmd.OutOrStdout())
		},
	}
	statusCmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for /readyz first")
	root.AddCommand(statusCmd)

	root.AddCommand(&cobra.Command{
		Use:     "lift <functions.json|->",
		Short:   "Redirect calls to wrapped functions through their wrappers",
		Example: "  hvxctl lift pipeline.json > lifted.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnLift(args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	root.AddCommand(completionCmd)

	return root
}
