package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"triage/internal/core"
)

type rootOptions struct {
	configPath string
	outPath    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage support emails into tickets with an LLM",
		Long: `Runs every configured support email through the zero-shot (v1),
few-shot (v2) and hardened self-check (v3) prompt variants and writes a
report mapping email id to variant to ticket or error.

Configuration is read from config.yaml (or --config) and environment
variables. Set llm.replay_dir to answer from recorded fixtures.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default config.yaml if present)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "report path (overrides report.path)")

	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func runBatch(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := core.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.outPath != "" {
		cfg.Report.Path = opts.outPath
	}

	emails, err := core.LoadEmails(cfg.Triage.EmailsFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.aggregator.Run(ctx, emails)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d emails, %d failures in %s\n",
		result.RunID, result.Report.Len(), result.Report.Failures(), result.Duration.Round(time.Millisecond))
	if cfg.Report.Path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", cfg.Report.Path)
	}
	return nil
}
