package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkellner/binsweep/internal/config"
	"github.com/mkellner/binsweep/internal/rate"
	"github.com/mkellner/binsweep/internal/runtime"
	"github.com/mkellner/binsweep/internal/trash"
)

type options struct {
	configPath  string
	credentials string
	token       string
	gmailctlDir string
	user        string
	query       string
	max         int
	dryRun      bool
	batchSize   int
	pageSize    int
	rps         int
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "binsweep",
		Short: "Move archived, unlabeled Gmail messages to Trash",
		Long: `binsweep finds messages matching a Gmail search query (by default:
archived, without user labels, not already in Trash or Spam) and moves
them to Trash. Trashed mail stays recoverable until Gmail empties Trash.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	fl := rootCmd.Flags()
	fl.StringVar(&opts.configPath, "config", "", "path to yaml config file with flag defaults")
	fl.StringVar(&opts.credentials, "credentials", "credentials.json", "path to OAuth client credentials JSON")
	fl.StringVar(&opts.token, "token", "token.json", "path to saved OAuth token JSON")
	fl.StringVar(&opts.gmailctlDir, "gmailctl-config", "", "authenticate from this gmailctl directory instead of credential files")
	fl.StringVar(&opts.user, "user", "me", "Gmail userId")
	fl.StringVar(&opts.query, "query", trash.DefaultQuery, "Gmail search query")
	fl.IntVar(&opts.max, "max", 0, "max messages to process (0 = unlimited)")
	fl.BoolVar(&opts.dryRun, "dry-run", false, "only count what would be trashed; change nothing")
	fl.IntVar(&opts.batchSize, "batch-size", 100, "message IDs per progress chunk")
	fl.IntVar(&opts.pageSize, "page-size", 500, "Gmail list page size (<=500)")
	fl.IntVar(&opts.rps, "rps", 5, "max API requests per second (0 disables throttling)")

	if err := rootCmd.Execute(); err != nil {
		runtime.DefaultLogger().Error("binsweep failed", "error", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts *options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyConfig(cmd, opts, cfg)

	logger := runtime.DefaultLogger()
	client, err := runtime.NewGmailClient(ctx, runtime.Auth{
		CredentialsFile: opts.credentials,
		TokenFile:       opts.token,
		GmailctlDir:     opts.gmailctlDir,
	})
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter = rate.NoLimit{}
	if opts.rps > 0 {
		bucket := rate.NewTokenBucket(opts.rps)
		defer bucket.Stop()
		limiter = bucket
	}

	svc := trash.NewService(client, limiter, logger)
	rep, err := svc.Run(ctx, trash.Spec{
		User:      opts.user,
		Query:     opts.query,
		Max:       opts.max,
		DryRun:    opts.dryRun,
		BatchSize: opts.batchSize,
		PageSize:  opts.pageSize,
	})
	if err != nil {
		return fmt.Errorf("run sweep: %w", err)
	}

	if rep.DryRun {
		logger.Info("done", "would_trash", rep.Trashed)
	} else {
		logger.Info("done", "trashed", rep.Trashed, "skipped", rep.Skipped)
	}
	return nil
}

// applyConfig fills in file-supplied defaults for flags the operator did not
// set explicitly.
func applyConfig(cmd *cobra.Command, opts *options, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if !changed("credentials") && cfg.Gmail.CredentialsFile != "" {
		opts.credentials = cfg.Gmail.CredentialsFile
	}
	if !changed("token") && cfg.Gmail.TokenFile != "" {
		opts.token = cfg.Gmail.TokenFile
	}
	if !changed("gmailctl-config") && cfg.Gmail.GmailctlDir != "" {
		opts.gmailctlDir = cfg.Gmail.GmailctlDir
	}
	if !changed("user") && cfg.Gmail.User != "" {
		opts.user = cfg.Gmail.User
	}
	if !changed("query") && cfg.Sweep.Query != "" {
		opts.query = cfg.Sweep.Query
	}
	if !changed("batch-size") && cfg.Sweep.BatchSize > 0 {
		opts.batchSize = cfg.Sweep.BatchSize
	}
	if !changed("page-size") && cfg.Sweep.PageSize > 0 {
		opts.pageSize = cfg.Sweep.PageSize
	}
	// rps 0 is meaningful (disables throttling), so only negatives are ignored
	if !changed("rps") && cfg.Sweep.RPS >= 0 {
		opts.rps = cfg.Sweep.RPS
	}
}
