// Command admitctl runs one-off administrative tasks against the review
// database and drives load against a running review server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/admit/internal/adapters/repository"
	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/config"
	"github.com/okian/admit/internal/loadgen"
	"github.com/okian/admit/pkg/logger"
)

var dbFlag string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "admitctl",
		Short:         "Administrative tasks for the applicant review engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&dbFlag, "db", "", "sqlite database path (defaults to ADMIT_DATABASE_PATH or the config file)")

	root.AddCommand(
		&cobra.Command{
			Use:   "set-admin EMAIL",
			Short: "Grant admin rights, creating the profile if needed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
					p, created, err := svc.SetAdmin(ctx, args[0])
					if err != nil {
						return err
					}
					verb := "promoted"
					if created {
						verb = "created"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (%s)\n", verb, p.Email, p.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "apply-all EVENT",
			Short: "Create an application for every person who has not applied (event id or slug)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
					eventID := args[0]
					if ev, _, err := svc.EventBySlug(ctx, eventID); err == nil {
						eventID = ev.ID
					} else if !repository.IsNotFound(err) {
						return err
					}
					n, err := svc.ApplyAll(ctx, eventID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "created %d applications\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "profile-text EMAIL",
			Short: "Print the text the suggest service embeds for a profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
					text, err := svc.ProfileText(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), text)
					return nil
				})
			},
		},
		newSeedCmd(),
	)
	return root
}

func newSeedCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Submit synthetic applications to a running review server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := logger.New(cmd.ErrOrStderr())
			stats, err := loadgen.Run(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted %d, duplicate %d, failed %d in %s\n",
				stats.Accepted, stats.Duplicate, stats.Failed, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the review server")
	cmd.Flags().StringVarP(&cfg.EventSlug, "event", "e", "", "slug of the event to apply to (required)")
	cmd.Flags().IntVarP(&cfg.Applicants, "applicants", "n", 100, "number of synthetic applicants")
	cmd.Flags().IntVar(&cfg.Resubmit, "resubmit", 10, "how many applicants submit a second time")
	cmd.Flags().IntVarP(&cfg.Workers, "workers", "w", loadgen.DefaultWorkers, "number of concurrent workers")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failed request")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

// withService opens the configured database and runs fn with a service
// that has no search backend.
func withService(ctx context.Context, fn func(context.Context, *service.Service) error) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if dbFlag != "" {
		cfg.DatabasePath = dbFlag
	}
	if err := logger.Init(logger.Options{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stderr}); err != nil {
		return err
	}
	l := logger.Named("admitctl")

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.WithLogger(l))
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store, nil, service.WithLogger(l))
	defer svc.Stop()
	return fn(ctx, svc)
}
