package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/observatorio-ti/observatorio/jobs"
)

func refreshCmd(deps Deps, src *sourceFlags) *cobra.Command {
	var (
		now    bool
		reason string
	)

	c := &cobra.Command{
		Use:   "refresh",
		Short: "Ask the dashboard servers to reload the published aggregates",
		Long: "Without --now the request is queued for the worker. With --now the dataset is\n" +
			"validated here and the refresh notice is published directly.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return errors.New("refresh: REDIS_ADDR is not configured")
			}

			if !now {
				client, err := deps.NewEnqueuer(cfg.RedisAddr)
				if err != nil {
					return fmt.Errorf("refresh: %w", err)
				}
				defer client.Close()
				info, err := client.EnqueueDatasetRefresh(cmd.Context(), reason)
				if errors.Is(err, asynq.ErrDuplicateTask) {
					_, _ = fmt.Fprintln(deps.Stdout, "refresh already pending")
					return nil
				}
				if err != nil {
					return fmt.Errorf("refresh: enqueue: %w", err)
				}
				_, _ = fmt.Fprintf(deps.Stdout, "enqueued %s on queue %s\n", info.ID, info.Queue)
				return nil
			}

			_, loader, _, err := src.resolve(deps)
			if err != nil {
				return err
			}
			ctx, cancel := src.context(cmd.Context())
			defer cancel()

			publisher, closeFn, err := deps.NewPublisher(ctx, cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			if closeFn != nil {
				defer func() { _ = closeFn() }()
			}
			logger := slog.New(slog.NewTextHandler(deps.Stderr, nil))
			job := jobs.NewDatasetRefreshJob(loader, publisher, logger, nil)
			if err := job.Run(ctx, reason); err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			_, _ = fmt.Fprintln(deps.Stdout, "refresh published")
			return nil
		},
	}
	c.Flags().BoolVar(&now, "now", false, "validate and publish immediately instead of queueing")
	c.Flags().StringVar(&reason, "reason", "manual", "reason recorded with the refresh")
	return c
}

func queueCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the state of the refresh queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			inspector, closeFn, err := deps.NewInspector(cfg.RedisAddr)
			if err != nil {
				return fmt.Errorf("queue: %w", err)
			}
			if closeFn != nil {
				defer func() { _ = closeFn() }()
			}
			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil {
				return fmt.Errorf("queue: %w", err)
			}
			_, _ = fmt.Fprintf(deps.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d failed_today=%d\n",
				info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Failed)
			return nil
		},
	}
}
