// Package cli implements obsctl, the operator tool for the departures dashboard.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/observatorio-ti/observatorio/internal/app"
	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dataset"
	"github.com/observatorio-ti/observatorio/internal/platform/cache"
	"github.com/observatorio-ti/observatorio/jobs"
)

// Enqueuer submits refresh requests to the worker queue.
type Enqueuer interface {
	EnqueueDatasetRefresh(ctx context.Context, reason string) (*asynq.TaskInfo, error)
	Close() error
}

// Deps holds the collaborators of every command. Zero fields fall back to the real
// implementations.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	LoadConfig   func() (*app.Config, error)
	NewLoader    func(baseURL string) (dashboard.Loader, error)
	NewEnqueuer  func(redisAddr string) (Enqueuer, error)
	NewPublisher func(ctx context.Context, redisAddr string) (jobs.RefreshPublisher, func() error, error)
	NewInspector func(redisAddr string) (jobs.QueueInspector, func() error, error)
}

func (d Deps) withDefaults() Deps {
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.LoadConfig == nil {
		d.LoadConfig = app.LoadConfig
	}
	if d.NewLoader == nil {
		d.NewLoader = func(baseURL string) (dashboard.Loader, error) {
			loader, err := dataset.NewLoader(baseURL)
			if err != nil {
				return nil, err
			}
			return loader, nil
		}
	}
	if d.NewEnqueuer == nil {
		d.NewEnqueuer = func(redisAddr string) (Enqueuer, error) {
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}
	if d.NewPublisher == nil {
		d.NewPublisher = func(ctx context.Context, redisAddr string) (jobs.RefreshPublisher, func() error, error) {
			client, err := cache.Connect(ctx, redisAddr)
			if err != nil {
				return nil, nil, err
			}
			return dashboard.NewRefreshBus(client, ""), client.Close, nil
		}
	}
	if d.NewInspector == nil {
		d.NewInspector = func(redisAddr string) (jobs.QueueInspector, func() error, error) {
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
			return inspector, inspector.Close, nil
		}
	}
	return d
}

// Execute runs obsctl with the process arguments.
func Execute() {
	cmd := NewRootCmd(Deps{})
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type sourceFlags struct {
	origin   string
	basePath string
	timeout  time.Duration
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	src := &sourceFlags{}

	cmd := &cobra.Command{
		Use:           "obsctl",
		Short:         "Operate the IT departures dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVar(&src.origin, "origin", "", "origin serving the aggregate files (default: DATA_ORIGIN or the server address)")
	cmd.PersistentFlags().StringVar(&src.basePath, "base-path", "", "deployment sub-path (default: BASE_PATH)")
	cmd.PersistentFlags().DurationVar(&src.timeout, "timeout", 30*time.Second, "timeout for a full load")

	cmd.AddCommand(
		checkCmd(deps, src),
		exportCmd(deps, src),
		refreshCmd(deps, src),
		queueCmd(deps),
	)
	return cmd
}

// resolve returns the loader for the selected source, applying config defaults.
func (s *sourceFlags) resolve(deps Deps) (*app.Config, dashboard.Loader, string, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, "", err
	}
	origin := s.origin
	if origin == "" {
		origin = cfg.LoaderOrigin()
	}
	basePath := cfg.BasePath
	if s.basePath != "" {
		basePath = app.NormalizeBasePath(s.basePath)
	}
	baseURL, err := dataset.ResolveBase(origin, basePath)
	if err != nil {
		return nil, nil, "", err
	}
	loader, err := deps.NewLoader(baseURL)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, loader, baseURL, nil
}

func (s *sourceFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}
