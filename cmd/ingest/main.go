package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/NewsHub/internal/app"
	"github.com/LJTian/NewsHub/internal/config"
	"github.com/LJTian/NewsHub/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 命令行入口：手动触发一次采集、抽取单页或向队列提交任务
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, &cli{cfg: config.Load()}, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// cli 持有按需创建的资源；extract 不打开存储
type cli struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
	closed bool
}

// execute 运行命令；无论命令成功与否，返回前都会释放存储与日志
func execute(ctx context.Context, c *cli, args []string) error {
	defer c.close()
	root := c.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	c.closed = true
}

func (c *cli) rootCmd() *cobra.Command {
	var (
		backend     string
		concurrency int
	)

	rootCmd := &cobra.Command{
		Use:          "ingest",
		Short:        "Feed ingestion and article extraction",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if backend != "" {
				c.cfg.StoreBackend = backend
			}
			if concurrency > 0 {
				c.cfg.IngestConcurrency = concurrency
			}
			logger, err := c.cfg.NewLogger()
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "store backend (postgres|badger), overrides STORE_BACKEND")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "items processed in parallel, overrides INGEST_CONCURRENCY")

	runCmd := &cobra.Command{
		Use:   "run <feed-url>...",
		Short: "Ingest feeds now and print the summaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			var failed int
			for _, feed := range args {
				sum, err := a.Orchestrator.Run(cmd.Context(), feed)
				st := notify.FromSummary(feed, sum, err)
				fmt.Fprint(cmd.OutOrStdout(), st.Subject()+"\n"+st.Body()+"\n")
				if err != nil {
					failed++
					if errors.Is(err, context.Canceled) {
						return err
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d feeds failed", failed, len(args))
			}
			return nil
		},
	}

	extractCmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch and extract a single article without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.NewExtractOnly(c.cfg, c.logger).ExtractURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	enqueueCmd := &cobra.Command{
		Use:   "enqueue <feed-url>...",
		Short: "Submit ingest jobs to the Redis queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.RedisAddr == "" {
				return errors.New("REDIS_ADDR is not set")
			}
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			for _, feed := range args {
				job, err := a.Queue.Enqueue(cmd.Context(), feed)
				if err != nil {
					return fmt.Errorf("enqueue %s: %w", feed, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", job.ID, feed)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, extractCmd, enqueueCmd)
	return rootCmd
}
