// Command taskqd runs the background job dispatcher and provides
// operational subcommands for enqueuing jobs and inspecting queues.
//
// Configuration comes from the environment (a .env file is loaded when
// present):
//
//	REDIS_HOST, REDIS_PORT, REDIS_PASSWORD
//	REDIS_DIAL_TIMEOUT_MS, REDIS_READ_TIMEOUT_MS, REDIS_WRITE_TIMEOUT_MS
//	REDIS_MAX_RETRIES
//	POLL_INTERVAL_MS, SHUTDOWN_TIMEOUT_MS
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/cvdesk/taskq"
	"github.com/cvdesk/taskq/engine"
	"github.com/cvdesk/taskq/job"
	"github.com/cvdesk/taskq/kv"
	kvredis "github.com/cvdesk/taskq/kv/redis"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskqd",
		Short:         "Priority job dispatcher for the CV platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(workerCmd(), enqueueCmd(), statsCmd())
	return root
}

// loadEnv reads .env if present and builds the store and engine
// configuration from the environment.
func loadEnv() (kv.Config, taskq.Config) {
	//nolint:errcheck // a missing .env file is fine, the environment wins anyway
	godotenv.Load()

	storeCfg := kv.DefaultConfig()
	if v := os.Getenv("REDIS_HOST"); v != "" {
		storeCfg.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		storeCfg.Port = cast.ToInt(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		storeCfg.Password = v
	}
	if v := os.Getenv("REDIS_DIAL_TIMEOUT_MS"); v != "" {
		storeCfg.DialTimeout = time.Duration(cast.ToInt(v)) * time.Millisecond
	}
	if v := os.Getenv("REDIS_READ_TIMEOUT_MS"); v != "" {
		storeCfg.ReadTimeout = time.Duration(cast.ToInt(v)) * time.Millisecond
	}
	if v := os.Getenv("REDIS_WRITE_TIMEOUT_MS"); v != "" {
		storeCfg.WriteTimeout = time.Duration(cast.ToInt(v)) * time.Millisecond
	}
	if v := os.Getenv("REDIS_MAX_RETRIES"); v != "" {
		storeCfg.MaxRetries = cast.ToInt(v)
	}

	engCfg := taskq.DefaultConfig()
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		engCfg.PollInterval = time.Duration(cast.ToInt(v)) * time.Millisecond
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT_MS"); v != "" {
		engCfg.ShutdownTimeout = time.Duration(cast.ToInt(v)) * time.Millisecond
	}

	return storeCfg, engCfg
}

func buildEngine(logger *slog.Logger) (*engine.Engine, func() error, error) {
	storeCfg, engCfg := loadEnv()

	client := kvredis.NewClient(storeCfg)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", storeCfg.Addr(), err)
	}

	store := kvredis.New(client, kvredis.WithLogger(logger))
	eng := engine.New(store,
		engine.WithLogger(logger),
		engine.WithConfig(engCfg),
	)
	return eng, client.Close, nil
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the dispatcher until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

			eng, closeStore, err := buildEngine(logger)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // shutting down anyway

			// Processor registration happens here in a deployment; the
			// bare worker dispatches whatever types are wired in.

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := eng.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutdown signal received")

			return eng.Stop(context.Background())
		},
	}
}

func enqueueCmd() *cobra.Command {
	var (
		priority    string
		maxAttempts int
		delayMs     int
	)

	cmd := &cobra.Command{
		Use:   "enqueue <type> [payload-json]",
		Short: "Enqueue a job",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			t := job.Type(args[0])
			if !t.Valid() {
				return fmt.Errorf("unknown job type %q (known: %v)", args[0], job.Types())
			}

			var payload any
			if len(args) == 2 {
				var raw json.RawMessage
				if err := json.Unmarshal([]byte(args[1]), &raw); err != nil {
					return fmt.Errorf("invalid payload JSON: %w", err)
				}
				payload = raw
			}

			opts := []job.Option{job.WithMaxAttempts(maxAttempts)}
			if priority != "" {
				p, err := job.ParsePriority(priority)
				if err != nil {
					return err
				}
				opts = append(opts, job.WithPriority(p))
			}
			if delayMs > 0 {
				opts = append(opts, job.WithDelay(time.Duration(delayMs)*time.Millisecond))
			}

			eng, closeStore, err := buildEngine(logger)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // one-shot command

			jobID, err := eng.Enqueue(cmd.Context(), t, payload, opts...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&priority, "priority", "", "queue priority: low, normal, high, urgent")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "attempts before the job fails terminally")
	cmd.Flags().IntVar(&delayMs, "delay-ms", 0, "advisory delay stamped on the job record")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print queue depths as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			eng, closeStore, err := buildEngine(logger)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // one-shot command

			stats, err := eng.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
