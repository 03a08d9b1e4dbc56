package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"objektFeed/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "objektfeed",
		Short:        "Real-time objekt transfer feed",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Tail the chain and serve transfers over WebSocket",
		RunE:  runFeed,
	}

	addChainFlags(runCmd)
	runCmd.Flags().Uint64("from", 0, "first block to query, 0 means the current chain height")
	runCmd.Flags().Uint64("confirmations", 0, "blocks to stay behind the chain head")
	runCmd.Flags().Duration("catchup-interval", time.Second, "height poll interval while waiting for new blocks")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("max-backoff", 30*time.Second, "maximum retry backoff")
	runCmd.Flags().String("listen", ":3001", "HTTP and WebSocket listen address")
	runCmd.Flags().Int("queue-size", 64, "outbound messages buffered per subscriber")
	runCmd.Flags().String("redis-url", config.DefaultRedisURL, "Redis URL for the replay buffer (empty keeps history in memory)")
	runCmd.Flags().String("history-key", "transfer:history", "Redis key of the replay buffer")
	runCmd.Flags().Int("max-history", 50, "replay buffer capacity")
	runCmd.Flags().Bool("cutoff-enabled", false, "only replay history newer than the latest indexed transfer")
	runCmd.Flags().String("stream-topic", "", "also publish transfers to this Redis stream")
	runCmd.Flags().String("sentry-dsn", "", "Sentry DSN")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", false, "persist the cursor and resume from it")

	root.AddCommand(runCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decode and enrich a block range into JSONL",
		RunE:  runInspect,
	}

	addChainFlags(inspectCmd)
	inspectCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	inspectCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	inspectCmd.Flags().String("out", "./data/transfers.jsonl", "output JSONL path")

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", config.DefaultRPCURL, "JSON-RPC URL")
	cmd.Flags().String("contract", config.DefaultContract, "objekt contract address")
	cmd.Flags().String("topic0", config.DefaultTopic0, "Transfer event topic0")
	cmd.Flags().Uint64("batch-size", 1000, "blocks per query")
	cmd.Flags().String("database-url", "", "Postgres DSN of the identity store")
	cmd.Flags().String("metadata-url", config.DefaultMetadataURL, "objekt metadata service base URL")
	cmd.Flags().Duration("metadata-timeout", 10*time.Second, "metadata request timeout")
	cmd.Flags().Int("metadata-concurrency", 8, "parallel metadata requests per batch, 0 is unlimited")
	cmd.Flags().Bool("strict-timestamps", false, "fail a batch when a block timestamp is missing")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// initSentry returns a flush func; it is a no-op without a DSN.
func initSentry(dsn string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}
