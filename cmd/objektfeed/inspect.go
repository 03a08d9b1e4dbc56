package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"objektFeed/internal/chain"
	"objektFeed/internal/config"
	"objektFeed/internal/storage"
)

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	to := cfg.ToBlock
	if to == 0 {
		to, err = p.source.Height(ctx)
		if err != nil {
			return err
		}
	}

	ranges, err := chain.SplitRange(cfg.FromBlock, to, cfg.BatchSize)
	if err != nil {
		return err
	}

	out := storage.NewJsonlStorage(cfg.Out)
	if err := out.Truncate(); err != nil {
		return err
	}

	logger.Info("inspect start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", to),
		zap.String("out", cfg.Out),
	)

	var logs, events int
	for _, blockRange := range ranges {
		batch, err := p.source.Fetch(ctx, blockRange)
		if err != nil {
			return err
		}
		logs += len(batch.Logs)
		if len(batch.Logs) == 0 {
			continue
		}

		enriched, err := p.stage.Enrich(ctx, batch)
		if err != nil {
			return fmt.Errorf("enrich %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		if err := out.Publish(ctx, enriched); err != nil {
			return err
		}
		events += len(enriched)

		logger.Info("batch complete",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("logs", len(batch.Logs)),
			zap.Int("events", len(enriched)),
		)
	}

	logger.Info("inspect complete", zap.Int("logs", logs), zap.Int("events", events))
	return nil
}
