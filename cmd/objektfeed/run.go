package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"objektFeed/internal/config"
	"objektFeed/internal/hub"
	"objektFeed/internal/poller"
	"objektFeed/internal/replay"
	"objektFeed/internal/stream"
)

func runFeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	flush, err := initSentry(cfg.SentryDSN)
	if err != nil {
		return err
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	if chainID, err := p.client.ChainID(ctx); err == nil {
		logger.Info("connected to chain", zap.String("chain_id", chainID.String()))
	} else {
		logger.Warn("get chain id failed", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed, history writes will be retried per batch", zap.Error(err))
		}
	}

	var buffer replay.Buffer
	if redisClient != nil {
		buffer = replay.NewRedis(redisClient, cfg.HistoryKey, cfg.MaxHistory, logger)
	} else {
		logger.Warn("no redis url configured, history is kept in memory")
		buffer = replay.NewMemory(cfg.MaxHistory)
	}

	var hubOpts []hub.Option
	if cfg.CutoffEnabled {
		hubOpts = append(hubOpts, hub.WithCutoff(p.store.LatestTransferTimestamp))
	}
	feed := hub.New(hub.NewSessionSet(), buffer, logger, hubOpts...)
	sinks := []poller.Sink{feed}

	streamTopic := ""
	if cfg.StreamTopic != "" {
		if redisClient == nil {
			return fmt.Errorf("stream topic requires a redis url")
		}
		pub, err := stream.New(redisClient, cfg.StreamTopic, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		streamTopic = pub.Topic()
	}

	tail := poller.New(poller.Config{
		FromBlock:         cfg.FromBlock,
		CatchUpInterval:   cfg.CatchUpInterval,
		RetryBackoff:      cfg.RetryBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		Contract:          cfg.Contract,
	}, p.source, p.stage, sinks, logger)

	server := hub.NewServer(feed, cfg.QueueSize, logger)

	logger.Info("objektfeed start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("contract", cfg.Contract),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("listen", cfg.Listen),
		zap.Bool("redis", redisClient != nil),
		zap.String("stream_topic", streamTopic),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.Listen)
	})
	g.Go(func() error {
		return tail.Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("objektfeed stopped", zap.Uint64("cursor", tail.Cursor()), zap.Error(err))
	return err
}
