package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"objektFeed/internal/chain"
	"objektFeed/internal/config"
	"objektFeed/internal/decoder"
	"objektFeed/internal/enrich"
	"objektFeed/internal/metadata"
	"objektFeed/internal/storage/postgres"
)

// pipeline holds the pieces shared by run and inspect.
type pipeline struct {
	client *chain.Client
	source *chain.Source
	store  *postgres.Store
	stage  *enrich.Stage
}

func newPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pipeline, error) {
	contract, err := chain.ParseAddress(cfg.Contract)
	if err != nil {
		return nil, err
	}
	topic0, err := chain.ParseTopic0(cfg.Topic0)
	if err != nil {
		return nil, err
	}

	transfers, err := decoder.NewTransferDecoder()
	if err != nil {
		return nil, err
	}
	if topic0 != transfers.Topic0() {
		logger.Warn("topic0 does not match the Transfer signature, no log will decode",
			zap.String("topic0", topic0.Hex()),
			zap.String("transfer", transfers.Topic0().Hex()),
		)
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	source, err := chain.NewSource(chain.SourceConfig{
		Contract:      contract,
		Topic0:        topic0,
		BatchSize:     cfg.BatchSize,
		Confirmations: cfg.Confirmations,
	}, client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	meta, err := metadata.NewClient(metadata.Config{
		BaseURL: cfg.MetadataURL,
		Timeout: cfg.MetadataTimeout,
	}, logger)
	if err != nil {
		store.Close()
		client.Close()
		return nil, err
	}

	stage := enrich.NewStage(enrich.Config{
		MetadataConcurrency: cfg.MetadataConcurrency,
		StrictTimestamps:    cfg.StrictTimestamps,
	}, transfers, meta, store, logger)

	return &pipeline{client: client, source: source, store: store, stage: stage}, nil
}

func (p *pipeline) Close() {
	p.store.Close()
	p.client.Close()
}
