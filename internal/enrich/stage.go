package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"objektFeed/internal/model"
)

// ErrMissingTimestamp is returned in strict mode when a log's block has no timestamp in the batch.
var ErrMissingTimestamp = errors.New("missing block timestamp")

// Decoder decodes raw logs, returning nil for logs it cannot match.
type Decoder interface {
	DecodeLogs(logs []model.RawLog) []*model.DecodedTransfer
}

// MetadataFetcher resolves token metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, tokenID string) (model.Metadata, error)
}

// IdentityLookup returns the known records among addresses.
type IdentityLookup interface {
	KnownAddresses(ctx context.Context, addresses []string) ([]model.IdentityRecord, error)
}

// Config controls enrichment behavior.
type Config struct {
	// MetadataConcurrency bounds in-flight metadata lookups per batch. Zero means unbounded.
	MetadataConcurrency int
	// StrictTimestamps turns a missing block timestamp into a batch error instead of epoch.
	StrictTimestamps bool
}

// Stage decodes a raw log batch and turns it into transfer events.
type Stage struct {
	cfg        Config
	decoder    Decoder
	metadata   MetadataFetcher
	identities IdentityLookup
	logger     *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewStage builds a Stage with its dependencies.
func NewStage(cfg Config, decoder Decoder, metadata MetadataFetcher, identities IdentityLookup, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		cfg:        cfg,
		decoder:    decoder,
		metadata:   metadata,
		identities: identities,
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

type metadataOutcome struct {
	meta model.Metadata
	err  error
}

// Enrich returns the surviving transfer events of batch in chain order.
// A metadata failure drops only the affected transfer; an identity lookup failure
// fails the batch since the privacy filter cannot be applied without it.
func (s *Stage) Enrich(ctx context.Context, batch model.RawLogBatch) ([]model.TransferEvent, error) {
	if len(batch.Logs) == 0 {
		return nil, nil
	}

	decoded := lo.Filter(s.decoder.DecodeLogs(batch.Logs), func(t *model.DecodedTransfer, _ int) bool {
		return t != nil
	})
	if skipped := len(batch.Logs) - len(decoded); skipped > 0 {
		s.logger.Debug("skipped undecodable logs", zap.Int("skipped", skipped))
	}
	if len(decoded) == 0 {
		return nil, nil
	}

	addresses := make([]string, 0, len(decoded)*2)
	for _, transfer := range decoded {
		addresses = append(addresses, normalizeAddress(transfer.From), normalizeAddress(transfer.To))
	}
	addresses = lo.Uniq(addresses)

	var records []model.IdentityRecord
	outcomes := make([]metadataOutcome, len(decoded))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.identities.KnownAddresses(gctx, addresses)
		if err != nil {
			return fmt.Errorf("identity lookup: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.fetchMetadata(gctx, decoded, outcomes)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	known := indexIdentities(records)
	events := make([]model.TransferEvent, 0, len(decoded))
	for i, transfer := range decoded {
		tokenID := transfer.TokenID.String()
		if err := outcomes[i].err; err != nil {
			s.logger.Warn("metadata lookup failed", zap.String("token_id", tokenID), zap.Error(err))
			continue
		}

		from, fromKnown := known[normalizeAddress(transfer.From)]
		to, toKnown := known[normalizeAddress(transfer.To)]
		if (fromKnown && from.HideActivity) || (toKnown && to.HideActivity) {
			s.logger.Debug("transfer hidden", zap.String("token_id", tokenID))
			continue
		}

		ts, ok := batch.Timestamp(transfer.BlockNumber)
		if !ok {
			if s.cfg.StrictTimestamps {
				return nil, fmt.Errorf("%w: block %d", ErrMissingTimestamp, transfer.BlockNumber)
			}
			s.logger.Warn("block timestamp missing, using epoch", zap.Uint64("block_number", transfer.BlockNumber))
		}

		event := s.buildEvent(transfer, outcomes[i].meta, ts)
		if fromKnown {
			event.FromIdentity = &model.Identity{Nickname: from.Nickname, Address: from.Address}
		}
		if toKnown {
			event.ToIdentity = &model.Identity{Nickname: to.Nickname, Address: to.Address}
		}
		events = append(events, event)

		s.logger.Info("objekt transfer",
			zap.String("collection", outcomes[i].meta.Objekt.CollectionID),
			zap.Int("serial", outcomes[i].meta.Objekt.ObjektNo),
			zap.String("from", event.From),
			zap.String("to", event.To),
		)
	}

	return events, nil
}

func (s *Stage) fetchMetadata(ctx context.Context, decoded []*model.DecodedTransfer, outcomes []metadataOutcome) {
	var g errgroup.Group
	if s.cfg.MetadataConcurrency > 0 {
		g.SetLimit(s.cfg.MetadataConcurrency)
	}
	for i, transfer := range decoded {
		tokenID := transfer.TokenID.String()
		g.Go(func() error {
			meta, err := s.metadata.Fetch(ctx, tokenID)
			outcomes[i] = metadataOutcome{meta: meta, err: err}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Stage) buildEvent(transfer *model.DecodedTransfer, meta model.Metadata, ts uint64) model.TransferEvent {
	blockTime := time.Unix(int64(ts), 0).UTC()
	now := s.now().UTC()
	tokenID := transfer.TokenID.String()

	slug := Slug(meta.Objekt.CollectionID)
	background, text := OverrideColors(slug, meta.Objekt.CollectionNo, meta.Objekt.BackgroundColor, meta.Objekt.TextColor)

	artist := ""
	if len(meta.Objekt.Artists) > 0 {
		artist = strings.ToLower(meta.Objekt.Artists[0])
	}

	return model.TransferEvent{
		ID:             s.newID(),
		From:           normalizeAddress(transfer.From),
		To:             normalizeAddress(transfer.To),
		TokenID:        tokenID,
		BlockNumber:    transfer.BlockNumber,
		BlockTimestamp: blockTime,
		Objekt: model.Objekt{
			ID:              tokenID,
			Artist:          artist,
			BackImage:       meta.Objekt.BackImage,
			BackgroundColor: background,
			Class:           meta.Objekt.Class,
			CollectionID:    meta.Objekt.CollectionID,
			CollectionNo:    meta.Objekt.CollectionNo,
			CreatedAt:       now,
			FrontImage:      meta.Objekt.FrontImage,
			Member:          meta.Objekt.Member,
			MintedAt:        now,
			OnOffline:       OnOffline(meta.Objekt.CollectionNo),
			ReceivedAt:      blockTime,
			Season:          meta.Objekt.Season,
			Serial:          meta.Objekt.ObjektNo,
			Slug:            slug,
			TextColor:       text,
			Transferable:    meta.Objekt.Transferable,
		},
	}
}

// indexIdentities keys records by lowercased address. If an address has several
// records, any one hiding activity hides it.
func indexIdentities(records []model.IdentityRecord) map[string]model.IdentityRecord {
	out := make(map[string]model.IdentityRecord, len(records))
	for _, record := range records {
		key := strings.ToLower(record.Address)
		if existing, ok := out[key]; ok {
			record.HideActivity = record.HideActivity || existing.HideActivity
		}
		out[key] = record
	}
	return out
}

func normalizeAddress(address common.Address) string {
	return strings.ToLower(address.Hex())
}
