package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"objektFeed/internal/model"
)

// Store reads identity and transfer state from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// KnownAddresses returns the user_address records matching addresses. Matching is
// case-insensitive: inputs are lowercased and the column is citext.
func (s *Store) KnownAddresses(ctx context.Context, addresses []string) ([]model.IdentityRecord, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(addresses))
	for _, address := range addresses {
		lowered = append(lowered, strings.ToLower(address))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT address, nickname, hide_activity
		FROM user_address
		WHERE address = ANY($1)
	`, lowered)
	if err != nil {
		return nil, fmt.Errorf("query user_address: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.IdentityRecord, error) {
		var record model.IdentityRecord
		err := row.Scan(&record.Address, &record.Nickname, &record.HideActivity)
		return record, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan user_address: %w", err)
	}
	return records, nil
}

// LatestTransferTimestamp returns the newest durably recorded transfer time, and
// false when the transfer table is empty.
func (s *Store) LatestTransferTimestamp(ctx context.Context) (time.Time, bool, error) {
	var ts *time.Time
	row := s.pool.QueryRow(ctx, `SELECT max(timestamp) FROM transfer`)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return ts.UTC(), true, nil
}
