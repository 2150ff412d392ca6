package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dexiq/dexiq/internal/domain"
)

// MetadataSnapshotStore implements domain.MetadataSnapshotStore using
// PostgreSQL.
type MetadataSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewMetadataSnapshotStore creates a new MetadataSnapshotStore backed by the
// given connection pool.
func NewMetadataSnapshotStore(pool *pgxpool.Pool) *MetadataSnapshotStore {
	return &MetadataSnapshotStore{pool: pool}
}

const metadataSelectCols = `id, token_id, role, address, name, symbol,
	decimals, coingecko_coin_id,
	image_large, image_small, image_thumb,
	description, twitter_handle, discord_url, telegram_handle,
	gt_score, holders_count, holders_top_10, holders_11_20, holders_21_40, holders_rest,
	mint_authority, freeze_authority, fetched_at, created_at`

func scanMetadataRow(row pgx.Row) (domain.MetadataSnapshot, error) {
	var s domain.MetadataSnapshot
	var role string
	err := row.Scan(
		&s.ID, &s.TokenID, &role, &s.Address, &s.Name, &s.Symbol,
		&s.Decimals, &s.CoingeckoCoinID,
		&s.ImageLarge, &s.ImageSmall, &s.ImageThumb,
		&s.Description, &s.TwitterHandle, &s.DiscordURL, &s.TelegramHandle,
		&s.GTScore, &s.HoldersCount, &s.HoldersTop10, &s.Holders11To20, &s.Holders21To40, &s.HoldersRest,
		&s.MintAuthority, &s.FreezeAuthority, &s.FetchedAt, &s.CreatedAt,
	)
	if err != nil {
		return domain.MetadataSnapshot{}, err
	}
	s.Role = domain.MetadataRole(role)
	return s, nil
}

// Insert appends an immutable metadata snapshot. FetchedAt defaults to the
// write time when the caller leaves it zero.
func (s *MetadataSnapshotStore) Insert(ctx context.Context, snap domain.MetadataSnapshot) (domain.MetadataSnapshot, error) {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO metadata_snapshots (
			token_id, role, address, name, symbol,
			decimals, coingecko_coin_id,
			image_large, image_small, image_thumb,
			description, twitter_handle, discord_url, telegram_handle,
			gt_score, holders_count, holders_top_10, holders_11_20, holders_21_40, holders_rest,
			mint_authority, freeze_authority, fetched_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22, $23
		)
		RETURNING ` + metadataSelectCols

	row := s.pool.QueryRow(ctx, query,
		snap.TokenID, string(snap.Role), snap.Address, snap.Name, snap.Symbol,
		snap.Decimals, snap.CoingeckoCoinID,
		snap.ImageLarge, snap.ImageSmall, snap.ImageThumb,
		snap.Description, snap.TwitterHandle, snap.DiscordURL, snap.TelegramHandle,
		snap.GTScore, snap.HoldersCount, snap.HoldersTop10, snap.Holders11To20, snap.Holders21To40, snap.HoldersRest,
		snap.MintAuthority, snap.FreezeAuthority, snap.FetchedAt,
	)
	out, err := scanMetadataRow(row)
	if err != nil {
		return domain.MetadataSnapshot{}, fmt.Errorf("postgres: insert metadata snapshot for token %d: %w", snap.TokenID, err)
	}
	return out, nil
}

// Latest returns the most recent metadata snapshot for a token and role.
func (s *MetadataSnapshotStore) Latest(ctx context.Context, tokenID int64, role domain.MetadataRole) (domain.MetadataSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+metadataSelectCols+` FROM metadata_snapshots
		 WHERE token_id = $1 AND role = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, tokenID, string(role))

	snap, err := scanMetadataRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MetadataSnapshot{}, domain.ErrNotFound
		}
		return domain.MetadataSnapshot{}, fmt.Errorf("postgres: latest metadata snapshot for token %d role %s: %w", tokenID, role, err)
	}
	return snap, nil
}

// LatestAny returns the most recent metadata snapshot regardless of role.
func (s *MetadataSnapshotStore) LatestAny(ctx context.Context, tokenID int64) (domain.MetadataSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+metadataSelectCols+` FROM metadata_snapshots
		 WHERE token_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`, tokenID)

	snap, err := scanMetadataRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MetadataSnapshot{}, domain.ErrNotFound
		}
		return domain.MetadataSnapshot{}, fmt.Errorf("postgres: latest metadata snapshot for token %d: %w", tokenID, err)
	}
	return snap, nil
}

// Count returns how many metadata snapshots exist for a token.
func (s *MetadataSnapshotStore) Count(ctx context.Context, tokenID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM metadata_snapshots WHERE token_id = $1`, tokenID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count metadata snapshots for token %d: %w", tokenID, err)
	}
	return n, nil
}

// HasRole reports whether any snapshot with the given role exists for the
// token.
func (s *MetadataSnapshotStore) HasRole(ctx context.Context, tokenID int64, role domain.MetadataRole) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM metadata_snapshots WHERE token_id = $1 AND role = $2)`,
		tokenID, string(role)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: metadata role check for token %d: %w", tokenID, err)
	}
	return exists, nil
}

// LatestFetchedAt returns the newest fetched_at across a token's metadata
// snapshots, or nil when none exist.
func (s *MetadataSnapshotStore) LatestFetchedAt(ctx context.Context, tokenID int64) (*time.Time, error) {
	var ts *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(fetched_at) FROM metadata_snapshots WHERE token_id = $1`, tokenID).Scan(&ts)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest metadata fetched_at for token %d: %w", tokenID, err)
	}
	return ts, nil
}
