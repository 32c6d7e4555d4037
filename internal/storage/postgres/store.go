package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pooldex/internal/model"
	"pooldex/internal/storage"
)

const epochStateName = "epoch"

// Store provides Postgres persistence for pools, coupon records, and the
// epoch counter. A pool and its records are always written in one
// transaction.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
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

// EnsureSchema creates the tables this store needs.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			id text PRIMARY KEY,
			token_a text NOT NULL,
			token_b text NOT NULL,
			reserve_a bigint NOT NULL,
			reserve_b bigint NOT NULL,
			share_supply bigint NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS coupon_records (
			pool_id text NOT NULL REFERENCES pools (id),
			provider text NOT NULL,
			coupon_id bigint NOT NULL,
			lp_amount bigint NOT NULL,
			last_update_epoch bigint NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (pool_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS engine_state (
			name text PRIMARY KEY,
			value bigint NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetPool loads a pool and all of its coupon records.
func (s *Store) GetPool(ctx context.Context, id string) (*model.Pool, error) {
	pool := &model.Pool{Providers: make(map[string]*model.CouponRecord)}

	row := s.pool.QueryRow(ctx, `
		SELECT id, token_a, token_b, reserve_a, reserve_b, share_supply
		FROM pools WHERE id = $1
	`, id)

	var reserveA, reserveB, shareSupply int64
	if err := row.Scan(&pool.ID, &pool.TokenA, &pool.TokenB, &reserveA, &reserveB, &shareSupply); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrPoolNotFound
		}
		return nil, err
	}
	pool.ReserveA = uint64(reserveA)
	pool.ReserveB = uint64(reserveB)
	pool.ShareSupply = uint64(shareSupply)

	rows, err := s.pool.Query(ctx, `
		SELECT provider, coupon_id, lp_amount, last_update_epoch
		FROM coupon_records WHERE pool_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var provider string
		var couponID, lpAmount, lastEpoch int64
		if err := rows.Scan(&provider, &couponID, &lpAmount, &lastEpoch); err != nil {
			return nil, err
		}
		pool.Providers[provider] = &model.CouponRecord{
			CouponID:        uint64(couponID),
			LPAmount:        uint64(lpAmount),
			LastUpdateEpoch: uint64(lastEpoch),
		}
	}
	return pool, rows.Err()
}

// PutPool upserts a pool and replaces its coupon records in one transaction,
// so records of exited providers disappear with the same commit that burns
// their shares.
func (s *Store) PutPool(ctx context.Context, pool *model.Pool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO pools (id, token_a, token_b, reserve_a, reserve_b, share_supply, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id)
		DO UPDATE SET
			reserve_a = EXCLUDED.reserve_a,
			reserve_b = EXCLUDED.reserve_b,
			share_supply = EXCLUDED.share_supply,
			updated_at = now()
	`,
		pool.ID,
		pool.TokenA,
		pool.TokenB,
		int64(pool.ReserveA),
		int64(pool.ReserveB),
		int64(pool.ShareSupply),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM coupon_records WHERE pool_id = $1`, pool.ID); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for provider, rec := range pool.Providers {
		batch.Queue(`
			INSERT INTO coupon_records (pool_id, provider, coupon_id, lp_amount, last_update_epoch, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`,
			pool.ID,
			provider,
			int64(rec.CouponID),
			int64(rec.LPAmount),
			int64(rec.LastUpdateEpoch),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range pool.Providers {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// LoadEpoch returns the persisted epoch counter, zero if never advanced.
func (s *Store) LoadEpoch(ctx context.Context) (uint64, error) {
	var value int64
	row := s.pool.QueryRow(ctx, `SELECT value FROM engine_state WHERE name = $1`, epochStateName)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(value), nil
}

// SaveEpoch upserts the epoch counter.
func (s *Store) SaveEpoch(ctx context.Context, epoch uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, epochStateName, int64(epoch))
	return err
}
