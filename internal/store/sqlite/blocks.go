package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/throttle"
	"github.com/pkg/errors"
)

type blockRepo struct {
	db *sql.DB
}

var _ throttle.Repo = (*blockRepo)(nil)

func (r *blockRepo) Get(ctx context.Context, key string) (*throttle.Block, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, attempts, blocked_until, version FROM blocks WHERE key = ?
	`, key)

	var (
		block        throttle.Block
		attempts     string
		blockedUntil int64
	)
	err := row.Scan(&block.Key, &attempts, &blockedUntil, &block.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, throttle.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[blockRepo.Get] scan")
	}

	var stamps []int64
	if err := json.Unmarshal([]byte(attempts), &stamps); err != nil {
		return nil, errors.Wrap(err, "[blockRepo.Get] unmarshal attempts")
	}
	block.Attempts = make([]time.Time, 0, len(stamps))
	for _, s := range stamps {
		block.Attempts = append(block.Attempts, time.Unix(0, s).UTC())
	}
	if blockedUntil != 0 {
		block.BlockedUntil = time.Unix(0, blockedUntil).UTC()
	}
	return &block, nil
}

// Put is the conditional write the throttle's escalation depends on:
// version 0 inserts, anything else must match the stored version exactly.
func (r *blockRepo) Put(ctx context.Context, block *throttle.Block) error {
	stamps := make([]int64, 0, len(block.Attempts))
	for _, at := range block.Attempts {
		stamps = append(stamps, at.UnixNano())
	}
	attempts, err := json.Marshal(stamps)
	if err != nil {
		return errors.Wrap(err, "[blockRepo.Put] marshal attempts")
	}

	var blockedUntil int64
	if !block.BlockedUntil.IsZero() {
		blockedUntil = block.BlockedUntil.UnixNano()
	}

	if block.Version == 0 {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO blocks (key, attempts, blocked_until, version) VALUES (?, ?, ?, 1)
		`, block.Key, string(attempts), blockedUntil)
		if isUniqueViolation(err) {
			return throttle.ErrVersionConflict
		}
		if err != nil {
			return errors.Wrap(err, "[blockRepo.Put] insert")
		}
		block.Version = 1
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE blocks SET attempts = ?, blocked_until = ?, version = version + 1
		WHERE key = ? AND version = ?
	`, string(attempts), blockedUntil, block.Key, block.Version)
	if err != nil {
		return errors.Wrap(err, "[blockRepo.Put] update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[blockRepo.Put] rows affected")
	}
	if affected == 0 {
		return throttle.ErrVersionConflict
	}
	block.Version++
	return nil
}

func (r *blockRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blocks WHERE key = ?`, key)
	if err != nil {
		return errors.Wrap(err, "[blockRepo.Delete] delete")
	}
	return nil
}
