package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/accounts"
	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type accountRepo struct {
	db *sql.DB
}

var _ accounts.Repo = (*accountRepo)(nil)

func (r *accountRepo) Create(ctx context.Context, account *accounts.Account) error {
	verifier, err := account.Verifier.MarshalText()
	if err != nil {
		return errors.Wrap(err, "[accountRepo.Create] marshal verifier")
	}
	account.Version = 1
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (handle, id, display_name, verifier, failed_attempts,
			last_failed_at, disabled, created_at, last_login_at, registered_from, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, account.Handle, account.ID, account.DisplayName, string(verifier),
		account.FailedAttempts, unixOrZero(account.LastFailedAt), boolToInt(account.Disabled),
		account.CreatedAt.Unix(), unixOrZero(account.LastLoginAt), account.RegisteredFrom,
		account.Version)
	if isUniqueViolation(err) {
		return accounts.ErrHandleExists
	}
	if err != nil {
		return errors.Wrap(err, "[accountRepo.Create] insert")
	}
	return nil
}

func (r *accountRepo) GetByHandle(ctx context.Context, handle string) (*accounts.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT handle, id, display_name, verifier, failed_attempts, last_failed_at,
			disabled, created_at, last_login_at, registered_from, version
		FROM accounts WHERE handle = ?
	`, handle)

	var account accounts.Account
	var verifier string
	var lastFailed, createdAt, lastLogin int64
	var disabled int
	err := row.Scan(&account.Handle, &account.ID, &account.DisplayName, &verifier,
		&account.FailedAttempts, &lastFailed, &disabled, &createdAt, &lastLogin,
		&account.RegisteredFrom, &account.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[accountRepo.GetByHandle] scan")
	}

	var v password.Verifier
	if err := v.UnmarshalText([]byte(verifier)); err != nil {
		return nil, errors.Wrap(err, "[accountRepo.GetByHandle] unmarshal verifier")
	}
	account.Verifier = v
	account.Disabled = disabled != 0
	account.LastFailedAt = timeOrZero(lastFailed)
	account.CreatedAt = time.Unix(createdAt, 0).UTC()
	account.LastLoginAt = timeOrZero(lastLogin)
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, account *accounts.Account) error {
	verifier, err := account.Verifier.MarshalText()
	if err != nil {
		return errors.Wrap(err, "[accountRepo.Update] marshal verifier")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET display_name = ?, verifier = ?, failed_attempts = ?, last_failed_at = ?,
			disabled = ?, last_login_at = ?, version = version + 1
		WHERE handle = ? AND version = ?
	`, account.DisplayName, string(verifier), account.FailedAttempts,
		unixOrZero(account.LastFailedAt), boolToInt(account.Disabled),
		unixOrZero(account.LastLoginAt), account.Handle, account.Version)
	if err != nil {
		return errors.Wrap(err, "[accountRepo.Update] update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[accountRepo.Update] rows affected")
	}
	if affected == 0 {
		return accounts.ErrVersionConflict
	}
	account.Version++
	return nil
}

func (r *accountRepo) SetDisabled(ctx context.Context, handle string, disabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET disabled = ?, version = version + 1 WHERE handle = ?
	`, boolToInt(disabled), handle)
	if err != nil {
		return errors.Wrap(err, "[accountRepo.SetDisabled] update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[accountRepo.SetDisabled] rows affected")
	}
	if affected == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
