package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/gasfornuis/kitchenchat-auth/sessions"
	"github.com/pkg/errors"
)

type sessionRepo struct {
	db *sql.DB
}

var _ sessions.Repo = (*sessionRepo)(nil)

func (r *sessionRepo) Create(ctx context.Context, session *sessions.Session) error {
	session.Version = 1
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token_digest, subject, display_name, issued_at,
			expires_at, revoked, client_addr, user_agent, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.TokenDigest, session.Subject, session.DisplayName,
		session.IssuedAt.Unix(), session.ExpiresAt.Unix(), boolToInt(session.Revoked),
		session.ClientAddr, session.UserAgent, session.Version)
	if err != nil {
		return errors.Wrap(err, "[sessionRepo.Create] insert")
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, tokenDigest string) (*sessions.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token_digest, subject, display_name, issued_at, expires_at,
			revoked, client_addr, user_agent, version
		FROM sessions WHERE token_digest = ?
	`, tokenDigest)

	var (
		session            sessions.Session
		issuedAt, expires  int64
		revoked            int
	)
	err := row.Scan(&session.TokenDigest, &session.Subject, &session.DisplayName,
		&issuedAt, &expires, &revoked, &session.ClientAddr, &session.UserAgent,
		&session.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sessionRepo.Get] scan")
	}
	session.IssuedAt = time.Unix(issuedAt, 0).UTC()
	session.ExpiresAt = time.Unix(expires, 0).UTC()
	session.Revoked = revoked != 0
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *sessions.Session) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked = ?, version = version + 1
		WHERE token_digest = ? AND version = ?
	`, boolToInt(session.Revoked), session.TokenDigest, session.Version)
	if err != nil {
		return errors.Wrap(err, "[sessionRepo.Update] update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[sessionRepo.Update] rows affected")
	}
	if affected == 0 {
		return sessions.ErrVersionConflict
	}
	session.Version++
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, before.Unix())
	if err != nil {
		return errors.Wrap(err, "[sessionRepo.DeleteExpired] delete")
	}
	return nil
}
