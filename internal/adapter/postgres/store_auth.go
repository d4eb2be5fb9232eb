package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/user"
)

// --- Magic links ---

func (s *Store) CreateMagicLink(ctx context.Context, link user.MagicLink) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO magic_links (id, user_id, token, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		link.ID, link.UserID, link.Token, link.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create magic link: %w", err)
	}
	return nil
}

func (s *Store) GetMagicLinkByToken(ctx context.Context, token string) (*user.MagicLink, error) {
	var m user.MagicLink
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, used, created_at
		 FROM magic_links WHERE token = $1`, token,
	).Scan(&m.ID, &m.UserID, &m.Token, &m.ExpiresAt, &m.Used, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get magic link: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get magic link: %w", err)
	}
	return &m, nil
}

func (s *Store) MarkMagicLinkUsed(ctx context.Context, id string) error {
	// used = FALSE guard makes redemption single-use under concurrent requests.
	tag, err := s.pool.Exec(ctx,
		`UPDATE magic_links SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return fmt.Errorf("mark magic link used %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark magic link used %s: %w", id, domain.ErrConflict)
	}
	return nil
}

func (s *Store) DeleteExpiredMagicLinks(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM magic_links WHERE expires_at < $1 OR used = TRUE`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired magic links: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Sessions ---

func (s *Store) CreateSession(ctx context.Context, sess user.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, hash string) (*user.Session, error) {
	var sess user.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM sessions WHERE token_hash = $1`, hash,
	).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
