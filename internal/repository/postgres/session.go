package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// sessionColumns joins the owning user so tenant_uuid is projected at
// read time instead of being stored redundantly on the session row.
const sessionColumns = `
	SELECT s.uuid, s.mobile, s.user_uuid, u.tenant_uuid
	FROM chatd_session s
	JOIN chatd_user u ON u.uuid = s.user_uuid`

type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Find(ctx context.Context, sessionUUID uuid.UUID) (*models.Session, error) {
	query := sessionColumns + `
	WHERE s.uuid = $1`

	var sess models.Session
	err := s.pool.QueryRow(ctx, query, sessionUUID).Scan(
		&sess.UUID, &sess.Mobile, &sess.UserUUID, &sess.TenantUUID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) List(ctx context.Context) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx, sessionColumns)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return scanSessions(rows)
}

// sessionsByUser loads a user's session collection, shared with
// UserStore.
func sessionsByUser(ctx context.Context, q querier, userUUID uuid.UUID) ([]models.Session, error) {
	query := sessionColumns + `
	WHERE s.user_uuid = $1`

	rows, err := q.Query(ctx, query, userUUID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return scanSessions(rows)
}

func scanSessions(rows pgx.Rows) ([]models.Session, error) {
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.UUID, &sess.Mobile, &sess.UserUUID, &sess.TenantUUID); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}
