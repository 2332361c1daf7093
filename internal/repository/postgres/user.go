package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the row
// loaders below work inside and outside explicit transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create inserts a user row. A duplicate uuid violates the primary key
// and the error propagates untouched: that is a caller bug, not
// something to retry or swallow.
func (s *UserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO chatd_user (uuid, tenant_uuid, state, status)
		VALUES ($1, $2, $3, $4)
		RETURNING uuid, tenant_uuid, state, COALESCE(status, '')`

	var u models.User
	var state string
	err := s.pool.QueryRow(ctx, query,
		user.UUID, user.TenantUUID, string(user.State), textOrNull(user.Status),
	).Scan(&u.UUID, &u.TenantUUID, &state, &u.Status)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.State = models.UserState(state)
	u.Sessions = make([]models.Session, 0)
	u.Lines = make([]models.Line, 0)
	u.RefreshTokens = make([]models.RefreshToken, 0)
	return &u, nil
}

// Get returns the user within scope with sessions and lines loaded.
func (s *UserStore) Get(ctx context.Context, scope repository.TenantScope, userUUID uuid.UUID) (*models.User, error) {
	args := []any{userUUID}
	cond := scopeCondition(scope, "tenant_uuid", &args)
	query := fmt.Sprintf(`
		SELECT uuid, tenant_uuid, state, COALESCE(status, '')
		FROM chatd_user
		WHERE uuid = $1 AND %s`, cond)

	var u models.User
	var state string
	err := s.pool.QueryRow(ctx, query, args...).Scan(&u.UUID, &u.TenantUUID, &state, &u.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NewUnknownUser(userUUID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.State = models.UserState(state)

	if err := s.loadAssociations(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns users within scope. When filter.UUIDs is set and one of
// the requested users is missing from the result, the whole call fails
// with unknown-users so resynchronization flows notice the gap.
func (s *UserStore) List(ctx context.Context, scope repository.TenantScope, filter repository.UserFilter) ([]models.User, error) {
	query, args := userSelect(scope, filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		var state string
		if err := rows.Scan(&u.UUID, &u.TenantUUID, &state, &u.Status); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.State = models.UserState(state)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	if len(filter.UUIDs) > 0 {
		found := make(map[uuid.UUID]bool, len(users))
		for _, u := range users {
			found[u.UUID] = true
		}
		missing := make([]uuid.UUID, 0)
		for _, requested := range filter.UUIDs {
			if !found[requested] {
				missing = append(missing, requested)
			}
		}
		if len(missing) > 0 {
			return nil, repository.NewUnknownUsers(missing)
		}
	}

	for i := range users {
		if err := s.loadAssociations(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context, scope repository.TenantScope, filter repository.UserFilter) (int, error) {
	query, args := userSelect(scope, filter)
	query = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS scoped", query)

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// userSelect composes the scoped user query shared by List and Count.
func userSelect(scope repository.TenantScope, filter repository.UserFilter) (string, []any) {
	args := []any{}
	conds := []string{scopeCondition(scope, "tenant_uuid", &args)}

	if len(filter.UUIDs) > 0 {
		uuids := make([]string, 0, len(filter.UUIDs))
		for _, u := range filter.UUIDs {
			uuids = append(uuids, u.String())
		}
		conds = append(conds, inCondition("uuid", uuids, &args))
	}

	query := fmt.Sprintf(`
		SELECT uuid, tenant_uuid, state, COALESCE(status, '')
		FROM chatd_user
		WHERE %s`, strings.Join(conds, " AND "))
	return query, args
}

// Update persists state and status. Updating with unchanged values is a
// no-op at the row level.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE chatd_user
		SET state = $2, status = $3
		WHERE uuid = $1`

	_, err := s.pool.Exec(ctx, query, user.UUID, string(user.State), textOrNull(user.Status))
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes the user and its sessions and lines in one
// transaction, so no orphan can survive a partial failure.
func (s *UserStore) Delete(ctx context.Context, userUUID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM chatd_session WHERE user_uuid = $1`,
		`DELETE FROM chatd_line WHERE user_uuid = $1`,
		`DELETE FROM chatd_refresh_token WHERE user_uuid = $1`,
		`DELETE FROM chatd_user WHERE uuid = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, userUUID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// AddSession attaches a session to the user.
//
// ON CONFLICT DO UPDATE rather than DO NOTHING: a session uuid is
// globally unique, so an insert conflict means the same session is
// already attached (no-op by updating with identical values) or was
// attached to another user and must be re-pointed. Either way, applying
// the same event twice leaves the row identical.
func (s *UserStore) AddSession(ctx context.Context, user *models.User, session models.Session) error {
	query := `
		INSERT INTO chatd_session (uuid, mobile, user_uuid)
		VALUES ($1, $2, $3)
		ON CONFLICT (uuid) DO UPDATE
		SET mobile = EXCLUDED.mobile, user_uuid = EXCLUDED.user_uuid`

	_, err := s.pool.Exec(ctx, query, session.UUID, session.Mobile, user.UUID)
	if err != nil {
		return fmt.Errorf("add session: %w", err)
	}
	return s.reloadSessions(ctx, user)
}

// RemoveSession detaches a session. DELETE is naturally idempotent:
// removing a session that is not attached deletes zero rows.
func (s *UserStore) RemoveSession(ctx context.Context, user *models.User, session models.Session) error {
	query := `
		DELETE FROM chatd_session
		WHERE uuid = $1 AND user_uuid = $2`

	_, err := s.pool.Exec(ctx, query, session.UUID, user.UUID)
	if err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return s.reloadSessions(ctx, user)
}

// AddLine attaches a line, keyed by line id, with the same idempotent
// upsert contract as AddSession. Endpoint association and media are
// only overwritten when the incoming line carries them.
func (s *UserStore) AddLine(ctx context.Context, user *models.User, line models.Line) error {
	query := `
		INSERT INTO chatd_line (id, user_uuid, endpoint_name, media)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET user_uuid = EXCLUDED.user_uuid,
		    endpoint_name = COALESCE(EXCLUDED.endpoint_name, chatd_line.endpoint_name),
		    media = COALESCE(EXCLUDED.media, chatd_line.media)`

	_, err := s.pool.Exec(ctx, query, line.ID, user.UUID, line.EndpointName, textOrNull(string(line.Media)))
	if err != nil {
		return fmt.Errorf("add line: %w", err)
	}
	return s.reloadLines(ctx, user)
}

func (s *UserStore) RemoveLine(ctx context.Context, user *models.User, line models.Line) error {
	query := `
		DELETE FROM chatd_line
		WHERE id = $1 AND user_uuid = $2`

	_, err := s.pool.Exec(ctx, query, line.ID, user.UUID)
	if err != nil {
		return fmt.Errorf("remove line: %w", err)
	}
	return s.reloadLines(ctx, user)
}

// AddRefreshToken attaches a refresh token. (client_id, user_uuid) is
// the primary key, so a client re-authenticating against the same user
// replaces its previous token in one statement, and a redelivered event
// leaves the row identical.
func (s *UserStore) AddRefreshToken(ctx context.Context, user *models.User, token models.RefreshToken) error {
	query := `
		INSERT INTO chatd_refresh_token (client_id, user_uuid, mobile)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, user_uuid) DO UPDATE
		SET mobile = EXCLUDED.mobile`

	_, err := s.pool.Exec(ctx, query, token.ClientID, user.UUID, token.Mobile)
	if err != nil {
		return fmt.Errorf("add refresh token: %w", err)
	}
	return s.reloadRefreshTokens(ctx, user)
}

func (s *UserStore) RemoveRefreshToken(ctx context.Context, user *models.User, token models.RefreshToken) error {
	query := `
		DELETE FROM chatd_refresh_token
		WHERE client_id = $1 AND user_uuid = $2`

	_, err := s.pool.Exec(ctx, query, token.ClientID, user.UUID)
	if err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}
	return s.reloadRefreshTokens(ctx, user)
}

func (s *UserStore) loadAssociations(ctx context.Context, user *models.User) error {
	if err := s.reloadSessions(ctx, user); err != nil {
		return err
	}
	if err := s.reloadLines(ctx, user); err != nil {
		return err
	}
	return s.reloadRefreshTokens(ctx, user)
}

func (s *UserStore) reloadSessions(ctx context.Context, user *models.User) error {
	sessions, err := sessionsByUser(ctx, s.pool, user.UUID)
	if err != nil {
		return err
	}
	user.Sessions = sessions
	return nil
}

func (s *UserStore) reloadLines(ctx context.Context, user *models.User) error {
	lines, err := linesByUser(ctx, s.pool, user.UUID)
	if err != nil {
		return err
	}
	user.Lines = lines
	return nil
}

func (s *UserStore) reloadRefreshTokens(ctx context.Context, user *models.User) error {
	tokens, err := refreshTokensByUser(ctx, s.pool, user.UUID)
	if err != nil {
		return err
	}
	user.RefreshTokens = tokens
	return nil
}

// refreshTokensByUser loads a user's refresh token collection. The
// tenant is projected from the owning user like on sessions.
func refreshTokensByUser(ctx context.Context, q querier, userUUID uuid.UUID) ([]models.RefreshToken, error) {
	query := `
		SELECT rt.client_id, rt.user_uuid, rt.mobile, u.tenant_uuid
		FROM chatd_refresh_token rt
		JOIN chatd_user u ON u.uuid = rt.user_uuid
		WHERE rt.user_uuid = $1`

	rows, err := q.Query(ctx, query, userUUID)
	if err != nil {
		return nil, fmt.Errorf("list user refresh tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]models.RefreshToken, 0)
	for rows.Next() {
		var token models.RefreshToken
		if err := rows.Scan(&token.ClientID, &token.UserUUID, &token.Mobile, &token.TenantUUID); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}

	return tokens, nil
}

// textOrNull maps the empty string to SQL NULL for optional text
// columns.
func textOrNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
