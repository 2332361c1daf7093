package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

// Get returns the room within scope with its participants loaded.
func (s *RoomStore) Get(ctx context.Context, scope repository.TenantScope, roomUUID uuid.UUID) (*models.Room, error) {
	args := []any{roomUUID}
	cond := scopeCondition(scope, "tenant_uuid", &args)
	query := fmt.Sprintf(`
		SELECT uuid, tenant_uuid
		FROM chatd_room
		WHERE uuid = $1 AND %s`, cond)

	var room models.Room
	err := s.pool.QueryRow(ctx, query, args...).Scan(&room.UUID, &room.TenantUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NewUnknownRoom(roomUUID)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	users, err := s.roomUsers(ctx, room.UUID)
	if err != nil {
		return nil, err
	}
	room.Users = users
	return &room, nil
}

func (s *RoomStore) List(ctx context.Context, scope repository.TenantScope, filter repository.RoomFilter) ([]models.Room, error) {
	query, args := roomSelect(scope, filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.UUID, &room.TenantUUID); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	for i := range rooms {
		users, err := s.roomUsers(ctx, rooms[i].UUID)
		if err != nil {
			return nil, err
		}
		rooms[i].Users = users
	}
	return rooms, nil
}

func (s *RoomStore) Count(ctx context.Context, scope repository.TenantScope, filter repository.RoomFilter) (int, error) {
	query, args := roomSelect(scope, filter)
	query = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS scoped", query)

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return count, nil
}

// roomSelect composes the scoped room query shared by List and Count.
// The member filter joins the participant table, so only rooms the
// given user sits in survive.
func roomSelect(scope repository.TenantScope, filter repository.RoomFilter) (string, []any) {
	args := []any{}
	conds := []string{scopeCondition(scope, "r.tenant_uuid", &args)}

	join := ""
	if filter.UserUUID != nil {
		join = "JOIN chatd_room_user ru ON ru.room_uuid = r.uuid"
		args = append(args, *filter.UserUUID)
		conds = append(conds, fmt.Sprintf("ru.uuid = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT r.uuid, r.tenant_uuid
		FROM chatd_room r
		%s
		WHERE %s`, join, strings.Join(conds, " AND "))
	return query, args
}

// Create inserts the room and its nested participants in one
// transaction: a room never becomes visible with half its members.
func (s *RoomStore) Create(ctx context.Context, room *models.Room) (*models.Room, error) {
	if room.UUID == uuid.Nil {
		room.UUID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create room: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chatd_room (uuid, tenant_uuid)
		VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, query, room.UUID, room.TenantUUID); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	query = `
		INSERT INTO chatd_room_user (room_uuid, uuid, tenant_uuid, wazo_uuid)
		VALUES ($1, $2, $3, $4)`
	for i := range room.Users {
		user := &room.Users[i]
		user.RoomUUID = room.UUID
		if _, err := tx.Exec(ctx, query, room.UUID, user.UUID, user.TenantUUID, user.WazoUUID); err != nil {
			return nil, fmt.Errorf("insert room user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create room: %w", err)
	}
	if room.Users == nil {
		room.Users = make([]models.RoomUser, 0)
	}
	return room, nil
}

// Delete removes the room and its participants and messages in one
// transaction, so no orphan row can survive.
func (s *RoomStore) Delete(ctx context.Context, roomUUID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete room: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`DELETE FROM chatd_room_message WHERE room_uuid = $1`,
		`DELETE FROM chatd_room_user WHERE room_uuid = $1`,
		`DELETE FROM chatd_room WHERE uuid = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, roomUUID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete room: %w", err)
	}
	return nil
}

// AddMessage appends a message. The bigserial id and the created_at
// default come back populated, and the row is visible to any read that
// follows.
func (s *RoomStore) AddMessage(ctx context.Context, room *models.Room, message *models.RoomMessage) error {
	query := `
		INSERT INTO chatd_room_message (room_uuid, user_uuid, tenant_uuid, wazo_uuid, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	message.RoomUUID = room.UUID
	err := s.pool.QueryRow(ctx, query,
		room.UUID, message.UserUUID, message.TenantUUID, message.WazoUUID, message.Content,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert room message: %w", err)
	}
	return nil
}

// ListMessages returns the room's history ordered by creation time,
// newest first unless asc is asked for. The bigserial id breaks ties
// between messages sharing a timestamp, so repeated reads always agree.
// The limit is applied after ordering: limit=1 on a desc read keeps the
// newest message, not an arbitrary one.
func (s *RoomStore) ListMessages(ctx context.Context, room *models.Room, filter repository.MessageFilter) ([]models.RoomMessage, error) {
	order := "DESC"
	if filter.Direction == repository.Asc {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, room_uuid, user_uuid, tenant_uuid, wazo_uuid, content, created_at
		FROM chatd_room_message
		WHERE room_uuid = $1
		ORDER BY created_at %s, id %s`, order, order)
	args := []any{room.UUID}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list room messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.RoomMessage, 0)
	for rows.Next() {
		var msg models.RoomMessage
		if err := rows.Scan(
			&msg.ID, &msg.RoomUUID, &msg.UserUUID, &msg.TenantUUID,
			&msg.WazoUUID, &msg.Content, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room messages: %w", err)
	}

	return messages, nil
}

// ListUserMessages reads message history across every room within scope
// that the user is a member of, under the same ordering and limit
// contract as ListMessages. The membership join keeps messages in rooms
// the user has since left out of the result.
func (s *RoomStore) ListUserMessages(ctx context.Context, scope repository.TenantScope, userUUID uuid.UUID, filter repository.MessageFilter) ([]models.RoomMessage, error) {
	order := "DESC"
	if filter.Direction == repository.Asc {
		order = "ASC"
	}

	query, args := userMessageSelect(scope, userUUID)
	query += fmt.Sprintf(" ORDER BY m.created_at %s, m.id %s", order, order)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.RoomMessage, 0)
	for rows.Next() {
		var msg models.RoomMessage
		if err := rows.Scan(
			&msg.ID, &msg.RoomUUID, &msg.UserUUID, &msg.TenantUUID,
			&msg.WazoUUID, &msg.Content, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user messages: %w", err)
	}

	return messages, nil
}

func (s *RoomStore) CountUserMessages(ctx context.Context, scope repository.TenantScope, userUUID uuid.UUID) (int, error) {
	query, args := userMessageSelect(scope, userUUID)
	query = fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS scoped", query)

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user messages: %w", err)
	}
	return count, nil
}

// userMessageSelect composes the cross-room message query shared by
// ListUserMessages and CountUserMessages.
func userMessageSelect(scope repository.TenantScope, userUUID uuid.UUID) (string, []any) {
	args := []any{userUUID}
	cond := scopeCondition(scope, "r.tenant_uuid", &args)

	query := fmt.Sprintf(`
		SELECT m.id, m.room_uuid, m.user_uuid, m.tenant_uuid, m.wazo_uuid, m.content, m.created_at
		FROM chatd_room_message m
		JOIN chatd_room r ON r.uuid = m.room_uuid
		JOIN chatd_room_user ru ON ru.room_uuid = m.room_uuid AND ru.uuid = $1
		WHERE %s`, cond)
	return query, args
}

func (s *RoomStore) CountMessages(ctx context.Context, room *models.Room) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM chatd_room_message
		WHERE room_uuid = $1`

	var count int
	if err := s.pool.QueryRow(ctx, query, room.UUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count room messages: %w", err)
	}
	return count, nil
}

func (s *RoomStore) roomUsers(ctx context.Context, roomUUID uuid.UUID) ([]models.RoomUser, error) {
	query := `
		SELECT room_uuid, uuid, tenant_uuid, wazo_uuid
		FROM chatd_room_user
		WHERE room_uuid = $1`

	rows, err := s.pool.Query(ctx, query, roomUUID)
	if err != nil {
		return nil, fmt.Errorf("list room users: %w", err)
	}
	defer rows.Close()

	users := make([]models.RoomUser, 0)
	for rows.Next() {
		var user models.RoomUser
		if err := rows.Scan(&user.RoomUUID, &user.UUID, &user.TenantUUID, &user.WazoUUID); err != nil {
			return nil, fmt.Errorf("scan room user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room users: %w", err)
	}

	return users, nil
}
