package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/db"
	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// testPool connects to the database named by CHATD_TEST_DATABASE_URL,
// applies the schema and truncates every table. Tests relying on it
// skip when the variable is unset, so the pure unit tests still run
// without a database.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("CHATD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CHATD_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, url, zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(database.Close)

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool := database.Pool()
	_, err = pool.Exec(ctx, `
		TRUNCATE chatd_room_message, chatd_room_user, chatd_room,
		         chatd_line, chatd_session, chatd_refresh_token,
		         chatd_user, chatd_endpoint, chatd_tenant`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func createTenant(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	tenant := models.Tenant{UUID: uuid.New()}
	if _, err := NewTenantStore(pool).Create(context.Background(), &tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tenant.UUID
}

func createUser(t *testing.T, pool *pgxpool.Pool, tenantUUID uuid.UUID) *models.User {
	t.Helper()

	user, err := NewUserStore(pool).Create(context.Background(), &models.User{
		UUID:       uuid.New(),
		TenantUUID: tenantUUID,
		State:      models.StateAvailable,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createRoom(t *testing.T, pool *pgxpool.Pool, tenantUUID uuid.UUID, memberUUIDs ...uuid.UUID) *models.Room {
	t.Helper()

	room := models.Room{TenantUUID: tenantUUID}
	for _, memberUUID := range memberUUIDs {
		room.Users = append(room.Users, models.RoomUser{
			UUID:       memberUUID,
			TenantUUID: tenantUUID,
			WazoUUID:   tenantUUID,
		})
	}
	created, err := NewRoomStore(pool).Create(context.Background(), &room)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return created
}
