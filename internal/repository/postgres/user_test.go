package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

func TestUserGetIsScopeStrict(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	tenantB := createTenant(t, pool)
	user := createUser(t, pool, tenantA)

	got, err := store.Get(ctx, repository.NewTenantScope(tenantA), user.UUID)
	if err != nil {
		t.Fatalf("get in own tenant: %v", err)
	}
	if got.UUID != user.UUID || got.TenantUUID != tenantA {
		t.Fatalf("unexpected user %+v", got)
	}

	// Same uuid, wrong tenant scope: the row must be invisible.
	_, err = store.Get(ctx, repository.NewTenantScope(tenantB), user.UUID)
	nf := repository.AsNotFound(err)
	if nf == nil {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Status != 404 || nf.ErrorID != "unknown-user" || nf.Resource != "users" {
		t.Fatalf("unexpected error fields %+v", nf)
	}
	if nf.Message == "" || nf.Details == nil {
		t.Fatalf("expected message and details, got %+v", nf)
	}
}

func TestUserListScopes(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	tenantB := createTenant(t, pool)
	createUser(t, pool, tenantA)
	createUser(t, pool, tenantB)

	// Empty scope requests no tenants and must match nothing.
	users, err := store.List(ctx, repository.NewTenantScope(), repository.UserFilter{})
	if err != nil {
		t.Fatalf("list empty scope: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %d", len(users))
	}

	// Bypass scope sees every tenant.
	users, err = store.List(ctx, repository.ScopeAll(), repository.UserFilter{})
	if err != nil {
		t.Fatalf("list bypass: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	users, err = store.List(ctx, repository.NewTenantScope(tenantA), repository.UserFilter{})
	if err != nil {
		t.Fatalf("list tenant A: %v", err)
	}
	if len(users) != 1 || users[0].TenantUUID != tenantA {
		t.Fatalf("unexpected users %+v", users)
	}

	count, err := store.Count(ctx, repository.NewTenantScope(tenantA, tenantB), repository.UserFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestUserListUnknownRequestedUUIDs(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	missing := uuid.New()

	_, err := store.List(ctx, repository.ScopeAll(), repository.UserFilter{
		UUIDs: []uuid.UUID{user.UUID, missing},
	})
	nf := repository.AsNotFound(err)
	if nf == nil || nf.ErrorID != "unknown-users" {
		t.Fatalf("expected unknown-users, got %v", err)
	}
}

func TestUserUpdate(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)

	user.State = models.StateInvisible
	user.Status = "afk"
	if err := store.Update(ctx, user); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, repository.NewTenantScope(tenantA), user.UUID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UUID != user.UUID || got.State != models.StateInvisible || got.Status != "afk" {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestAddSessionIsIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	session := models.Session{UUID: uuid.New(), Mobile: true}

	if err := store.AddSession(ctx, user, session); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.AddSession(ctx, user, session); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(user.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(user.Sessions))
	}
	if user.Sessions[0].UUID != session.UUID || !user.Sessions[0].Mobile {
		t.Fatalf("unexpected session %+v", user.Sessions[0])
	}
}

func TestAddSessionRepointsFromOtherUser(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user1 := createUser(t, pool, tenantA)
	user2 := createUser(t, pool, tenantA)
	session := models.Session{UUID: uuid.New()}

	if err := store.AddSession(ctx, user1, session); err != nil {
		t.Fatalf("add to user1: %v", err)
	}
	if err := store.AddSession(ctx, user2, session); err != nil {
		t.Fatalf("add to user2: %v", err)
	}

	got1, err := store.Get(ctx, repository.ScopeAll(), user1.UUID)
	if err != nil {
		t.Fatalf("get user1: %v", err)
	}
	if len(got1.Sessions) != 0 {
		t.Fatalf("expected session gone from user1, got %+v", got1.Sessions)
	}
	if len(user2.Sessions) != 1 || user2.Sessions[0].UUID != session.UUID {
		t.Fatalf("expected session on user2, got %+v", user2.Sessions)
	}
}

func TestRemoveSessionIsIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	session := models.Session{UUID: uuid.New()}

	if err := store.AddSession(ctx, user, session); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RemoveSession(ctx, user, session); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := store.RemoveSession(ctx, user, session); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if len(user.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(user.Sessions))
	}
}

func TestAddRemoveLineIsIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	line := models.Line{ID: 42, Media: models.MediaAudio}

	if err := store.AddLine(ctx, user, line); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.AddLine(ctx, user, line); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(user.Lines) != 1 || user.Lines[0].ID != 42 {
		t.Fatalf("unexpected lines %+v", user.Lines)
	}

	if err := store.RemoveLine(ctx, user, line); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := store.RemoveLine(ctx, user, line); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if len(user.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(user.Lines))
	}
}

func TestAddRefreshTokenReplacesSameClient(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	token := models.RefreshToken{ClientID: "my-app", Mobile: false}

	if err := store.AddRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.AddRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(user.RefreshTokens) != 1 {
		t.Fatalf("expected 1 token, got %d", len(user.RefreshTokens))
	}

	// A new token from the same client replaces the stored one.
	token.Mobile = true
	if err := store.AddRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(user.RefreshTokens) != 1 || !user.RefreshTokens[0].Mobile {
		t.Fatalf("expected replaced mobile token, got %+v", user.RefreshTokens)
	}
	if user.RefreshTokens[0].TenantUUID != tenantA {
		t.Fatalf("expected tenant projected onto token, got %s", user.RefreshTokens[0].TenantUUID)
	}

	// A different client gets its own row.
	other := models.RefreshToken{ClientID: "other-app"}
	if err := store.AddRefreshToken(ctx, user, other); err != nil {
		t.Fatalf("add other client: %v", err)
	}
	if len(user.RefreshTokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(user.RefreshTokens))
	}
}

func TestRemoveRefreshTokenIsIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	token := models.RefreshToken{ClientID: "my-app"}

	if err := store.AddRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RemoveRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if err := store.RemoveRefreshToken(ctx, user, token); err != nil {
		t.Fatalf("second remove: %v", err)
	}
	if len(user.RefreshTokens) != 0 {
		t.Fatalf("expected no tokens, got %d", len(user.RefreshTokens))
	}
}

func TestUserDeleteCascades(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)
	sessions := NewSessionStore(pool)
	lines := NewLineStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)
	session := models.Session{UUID: uuid.New()}
	line := models.Line{ID: 7}

	if err := store.AddSession(ctx, user, session); err != nil {
		t.Fatalf("add session: %v", err)
	}
	if err := store.AddLine(ctx, user, line); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := store.AddRefreshToken(ctx, user, models.RefreshToken{ClientID: "my-app"}); err != nil {
		t.Fatalf("add refresh token: %v", err)
	}

	if err := store.Delete(ctx, user.UUID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	gotSession, err := sessions.Find(ctx, session.UUID)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if gotSession != nil {
		t.Fatalf("expected session deleted, got %+v", gotSession)
	}
	gotLine, err := lines.Find(ctx, line.ID)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if gotLine != nil {
		t.Fatalf("expected line deleted, got %+v", gotLine)
	}

	var tokens int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chatd_refresh_token WHERE user_uuid = $1`, user.UUID,
	).Scan(&tokens); err != nil {
		t.Fatalf("count refresh tokens: %v", err)
	}
	if tokens != 0 {
		t.Fatalf("expected refresh tokens deleted, got %d", tokens)
	}
}

func TestSessionTenantIsProjected(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewUserStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)

	if err := store.AddSession(ctx, user, models.Session{UUID: uuid.New()}); err != nil {
		t.Fatalf("add session: %v", err)
	}
	if user.Sessions[0].TenantUUID != tenantA {
		t.Fatalf("expected tenant %s projected onto session, got %s",
			tenantA, user.Sessions[0].TenantUUID)
	}
}

func TestLineStateIsProjectedFromEndpoint(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users := NewUserStore(pool)
	endpoints := NewEndpointStore(pool)
	lines := NewLineStore(pool)

	tenantA := createTenant(t, pool)
	user := createUser(t, pool, tenantA)

	endpointName := "PJSIP/abcd"
	if err := endpoints.Upsert(ctx, &models.Endpoint{Name: endpointName, State: models.EndpointTalking}); err != nil {
		t.Fatalf("upsert endpoint: %v", err)
	}
	if err := users.AddLine(ctx, user, models.Line{ID: 9, EndpointName: &endpointName}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	if user.Lines[0].State != models.EndpointTalking {
		t.Fatalf("expected talking, got %q", user.Lines[0].State)
	}
	if user.Lines[0].TenantUUID != tenantA {
		t.Fatalf("expected tenant projected onto line, got %s", user.Lines[0].TenantUUID)
	}

	// Endpoint deletion nulls the association; the line survives and
	// falls back to unavailable.
	if err := endpoints.DeleteAll(ctx); err != nil {
		t.Fatalf("delete endpoints: %v", err)
	}
	line, err := lines.Find(ctx, 9)
	if err != nil {
		t.Fatalf("find line: %v", err)
	}
	if line == nil {
		t.Fatal("expected line to survive endpoint deletion")
	}
	if line.EndpointName != nil {
		t.Fatalf("expected endpoint reference cleared, got %v", *line.EndpointName)
	}
	if line.State != models.EndpointUnavailable {
		t.Fatalf("expected unavailable, got %q", line.State)
	}
}
