package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// TenantScope is the set of tenant UUIDs a caller may see.
//
// Three states, matching the three query behaviors:
//   - nil: scoping bypassed, all rows visible. Reserved for internal
//     callers (bus reconciliation, resync).
//   - empty non-nil: no tenant requested, matches nothing.
//   - otherwise: rows whose tenant_uuid is in the set.
//
// The repositories never widen a scope; whoever resolved the token
// decides what goes in here.
type TenantScope []uuid.UUID

// ScopeAll is the explicit admin/bypass scope.
func ScopeAll() TenantScope { return nil }

// NewTenantScope builds a scope from tenant UUIDs. With no arguments it
// returns the matches-nothing scope, not the bypass.
func NewTenantScope(tenantUUIDs ...uuid.UUID) TenantScope {
	scope := make(TenantScope, 0, len(tenantUUIDs))
	return append(scope, tenantUUIDs...)
}

// Bypass reports whether tenant filtering is disabled.
func (s TenantScope) Bypass() bool { return s == nil }

// UserFilter narrows List/Count beyond the tenant scope. Zero value
// means no extra filtering.
type UserFilter struct {
	// UUIDs restricts to these user uuids. When set, List fails with
	// unknown-users if any of them is absent from the result.
	UUIDs []uuid.UUID
}

// RoomFilter narrows room List/Count beyond the tenant scope.
type RoomFilter struct {
	// UserUUID restricts to rooms the given user is a member of.
	UserUUID *uuid.UUID
}

// Direction orders message history reads.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc" // newest first, the default
)

// MessageFilter shapes a message history read. The zero value reads the
// whole history newest first.
type MessageFilter struct {
	Direction Direction
	// Limit caps the result count, keeping the most relevant end of the
	// ordering (applied after sorting). Zero means no cap.
	Limit int
}

// TenantRepository tracks provisioned tenants.
type TenantRepository interface {
	// Create inserts a tenant. Re-creating an existing tenant is a
	// no-op: provisioning events may be redelivered.
	Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error)

	// Find returns the tenant or nil when absent.
	Find(ctx context.Context, tenantUUID uuid.UUID) (*models.Tenant, error)

	List(ctx context.Context) ([]models.Tenant, error)

	// Delete removes the tenant and cascades to its users, and through
	// them to sessions and lines, in one transaction.
	Delete(ctx context.Context, tenantUUID uuid.UUID) error
}

// UserRepository is the presence side: users and their attached
// sessions and lines.
type UserRepository interface {
	// Create inserts a user. A duplicate uuid is a constraint violation
	// propagated as-is.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// Get returns the user with its sessions and lines loaded, or a
	// NotFoundError (unknown-user) when no row matches uuid and scope.
	Get(ctx context.Context, scope TenantScope, userUUID uuid.UUID) (*models.User, error)

	List(ctx context.Context, scope TenantScope, filter UserFilter) ([]models.User, error)
	Count(ctx context.Context, scope TenantScope, filter UserFilter) (int, error)

	// Update persists state and status.
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user and its sessions and lines atomically.
	Delete(ctx context.Context, userUUID uuid.UUID) error

	// AddSession attaches a session to the user. Attaching a session
	// that is already attached is a no-op; a session with the same uuid
	// attached elsewhere is re-pointed at this user. The user's
	// Sessions slice is refreshed to match.
	AddSession(ctx context.Context, user *models.User, session models.Session) error

	// RemoveSession detaches a session. Detaching a session that is not
	// attached is a no-op.
	RemoveSession(ctx context.Context, user *models.User, session models.Session) error

	// AddLine and RemoveLine follow the same idempotent contract,
	// keyed by line id.
	AddLine(ctx context.Context, user *models.User, line models.Line) error
	RemoveLine(ctx context.Context, user *models.User, line models.Line) error

	// AddRefreshToken attaches a refresh token, keyed by
	// (client_id, user_uuid). A client holds one token per user: adding
	// a token for a client that already has one replaces it, and
	// re-adding the same token is a no-op. RemoveRefreshToken is
	// idempotent like the other detach operations.
	AddRefreshToken(ctx context.Context, user *models.User, token models.RefreshToken) error
	RemoveRefreshToken(ctx context.Context, user *models.User, token models.RefreshToken) error
}

// SessionRepository is the read side used by bus reconciliation.
// TenantUUID on returned sessions is projected from the owning user.
type SessionRepository interface {
	// Find returns the session or nil when absent.
	Find(ctx context.Context, sessionUUID uuid.UUID) (*models.Session, error)
	List(ctx context.Context) ([]models.Session, error)
}

// LineRepository reads and mutates lines. State on returned lines is
// projected from the associated endpoint; TenantUUID from the owning
// user.
type LineRepository interface {
	// Find returns the line or nil when absent.
	Find(ctx context.Context, lineID int) (*models.Line, error)
	List(ctx context.Context) ([]models.Line, error)

	// Update persists media and the endpoint association.
	Update(ctx context.Context, line *models.Line) error

	// AssociateEndpoint points the line at an endpoint by name;
	// DissociateEndpoint clears it. Both are idempotent.
	AssociateEndpoint(ctx context.Context, lineID int, endpointName string) error
	DissociateEndpoint(ctx context.Context, lineID int) error
}

// EndpointRepository tracks call-state resources, keyed by name.
type EndpointRepository interface {
	Create(ctx context.Context, endpoint *models.Endpoint) (*models.Endpoint, error)
	Update(ctx context.Context, endpoint *models.Endpoint) error

	// Upsert inserts or refreshes the endpoint's state in one
	// statement. Bus events are redelivered; applying the same state
	// twice leaves the row identical.
	Upsert(ctx context.Context, endpoint *models.Endpoint) error

	// FindByName returns the endpoint or nil when absent.
	FindByName(ctx context.Context, name string) (*models.Endpoint, error)

	// GetByName returns the endpoint or a NotFoundError
	// (unknown-endpoint).
	GetByName(ctx context.Context, name string) (*models.Endpoint, error)

	List(ctx context.Context) ([]models.Endpoint, error)

	// DeleteAll clears the table for a full resynchronization.
	DeleteAll(ctx context.Context) error
}

// RoomRepository is the chat side: rooms, memberships, message history.
type RoomRepository interface {
	// Get returns the room with its users loaded, or a NotFoundError
	// (unknown-room) when no row matches uuid and scope.
	Get(ctx context.Context, scope TenantScope, roomUUID uuid.UUID) (*models.Room, error)

	List(ctx context.Context, scope TenantScope, filter RoomFilter) ([]models.Room, error)
	Count(ctx context.Context, scope TenantScope, filter RoomFilter) (int, error)

	// Create inserts the room and any nested users in one transaction.
	Create(ctx context.Context, room *models.Room) (*models.Room, error)

	// Delete removes the room and cascades to its users and messages
	// atomically.
	Delete(ctx context.Context, roomUUID uuid.UUID) error

	// AddMessage appends a message to the room. ID and CreatedAt come
	// back populated; the message is visible to subsequent reads
	// immediately.
	AddMessage(ctx context.Context, room *models.Room, message *models.RoomMessage) error

	ListMessages(ctx context.Context, room *models.Room, filter MessageFilter) ([]models.RoomMessage, error)
	CountMessages(ctx context.Context, room *models.Room) (int, error)

	// ListUserMessages reads across rooms: every message in any room
	// within scope that the given user is a member of, under the same
	// ordering and limit contract as ListMessages.
	ListUserMessages(ctx context.Context, scope TenantScope, userUUID uuid.UUID, filter MessageFilter) ([]models.RoomMessage, error)
	CountUserMessages(ctx context.Context, scope TenantScope, userUUID uuid.UUID) (int, error)
}
