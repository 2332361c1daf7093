package models

import (
	"time"

	"github.com/google/uuid"
)

// UserState is a user's presence state. It is also a CHECK constraint in
// the database, so an invalid value is rejected at insert time too.
type UserState string

const (
	StateAvailable   UserState = "available"
	StateUnavailable UserState = "unavailable"
	StateInvisible   UserState = "invisible"
)

func (s UserState) Valid() bool {
	switch s {
	case StateAvailable, StateUnavailable, StateInvisible:
		return true
	}
	return false
}

// EndpointState is the call state of a telephony endpoint.
type EndpointState string

const (
	EndpointAvailable   EndpointState = "available"
	EndpointUnavailable EndpointState = "unavailable"
	EndpointHolding     EndpointState = "holding"
	EndpointRinging     EndpointState = "ringing"
	EndpointTalking     EndpointState = "talking"
)

func (s EndpointState) Valid() bool {
	switch s {
	case EndpointAvailable, EndpointUnavailable, EndpointHolding, EndpointRinging, EndpointTalking:
		return true
	}
	return false
}

// LineMedia is the media kind carried by a line.
type LineMedia string

const (
	MediaAudio LineMedia = "audio"
	MediaVideo LineMedia = "video"
)

func (m LineMedia) Valid() bool {
	return m == MediaAudio || m == MediaVideo
}

// Tenant is the isolation boundary. Every user belongs to exactly one
// tenant, and every user/room query is scoped by tenant UUIDs.
type Tenant struct {
	UUID uuid.UUID `json:"uuid"`
}

// User is a presence-tracked person. State is never empty; Status is
// free text ("in a meeting", "afk") and may be.
//
// Sessions and Lines are the user's attached connections. They live in
// their own tables; a user loaded through UserRepository.Get carries
// them, a bare row scan does not. Deleting a user deletes both
// collections.
type User struct {
	UUID       uuid.UUID `json:"uuid"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
	State      UserState `json:"state"`
	Status     string    `json:"status"`

	Sessions      []Session      `json:"sessions"`
	Lines         []Line         `json:"lines"`
	RefreshTokens []RefreshToken `json:"-"`
}

// Session is an authenticated connection of a user (desktop app, mobile
// app). TenantUUID is not stored on the session row — it is projected
// from the owning user at read time, so it can never go stale.
type Session struct {
	UUID       uuid.UUID `json:"uuid"`
	Mobile     bool      `json:"mobile"`
	UserUUID   uuid.UUID `json:"user_uuid"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
}

// RefreshToken is a long-lived credential the auth service issued to one
// of the user's clients. Identity is (ClientID, UserUUID): a client holds
// at most one token per user, and issuing a new one replaces it. Mobile
// marks the user as reachable on a mobile client even with no live
// session. TenantUUID is projected from the owning user at read time.
type RefreshToken struct {
	ClientID   string    `json:"client_id"`
	UserUUID   uuid.UUID `json:"user_uuid"`
	Mobile     bool      `json:"mobile"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
}

// Line is a telephony line attached to a user. EndpointName points at
// the underlying call-state resource; both it and UserUUID are nullable
// because bus events can describe a line before its associations exist.
//
// TenantUUID and State are read-time projections (from the owning user
// and the associated endpoint respectively), never stored on the row.
// A line with no endpoint reports the unavailable state.
type Line struct {
	ID           int           `json:"id"`
	UserUUID     *uuid.UUID    `json:"user_uuid"`
	EndpointName *string       `json:"endpoint_name"`
	Media        LineMedia     `json:"media,omitempty"`
	TenantUUID   uuid.UUID     `json:"tenant_uuid"`
	State        EndpointState `json:"state"`
}

// Endpoint is the call-state resource behind a line, keyed by its
// technology name (e.g. "PJSIP/abcd"). At most one line references a
// given endpoint.
type Endpoint struct {
	Name  string        `json:"name"`
	State EndpointState `json:"state"`
}

// Room is a persistent chat conversation. TenantUUID is a plain column,
// not a foreign key into chatd_tenant: rooms are independent of the
// presence provisioning tables.
type Room struct {
	UUID       uuid.UUID  `json:"uuid"`
	TenantUUID uuid.UUID  `json:"tenant_uuid"`
	Users      []RoomUser `json:"users"`
}

// RoomUser is a participant membership. Identity is (RoomUUID, UUID);
// the same user UUID can sit in many rooms. WazoUUID identifies the
// origin stack the participant came from.
type RoomUser struct {
	UUID       uuid.UUID `json:"uuid"`
	RoomUUID   uuid.UUID `json:"-"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
	WazoUUID   uuid.UUID `json:"wazo_uuid"`
}

// RoomMessage is one chat message. Messages are append-only: they are
// never updated, and only disappear when their room is deleted.
//
// ID is a bigserial, so it follows insertion order. Ordered reads sort
// by CreatedAt with ID as tie-break, which keeps the order deterministic
// when two messages land on the same timestamp.
type RoomMessage struct {
	ID         int64     `json:"-"`
	RoomUUID   uuid.UUID `json:"room_uuid"`
	UserUUID   uuid.UUID `json:"user_uuid"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
	WazoUUID   uuid.UUID `json:"wazo_uuid"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
