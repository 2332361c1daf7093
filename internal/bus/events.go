package bus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// Inbound channels. Other services publish provisioning and telephony
// state changes here; the consumer reconciles the local tables against
// them. Delivery may repeat and arrive out of order, so every handler
// is idempotent.
const (
	ChannelTenantCreated       = "auth.tenants.created"
	ChannelTenantDeleted       = "auth.tenants.deleted"
	ChannelUserCreated         = "confd.users.created"
	ChannelUserDeleted         = "confd.users.deleted"
	ChannelSessionCreated      = "auth.sessions.created"
	ChannelSessionDeleted      = "auth.sessions.deleted"
	ChannelRefreshTokenCreated = "auth.users.refresh_tokens.created"
	ChannelRefreshTokenDeleted = "auth.users.refresh_tokens.deleted"
	ChannelLineAssociated      = "confd.users.lines.associated"
	ChannelLineDissociated     = "confd.users.lines.dissociated"
	ChannelDeviceStateChanged  = "asterisk.devices.state.changed"
)

type TenantEvent struct {
	UUID uuid.UUID `json:"uuid"`
}

type UserEvent struct {
	UUID       uuid.UUID `json:"uuid"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
}

type SessionEvent struct {
	UUID     uuid.UUID `json:"uuid"`
	UserUUID uuid.UUID `json:"user_uuid"`
	Mobile   bool      `json:"mobile"`
}

type RefreshTokenEvent struct {
	ClientID string    `json:"client_id"`
	UserUUID uuid.UUID `json:"user_uuid"`
	Mobile   bool      `json:"mobile"`
}

type LineEvent struct {
	ID           int       `json:"id"`
	UserUUID     uuid.UUID `json:"user_uuid"`
	EndpointName *string   `json:"endpoint_name,omitempty"`
	Media        string    `json:"media,omitempty"`
}

type DeviceStateEvent struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func (e *DeviceStateEvent) EndpointState() (models.EndpointState, error) {
	state := models.EndpointState(e.State)
	if !state.Valid() {
		return "", fmt.Errorf("invalid endpoint state %q", e.State)
	}
	return state, nil
}

// decode unmarshals an event payload and rejects envelopes that do not
// carry the fields the handler needs.
func decode[E any](payload []byte) (*E, error) {
	var event E
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// Outbound events, published after successful mutations so other
// services can fan them out. The DAO layer never publishes; the caller
// that performed the mutation does.

// PresenceUpdatedEvent mirrors the user row after a presence change.
type PresenceUpdatedEvent struct {
	UUID       uuid.UUID        `json:"uuid"`
	TenantUUID uuid.UUID        `json:"tenant_uuid"`
	State      models.UserState `json:"state"`
	Status     string           `json:"status"`
}

// RoomCreatedEvent mirrors the room with its participants.
type RoomCreatedEvent struct {
	UUID       uuid.UUID         `json:"uuid"`
	TenantUUID uuid.UUID         `json:"tenant_uuid"`
	Users      []models.RoomUser `json:"users"`
}

// MessageCreatedEvent mirrors a freshly appended room message.
type MessageCreatedEvent struct {
	RoomUUID   uuid.UUID `json:"room_uuid"`
	UserUUID   uuid.UUID `json:"user_uuid"`
	TenantUUID uuid.UUID `json:"tenant_uuid"`
	WazoUUID   uuid.UUID `json:"wazo_uuid"`
	Content    string    `json:"content"`
	CreatedAt  string    `json:"created_at"`
}

// presenceUpdatedChannel and friends shape the outbound channel names.
// The user uuid is part of the name so consumers can subscribe to a
// single user with a pattern.
func presenceUpdatedChannel(userUUID uuid.UUID) string {
	return fmt.Sprintf("chatd.users.%s.presences.updated", userUUID)
}

func roomCreatedChannel(userUUID uuid.UUID) string {
	return fmt.Sprintf("chatd.users.%s.rooms.created", userUUID)
}

func messageCreatedChannel(userUUID, roomUUID uuid.UUID) string {
	return fmt.Sprintf("chatd.users.%s.rooms.%s.messages.created", userUUID, roomUUID)
}
