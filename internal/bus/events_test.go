package bus

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeSessionEvent(t *testing.T) {
	sessionUUID := uuid.New()
	userUUID := uuid.New()
	payload := fmt.Sprintf(
		`{"uuid": %q, "user_uuid": %q, "mobile": true}`,
		sessionUUID, userUUID,
	)

	event, err := decode[SessionEvent]([]byte(payload))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.UUID != sessionUUID || event.UserUUID != userUUID || !event.Mobile {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := decode[SessionEvent]([]byte(`{not json`)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := decode[SessionEvent]([]byte(`{"uuid": "not-a-uuid"}`)); err == nil {
		t.Fatal("expected decode error for malformed uuid")
	}
}

func TestDeviceStateEventValidation(t *testing.T) {
	event := DeviceStateEvent{Name: "PJSIP/abcd", State: "talking"}
	state, err := event.EndpointState()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(state) != "talking" {
		t.Fatalf("unexpected state %q", state)
	}

	event.State = "shouting"
	if _, err := event.EndpointState(); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestOutboundChannelNames(t *testing.T) {
	userUUID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	roomUUID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	if got := presenceUpdatedChannel(userUUID); got != "chatd.users.11111111-1111-1111-1111-111111111111.presences.updated" {
		t.Fatalf("unexpected channel %q", got)
	}
	if got := messageCreatedChannel(userUUID, roomUUID); got != "chatd.users.11111111-1111-1111-1111-111111111111.rooms.22222222-2222-2222-2222-222222222222.messages.created" {
		t.Fatalf("unexpected channel %q", got)
	}
}
