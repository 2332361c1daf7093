package models

import "testing"

func TestUserStateValid(t *testing.T) {
	for _, state := range []UserState{StateAvailable, StateUnavailable, StateInvisible} {
		if !state.Valid() {
			t.Errorf("expected %q to be valid", state)
		}
	}
	for _, state := range []UserState{"", "online", "Available"} {
		if state.Valid() {
			t.Errorf("expected %q to be invalid", state)
		}
	}
}

func TestEndpointStateValid(t *testing.T) {
	for _, state := range []EndpointState{
		EndpointAvailable, EndpointUnavailable, EndpointHolding, EndpointRinging, EndpointTalking,
	} {
		if !state.Valid() {
			t.Errorf("expected %q to be valid", state)
		}
	}
	for _, state := range []EndpointState{"", "busy", "TALKING"} {
		if state.Valid() {
			t.Errorf("expected %q to be invalid", state)
		}
	}
}

func TestLineMediaValid(t *testing.T) {
	if !MediaAudio.Valid() || !MediaVideo.Valid() {
		t.Error("expected audio and video to be valid")
	}
	if LineMedia("").Valid() || LineMedia("text").Valid() {
		t.Error("expected empty and unknown media to be invalid")
	}
}
