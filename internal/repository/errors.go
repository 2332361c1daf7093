package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError is returned when a get-by-id lookup finds nothing within
// the requested tenant scope. It carries everything the REST layer needs
// to build a 404 body: a stable machine-readable error id, the resource
// collection name, and a human-readable message with details.
//
// Lookup misses are never retried here — the repository cannot know
// whether a retry would help.
type NotFoundError struct {
	Status   int
	ErrorID  string
	Resource string
	Message  string
	Details  map[string]any
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// NewUnknownUser reports a user lookup miss.
func NewUnknownUser(userUUID uuid.UUID) *NotFoundError {
	return &NotFoundError{
		Status:   404,
		ErrorID:  "unknown-user",
		Resource: "users",
		Message:  fmt.Sprintf("No such user: %q", userUUID),
		Details:  map[string]any{"uuid": userUUID.String()},
	}
}

// NewUnknownUsers reports that a list explicitly asked for uuids that do
// not all exist. Used by the resynchronization flow to detect users that
// vanished between the event and the lookup.
func NewUnknownUsers(userUUIDs []uuid.UUID) *NotFoundError {
	missing := make([]string, 0, len(userUUIDs))
	for _, u := range userUUIDs {
		missing = append(missing, u.String())
	}
	return &NotFoundError{
		Status:   404,
		ErrorID:  "unknown-users",
		Resource: "users",
		Message:  fmt.Sprintf("No such users: %v", missing),
		Details:  map[string]any{"uuids": missing},
	}
}

// NewUnknownRoom reports a room lookup miss.
func NewUnknownRoom(roomUUID uuid.UUID) *NotFoundError {
	return &NotFoundError{
		Status:   404,
		ErrorID:  "unknown-room",
		Resource: "rooms",
		Message:  fmt.Sprintf("No such room: %q", roomUUID),
		Details:  map[string]any{"uuid": roomUUID.String()},
	}
}

// NewUnknownEndpoint reports an endpoint lookup miss.
func NewUnknownEndpoint(name string) *NotFoundError {
	return &NotFoundError{
		Status:   404,
		ErrorID:  "unknown-endpoint",
		Resource: "endpoints",
		Message:  fmt.Sprintf("No such endpoint: %q", name),
		Details:  map[string]any{"name": name},
	}
}

// AsNotFound unwraps err into a NotFoundError, or returns nil.
func AsNotFound(err error) *NotFoundError {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	return nil
}
