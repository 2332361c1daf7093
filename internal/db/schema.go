package db

// The chatd_* table names and column semantics are a stable storage
// contract shared with other deployments; do not rename them.
//
// Cascade policy:
//   - tenant delete cascades to users, and through users to sessions
//     and lines.
//   - user delete cascades to its sessions, lines and refresh tokens.
//   - endpoint delete nulls out the referencing line's endpoint_name
//     (the line survives, its state falls back to unavailable).
//   - room delete cascades to room users and room messages.
const schema = `
CREATE TABLE IF NOT EXISTS chatd_tenant (
    uuid UUID PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS chatd_user (
    uuid UUID PRIMARY KEY,
    tenant_uuid UUID NOT NULL REFERENCES chatd_tenant (uuid) ON DELETE CASCADE,
    state VARCHAR(24) NOT NULL CHECK (state IN ('available', 'unavailable', 'invisible')),
    status TEXT
);

CREATE TABLE IF NOT EXISTS chatd_session (
    uuid UUID PRIMARY KEY,
    mobile BOOLEAN NOT NULL DEFAULT false,
    user_uuid UUID NOT NULL REFERENCES chatd_user (uuid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS chatd_refresh_token (
    client_id TEXT NOT NULL,
    user_uuid UUID NOT NULL REFERENCES chatd_user (uuid) ON DELETE CASCADE,
    mobile BOOLEAN NOT NULL DEFAULT false,
    PRIMARY KEY (client_id, user_uuid)
);

CREATE TABLE IF NOT EXISTS chatd_endpoint (
    name TEXT PRIMARY KEY,
    state VARCHAR(24) NOT NULL DEFAULT 'unavailable'
        CHECK (state IN ('available', 'unavailable', 'holding', 'ringing', 'talking'))
);

CREATE TABLE IF NOT EXISTS chatd_line (
    id INTEGER PRIMARY KEY,
    user_uuid UUID REFERENCES chatd_user (uuid) ON DELETE CASCADE,
    endpoint_name TEXT UNIQUE REFERENCES chatd_endpoint (name) ON DELETE SET NULL,
    media VARCHAR(24) CHECK (media IN ('audio', 'video'))
);

CREATE TABLE IF NOT EXISTS chatd_room (
    uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_uuid UUID NOT NULL
);

CREATE TABLE IF NOT EXISTS chatd_room_user (
    room_uuid UUID NOT NULL REFERENCES chatd_room (uuid) ON DELETE CASCADE,
    uuid UUID NOT NULL,
    tenant_uuid UUID NOT NULL,
    wazo_uuid UUID NOT NULL,
    PRIMARY KEY (room_uuid, uuid)
);

CREATE TABLE IF NOT EXISTS chatd_room_message (
    id BIGSERIAL PRIMARY KEY,
    room_uuid UUID NOT NULL REFERENCES chatd_room (uuid) ON DELETE CASCADE,
    user_uuid UUID NOT NULL,
    tenant_uuid UUID NOT NULL,
    wazo_uuid UUID NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chatd_user_tenant
    ON chatd_user (tenant_uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_session_user
    ON chatd_session (user_uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_line_user
    ON chatd_line (user_uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_refresh_token_user
    ON chatd_refresh_token (user_uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_room_tenant
    ON chatd_room (tenant_uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_room_user_uuid
    ON chatd_room_user (uuid);
CREATE INDEX IF NOT EXISTS idx_chatd_room_message_ordering
    ON chatd_room_message (room_uuid, created_at DESC, id DESC);
`
