// Package repo defines the persistence boundary the protocol core
// consumes (spec §4.6). Persistent storage itself — the relational
// schema and its queries — is out of scope (spec §1); this package
// only states the interface and ships an in-memory fake for tests.
package repo

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
)

// AccountRow is a materialised account as loaded from storage.
type AccountRow struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Host         string
	CreatedAt    time.Time
	RoleID       uuid.UUID // zero value if unset; supplemented feature
}

// ChannelRow is a materialised channel as loaded from storage.
type ChannelRow struct {
	ID        uuid.UUID
	Name      string
	Topic     string
	OwnerID   uuid.UUID
	ServerID  uuid.UUID
	CreatedAt time.Time
}

// EventMessage is the durable record of a single delivered message,
// the shape insert_message persists (spec §4.6).
type EventMessage struct {
	ID        string
	ConnID    uuid.UUID
	AccountID uuid.UUID
	ChannelID uuid.UUID // zero value for private messages
	DestID    uuid.UUID // zero value for channel messages
	Text      string
	Raw       string
	CreatedAt time.Time
}

// Repository is the async-friendly boundary to persistence (spec
// §4.6). Implementations must guarantee stable UUIDs and enforce
// schema uniqueness; the protocol core relies on both.
type Repository interface {
	LoadAllAccounts(ctx context.Context) ([]AccountRow, error)
	LoadAllChannels(ctx context.Context) ([]ChannelRow, error)
	LoadChannelMembers(ctx context.Context, channelID uuid.UUID) ([]AccountRow, error)

	InsertMessage(ctx context.Context, msg EventMessage) error
	InsertMessages(ctx context.Context, msgs []EventMessage) error

	AccountGetOrCreate(ctx context.Context, username, passwordHash string) (AccountRow, error)
	ChannelGetOrCreate(ctx context.Context, name, topic string, owner, server uuid.UUID) (ChannelRow, error)
}
