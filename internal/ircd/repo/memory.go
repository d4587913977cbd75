package repo

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// Memory is an in-memory Repository, used by tests.
type Memory struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]AccountRow
	byName   map[string]uuid.UUID
	channels map[uuid.UUID]ChannelRow
	members  map[uuid.UUID][]uuid.UUID // channelID -> accountIDs
	messages []EventMessage
}

// NewMemory returns an empty in-memory Repository.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[uuid.UUID]AccountRow),
		byName:   make(map[string]uuid.UUID),
		channels: make(map[uuid.UUID]ChannelRow),
		members:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *Memory) LoadAllAccounts(context.Context) ([]AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AccountRow, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *Memory) LoadAllChannels(context.Context) ([]ChannelRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChannelRow, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) LoadChannelMembers(_ context.Context, channelID uuid.UUID) ([]AccountRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AccountRow
	for _, id := range m.members[channelID] {
		if a, ok := m.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) InsertMessage(_ context.Context, msg EventMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Memory) InsertMessages(_ context.Context, msgs []EventMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *Memory) AccountGetOrCreate(_ context.Context, username, passwordHash string) (AccountRow, error) {
	if username == "" {
		return AccountRow{}, errors.New("username required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byName[username]; ok {
		return m.accounts[id], nil
	}
	id, err := uuid.NewV4()
	if err != nil {
		return AccountRow{}, errors.Wrap(err, "generate account id")
	}
	row := AccountRow{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.accounts[id] = row
	m.byName[username] = id
	return row, nil
}

func (m *Memory) ChannelGetOrCreate(_ context.Context, name, topic string, owner, server uuid.UUID) (ChannelRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.channels {
		if c.Name == name {
			return c, nil
		}
	}
	id, err := uuid.NewV4()
	if err != nil {
		return ChannelRow{}, errors.Wrap(err, "generate channel id")
	}
	row := ChannelRow{ID: id, Name: name, Topic: topic, OwnerID: owner, ServerID: server, CreatedAt: time.Now()}
	m.channels[id] = row
	return row, nil
}

var _ Repository = (*Memory)(nil)
