package model

import (
	"sync"

	"github.com/gofrs/uuid"
)

// Server models a persisted IRC server/network row (spec §3). It is
// never created in the hot path. The repository interface has no
// method that loads servers, and the registry does not index them.
type Server struct {
	id   uuid.UUID
	name string

	mu       sync.RWMutex
	owner    *Account
	members  []*Account
	channels []*Channel
	roles    []*Role
}

func NewServer(id uuid.UUID, name string, owner *Account) *Server {
	return &Server{id: id, name: name, owner: owner}
}

func (s *Server) ID() uuid.UUID { return s.id }
func (s *Server) Name() string  { return s.name }

func (s *Server) Owner() *Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Server) Members() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Server) AddMember(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, a)
}

func (s *Server) Channels() []*Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

func (s *Server) AddChannel(c *Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, c)
}

func (s *Server) Roles() []*Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, len(s.roles))
	copy(out, s.roles)
	return out
}

func (s *Server) AddRole(r *Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles = append(s.roles, r)
}

// Role is a named, priority-ordered permission bundle (supplemented
// feature, grounded on core/role.{h,cpp}). The repository interface
// has no method that loads roles (AccountRow only carries a RoleID),
// and no command is gated on them.
type Role struct {
	ID       uuid.UUID
	Name     string
	Priority int
	Colour   string
	Perms    []*Permission
}

// Permission is a single named, bit-flagged capability a Role may
// grant (supplemented feature, grounded on core/permission.{h,cpp}).
type Permission struct {
	ID    uuid.UUID
	Name  string
	Flags uint64
}
