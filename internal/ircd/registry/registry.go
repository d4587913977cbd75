// Package registry implements the process-wide live entity registry
// (spec §4.2): lookup tables for accounts, channels, and the
// case-folded nick index, guarded by a single reader-writer lock.
//
// Lock order is registry-first, entity-second (spec §4.2): no
// registry method may be called while holding an entity's own lock.
// Some registry methods briefly take an entity's lock while holding
// the registry lock (to read a username or folded name, or to rename
// a channel), never the reverse, and none performs I/O under it.
package registry

import (
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

// ErrNickTaken is returned by RebindNick when the target nick is
// already bound to a different account.
var ErrNickTaken = errors.New("nick already bound to another account")

// ErrNotAnonymous is returned by MergeAccounts when the source account
// already owns a persisted username.
var ErrNotAnonymous = errors.New("merge source account is not anonymous")

// Registry is the process-wide entity registry. The zero value is not
// usable; construct with New.
type Registry struct {
	mu sync.RWMutex

	accountsByUUID map[uuid.UUID]*model.Account
	accountsByName map[string]*model.Account
	channelsByName map[string]*model.Channel // keyed by folded name
	nicksByFolded  map[string]*model.Account
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		accountsByUUID: make(map[uuid.UUID]*model.Account),
		accountsByName: make(map[string]*model.Account),
		channelsByName: make(map[string]*model.Channel),
		nicksByFolded:  make(map[string]*model.Account),
	}
}

// LookupAccountByUUID returns the account with the given id, or nil.
func (r *Registry) LookupAccountByUUID(id uuid.UUID) *model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accountsByUUID[id]
}

// LookupAccountByName returns the account with the given (persisted,
// case-sensitive) username, or nil.
func (r *Registry) LookupAccountByName(name string) *model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accountsByName[name]
}

// LookupNick returns the account bound to the given (already
// case-folded) nick, or nil.
func (r *Registry) LookupNick(foldedNick string) *model.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nicksByFolded[foldedNick]
}

// LookupChannelByName returns the channel with the given (already
// case-folded) name, or nil.
func (r *Registry) LookupChannelByName(foldedName string) *model.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channelsByName[foldedName]
}

// GetOrCreateChannel returns the existing channel for name, or
// inserts and returns a fresh one. Calling it twice with the same
// name (modulo case-folding) always returns the same handle (spec §8
// round-trip law).
func (r *Registry) GetOrCreateChannel(name string) (ch *model.Channel, created bool) {
	folded := ircline.CaseFold(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.channelsByName[folded]; ok {
		return existing, false
	}
	ch = model.NewChannel(name)
	r.channelsByName[folded] = ch
	return ch, true
}

// InsertChannel registers an already-constructed channel (used when
// restoring from the repository at startup).
func (r *Registry) InsertChannel(ch *model.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelsByName[ch.FoldedName()] = ch
}

// RemoveChannelIfEmpty removes ch from the registry iff it currently
// has no members. It returns whether the channel was removed.
func (r *Registry) RemoveChannelIfEmpty(ch *model.Channel) bool {
	if !ch.Empty() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: a join may have raced us
	// between the Empty() check above and acquiring the lock.
	if !ch.Empty() {
		return false
	}
	folded := ch.FoldedName()
	if r.channelsByName[folded] != ch {
		return false
	}
	delete(r.channelsByName, folded)
	return true
}

// RenameChannel atomically rewrites the folded-name index entry for
// ch from its current name to newName (SPEC_FULL.md open question
// decision #3: the atomic path, not PART+JOIN, is primary).
func (r *Registry) RenameChannel(ch *model.Channel, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldFolded := ch.FoldedName()
	newFolded := ircline.CaseFold(newName)
	if newFolded != oldFolded {
		if _, taken := r.channelsByName[newFolded]; taken {
			return errors.New("channel name already in use")
		}
	}
	ch.Rename(newName)
	delete(r.channelsByName, oldFolded)
	r.channelsByName[newFolded] = ch
	return nil
}

// InsertAccount registers an account by uuid and, if not anonymous,
// by username.
func (r *Registry) InsertAccount(a *model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accountsByUUID[a.ID()] = a
	if name := a.Username(); name != "" {
		r.accountsByName[name] = a
	}
}

// RemoveAccount unregisters an account entirely, including any nick
// binding it still holds.
func (r *Registry) RemoveAccount(a *model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accountsByUUID, a.ID())
	if name := a.Username(); name != "" {
		delete(r.accountsByName, name)
	}
	for folded, acct := range r.nicksByFolded {
		if acct == a {
			delete(r.nicksByFolded, folded)
		}
	}
}

// BindNick binds a folded nick to account; used only during
// registration finalisation, after the caller's own tentative-nick
// check. Returns ErrNickTaken if the folded nick is already bound to
// a different account.
func (r *Registry) BindNick(foldedNick string, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.nicksByFolded[foldedNick]; ok && existing != account {
		return ErrNickTaken
	}
	r.nicksByFolded[foldedNick] = account
	return nil
}

// RebindNick atomically moves the folded-nick binding from old to
// new for account (spec §4.2, §8 linearisability invariant). It fails
// if new is already bound to a different account. old may be empty
// (the account had no prior binding).
func (r *Registry) RebindNick(oldFolded, newFolded string, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.nicksByFolded[newFolded]; ok && existing != account {
		return ErrNickTaken
	}
	if oldFolded != "" && oldFolded != newFolded {
		if existing, ok := r.nicksByFolded[oldFolded]; ok && existing == account {
			delete(r.nicksByFolded, oldFolded)
		}
	}
	r.nicksByFolded[newFolded] = account
	return nil
}

// MergeAccounts transfers connections from the anonymous account from
// into into (spec §4.2 merge_accounts), updates the registry's
// username index for into, and removes from entirely. from must have
// no persisted username.
func (r *Registry) MergeAccounts(from, into *model.Account) error {
	if !from.IsAnonymous() {
		return ErrNotAnonymous
	}

	into.Merge(from)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accountsByUUID, from.ID())
	for folded, acct := range r.nicksByFolded {
		if acct == from {
			r.nicksByFolded[folded] = into
		}
	}
	if name := into.Username(); name != "" {
		r.accountsByName[name] = into
	}
	return nil
}
