package registry

import (
	"sync"
	"testing"

	"github.com/kroketio/chatripper-ircd/internal/ircd/ircline"
	"github.com/kroketio/chatripper-ircd/internal/ircd/model"
)

func TestGetOrCreateChannelIdempotent(t *testing.T) {
	r := New()
	a, created := r.GetOrCreateChannel("#General")
	if !created {
		t.Fatalf("expected first call to create the channel")
	}
	b, created := r.GetOrCreateChannel("#general")
	if created {
		t.Fatalf("expected second call to reuse the existing channel")
	}
	if a != b {
		t.Fatalf("expected same channel handle for case-folded name")
	}
}

func TestRebindNickLinearisable(t *testing.T) {
	r := New()
	acct := model.NewAnonymousAccount("alice")
	if err := r.BindNick(ircline.CaseFold("alice"), acct); err != nil {
		t.Fatal(err)
	}

	if err := r.RebindNick(ircline.CaseFold("alice"), ircline.CaseFold("alice2"), acct); err != nil {
		t.Fatal(err)
	}
	if got := r.LookupNick(ircline.CaseFold("alice2")); got != acct {
		t.Fatalf("expected new nick bound to account")
	}
	if got := r.LookupNick(ircline.CaseFold("alice")); got == acct {
		t.Fatalf("expected old nick no longer bound to account")
	}
}

func TestRebindNickRejectsCollision(t *testing.T) {
	r := New()
	alice := model.NewAnonymousAccount("alice")
	bob := model.NewAnonymousAccount("bob")
	if err := r.BindNick("alice", alice); err != nil {
		t.Fatal(err)
	}
	if err := r.BindNick("bob", bob); err != nil {
		t.Fatal(err)
	}

	if err := r.RebindNick("bob", "alice", bob); err != ErrNickTaken {
		t.Fatalf("expected ErrNickTaken, got %v", err)
	}
	if got := r.LookupNick("alice"); got != alice {
		t.Fatalf("collision must not have moved the existing binding")
	}
}

// TestConcurrentRebindNoDoubleBinding exercises the invariant that no
// observer ever sees the same folded nick bound to two accounts, even
// under concurrent rebind attempts racing for the same name.
func TestConcurrentRebindNoDoubleBinding(t *testing.T) {
	r := New()
	const n = 50
	accts := make([]*model.Account, n)
	for i := range accts {
		accts[i] = model.NewAnonymousAccount("contender")
	}

	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i, a := range accts {
		wg.Add(1)
		go func(i int, a *model.Account) {
			defer wg.Done()
			wins[i] = r.RebindNick("", "prize", a) == nil
		}(i, a)
	}
	wg.Wait()

	winner := r.LookupNick("prize")
	if winner == nil {
		t.Fatalf("expected someone to hold the nick")
	}
	// Every successful rebind call must have rebound to the account
	// that currently holds the nick, since RebindNick always wins
	// when the name isn't held by someone else yet and overwrites
	// unconditionally once it is the same account; the final state
	// must match exactly one of the racers.
	found := false
	for _, a := range accts {
		if a == winner {
			found = true
		}
	}
	if !found {
		t.Fatalf("winner is not one of the racing accounts")
	}
	for i, a := range accts {
		if wins[i] && a != winner {
			t.Fatalf("racer %d reported success but does not hold the nick", i)
		}
	}
}

func TestMergeAccountsRequiresAnonymousSource(t *testing.T) {
	r := New()
	from := model.NewAnonymousAccount("x")
	from.SetUsername("registered")
	into := model.NewAnonymousAccount("y")

	if err := r.MergeAccounts(from, into); err != ErrNotAnonymous {
		t.Fatalf("expected ErrNotAnonymous, got %v", err)
	}
}

func TestMergeAccountsTransfersConnections(t *testing.T) {
	r := New()
	from := model.NewAnonymousAccount("anon")
	into := model.NewAnonymousAccount("real")
	into.SetUsername("real")

	conn := model.NewConnection("127.0.0.1:1234", noopSender{})
	from.AddConnection(conn)
	conn.SetAccount(from)

	if err := r.MergeAccounts(from, into); err != nil {
		t.Fatal(err)
	}
	if conn.Account() != into {
		t.Fatalf("expected connection to now point at the destination account")
	}
	if into.HasConnections() != true {
		t.Fatalf("expected destination account to have the transferred connection")
	}
}

type noopSender struct{}

func (noopSender) Send([]byte) {}
func (noopSender) Close()      {}
