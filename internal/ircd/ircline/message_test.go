package ircline

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Message
	}{
		{
			in:   "PING :1234",
			want: Message{Command: "PING", Params: []string{"1234"}, Trailing: true},
		},
		{
			in:   ":irc.example.org 001 alice :Welcome",
			want: Message{Prefix: "irc.example.org", Command: "001", Params: []string{"alice", "Welcome"}, Trailing: true},
		},
		{
			in: ":alice!u@h PRIVMSG #chan :hello world",
			want: Message{
				Prefix:   "alice!u@h",
				Command:  "PRIVMSG",
				Params:   []string{"#chan", "hello world"},
				Trailing: true,
			},
		},
		{
			in:   "CAP LS 302",
			want: Message{Command: "CAP", Params: []string{"LS", "302"}},
		},
		{
			in: "@id=123;account=alice :alice!u@h PRIVMSG #chan :hi",
			want: Message{
				Tags:     map[string]string{"id": "123", "account": "alice"},
				TagOrder: []string{"id", "account"},
				Prefix:   "alice!u@h",
				Command:  "PRIVMSG",
				Params:   []string{"#chan", "hi"},
				Trailing: true,
			},
		},
	}

	for _, tc := range tests {
		got, err := Parse([]byte(tc.in))
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseThenBytesRoundTrip(t *testing.T) {
	lines := []string{
		"PING :1234",
		":irc.example.org 001 alice :Welcome to the network",
		":alice!u@h PRIVMSG #chan :hi",
		"CAP LS 302",
		"NICK bob",
	}
	for _, line := range lines {
		msg, err := Parse([]byte(line))
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if got := string(msg.Bytes()); got != line {
			t.Errorf("round-trip mismatch: parse(%q).Bytes() = %q", line, got)
		}
	}
}

func TestTagEscapeRoundTrip(t *testing.T) {
	values := []string{"a;b", "a b", `a\b`, "a\rb", "a\nb", "plain"}
	for _, v := range values {
		if got := unescapeTag(escapeTag(v)); got != v {
			t.Errorf("unescapeTag(escapeTag(%q)) = %q, want %q", v, got, v)
		}
	}
}

func TestCaseFoldIdempotentAndRFC1459(t *testing.T) {
	if got := CaseFold("Alice[Bot]\\x"); got != "alice{bot}|x" {
		t.Errorf("CaseFold = %q", got)
	}
	once := CaseFold("MiXeD[]\\")
	twice := CaseFold(once)
	if once != twice {
		t.Errorf("CaseFold not idempotent: %q != %q", once, twice)
	}
}

func TestValidNick(t *testing.T) {
	cases := []struct {
		nick string
		ok   bool
	}{
		{"alice", true},
		{"_alice", true},
		{"alice-2", true},
		{"2alice", false}, // leading digit not allowed
		{"", false},
		{"waytoolongnickname", false}, // exceeds default 9-byte limit
		{"a-b_c", true},
	}
	for _, tc := range cases {
		if got := ValidNick(tc.nick, MaxNickBytes); got != tc.ok {
			t.Errorf("ValidNick(%q) = %v, want %v", tc.nick, got, tc.ok)
		}
	}
}

func TestTagBlockTruncatedAtProtocolLimit(t *testing.T) {
	big := make(map[string]string)
	order := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		k := string(rune('a'+i%26)) + string(rune('A'+i%26))
		big[k] = "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"
		order = append(order, k)
	}
	msg := Message{Tags: big, TagOrder: order, Command: "PRIVMSG", Params: []string{"#c", "hi"}, Trailing: true}
	out := msg.Bytes()
	// Find end of tag block (first space not inside the tag section
	// is the terminator the codec writes right after truncation).
	end := 0
	for i, b := range out {
		if b == ' ' {
			end = i
			break
		}
	}
	if len(out) == 0 || out[0] != '@' {
		t.Fatalf("expected tag block to be emitted")
	}
	if end == 0 || end+1 > MaxTagBytes {
		t.Fatalf("tag block with its terminating space is %d bytes, want at most %d", end+1, MaxTagBytes)
	}
}
