package conn

// State is the coarse registration phase of a Conn (spec §4.3).
type State int

const (
	// StateGreet is the phase between socket accept and a completed
	// CAP/NICK/USER handshake: only registration commands are valid.
	StateGreet State = iota
	// StateReady is the normal operating phase after finalisation.
	StateReady
	// StateClosing is set once QUIT or a fatal protocol error has
	// been processed; further input is ignored.
	StateClosing
)

// SetupTask is a bit in the registration task bitset. Finalisation
// requires TaskNICK and TaskUSER; TaskCAP is set on CAP END but does
// not itself gate finalisation (see the note below).
type SetupTask uint8

const (
	TaskCAP SetupTask = 1 << iota
	TaskNICK
	TaskUSER
)

// CAP negotiation is not required: a connection that never sends CAP
// at all completes registration as soon as NICK+USER land. Conn's
// capPending field tracks whether CAP negotiation is in-flight (LS
// sent, END not yet received), which *does* block finalisation until
// it resolves.
