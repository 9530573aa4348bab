package ir

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// CleanupID names one ownership obligation. The zero ID is "no cleanup".
type CleanupID uint32

// NoCleanup marks borrowed values that carry no obligation.
const NoCleanup CleanupID = 0

// CleanupState tracks an obligation's disposition. Every entered
// obligation must reach exactly one terminal state on every path.
type CleanupState uint8

const (
	// CleanupPending: the obligation is live and unresolved.
	CleanupPending CleanupState = iota
	// CleanupForwarded: ownership transferred into another owner.
	CleanupForwarded
	// CleanupDestroyed: the value was explicitly destroyed.
	CleanupDestroyed
)

// Ledger records ownership obligations for one function body. It replaces
// scope-based destructor stacks with explicit state transitions so leaks
// and double-releases are structural errors, not silent miscompiles.
type Ledger struct {
	states []CleanupState
	notes  []string
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		states: make([]CleanupState, 1), // reserve NoCleanup
		notes:  make([]string, 1),
	}
}

// Enter registers a new pending obligation.
func (l *Ledger) Enter(note string) CleanupID {
	lenStates, err := safecast.Conv[uint32](len(l.states))
	if err != nil {
		panic(fmt.Errorf("ir: cleanup count overflow: %w", err))
	}
	id := CleanupID(lenStates)
	l.states = append(l.states, CleanupPending)
	l.notes = append(l.notes, note)
	return id
}

// Forward transfers the obligation to another owner. Forwarding a
// resolved obligation is a caller contract violation.
func (l *Ledger) Forward(id CleanupID) {
	if id == NoCleanup {
		return
	}
	l.resolve(id, CleanupForwarded)
}

// Destroy resolves the obligation by destruction.
func (l *Ledger) Destroy(id CleanupID) {
	if id == NoCleanup {
		return
	}
	l.resolve(id, CleanupDestroyed)
}

func (l *Ledger) resolve(id CleanupID, terminal CleanupState) {
	if int(id) >= len(l.states) {
		panic(fmt.Sprintf("ir: unknown cleanup %d", id))
	}
	if l.states[id] != CleanupPending {
		panic(fmt.Sprintf("ir: cleanup %d (%s) resolved twice", id, l.notes[id]))
	}
	l.states[id] = terminal
}

// State returns the disposition of an obligation.
func (l *Ledger) State(id CleanupID) CleanupState {
	if id == NoCleanup || int(id) >= len(l.states) {
		return CleanupForwarded
	}
	return l.states[id]
}

// Counts reports how many obligations were entered, forwarded and
// destroyed.
func (l *Ledger) Counts() (entered, forwarded, destroyed int) {
	for _, s := range l.states[1:] {
		entered++
		switch s {
		case CleanupForwarded:
			forwarded++
		case CleanupDestroyed:
			destroyed++
		}
	}
	return
}

// Verify checks that every obligation reached a terminal state.
func (l *Ledger) Verify() error {
	var errs []error
	for id := 1; id < len(l.states); id++ {
		if l.states[id] == CleanupPending {
			errs = append(errs, fmt.Errorf("cleanup %d (%s) never resolved", id, l.notes[id]))
		}
	}
	return errors.Join(errs...)
}
