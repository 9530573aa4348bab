package ir

import (
	"fmt"

	"fortio.org/safecast"

	"prism/internal/lowering"
)

// Func is a synthesized straight-line function. Its entry values are the
// lowered parameters in signature order, preceded by the indirect result
// address when the signature has one.
type Func struct {
	Name string
	Sig  *lowering.Signature

	// IndirectResult is the out-address entry value, null otherwise.
	IndirectResult Value
	Params         []Value

	Instrs []Instr

	nvalues uint32
}

// NewFunc creates a function with entry values laid out per sig.
func NewFunc(name string, sig *lowering.Signature, o *lowering.Oracle) *Func {
	f := &Func{Name: name, Sig: sig}
	if sig.HasIndirectResult() {
		f.IndirectResult = f.NewValue(sig.Result.Type)
	}
	for _, p := range sig.Params {
		t := p.Type
		if p.Conv.IsIndirect() {
			t = o.AddrOf(t)
		}
		f.Params = append(f.Params, f.NewValue(t))
	}
	return f
}

// NewValue allocates a fresh value of the given lowered type.
func (f *Func) NewValue(t lowering.ID) Value {
	next, err := safecast.Conv[uint32](int(f.nvalues) + 1)
	if err != nil {
		panic(fmt.Errorf("ir: value count overflow: %w", err))
	}
	f.nvalues = next
	return Value{ID: ValueID(next), Type: t}
}

// NumValues returns how many values the function defines.
func (f *Func) NumValues() int {
	return int(f.nvalues)
}

// Empty reports whether the function body has not been built yet.
func (f *Func) Empty() bool {
	return len(f.Instrs) == 0
}
