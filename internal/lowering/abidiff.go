package lowering

// ABIDiff classifies how two representations relate.
type ABIDiff uint8

const (
	// ABISame: identical representation, no conversion needed.
	ABISame ABIDiff = iota
	// ABITrivial: representations differ only by a bitcast-level
	// reinterpretation (possibly plus a thin-to-context-carrying function
	// conversion).
	ABITrivial
	// ABINeedsThunk: the calling or storage convention genuinely differs;
	// converting a function value requires a synthesized thunk.
	ABINeedsThunk
)

func (d ABIDiff) String() string {
	switch d {
	case ABISame:
		return "same"
	case ABITrivial:
		return "trivial"
	default:
		return "needs_thunk"
	}
}

// ABIDifference compares two lowered types.
func (o *Oracle) ABIDifference(a, b ID) ABIDiff {
	if a == b {
		return ABISame
	}
	ta, tb := o.TypeOf(a), o.TypeOf(b)

	if ta.Sig != nil && tb.Sig != nil {
		if signaturesMatch(ta.Sig, tb.Sig) {
			// Only the function representation differs.
			return ABITrivial
		}
		return ABINeedsThunk
	}

	if ta.Opt != NoID && tb.Opt != NoID && ta.Addr == tb.Addr {
		if o.ABIDifference(ta.Opt, tb.Opt) != ABINeedsThunk {
			return ABITrivial
		}
	}

	return ABINeedsThunk
}

// signaturesMatch reports whether two signatures share every slot type and
// convention, ignoring the function representation.
func signaturesMatch(a, b *Signature) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	return a.Result == b.Result
}
