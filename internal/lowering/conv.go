package lowering

// ParamConv is the calling convention of one lowered parameter slot.
type ParamConv uint8

const (
	// ConvDirectOwned passes a value in registers; the callee consumes it.
	ConvDirectOwned ParamConv = iota
	// ConvDirectGuaranteed passes a value in registers; the caller keeps
	// ownership for the duration of the call.
	ConvDirectGuaranteed
	// ConvDirectUnowned passes a value only guaranteed at the instant of
	// the call; a callee that keeps it must retain it.
	ConvDirectUnowned
	// ConvDirectDeallocating passes a value being torn down; it can be
	// accessed directly without ownership operations.
	ConvDirectDeallocating
	// ConvIndirectIn passes the address of a value the callee consumes.
	ConvIndirectIn
	// ConvIndirectInGuaranteed passes the address of a value the caller
	// keeps alive.
	ConvIndirectInGuaranteed
	// ConvIndirectInout passes the address of a mutable slot with
	// write-back obligations.
	ConvIndirectInout
	// ConvIndirectOut is an output-only slot; it never carries an input.
	ConvIndirectOut
)

func (c ParamConv) String() string {
	switch c {
	case ConvDirectOwned:
		return "owned"
	case ConvDirectGuaranteed:
		return "guaranteed"
	case ConvDirectUnowned:
		return "unowned"
	case ConvDirectDeallocating:
		return "deallocating"
	case ConvIndirectIn:
		return "in"
	case ConvIndirectInGuaranteed:
		return "in_guaranteed"
	case ConvIndirectInout:
		return "inout"
	case ConvIndirectOut:
		return "out"
	default:
		return "conv?"
	}
}

// IsIndirect reports whether the slot carries an address.
func (c ParamConv) IsIndirect() bool {
	switch c {
	case ConvIndirectIn, ConvIndirectInGuaranteed, ConvIndirectInout, ConvIndirectOut:
		return true
	default:
		return false
	}
}

// IsConsumed reports whether the callee takes over the +1 obligation.
func (c ParamConv) IsConsumed() bool {
	return c == ConvDirectOwned || c == ConvIndirectIn
}

// ResultConv is the delivery convention of a lowered result.
type ResultConv uint8

const (
	// ResultOwned returns a +1 value directly.
	ResultOwned ResultConv = iota
	// ResultUnowned returns a +0 value the caller must retain to keep.
	ResultUnowned
	// ResultUnownedInnerPointer returns a +0 pointer aliasing callee
	// storage. Reabstracting it is a known-incomplete case.
	ResultUnownedInnerPointer
	// ResultAutoreleased returns a value in the foreign autorelease
	// convention.
	ResultAutoreleased
	// ResultIndirect delivers the result into a caller-provided address.
	ResultIndirect
)

func (c ResultConv) String() string {
	switch c {
	case ResultOwned:
		return "owned"
	case ResultUnowned:
		return "unowned"
	case ResultUnownedInnerPointer:
		return "unowned_inner_pointer"
	case ResultAutoreleased:
		return "autoreleased"
	case ResultIndirect:
		return "indirect"
	default:
		return "result?"
	}
}

// FnRep distinguishes context-free function pointers from closure values
// carrying a context.
type FnRep uint8

const (
	// FnThin is a bare function pointer.
	FnThin FnRep = iota
	// FnThick is a function pointer plus captured context.
	FnThick
)

func (r FnRep) String() string {
	if r == FnThin {
		return "thin"
	}
	return "thick"
}

// MetaRep distinguishes zero-sized metatype representations from ones
// carrying a runtime type descriptor.
type MetaRep uint8

const (
	MetaNone MetaRep = iota // not a metatype
	MetaThin
	MetaThick
)

func (r MetaRep) String() string {
	switch r {
	case MetaThin:
		return "thin"
	case MetaThick:
		return "thick"
	default:
		return ""
	}
}
