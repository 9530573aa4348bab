package lowering

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"prism/internal/types"
)

// ID identifies a lowered type inside the oracle. Two values have the same
// physical representation exactly when their IDs are equal.
type ID uint32

// NoID marks the absence of a lowered type.
const NoID ID = 0

// Param is one lowered parameter slot.
type Param struct {
	Type ID
	Conv ParamConv
}

// Result is the lowered result of a function.
type Result struct {
	Type ID
	Conv ResultConv
}

// Signature is the full lowered calling convention of a function type.
type Signature struct {
	Params []Param
	Result Result
	Rep    FnRep
}

// HasIndirectResult reports whether the function delivers its result into
// a caller-provided address.
func (s *Signature) HasIndirectResult() bool {
	return s.Result.Conv == ResultIndirect
}

// LoweredType is the physical representation of a semantic type under an
// abstraction. Addr marks address-only storage: the value lives in memory
// and is manipulated through its address.
type LoweredType struct {
	Sem   types.TypeID
	Addr  bool
	Meta  MetaRep    // metatypes only
	Sig   *Signature // function types only
	Elems []ID       // concretely lowered tuples only
	Opt   ID         // lowered payload for optionals
}

// IsFunction reports whether the lowered type is a function value.
func (t *LoweredType) IsFunction() bool {
	return t.Sig != nil
}

func (o *Oracle) intern(t LoweredType) ID {
	key := o.keyOf(&t)
	if id, ok := o.index[key]; ok {
		return id
	}
	lenTypes, err := safecast.Conv[uint32](len(o.lowered))
	if err != nil {
		panic(fmt.Errorf("len(lowered) overflow: %w", err))
	}
	id := ID(lenTypes)
	o.lowered = append(o.lowered, t)
	o.index[key] = id
	return id
}

// TypeOf returns the descriptor for a lowered ID.
func (o *Oracle) TypeOf(id ID) *LoweredType {
	if id == NoID || int(id) >= len(o.lowered) {
		panic(fmt.Sprintf("lowering: invalid lowered ID %d", id))
	}
	return &o.lowered[id]
}

// keyOf builds the canonical interning key. It doubles as the stable
// structural fingerprint used for thunk memoization.
func (o *Oracle) keyOf(t *LoweredType) string {
	var sb strings.Builder
	o.writeKey(&sb, t)
	return sb.String()
}

func (o *Oracle) writeKey(sb *strings.Builder, t *LoweredType) {
	if t.Addr {
		sb.WriteByte('*')
	}
	switch {
	case t.Sig != nil:
		sb.WriteString(t.Sig.Rep.String())
		sb.WriteByte('(')
		for i, p := range t.Params() {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(sb, "%s %s", p.Conv, o.Key(p.Type))
		}
		sb.WriteByte(')')
		fmt.Fprintf(sb, "->%s %s", t.Sig.Result.Conv, o.Key(t.Sig.Result.Type))
	case t.Opt != NoID:
		fmt.Fprintf(sb, "o%d[%s]", t.Sem, o.Key(t.Opt))
	case len(t.Elems) > 0:
		sb.WriteByte('(')
		for i, e := range t.Elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(o.Key(e))
		}
		sb.WriteByte(')')
	case t.Meta != MetaNone:
		fmt.Fprintf(sb, "%s_meta:%d", t.Meta, t.Sem)
	default:
		fmt.Fprintf(sb, "t%d", t.Sem)
	}
}

// Params returns the lowered parameter list of a function type.
func (t *LoweredType) Params() []Param {
	if t.Sig == nil {
		return nil
	}
	return t.Sig.Params
}

// Key returns the canonical structural fingerprint of a lowered type.
func (o *Oracle) Key(id ID) string {
	t := o.TypeOf(id)
	return o.keyOf(t)
}

// String renders a lowered type for printers and tests.
func (o *Oracle) String(id ID) string {
	t := o.TypeOf(id)
	var sb strings.Builder
	if t.Addr {
		sb.WriteString("*")
	}
	if t.Sig != nil {
		fmt.Fprintf(&sb, "@%s (", t.Sig.Rep)
		for i, p := range t.Sig.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "@%s %s", p.Conv, o.String(p.Type))
		}
		fmt.Fprintf(&sb, ") -> @%s %s", t.Sig.Result.Conv, o.String(t.Sig.Result.Type))
		return sb.String()
	}
	if t.Meta != MetaNone {
		fmt.Fprintf(&sb, "@%s %s", t.Meta, o.types.String(t.Sem))
		return sb.String()
	}
	sb.WriteString(o.types.String(t.Sem))
	return sb.String()
}
