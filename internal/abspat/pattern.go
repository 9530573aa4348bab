// Package abspat implements abstraction patterns: immutable trees mirroring
// a semantic type's structure in which every position is either opaque
// (filled by a type variable in the original declaration) or carries the
// concrete type written there. Patterns are derived once from an original,
// unsubstituted signature and shared read-only by all conversions for that
// declaration. Which archetypes appear is irrelevant; only whether a
// position is filled by one matters.
package abspat

import (
	"prism/internal/types"
)

// Pattern is one position of an abstraction tree. The zero value is the
// fully opaque pattern.
type Pattern struct {
	typ types.TypeID // NoTypeID means opaque
}

// Opaque returns the maximally abstract pattern.
func Opaque() Pattern {
	return Pattern{}
}

// FromType derives a pattern from an original declaration type. Archetype
// positions collapse to opaque; structure below them is unreachable from
// the original signature by construction.
func FromType(in *types.Interner, t types.TypeID) Pattern {
	if t == types.NoTypeID || in.Kind(t) == types.KindArchetype {
		return Opaque()
	}
	return Pattern{typ: t}
}

// IsOpaque reports whether this position is maximally abstracted.
func (p Pattern) IsOpaque() bool {
	return p.typ == types.NoTypeID
}

// Type returns the concrete original type at this position, or NoTypeID
// when opaque.
func (p Pattern) Type() types.TypeID {
	return p.typ
}

// IsTuple reports whether the original type provides tuple structure at
// this position. An opaque position never does: all legal substitutions
// must agree on a single indirect representation.
func (p Pattern) IsTuple(in *types.Interner) bool {
	if p.IsOpaque() {
		return false
	}
	return in.Kind(p.typ) == types.KindTuple
}

// MatchesTuple reports whether this pattern can describe a tuple of n
// elements: either it is opaque or it is a tuple pattern of the same arity.
func (p Pattern) MatchesTuple(in *types.Interner, n int) bool {
	if p.IsOpaque() {
		return true
	}
	info, ok := in.TupleInfo(p.typ)
	return ok && len(info.Elems) == n
}

// TupleElement projects the pattern for element i of a tuple position.
func (p Pattern) TupleElement(in *types.Interner, i int) Pattern {
	if p.IsOpaque() {
		return Opaque()
	}
	info, ok := in.TupleInfo(p.typ)
	if !ok || i >= len(info.Elems) {
		panic("abspat: tuple element projection on non-tuple pattern")
	}
	return FromType(in, info.Elems[i])
}

// NumTupleElements returns the arity of a tuple pattern, or -1 when the
// position provides no tuple structure.
func (p Pattern) NumTupleElements(in *types.Interner) int {
	if p.IsOpaque() {
		return -1
	}
	info, ok := in.TupleInfo(p.typ)
	if !ok {
		return -1
	}
	return len(info.Elems)
}

// DropLastTupleElement shrinks a tuple pattern by its trailing element.
// Used when a free-function witness discards the receiver.
func (p Pattern) DropLastTupleElement(in *types.Interner) Pattern {
	if p.IsOpaque() {
		return Opaque()
	}
	info, ok := in.TupleInfo(p.typ)
	if !ok || len(info.Elems) == 0 {
		panic("abspat: dropping element of non-tuple pattern")
	}
	return FromType(in, in.RegisterTuple(info.Elems[:len(info.Elems)-1]))
}

// FunctionInput projects the input pattern of a function position.
func (p Pattern) FunctionInput(in *types.Interner) Pattern {
	if p.IsOpaque() {
		return Opaque()
	}
	info, ok := in.FnInfo(p.typ)
	if !ok {
		panic("abspat: function input projection on non-function pattern")
	}
	return FromType(in, info.Input)
}

// FunctionResult projects the result pattern of a function position.
func (p Pattern) FunctionResult(in *types.Interner) Pattern {
	if p.IsOpaque() {
		return Opaque()
	}
	info, ok := in.FnInfo(p.typ)
	if !ok {
		panic("abspat: function result projection on non-function pattern")
	}
	return FromType(in, info.Result)
}

// OptionalObject projects the payload pattern of an optional position.
func (p Pattern) OptionalObject(in *types.Interner) Pattern {
	if p.IsOpaque() {
		return Opaque()
	}
	payload, _, ok := in.OptionalObject(p.typ)
	if !ok {
		return p
	}
	return FromType(in, payload)
}

// String renders the pattern; opaque positions print as "_".
func (p Pattern) String(in *types.Interner) string {
	if p.IsOpaque() {
		return "_"
	}
	return in.String(p.typ)
}
