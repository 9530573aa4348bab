// Package lowering implements the representation oracle: given an
// abstraction pattern and a semantic type, it answers what physical shape
// values of that type take under that abstraction. The reabstraction core
// treats the answers as opaque comparable data; equality of IDs means
// equality of representation.
package lowering

import (
	"fmt"

	"prism/internal/abspat"
	"prism/internal/types"
)

// Oracle lowers semantic types to physical representations for one
// compilation unit.
type Oracle struct {
	types  *types.Interner
	target Target

	lowered []LoweredType
	index   map[string]ID
	cache   map[lowerKey]ID
}

type lowerKey struct {
	pat types.TypeID // NoTypeID for the opaque pattern
	sem types.TypeID
}

// NewOracle constructs an oracle over the given interner and target.
func NewOracle(in *types.Interner, target Target) *Oracle {
	o := &Oracle{
		types:  in,
		target: target,
		index:  make(map[string]ID, 64),
		cache:  make(map[lowerKey]ID, 64),
	}
	o.lowered = append(o.lowered, LoweredType{}) // reserve NoID
	return o
}

// Types returns the semantic type interner the oracle reads.
func (o *Oracle) Types() *types.Interner {
	return o.types
}

// Target returns the ABI target the oracle lowers for.
func (o *Oracle) Target() Target {
	return o.target
}

// Lower returns the representation of values of type sem under pattern p.
func (o *Oracle) Lower(p abspat.Pattern, sem types.TypeID) ID {
	key := lowerKey{pat: p.Type(), sem: sem}
	if id, ok := o.cache[key]; ok {
		return id
	}
	id := o.lowerUncached(p, sem)
	o.cache[key] = id
	return id
}

// LowerOpaque returns the maximally abstract representation of sem.
func (o *Oracle) LowerOpaque(sem types.TypeID) ID {
	return o.Lower(abspat.Opaque(), sem)
}

func (o *Oracle) lowerUncached(p abspat.Pattern, sem types.TypeID) ID {
	tt := o.types.MustLookup(sem)

	if tt.Kind == types.KindReference {
		// By-reference slots are always a single address.
		return o.intern(LoweredType{Sem: sem, Addr: true})
	}

	if p.IsOpaque() {
		return o.lowerAsOpaque(sem, tt)
	}

	switch tt.Kind {
	case types.KindTuple:
		info, _ := o.types.TupleInfo(sem)
		if !p.MatchesTuple(o.types, len(info.Elems)) {
			panic(fmt.Sprintf("lowering: pattern %s does not match tuple %s",
				p.String(o.types), o.types.String(sem)))
		}
		elems := make([]ID, len(info.Elems))
		addr := len(info.Elems) > o.target.MaxDirectWords
		for i, e := range info.Elems {
			elems[i] = o.Lower(p.TupleElement(o.types, i), e)
			if o.TypeOf(elems[i]).Addr {
				addr = true
			}
		}
		return o.intern(LoweredType{Sem: sem, Addr: addr, Elems: elems})

	case types.KindFn:
		sig := o.LowerFnSignature(p, sem, FnThick)
		return o.intern(LoweredType{Sem: sem, Sig: sig})

	case types.KindOptional:
		payload := o.Lower(p.OptionalObject(o.types), tt.Elem)
		return o.intern(LoweredType{
			Sem:  sem,
			Addr: o.TypeOf(payload).Addr,
			Opt:  payload,
		})

	case types.KindMetatype:
		return o.intern(LoweredType{Sem: sem, Meta: o.metaRep(tt.Elem)})

	case types.KindExistential, types.KindArchetype:
		// Representation-independent containers and unknown layouts live
		// in memory under any abstraction.
		return o.intern(LoweredType{Sem: sem, Addr: true})

	default:
		return o.intern(LoweredType{Sem: sem})
	}
}

// lowerAsOpaque is the devolved representation every legal substitution
// agrees on: function and metatype structure survives (their physical
// carriers do not vary with layout), everything else collapses to a single
// address.
func (o *Oracle) lowerAsOpaque(sem types.TypeID, tt types.Type) ID {
	switch tt.Kind {
	case types.KindFn:
		sig := o.LowerFnSignature(abspat.Opaque(), sem, FnThick)
		return o.intern(LoweredType{Sem: sem, Sig: sig})
	case types.KindMetatype:
		return o.intern(LoweredType{Sem: sem, Meta: MetaThick})
	case types.KindOptional:
		// The payload slot stays projectable even when the whole optional
		// collapses to an address.
		return o.intern(LoweredType{Sem: sem, Addr: true, Opt: o.LowerOpaque(tt.Elem)})
	default:
		return o.intern(LoweredType{Sem: sem, Addr: true})
	}
}

// AddrOf returns the address form of a lowered type (for temporaries of
// loadable values).
func (o *Oracle) AddrOf(id ID) ID {
	t := *o.TypeOf(id)
	if t.Addr {
		return id
	}
	t.Addr = true
	return o.intern(t)
}

// ObjectOf returns the loaded form of an address-typed lowered type.
// Address-only semantic types have no object form; ok is false for them.
func (o *Oracle) ObjectOf(id ID) (ID, bool) {
	t := *o.TypeOf(id)
	if !t.Addr {
		return id, true
	}
	if o.AddressOnly(t.Sem) {
		return id, false
	}
	t.Addr = false
	return o.intern(t), true
}

// AddressOnly reports whether sem has no direct representation under the
// concrete abstraction (existentials, archetypes, aggregates containing
// them).
func (o *Oracle) AddressOnly(sem types.TypeID) bool {
	tt := o.types.MustLookup(sem)
	switch tt.Kind {
	case types.KindExistential, types.KindArchetype:
		return true
	case types.KindTuple:
		info, _ := o.types.TupleInfo(sem)
		if len(info.Elems) > o.target.MaxDirectWords {
			return true
		}
		for _, e := range info.Elems {
			if o.AddressOnly(e) {
				return true
			}
		}
		return false
	case types.KindOptional:
		return o.AddressOnly(tt.Elem)
	default:
		return false
	}
}

func (o *Oracle) metaRep(instance types.TypeID) MetaRep {
	switch o.types.Kind(instance) {
	case types.KindClass, types.KindArchetype, types.KindExistential, types.KindMetatype:
		return MetaThick
	default:
		return MetaThin
	}
}

// LowerFnSignature computes the full lowered calling convention of a
// semantic function type under a pattern.
func (o *Oracle) LowerFnSignature(p abspat.Pattern, fn types.TypeID, rep FnRep) *Signature {
	info, ok := o.types.FnInfo(fn)
	if !ok {
		panic(fmt.Sprintf("lowering: %s is not a function type", o.types.String(fn)))
	}
	sig := &Signature{Rep: rep}
	o.lowerInput(p.FunctionInput(o.types), info.Input, sig)
	sig.Result = o.lowerResult(p.FunctionResult(o.types), info.Result)
	return sig
}

// lowerInput explodes the input type into parameter slots. Tuple structure
// explodes exactly where the pattern provides it; opaque positions take a
// single maximally abstract slot.
func (o *Oracle) lowerInput(p abspat.Pattern, t types.TypeID, sig *Signature) {
	if p.IsTuple(o.types) {
		info, ok := o.types.TupleInfo(t)
		if !ok || !p.MatchesTuple(o.types, len(info.Elems)) {
			panic(fmt.Sprintf("lowering: input pattern %s does not match %s",
				p.String(o.types), o.types.String(t)))
		}
		for i, e := range info.Elems {
			o.lowerInput(p.TupleElement(o.types, i), e, sig)
		}
		return
	}
	sig.Params = append(sig.Params, o.lowerParam(p, t))
}

func (o *Oracle) lowerParam(p abspat.Pattern, t types.TypeID) Param {
	tt := o.types.MustLookup(t)
	if tt.Kind == types.KindReference {
		lid := o.Lower(p, t)
		conv := ConvIndirectInGuaranteed
		if tt.Mutable {
			conv = ConvIndirectInout
		}
		return Param{Type: lid, Conv: conv}
	}
	lid := o.Lower(p, t)
	if o.TypeOf(lid).Addr {
		return Param{Type: lid, Conv: ConvIndirectIn}
	}
	return Param{Type: lid, Conv: ConvDirectOwned}
}

func (o *Oracle) lowerResult(p abspat.Pattern, t types.TypeID) Result {
	lid := o.Lower(p, t)
	if o.TypeOf(lid).Addr {
		return Result{Type: lid, Conv: ResultIndirect}
	}
	return Result{Type: lid, Conv: ResultOwned}
}
