package reabstract

import (
	"fmt"

	"prism/internal/abspat"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

// ExplodeSlots flattens a function input type into per-slot patterns and
// semantic types, mirroring the oracle's explosion rule: tuple structure
// explodes exactly where the pattern provides it.
func ExplodeSlots(ts *types.Interner, p abspat.Pattern, sem types.TypeID) ([]abspat.Pattern, []types.TypeID) {
	var pats []abspat.Pattern
	var sems []types.TypeID
	var walk func(p abspat.Pattern, sem types.TypeID)
	walk = func(p abspat.Pattern, sem types.TypeID) {
		if p.IsTuple(ts) {
			info, ok := ts.TupleInfo(sem)
			if !ok || !p.MatchesTuple(ts, len(info.Elems)) {
				panic(fmt.Sprintf("reabstract: pattern %s does not match input %s",
					p.String(ts), ts.String(sem)))
			}
			for i, e := range info.Elems {
				walk(p.TupleElement(ts, i), e)
			}
			return
		}
		pats = append(pats, p)
		sems = append(sems, sem)
	}
	walk(p, sem)
	return pats, sems
}

type argSlot struct {
	val ir.Managed
	sem types.TypeID
	pat abspat.Pattern
}

type outSlot struct {
	param lowering.Param
	sem   types.TypeID
	pat   abspat.Pattern
}

// translator walks a flat input sequence against a flat output slot
// sequence with explicit cursors; no state is captured in closures.
type translator struct {
	e   *Engine
	ins []argSlot
	out []outSlot
	res []ir.Managed
}

// TranslateArguments converts the flat call inputs ins, lowered under
// insPat from the semantic input type inSem, into the callee's parameter
// slots, lowered under outsPat from outSem with conventions params. The
// returned sequence aligns with params.
func (e *Engine) TranslateArguments(
	ins []ir.Managed,
	insPat abspat.Pattern, inSem types.TypeID,
	outsPat abspat.Pattern, outSem types.TypeID,
	params []lowering.Param,
) []ir.Managed {
	ts := e.types()

	inPats, inSems := ExplodeSlots(ts, insPat, inSem)
	if len(inPats) != len(ins) {
		panic(fmt.Sprintf("reabstract: %d inputs for %d input slots", len(ins), len(inPats)))
	}
	outPats, outSems := ExplodeSlots(ts, outsPat, outSem)
	if len(outPats) != len(params) {
		panic(fmt.Sprintf("reabstract: %d conventions for %d output slots", len(params), len(outPats)))
	}

	t := &translator{e: e}
	for i := range ins {
		t.ins = append(t.ins, argSlot{val: ins[i], sem: inSems[i], pat: inPats[i]})
	}
	for i := range params {
		t.out = append(t.out, outSlot{param: params[i], sem: outSems[i], pat: outPats[i]})
	}

	for len(t.out) > 0 {
		t.translateNext()
	}
	if len(t.ins) != 0 {
		panic(fmt.Sprintf("reabstract: %d inputs left after translation", len(t.ins)))
	}
	return t.res
}

func (t *translator) popIn() argSlot {
	if len(t.ins) == 0 {
		panic("reabstract: ran out of inputs mid-translation")
	}
	s := t.ins[0]
	t.ins = t.ins[1:]
	return s
}

func (t *translator) translateNext() {
	ts := t.e.types()
	o := t.out[0]
	if len(t.ins) == 0 {
		panic("reabstract: ran out of inputs mid-translation")
	}
	in := t.ins[0]

	switch {
	case in.sem == o.sem:
		t.out = t.out[1:]
		t.res = append(t.res, t.leaf(t.popIn(), o))

	case ts.Kind(o.sem) == types.KindTuple:
		// Exploded on the input, one aggregate slot on the output.
		t.out = t.out[1:]
		t.res = append(t.res, t.implode(o.pat, o.sem, o.param.Type))

	case isOptionalOfTuple(ts, o.sem):
		// Exploded input whose target is an optional of the tuple. Only
		// the raise direction supports this assembly.
		if t.e.Dir != Raise {
			panic(fmt.Sprintf("reabstract: cannot collect exploded elements into %s while lowering",
				ts.String(o.sem)))
		}
		t.out = t.out[1:]
		t.res = append(t.res, t.implodeIntoOptional(o))

	case ts.Kind(in.sem) == types.KindTuple:
		// One aggregate input slot, exploded on the output. Explode one
		// level and retry; nested tuples explode on demand.
		t.explodeInput(t.popIn())

	default:
		t.out = t.out[1:]
		t.res = append(t.res, t.leaf(t.popIn(), o))
	}
}

func isOptionalOfTuple(ts *types.Interner, sem types.TypeID) bool {
	payload, _, ok := ts.OptionalObject(sem)
	return ok && ts.Kind(payload) == types.KindTuple
}

// abstractPat picks the pattern projection describing the original side
// of a leaf conversion.
func (t *translator) abstractPat(in argSlot, o outSlot) abspat.Pattern {
	if t.e.Dir == Raise {
		return in.pat
	}
	return o.pat
}

// leaf translates one non-aggregate slot per the destination convention.
func (t *translator) leaf(in argSlot, o outSlot) ir.Managed {
	e := t.e
	b := e.B

	switch o.param.Conv {
	case lowering.ConvIndirectInout:
		// An untouched mutable slot may pass straight through; anything
		// needing conversion would also need write-back.
		if in.sem == o.sem && in.val.Val.Type == e.oracle().AddrOf(o.param.Type) {
			return in.val
		}
		e.abort(diag.ReabInoutWriteback,
			"argument of type %s requires in-place write-back, which argument translation cannot provide",
			e.types().String(o.sem))
		panic("unreachable")

	case lowering.ConvIndirectOut:
		panic("reabstract: output-only convention in an input position")

	case lowering.ConvIndirectIn, lowering.ConvIndirectInGuaranteed:
		ev := e.Transform(in.val, t.abstractPat(in, o), in.sem, o.sem)
		if !b.IsAddr(ev.Val) {
			buf := b.AllocTemp(ev.Val.Type)
			b.ForceInto(ev, buf)
			ev = b.ManagedOwned(buf)
		}
		return ev

	default:
		return e.Transform(in.val, t.abstractPat(in, o), in.sem, o.sem)
	}
}

// implode collects exploded inputs into one aggregate of type target.
func (t *translator) implode(pat abspat.Pattern, sem types.TypeID, target lowering.ID) ir.Managed {
	e := t.e
	b := e.B
	if e.oracle().TypeOf(target).Addr {
		buf := b.AllocTemp(target)
		t.implodeInto(buf, pat, sem)
		return b.ManagedOwned(buf)
	}
	return t.implodeDirect(pat, sem, target)
}

// implodeInto writes exploded inputs element-wise into the sub-slots of
// an aggregate buffer, recursing for nested tuples.
func (t *translator) implodeInto(dst ir.Value, pat abspat.Pattern, sem types.TypeID) {
	e := t.e
	ts := e.types()
	b := e.B
	info, ok := ts.TupleInfo(sem)
	if !ok {
		panic(fmt.Sprintf("reabstract: imploding non-tuple %s", ts.String(sem)))
	}
	for i, elemSem := range info.Elems {
		ep := pat.TupleElement(ts, i)
		elemL := e.OutputLowering(ep, elemSem)
		slot := b.TupleElemAddr(dst, i, elemL)
		if len(t.ins) > 0 && t.ins[0].sem != elemSem && ts.Kind(elemSem) == types.KindTuple {
			t.implodeInto(slot, ep, elemSem)
			continue
		}
		in := t.popIn()
		p := ep
		if e.Dir == Raise {
			p = in.pat
		}
		ev := e.Transform(in.val, p, in.sem, elemSem)
		b.ForceInto(ev, slot)
	}
}

// implodeDirect builds a direct aggregate from exploded inputs.
func (t *translator) implodeDirect(pat abspat.Pattern, sem types.TypeID, target lowering.ID) ir.Managed {
	e := t.e
	ts := e.types()
	b := e.B
	info, ok := ts.TupleInfo(sem)
	if !ok {
		panic(fmt.Sprintf("reabstract: imploding non-tuple %s", ts.String(sem)))
	}
	vals := make([]ir.Value, len(info.Elems))
	for i, elemSem := range info.Elems {
		ep := pat.TupleElement(ts, i)
		if len(t.ins) > 0 && t.ins[0].sem != elemSem && ts.Kind(elemSem) == types.KindTuple {
			sub := t.implodeDirect(ep, elemSem, e.OutputLowering(ep, elemSem))
			vals[i] = sub.Forward(b.Ledger)
			continue
		}
		in := t.popIn()
		p := ep
		if e.Dir == Raise {
			p = in.pat
		}
		ev := e.Transform(in.val, p, in.sem, elemSem)
		raw := ev.Forward(b.Ledger)
		if b.IsAddr(raw) {
			raw = b.Load(raw, true)
		}
		vals[i] = raw
	}
	return b.ManagedOwned(b.TupleMake(target, vals))
}

// implodeIntoOptional assembles exploded leaves into one
// maximally-abstracted payload, then wraps it with a present tag.
func (t *translator) implodeIntoOptional(o outSlot) ir.Managed {
	e := t.e
	ts := e.types()
	payloadSem, _, _ := ts.OptionalObject(o.sem)
	exp := e.oracle().TypeOf(o.param.Type)
	payload := t.implode(o.pat.OptionalObject(ts), payloadSem, exp.Opt)
	return e.wrapOptional(payload, o.param.Type)
}

// explodeInput splits one aggregate input slot into per-element slots at
// the front of the input cursor.
func (t *translator) explodeInput(in argSlot) {
	e := t.e
	ts := e.types()
	info, ok := ts.TupleInfo(in.sem)
	if !ok {
		panic(fmt.Sprintf("reabstract: exploding non-tuple %s", ts.String(in.sem)))
	}
	elems := e.destructureTuple(in.val, in.pat, info.Elems)
	slots := make([]argSlot, len(elems))
	for i := range elems {
		slots[i] = argSlot{
			val: elems[i],
			sem: info.Elems[i],
			pat: in.pat.TupleElement(ts, i),
		}
	}
	t.ins = append(slots, t.ins...)
}
