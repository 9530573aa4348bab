package reabstract

import (
	"fmt"

	"prism/internal/abspat"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

// capabilities is the per-direction hook record: the two conversions
// whose handling differs between Raise and Lower. Everything else in the
// transform is shared.
type capabilities struct {
	fnValue  func(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed
	metatype func(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed
}

func (d Direction) caps() capabilities {
	if d == Raise {
		return capabilities{fnValue: raiseFunction, metatype: raiseMetatype}
	}
	return capabilities{fnValue: lowerFunction, metatype: lowerMetatype}
}

// TransformValue is the entry-point form of Transform: diagnosed
// unsupported conversions come back as an *Abort error instead of a
// panic. Contract violations still panic.
func (e *Engine) TransformValue(v ir.Managed, p abspat.Pattern, in, out types.TypeID) (res ir.Managed, err error) {
	defer recoverAbort(&err)
	return e.Transform(v, p, in, out), nil
}

// Transform converts v, currently shaped per the input abstraction of
// type in, into the output abstraction's representation of type out.
// in and out are always the same semantic type up to optionality,
// subtyping and existential erasure.
func (e *Engine) Transform(v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	ts := e.types()
	o := e.oracle()

	// A by-reference input must arrive already loaded; write-back is the
	// caller's concern.
	in = ts.StripReference(in)

	expected := e.OutputLowering(p, out)
	if v.Val.Type == expected {
		return v
	}

	// Optionality tiers.
	inPayload, inForced, inOpt := ts.OptionalObject(in)
	_, _, outOpt := ts.OptionalObject(out)
	switch {
	case outOpt && !inOpt:
		return e.injectOptional(v, p, in, out, expected)
	case inOpt && !outOpt:
		if !inForced {
			panic(fmt.Sprintf("reabstract: narrowing %s to non-optional %s",
				ts.String(in), ts.String(out)))
		}
		return e.forceOptional(v, p, inPayload, out)
	case inOpt && outOpt:
		return e.mapOptional(v, p, in, out, expected)
	}

	// Structural dispatch on the output shape.
	caps := e.Dir.caps()
	switch ts.Kind(out) {
	case types.KindFn:
		return caps.fnValue(e, v, p, in, out)
	case types.KindTuple:
		return e.transformTuple(v, p, in, out, expected)
	case types.KindMetatype:
		return caps.metatype(e, v, p, in, out)
	}

	// Same type, different indirection: a pure materialization or load.
	if in == out {
		return e.adjustIndirection(v, expected)
	}

	// Subtype ladder. Every rung requires a nominal relation.
	bt := ts.Builtins()
	if ts.IsClass(in) && ts.IsClass(out) {
		ci, _ := ts.ClassInfo(in)
		co, _ := ts.ClassInfo(out)
		if ts.IsSubclassOf(in, out) || out == bt.AnyRef {
			raw := v.Forward(e.B.Ledger)
			if ci.Foreign != co.Foreign {
				return e.B.ManagedOwned(e.B.RefCast(raw, expected))
			}
			return e.B.ManagedOwned(e.B.Upcast(raw, expected))
		}
		if ts.IsSubclassOf(out, in) {
			// Dispatch shims narrow a receiver the slot typed at the base
			// class; the dynamic type is right by construction.
			raw := v.Forward(e.B.Ledger)
			return e.B.ManagedOwned(e.B.RefCast(raw, expected))
		}
	}
	if ts.Kind(in) == types.KindArchetype {
		ai, _ := ts.ArchetypeInfo(in)
		if ai.Super != types.NoTypeID && ts.IsClass(out) &&
			(ai.Super == out || ts.IsSubclassOf(ai.Super, out)) {
			raw := v.Forward(e.B.Ledger)
			return e.B.ManagedOwned(e.B.Upcast(raw, expected))
		}
	}
	if ts.Kind(in) == types.KindMetatype {
		if out == bt.ProtocolObject && ts.IsSingleProtocolMetatype(in) {
			raw := v.Forward(e.B.Ledger)
			return e.B.ManagedOwned(e.B.MetaToObject(raw, expected, ir.MetaObjectProtocol))
		}
		if out == bt.AnyRef {
			instance, _ := ts.MetatypeInstance(in)
			mode := ir.MetaObjectClass
			if ts.IsAnyExistential(instance) {
				mode = ir.MetaObjectExistential
			}
			raw := v.Forward(e.B.Ledger)
			return e.B.ManagedOwned(e.B.MetaToObject(raw, expected, mode))
		}
	}

	// Existential erasure.
	if ts.Kind(out) == types.KindExistential {
		return e.eraseExistential(v, p, in, out, expected)
	}

	panic(fmt.Sprintf("reabstract: no conversion from %s (%s) to %s (%s)",
		ts.String(in), o.String(v.Val.Type), ts.String(out), o.String(expected)))
}

// adjustIndirection reconciles a representation difference that is pure
// indirection: load a loadable address, or spill a direct value into a
// fresh buffer.
func (e *Engine) adjustIndirection(v ir.Managed, expected lowering.ID) ir.Managed {
	b := e.B
	o := e.oracle()
	cur := o.TypeOf(v.Val.Type)
	exp := o.TypeOf(expected)
	switch {
	case cur.Addr && !exp.Addr:
		return b.EmitLoadManaged(v)
	case !cur.Addr && exp.Addr:
		buf := b.AllocTemp(expected)
		b.ForceInto(v, buf)
		return b.ManagedOwned(buf)
	default:
		panic(fmt.Sprintf("reabstract: representations %s and %s differ beyond indirection",
			o.String(v.Val.Type), o.String(expected)))
	}
}

// injectOptional wraps a non-optional input one optionality level up.
func (e *Engine) injectOptional(v ir.Managed, p abspat.Pattern, in, out types.TypeID, expected lowering.ID) ir.Managed {
	ts := e.types()
	outPayload, _, _ := ts.OptionalObject(out)
	pPayload := p
	if e.Dir == Lower {
		// The pattern tracks the output side here, which is optional.
		pPayload = p.OptionalObject(ts)
	}
	payload := e.Transform(v, pPayload, in, outPayload)
	return e.wrapOptional(payload, expected)
}

// wrapOptional injects an already-shaped payload into the expected
// optional representation with a "present" tag.
func (e *Engine) wrapOptional(payload ir.Managed, expected lowering.ID) ir.Managed {
	b := e.B
	o := e.oracle()
	exp := o.TypeOf(expected)
	if exp.Addr {
		buf := b.AllocTemp(expected)
		data := b.EnumDataAddr(buf, exp.Opt)
		b.ForceInto(payload, data)
		b.EnumInjectAddr(buf, true)
		return b.ManagedOwned(buf)
	}
	raw := payload.Forward(b.Ledger)
	if b.IsAddr(raw) {
		raw = b.Load(raw, true)
	}
	return b.ManagedOwned(b.EnumInject(expected, raw, true))
}

// forceOptional narrows an auto-forced optional tier by emitting a
// checked unwrap; an empty value traps at runtime.
func (e *Engine) forceOptional(v ir.Managed, p abspat.Pattern, inPayload, out types.TypeID) ir.Managed {
	ts := e.types()
	b := e.B
	pPayload := p
	if e.Dir == Raise {
		pPayload = p.OptionalObject(ts)
	}
	src := v.Forward(b.Ledger)
	payloadLowered := e.InputLowering(pPayload, inPayload)
	unwrapped := b.ManagedOwned(b.ForceUnwrap(src, payloadLowered))
	return e.Transform(unwrapped, pPayload, inPayload, out)
}

// mapOptional converts between two optionals with differing payload
// representations by mapping a synthesized payload transform over the
// value, rewrapping on presence.
func (e *Engine) mapOptional(v ir.Managed, p abspat.Pattern, in, out types.TypeID, expected lowering.ID) ir.Managed {
	ts := e.types()
	b := e.B

	// Layout-compatible optionals need no payload map at all.
	if e.oracle().ABIDifference(v.Val.Type, expected) == lowering.ABITrivial {
		return b.ManagedOwned(b.BitCast(v.Forward(b.Ledger), expected))
	}

	inPayload, _, _ := ts.OptionalObject(in)
	outPayload, _, _ := ts.OptionalObject(out)
	pPayload := p.OptionalObject(ts)

	body := e.optionalMapBody(pPayload, inPayload, outPayload)
	src := v.Forward(b.Ledger)
	return b.ManagedOwned(b.OptMap(src, expected, body))
}

// optionalMapBody synthesizes the one-parameter payload transform used
// by mapOptional.
func (e *Engine) optionalMapBody(p abspat.Pattern, inPayload, outPayload types.TypeID) *ir.Func {
	o := e.oracle()
	inL := e.InputLowering(p, inPayload)
	outL := e.OutputLowering(p, outPayload)

	sig := &lowering.Signature{Rep: lowering.FnThin}
	pconv := lowering.ConvDirectOwned
	if o.TypeOf(inL).Addr {
		pconv = lowering.ConvIndirectIn
	}
	sig.Params = append(sig.Params, lowering.Param{Type: inL, Conv: pconv})
	rconv := lowering.ResultOwned
	if o.TypeOf(outL).Addr {
		rconv = lowering.ResultIndirect
	}
	sig.Result = lowering.Result{Type: outL, Conv: rconv}

	fn := ir.NewFunc(e.Thunks.nextName("optmap"), sig, o)
	be := e.sub(e.Dir, fn)
	pv := be.B.ManagedOwned(fn.Params[0])
	res := be.Transform(pv, p, inPayload, outPayload)
	if sig.HasIndirectResult() {
		be.B.ForceInto(res, fn.IndirectResult)
		be.B.Return(ir.Value{})
	} else {
		be.B.Return(res.Forward(be.B.Ledger))
	}
	if err := be.B.Ledger.Verify(); err != nil {
		panic(fmt.Errorf("reabstract: optional map body leaked: %w", err))
	}
	return fn
}

// eraseExistential boxes the input behind the output existential. An
// existential input is opened first; its own obligation is destroyed
// once erasure completes.
func (e *Engine) eraseExistential(v ir.Managed, _ abspat.Pattern, in, out types.TypeID, expected lowering.ID) ir.Managed {
	ts := e.types()
	b := e.B
	o := e.oracle()

	concrete := in
	payload := v
	var openedBox ir.Managed
	if ts.Kind(in) == types.KindExistential {
		opened, err := e.Conf.Open(in)
		if err != nil {
			panic(fmt.Sprintf("reabstract: %v", err))
		}
		addr := b.OpenExistential(v.Val, o.LowerOpaque(opened), opened)
		concrete = opened
		payload = ir.Unmanaged(addr)
		openedBox = v
	}

	// The boxed value's layout must not depend on the source's concrete
	// lowering.
	opaque := o.LowerOpaque(concrete)
	if payload.Val.Type != opaque {
		le := e.sameBody(Lower)
		payload = le.Transform(payload, abspat.Opaque(), concrete, concrete)
	}

	table, err := e.Conf.TableFor(concrete, out)
	if err != nil {
		e.abort(diag.ReabMissingConformance, "%v", err)
	}

	box := b.AllocTemp(expected)
	b.InitExistential(box, payload.Forward(b.Ledger), concrete, table)
	res := b.ManagedOwned(box)
	if !openedBox.IsNull() {
		b.DestroyManaged(openedBox)
	}
	return res
}

// sameBody returns an engine emitting into the same function but
// converting in the given direction.
func (e *Engine) sameBody(dir Direction) *Engine {
	ne := *e
	ne.Dir = dir
	return &ne
}

// raiseMetatype converts a metatype value to whatever representation the
// substituted abstraction picked, which may be thin.
func raiseMetatype(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	return e.convertMetatype(v, p, in, out)
}

// lowerMetatype converts a metatype value to the original abstraction's
// representation; opaque positions always carry the thick form.
func lowerMetatype(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	return e.convertMetatype(v, p, in, out)
}

// convertMetatype changes a metatype's representation. Metatype carriers
// are trivial, so an owned input only needs its obligation disarmed. A
// thick-to-thick conversion between distinct instance types upcasts the
// carried value; everything else rebuilds from the target type.
func (e *Engine) convertMetatype(v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	o := e.oracle()
	expected := e.OutputLowering(p, out)
	v.ForwardCleanup(e.B.Ledger)
	if in != out && o.TypeOf(v.Val.Type).Meta == lowering.MetaThick && o.TypeOf(expected).Meta == lowering.MetaThick {
		return ir.Unmanaged(e.B.Upcast(v.Val, expected))
	}
	return ir.Unmanaged(e.B.Metatype(expected))
}

func raiseFunction(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	return e.reabstractFunction(v, p, in, out)
}

func lowerFunction(e *Engine, v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	return e.reabstractFunction(v, p, in, out)
}
