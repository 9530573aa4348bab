package reabstract

import (
	"fmt"

	"prism/internal/abspat"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

// transformTuple converts a tuple element-wise. The result is built in a
// fresh buffer when the output representation is address-based, and as a
// direct aggregate otherwise. Every element obligation is forwarded into
// the result; nothing is dropped silently.
func (e *Engine) transformTuple(v ir.Managed, p abspat.Pattern, in, out types.TypeID, expected lowering.ID) ir.Managed {
	ts := e.types()
	b := e.B
	o := e.oracle()

	inInfo, inOK := ts.TupleInfo(in)
	outInfo, outOK := ts.TupleInfo(out)
	if !inOK || !outOK || len(inInfo.Elems) != len(outInfo.Elems) {
		panic(fmt.Sprintf("reabstract: tuple conversion %s to %s has mismatched shape",
			ts.String(in), ts.String(out)))
	}

	elems := e.destructureTuple(v, p, inInfo.Elems)

	exp := o.TypeOf(expected)
	if exp.Addr {
		buf := b.AllocTemp(expected)
		for i := range outInfo.Elems {
			ep := p.TupleElement(ts, i)
			ev := e.Transform(elems[i], ep, inInfo.Elems[i], outInfo.Elems[i])
			slotType := e.OutputLowering(ep, outInfo.Elems[i])
			slot := b.TupleElemAddr(buf, i, slotType)
			b.ForceInto(ev, slot)
		}
		return b.ManagedOwned(buf)
	}

	vals := make([]ir.Value, len(outInfo.Elems))
	for i := range outInfo.Elems {
		ep := p.TupleElement(ts, i)
		ev := e.Transform(elems[i], ep, inInfo.Elems[i], outInfo.Elems[i])
		raw := ev.Forward(b.Ledger)
		if b.IsAddr(raw) {
			raw = b.Load(raw, true)
		}
		vals[i] = raw
	}
	return b.ManagedOwned(b.TupleMake(expected, vals))
}

// destructureTuple takes v apart into one owned managed value per
// element, consuming v's obligation.
func (e *Engine) destructureTuple(v ir.Managed, p abspat.Pattern, elemSems []types.TypeID) []ir.Managed {
	ts := e.types()
	b := e.B

	src := v.Forward(b.Ledger)
	elems := make([]ir.Managed, len(elemSems))
	if b.IsAddr(src) {
		for i, sem := range elemSems {
			elemType := e.InputLowering(p.TupleElement(ts, i), sem)
			addr := b.TupleElemAddr(src, i, elemType)
			if !e.oracle().TypeOf(elemType).Addr {
				elems[i] = b.ManagedOwned(b.Load(addr, true))
				continue
			}
			elems[i] = b.ManagedOwned(addr)
		}
		return elems
	}
	for i, sem := range elemSems {
		elemType := e.InputLowering(p.TupleElement(ts, i), sem)
		elems[i] = b.ManagedOwned(b.TupleExtract(src, i, elemType))
	}
	return elems
}
