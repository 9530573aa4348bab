package reabstract_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"prism/internal/abspat"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/reabstract"
	"prism/internal/types"
)

func TestExplodeSlots(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	inner := f.in.RegisterTuple([]types.TypeID{bt.Bool, bt.Int})
	outer := f.in.RegisterTuple([]types.TypeID{bt.Int, inner})

	t.Run("concrete_pattern_explodes_recursively", func(t *testing.T) {
		_, sems := reabstract.ExplodeSlots(f.in, abspat.FromType(f.in, outer), outer)
		if diff := cmp.Diff([]types.TypeID{bt.Int, bt.Bool, bt.Int}, sems); diff != "" {
			t.Fatalf("slots (-want +got):\n%s", diff)
		}
	})

	t.Run("opaque_pattern_is_one_slot", func(t *testing.T) {
		pats, sems := reabstract.ExplodeSlots(f.in, abspat.Opaque(), outer)
		if len(sems) != 1 || sems[0] != outer {
			t.Fatalf("slots = %v", sems)
		}
		if !pats[0].IsOpaque() {
			t.Fatalf("slot pattern should be opaque")
		}
	})

	t.Run("partially_opaque_pattern", func(t *testing.T) {
		arch := f.in.RegisterArchetype(types.ArchetypeInfo{Name: "T"})
		half := f.in.RegisterTuple([]types.TypeID{bt.Int, arch})
		_, sems := reabstract.ExplodeSlots(f.in, abspat.FromType(f.in, half), outer)
		if diff := cmp.Diff([]types.TypeID{bt.Int, inner}, sems); diff != "" {
			t.Fatalf("slots (-want +got):\n%s", diff)
		}
	})
}

func TestTranslateExplodesAggregateInput(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	pair := f.in.RegisterTuple([]types.TypeID{bt.Int, bt.Int})
	fn := f.site("explode", []lowering.Param{in(f.opaque(pair))}, direct(f.concrete(bt.Int)))
	e := f.engine(reabstract.Raise, fn)

	args := e.TranslateArguments(
		[]ir.Managed{e.B.ManagedOwned(fn.Params[0])},
		abspat.Opaque(), pair,
		abspat.FromType(f.in, pair), pair,
		[]lowering.Param{
			owned(f.concrete(bt.Int)),
			owned(f.concrete(bt.Int)),
		})
	if len(args) != 2 {
		t.Fatalf("exploded into %d slots, want 2", len(args))
	}

	// Return the second leaf; destroy the first.
	e.B.DestroyManaged(args[0])
	finish(t, e, args[1])

	got := run(t, f, fn, ir.AddrVal(ir.TupleVal(ir.IntVal(30), ir.IntVal(40))))
	if got.Int != 40 {
		t.Fatalf("got %d, want 40", got.Int)
	}
}

func TestTranslateImplodesExplodedInput(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	pair := f.in.RegisterTuple([]types.TypeID{bt.Int, bt.Int})

	opaqueParam := lowering.Param{Type: f.opaque(pair), Conv: lowering.ConvIndirectIn}

	fn := f.site("implode",
		[]lowering.Param{owned(f.concrete(bt.Int)), owned(f.concrete(bt.Int))},
		indirect(f.opaque(pair)))
	e := f.engine(reabstract.Lower, fn)

	ins := []ir.Managed{
		e.B.ManagedOwned(fn.Params[0]),
		e.B.ManagedOwned(fn.Params[1]),
	}
	args := e.TranslateArguments(ins,
		abspat.FromType(f.in, pair), pair,
		abspat.Opaque(), pair,
		[]lowering.Param{opaqueParam})
	if len(args) != 1 {
		t.Fatalf("imploded into %d slots, want 1", len(args))
	}
	finish(t, e, args[0])

	got := run(t, f, fn, ir.IntVal(7), ir.IntVal(9))
	if diff := cmp.Diff(ir.TupleVal(ir.IntVal(7), ir.IntVal(9)), got); diff != "" {
		t.Fatalf("imploded aggregate (-want +got):\n%s", diff)
	}
}

func TestExplodedLeavesIntoOptionalOfTuple(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	triple := f.in.RegisterTuple([]types.TypeID{bt.Int, bt.Int, bt.Int})
	optTriple := f.in.Intern(types.MakeOptional(triple, false))

	opaqueOpt := f.opaque(optTriple)
	fn := f.site("collect",
		[]lowering.Param{owned(f.concrete(bt.Int)), owned(f.concrete(bt.Int)), owned(f.concrete(bt.Int))},
		indirect(opaqueOpt))
	e := f.engine(reabstract.Raise, fn)

	ins := make([]ir.Managed, 3)
	for i := range ins {
		ins[i] = e.B.ManagedOwned(fn.Params[i])
	}
	args := e.TranslateArguments(ins,
		abspat.FromType(f.in, triple), triple,
		abspat.Opaque(), optTriple,
		[]lowering.Param{{Type: opaqueOpt, Conv: lowering.ConvIndirectIn}})
	if len(args) != 1 {
		t.Fatalf("collected into %d slots, want 1", len(args))
	}
	finish(t, e, args[0])

	got := run(t, f, fn, ir.IntVal(1), ir.IntVal(2), ir.IntVal(3))
	if got.Kind != ir.ROpt || !got.Some {
		t.Fatalf("result is not a present optional: %+v", got)
	}

	// Exploding the unwrapped payload again reproduces the leaves in
	// order.
	reFn := f.site("reexplode", []lowering.Param{in(f.opaque(triple))}, direct(f.concrete(triple)))
	re := f.engine(reabstract.Raise, reFn)
	leaves := re.TranslateArguments(
		[]ir.Managed{re.B.ManagedOwned(reFn.Params[0])},
		abspat.Opaque(), triple,
		abspat.FromType(f.in, triple), triple,
		[]lowering.Param{
			owned(f.concrete(bt.Int)),
			owned(f.concrete(bt.Int)),
			owned(f.concrete(bt.Int)),
		})
	vals := make([]ir.Value, len(leaves))
	for i, l := range leaves {
		vals[i] = l.Forward(re.B.Ledger)
	}
	finish(t, re, re.B.ManagedOwned(re.B.TupleMake(f.concrete(triple), vals)))

	back := run(t, f, reFn, ir.AddrVal(*got.Payload))
	want := ir.TupleVal(ir.IntVal(1), ir.IntVal(2), ir.IntVal(3))
	if diff := cmp.Diff(want, back); diff != "" {
		t.Fatalf("re-exploded leaves (-want +got):\n%s", diff)
	}
}

func TestOptionalOfTupleRejectedWhileLowering(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	pair := f.in.RegisterTuple([]types.TypeID{bt.Int, bt.Int})
	optPair := f.in.Intern(types.MakeOptional(pair, false))

	fn := f.site("collect_lower",
		[]lowering.Param{owned(f.concrete(bt.Int)), owned(f.concrete(bt.Int))},
		indirect(f.opaque(optPair)))
	e := f.engine(reabstract.Lower, fn)

	defer func() {
		if recover() == nil {
			t.Fatalf("collecting into an optional while lowering must panic")
		}
	}()
	e.TranslateArguments(
		[]ir.Managed{e.B.ManagedOwned(fn.Params[0]), e.B.ManagedOwned(fn.Params[1])},
		abspat.FromType(f.in, pair), pair,
		abspat.Opaque(), optPair,
		[]lowering.Param{{Type: f.opaque(optPair), Conv: lowering.ConvIndirectIn}})
}

func TestInoutPassesThroughUntouched(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	mref := f.in.Intern(types.MakeReference(bt.Int, true))

	refL := f.concrete(mref)
	fn := f.site("inout_pass",
		[]lowering.Param{{Type: refL, Conv: lowering.ConvIndirectInout}},
		direct(f.concrete(bt.Int)))
	e := f.engine(reabstract.Raise, fn)

	args := e.TranslateArguments(
		[]ir.Managed{ir.Unmanaged(fn.Params[0])},
		abspat.FromType(f.in, mref), mref,
		abspat.FromType(f.in, mref), mref,
		[]lowering.Param{{Type: refL, Conv: lowering.ConvIndirectInout}})
	if len(args) != 1 || args[0].Val != fn.Params[0] {
		t.Fatalf("untouched inout slot was rebuilt")
	}
}

func TestInoutNeedingConversionAborts(t *testing.T) {
	f := newFixture(t)
	bt := f.in.Builtins()
	mref := f.in.Intern(types.MakeReference(bt.Int, true))

	fn := f.site("inout_bad",
		[]lowering.Param{owned(f.concrete(bt.Int))},
		direct(f.concrete(bt.Int)))
	e := f.engine(reabstract.Raise, fn)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				if a, ok := r.(*reabstract.Abort); ok {
					err = a
					return
				}
				panic(r)
			}
		}()
		e.TranslateArguments(
			[]ir.Managed{e.B.ManagedOwned(fn.Params[0])},
			abspat.FromType(f.in, bt.Int), bt.Int,
			abspat.FromType(f.in, mref), mref,
			[]lowering.Param{{Type: f.concrete(mref), Conv: lowering.ConvIndirectInout}})
		return nil
	}()

	var abort *reabstract.Abort
	if !errors.As(err, &abort) || abort.Code != diag.ReabInoutWriteback {
		t.Fatalf("want ReabInoutWriteback abort, got %v", err)
	}
}
