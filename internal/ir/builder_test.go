package ir_test

import (
	"bytes"
	"strings"
	"testing"

	"prism/internal/abspat"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

func newServices(t *testing.T) (*types.Interner, *lowering.Oracle) {
	t.Helper()
	in := types.NewInterner()
	return in, lowering.NewOracle(in, lowering.X86_64LinuxGNU())
}

func directParam(o *lowering.Oracle, t lowering.ID) lowering.Param {
	return lowering.Param{Type: t, Conv: lowering.ConvDirectOwned}
}

func TestSpillAndReload(t *testing.T) {
	in, o := newServices(t)
	intL := o.Lower(abspat.FromType(in, in.Builtins().Int), in.Builtins().Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("spill", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())

	buf := b.AllocTemp(intL)
	b.Store(fn.Params[0], buf, true)
	loaded := b.Load(buf, true)
	b.Return(loaded)

	interp := ir.NewInterp(o)
	got, err := interp.Call(fn, []ir.RVal{ir.IntVal(42)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Kind != ir.RInt || got.Int != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestTupleMakeAndExtract(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	pair := in.RegisterTuple([]types.TypeID{bt.Int, bt.Int})
	pairL := o.Lower(abspat.FromType(in, pair), pair)
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL), directParam(o, intL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("swap_first", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())

	tup := b.TupleMake(pairL, []ir.Value{fn.Params[1], fn.Params[0]})
	first := b.TupleExtract(tup, 0, intL)
	b.Return(first)

	got, err := ir.NewInterp(o).Call(fn, []ir.RVal{ir.IntVal(10), ir.IntVal(20)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Int != 20 {
		t.Fatalf("got %d, want 20", got.Int)
	}
}

func TestOptionalInjectAndUnwrap(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	opt := in.Intern(types.MakeOptional(bt.Int, false))
	optL := o.Lower(abspat.FromType(in, opt), opt)
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("wrap_unwrap", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())

	wrapped := b.EnumInject(optL, fn.Params[0], true)
	b.Return(b.ForceUnwrap(wrapped, intL))

	got, err := ir.NewInterp(o).Call(fn, []ir.RVal{ir.IntVal(7)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Int != 7 {
		t.Fatalf("got %d, want 7", got.Int)
	}
}

func TestForceUnwrapNoneTraps(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	opt := in.Intern(types.MakeOptional(bt.Int, true))
	optL := o.Lower(abspat.FromType(in, opt), opt)
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, optL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("force", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())
	b.Return(b.ForceUnwrap(fn.Params[0], intL))

	if _, err := ir.NewInterp(o).Call(fn, []ir.RVal{ir.NoneVal()}); err == nil {
		t.Fatalf("unwrapping none must trap")
	}
}

func TestIndirectResultDelivery(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	opaqueInt := o.LowerOpaque(bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{{Type: opaqueInt, Conv: lowering.ConvIndirectIn}},
		Result: lowering.Result{Type: opaqueInt, Conv: lowering.ResultIndirect},
	}
	fn := ir.NewFunc("ident", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())
	b.CopyAddr(fn.Params[0], fn.IndirectResult, true, true)
	b.Return(ir.Value{})

	// Without a result argument the interpreter supplies the buffer.
	got, err := ir.NewInterp(o).Call(fn, []ir.RVal{ir.AddrVal(ir.IntVal(9))})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Int != 9 {
		t.Fatalf("got %+v, want 9", got)
	}

	// With an explicit result address the caller's cell is written.
	dst := ir.AddrVal(ir.RVal{})
	if _, err := ir.NewInterp(o).Call(fn, []ir.RVal{dst, ir.AddrVal(ir.IntVal(11))}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if dst.Cell.Get().Int != 11 {
		t.Fatalf("caller buffer holds %+v", dst.Cell.Get())
	}
}

func TestPartialApplyBindsTrailing(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)
	fnSem := in.RegisterFn(bt.Int, bt.Int)
	fnL := o.Lower(abspat.FromType(in, fnSem), fnSem)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL), directParam(o, fnL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("call_through", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())

	clos := b.PartialApply(fn.Params[1], []ir.Value{fn.Params[0]}, fnL)
	b.Return(b.Apply(clos, nil, intL))

	host := ir.HostClosure(func(args []ir.RVal) (ir.RVal, error) {
		return ir.IntVal(args[0].Int * 2), nil
	})
	got, err := ir.NewInterp(o).Call(fn, []ir.RVal{ir.IntVal(21), host})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Int != 42 {
		t.Fatalf("got %d, want 42", got.Int)
	}
}

func TestRetainReleaseCounting(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("counted", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())
	b.Retain(fn.Params[0])
	b.Retain(fn.Params[0])
	b.Release(fn.Params[0])
	b.Return(fn.Params[0])

	interp := ir.NewInterp(o)
	if _, err := interp.Call(fn, []ir.RVal{ir.IntVal(1)}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if interp.Retains != 2 || interp.Releases != 1 {
		t.Fatalf("retains=%d releases=%d", interp.Retains, interp.Releases)
	}
}

func TestDumpFunc(t *testing.T) {
	in, o := newServices(t)
	bt := in.Builtins()
	intL := o.Lower(abspat.FromType(in, bt.Int), bt.Int)

	sig := &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{directParam(o, intL)},
		Result: lowering.Result{Type: intL, Conv: lowering.ResultOwned},
	}
	fn := ir.NewFunc("dumped", sig, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())
	buf := b.AllocTemp(intL)
	b.Store(fn.Params[0], buf, true)
	b.Return(b.Load(buf, true))

	var out bytes.Buffer
	if err := ir.DumpFunc(&out, fn, o); err != nil {
		t.Fatalf("DumpFunc: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"fn dumped: thin (owned int) -> owned int",
		"param v1: int",
		"= alloc_temp",
		"store v1 to v2 [init]",
		"= load [take] v2",
		"return v3",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("dump missing %q:\n%s", want, got)
		}
	}
}
