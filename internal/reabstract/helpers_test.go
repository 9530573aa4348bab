package reabstract_test

import (
	"testing"

	"prism/internal/abspat"
	"prism/internal/conformance"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/reabstract"
	"prism/internal/types"
)

// fixture bundles the per-unit services every conversion test needs.
type fixture struct {
	in    *types.Interner
	o     *lowering.Oracle
	conf  *conformance.Registry
	cache *reabstract.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	in := types.NewInterner()
	return &fixture{
		in:    in,
		o:     lowering.NewOracle(in, lowering.X86_64LinuxGNU()),
		conf:  conformance.NewRegistry(in),
		cache: reabstract.NewCache(),
	}
}

// site builds an empty function to emit a conversion into.
func (f *fixture) site(name string, params []lowering.Param, result lowering.Result) *ir.Func {
	return ir.NewFunc(name, &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: params,
		Result: result,
	}, f.o)
}

func (f *fixture) engine(dir reabstract.Direction, fn *ir.Func) *reabstract.Engine {
	b := ir.NewBuilder(fn, f.o, ir.NewLedger())
	return reabstract.NewEngine(dir, b, f.conf, nil, f.cache)
}

func (f *fixture) concrete(sem types.TypeID) lowering.ID {
	return f.o.Lower(abspat.FromType(f.in, sem), sem)
}

func (f *fixture) opaque(sem types.TypeID) lowering.ID {
	return f.o.LowerOpaque(sem)
}

// finish returns the converted value from the site and checks the ledger
// balanced.
func finish(t *testing.T, e *reabstract.Engine, res ir.Managed) {
	t.Helper()
	b := e.B
	if b.Fn.Sig.HasIndirectResult() {
		b.ForceInto(res, b.Fn.IndirectResult)
		b.Return(ir.Value{})
	} else {
		raw := res.Forward(b.Ledger)
		if b.IsAddr(raw) {
			raw = b.Load(raw, true)
		}
		b.Return(raw)
	}
	if err := b.Ledger.Verify(); err != nil {
		t.Fatalf("obligation leak: %v", err)
	}
	entered, forwarded, destroyed := b.Ledger.Counts()
	if forwarded+destroyed != entered {
		t.Fatalf("ownership not conserved: %d entered, %d forwarded, %d destroyed",
			entered, forwarded, destroyed)
	}
}

func run(t *testing.T, f *fixture, fn *ir.Func, args ...ir.RVal) ir.RVal {
	t.Helper()
	got, err := ir.NewInterp(f.o).Call(fn, args)
	if err != nil {
		t.Fatalf("run %s: %v", fn.Name, err)
	}
	return got
}

func in(t lowering.ID) lowering.Param {
	return lowering.Param{Type: t, Conv: lowering.ConvIndirectIn}
}

func owned(t lowering.ID) lowering.Param {
	return lowering.Param{Type: t, Conv: lowering.ConvDirectOwned}
}

func direct(t lowering.ID) lowering.Result {
	return lowering.Result{Type: t, Conv: lowering.ResultOwned}
}

func indirect(t lowering.ID) lowering.Result {
	return lowering.Result{Type: t, Conv: lowering.ResultIndirect}
}
