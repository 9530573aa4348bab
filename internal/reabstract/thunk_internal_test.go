package reabstract

import (
	"errors"
	"testing"

	"prism/internal/abspat"
	"prism/internal/conformance"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

// Foreign conventions reach manageParam and manageResult through
// imported signatures the oracle never synthesizes itself, so their
// abort paths are checked directly.

func newBridgeEngine(t *testing.T) *Engine {
	t.Helper()
	in := types.NewInterner()
	o := lowering.NewOracle(in, lowering.X86_64LinuxGNU())
	bt := in.Builtins()
	direct := o.Lower(abspat.FromType(in, bt.Int), bt.Int)
	fn := ir.NewFunc("bridge", &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{{Type: direct, Conv: lowering.ConvDirectOwned}},
		Result: lowering.Result{Type: direct, Conv: lowering.ResultOwned},
	}, o)
	b := ir.NewBuilder(fn, o, ir.NewLedger())
	return NewEngine(Raise, b, conformance.NewRegistry(in), nil, NewCache())
}

func catchAbort(fn func()) (err error) {
	defer recoverAbort(&err)
	fn()
	return nil
}

func TestManageResultRetainsUnownedConventions(t *testing.T) {
	e := newBridgeEngine(t)
	b := e.B
	v := b.Fn.Params[0]

	for _, conv := range []lowering.ResultConv{lowering.ResultUnowned, lowering.ResultAutoreleased} {
		before := len(b.Fn.Instrs)
		m := e.manageResult(v, conv)
		if !m.HasCleanup() {
			t.Fatalf("%s result must come back owned", conv)
		}
		if got := b.Fn.Instrs[before].Kind; got != ir.InstrRetain {
			t.Fatalf("%s result emitted %v, want a retain", conv, got)
		}
		b.DestroyManaged(m)
	}
}

func TestManageResultInnerPointerAborts(t *testing.T) {
	e := newBridgeEngine(t)
	err := catchAbort(func() {
		e.manageResult(e.B.Fn.Params[0], lowering.ResultUnownedInnerPointer)
	})
	var abort *Abort
	if !errors.As(err, &abort) || abort.Code != diag.ReabInnerPointerResult {
		t.Fatalf("want inner-pointer abort, got %v", err)
	}
	want := "cannot reabstract a function whose result points into a callee-owned buffer"
	if abort.Msg != want {
		t.Fatalf("abort message %q", abort.Msg)
	}
}

func TestManageParamInoutAborts(t *testing.T) {
	e := newBridgeEngine(t)
	err := catchAbort(func() {
		e.manageParam(e.B.Fn.Params[0], lowering.ConvIndirectInout)
	})
	var abort *Abort
	if !errors.As(err, &abort) || abort.Code != diag.ReabInoutWriteback {
		t.Fatalf("want write-back abort, got %v", err)
	}
}

func TestManageParamConventions(t *testing.T) {
	e := newBridgeEngine(t)
	b := e.B
	v := b.Fn.Params[0]

	if m := e.manageParam(v, lowering.ConvDirectOwned); !m.HasCleanup() {
		t.Fatalf("owned parameter must carry its obligation")
	}
	if m := e.manageParam(v, lowering.ConvIndirectInGuaranteed); m.HasCleanup() {
		t.Fatalf("guaranteed address must stay borrowed")
	}
	before := len(b.Fn.Instrs)
	if m := e.manageParam(v, lowering.ConvDirectGuaranteed); !m.HasCleanup() {
		t.Fatalf("guaranteed direct value must be retained into ownership")
	} else if b.Fn.Instrs[before].Kind != ir.InstrRetain {
		t.Fatalf("guaranteed direct value was not retained")
	} else {
		b.DestroyManaged(m)
	}
}
