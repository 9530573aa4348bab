package reabstract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"prism/internal/abspat"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/types"
)

// Cache memoizes synthesized thunk bodies for one compilation unit.
// Bodies are keyed by the structural signature of the conversion, so
// repeated requests for the same representation pair share one body;
// each request still gets its own closure over that body. The engine is
// single-threaded today, but lookups dedup through singleflight so a
// parallel driver stays correct.
type Cache struct {
	mu    sync.Mutex
	group singleflight.Group
	funcs map[string]*ir.Func
	names map[string]int
}

// NewCache constructs an empty thunk cache.
func NewCache() *Cache {
	return &Cache{
		funcs: make(map[string]*ir.Func),
		names: make(map[string]int),
	}
}

// nextName hands out sequential names for synthesized bodies.
func (c *Cache) nextName(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.names[prefix]
	c.names[prefix] = n + 1
	return fmt.Sprintf("%s$%d", prefix, n)
}

// Len reports how many distinct thunk bodies were synthesized.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.funcs)
}

// Funcs returns the synthesized bodies in a stable order.
func (c *Cache) Funcs() []*ir.Func {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ir.Func, 0, len(c.funcs))
	for _, f := range c.funcs {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *ir.Func) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// thunkKey is the value-equality memo key: the two structural
// representation fingerprints, the pattern, and the direction.
type thunkKey struct {
	Src string `msgpack:"src"`
	Dst string `msgpack:"dst"`
	Pat string `msgpack:"pat"`
	Dir uint8  `msgpack:"dir"`
}

func (k thunkKey) digest() string {
	raw, err := msgpack.Marshal(k)
	if err != nil {
		panic(fmt.Errorf("reabstract: thunk key encoding: %w", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) getOrBuild(key string, build func() (*ir.Func, error)) (*ir.Func, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		f, ok := c.funcs[key]
		c.mu.Unlock()
		if ok {
			return f, nil
		}
		f, err := build()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.funcs[key] = f
		c.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ir.Func), nil
}

// ReabstractFunctionValue is the entry-point form of the function-value
// conversion; diagnosed unsupported conversions come back as *Abort.
func (e *Engine) ReabstractFunctionValue(v ir.Managed, p abspat.Pattern, in, out types.TypeID) (res ir.Managed, err error) {
	defer recoverAbort(&err)
	return e.reabstractFunction(v, p, in, out), nil
}

// reabstractFunction converts a function-typed value between
// representations, synthesizing and binding a thunk when the calling
// conventions genuinely differ.
func (e *Engine) reabstractFunction(v ir.Managed, p abspat.Pattern, in, out types.TypeID) ir.Managed {
	b := e.B
	o := e.oracle()

	src := v.Val.Type
	expected := e.OutputLowering(p, out)
	if src == expected {
		return v
	}

	switch o.ABIDifference(src, expected) {
	case lowering.ABISame:
		return v
	case lowering.ABITrivial:
		srcRep := o.TypeOf(src).Sig.Rep
		dstRep := o.TypeOf(expected).Sig.Rep
		raw := v.Forward(b.Ledger)
		if srcRep == lowering.FnThick && dstRep == lowering.FnThin {
			panic("reabstract: cannot discard a closure context")
		}
		if srcRep == lowering.FnThin && dstRep == lowering.FnThick {
			return b.ManagedOwned(b.ThinToThick(raw, expected))
		}
		return b.ManagedOwned(b.ConvertFn(raw, expected))
	}

	key := thunkKey{
		Src: o.Key(src),
		Dst: o.Key(expected),
		Pat: p.String(e.types()),
		Dir: uint8(e.Dir),
	}.digest()
	fn, err := e.Thunks.getOrBuild(key, func() (f *ir.Func, berr error) {
		defer recoverAbort(&berr)
		return e.buildThunk(key, p, in, out, src, expected), nil
	})
	if err != nil {
		if a, ok := err.(*Abort); ok {
			panic(a)
		}
		panic(err)
	}

	// The shared body takes the wrapped callable as its trailing
	// parameter; each call site binds its own.
	ref := b.FuncRef(fn, expected)
	clos := b.PartialApply(ref, []ir.Value{v.Forward(b.Ledger)}, expected)
	return b.ManagedOwned(clos)
}

// buildThunk synthesizes the shared thunk body: the target parameter
// list plus one trailing slot for the wrapped callable. Parameters
// translate in the inverse direction into the callable's shape; the
// result translates forward.
func (e *Engine) buildThunk(key string, p abspat.Pattern, in, out types.TypeID, src, dst lowering.ID) *ir.Func {
	o := e.oracle()
	ts := e.types()
	srcT := o.TypeOf(src)
	dstT := o.TypeOf(dst)
	inFn, inOK := ts.FnInfo(in)
	outFn, outOK := ts.FnInfo(out)
	if !inOK || !outOK || srcT.Sig == nil || dstT.Sig == nil {
		panic(fmt.Sprintf("reabstract: thunk between non-functions %s and %s",
			ts.String(in), ts.String(out)))
	}

	sig := &lowering.Signature{Rep: lowering.FnThin}
	sig.Params = append(slices.Clone(dstT.Sig.Params), lowering.Param{Type: src, Conv: lowering.ConvDirectOwned})
	sig.Result = dstT.Sig.Result

	fn := ir.NewFunc("thunk_"+key[:12], sig, o)
	te := e.sub(e.Dir, fn)
	tb := te.B

	// Own parameters, excluding the trailing callable.
	own := make([]ir.Managed, len(dstT.Sig.Params))
	for i, pv := range fn.Params[:len(own)] {
		own[i] = te.manageParam(pv, dstT.Sig.Params[i].Conv)
	}
	callable := tb.ManagedOwned(fn.Params[len(fn.Params)-1])

	ownPat := e.outPattern(p, out).FunctionInput(ts)
	calleePat := e.inPattern(p, in).FunctionInput(ts)
	tInv := te.sameBody(e.Dir.Inverse())
	args := tInv.TranslateArguments(own, ownPat, outFn.Input, calleePat, inFn.Input, srcT.Sig.Params)

	te.emitBridgedCall(p.FunctionResult(ts), callable, args, srcT.Sig, inFn.Result, outFn.Result)

	if err := tb.Ledger.Verify(); err != nil {
		panic(fmt.Errorf("reabstract: thunk body leaked an obligation: %w", err))
	}
	return fn
}

// manageParam adopts one incoming parameter per its convention: consumed
// conventions arrive owned, guaranteed direct values are retained so the
// body can forward them, borrowed addresses stay borrowed.
func (e *Engine) manageParam(v ir.Value, conv lowering.ParamConv) ir.Managed {
	b := e.B
	switch conv {
	case lowering.ConvDirectOwned, lowering.ConvIndirectIn:
		return b.ManagedOwned(v)
	case lowering.ConvDirectGuaranteed, lowering.ConvDirectUnowned:
		b.Retain(v)
		return b.ManagedOwned(v)
	case lowering.ConvIndirectInGuaranteed:
		return ir.Unmanaged(v)
	case lowering.ConvDirectDeallocating:
		return ir.Unmanaged(v)
	case lowering.ConvIndirectInout:
		e.abort(diag.ReabInoutWriteback,
			"thunk parameter requires in-place write-back, which reabstraction does not support")
		panic("unreachable")
	default:
		panic(fmt.Sprintf("reabstract: convention %s has no input management", conv))
	}
}

// emitBridgedCall invokes a callable and delivers its result in
// whichever of the three modes applies: direct, straight into the
// enclosing function's own result address, or through a temporary.
func (e *Engine) emitBridgedCall(resultPat abspat.Pattern, callable ir.Managed, args []ir.Managed, inner *lowering.Signature, inResult, outResult types.TypeID) {
	b := e.B
	fn := b.Fn
	outer := fn.Sig

	argVals := make([]ir.Value, 0, len(args)+1)

	if inner.HasIndirectResult() {
		if outer.HasIndirectResult() && inner.Result.Type == outer.Result.Type {
			// Exact match: the callable writes the caller's buffer.
			argVals = append(argVals, fn.IndirectResult)
			for _, a := range args {
				argVals = append(argVals, a.Forward(b.Ledger))
			}
			b.Apply(callable.Forward(b.Ledger), argVals, inner.Result.Type)
			b.Return(ir.Value{})
			return
		}
		tmp := b.AllocTemp(inner.Result.Type)
		argVals = append(argVals, tmp)
		for _, a := range args {
			argVals = append(argVals, a.Forward(b.Ledger))
		}
		b.Apply(callable.Forward(b.Ledger), argVals, inner.Result.Type)
		e.deliverResult(b.ManagedOwned(tmp), resultPat, inResult, outResult)
		return
	}

	for _, a := range args {
		argVals = append(argVals, a.Forward(b.Ledger))
	}
	raw := b.Apply(callable.Forward(b.Ledger), argVals, inner.Result.Type)
	res := e.manageResult(raw, inner.Result.Conv)
	e.deliverResult(res, resultPat, inResult, outResult)
}

// manageResult normalizes the inner call's result ownership.
func (e *Engine) manageResult(v ir.Value, conv lowering.ResultConv) ir.Managed {
	b := e.B
	switch conv {
	case lowering.ResultOwned:
		return b.ManagedOwned(v)
	case lowering.ResultUnowned, lowering.ResultAutoreleased:
		b.Retain(v)
		return b.ManagedOwned(v)
	case lowering.ResultUnownedInnerPointer:
		// The pointer's lifetime is tied to storage this thunk cannot
		// see; extending it here would be a miscompile.
		e.abort(diag.ReabInnerPointerResult,
			"cannot reabstract a function whose result points into a callee-owned buffer")
		panic("unreachable")
	default:
		panic(fmt.Sprintf("reabstract: result convention %s has no management", conv))
	}
}

// deliverResult transforms the inner result forward and hands it to the
// thunk's caller.
func (e *Engine) deliverResult(res ir.Managed, p abspat.Pattern, inResult, outResult types.TypeID) {
	b := e.B
	out := e.Transform(res, p, inResult, outResult)
	if b.Fn.Sig.HasIndirectResult() {
		b.ForceInto(out, b.Fn.IndirectResult)
		b.Return(ir.Value{})
		return
	}
	raw := out.Forward(b.Ledger)
	if b.IsAddr(raw) {
		raw = b.Load(raw, true)
	}
	b.Return(raw)
}
