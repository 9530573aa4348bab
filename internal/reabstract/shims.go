package reabstract

import (
	"fmt"

	"prism/internal/abspat"
	"prism/internal/conformance"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/source"
	"prism/internal/types"
)

// Decl describes one dispatchable declaration: its semantic function
// type, with the receiver as the trailing input tuple element, the
// abstraction pattern of its original signature, and its body when it is
// statically known.
type Decl struct {
	Name string
	Sem  types.TypeID
	Pat  abspat.Pattern
	Fn   *ir.Func
}

// WitnessDispatch selects how a witness callable is resolved.
type WitnessDispatch uint8

const (
	// WitnessStatic resolves the witness directly: free functions, final
	// methods, extension methods.
	WitnessStatic WitnessDispatch = iota
	// WitnessClass resolves through the receiver's method table; used for
	// overridable class witnesses and dynamic members.
	WitnessClass
)

// Witness is a conforming declaration satisfying a requirement.
type Witness struct {
	Decl
	// Free witnesses take no receiver; the requirement's receiver
	// argument must not reach the call.
	Free     bool
	Dispatch WitnessDispatch
	// Materialize marks accessor-pair witnesses whose convention carries
	// write-back obligations the argument translator cannot express.
	Materialize bool
}

// ShimBuilder synthesizes vtable-override and protocol-witness shims.
type ShimBuilder struct {
	Oracle   *lowering.Oracle
	Conf     *conformance.Registry
	Reporter diag.Reporter
	Thunks   *Cache

	// MaterializeEmitter handles Materialize witnesses; without one such
	// a witness is diagnosed as unsupported.
	MaterializeEmitter func(req Decl, wit Witness) (*ir.Func, error)
}

// NewShimBuilder constructs a shim builder over the given services.
func NewShimBuilder(o *lowering.Oracle, conf *conformance.Registry, rep diag.Reporter, thunks *Cache) *ShimBuilder {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &ShimBuilder{Oracle: o, Conf: conf, Reporter: rep, Thunks: thunks}
}

func (sb *ShimBuilder) engine(fn *ir.Func) *Engine {
	b := ir.NewBuilder(fn, sb.Oracle, ir.NewLedger())
	return NewEngine(Lower, b, sb.Conf, sb.Reporter, sb.Thunks)
}

// BuildOverrideShim synthesizes the dispatch-table thunk bridging a base
// declaration's slot signature to an override's own lowered signature:
// arguments raise from the base abstraction into the override's concrete
// shape, the result lowers back.
func (sb *ShimBuilder) BuildOverrideShim(base, impl Decl) (fn *ir.Func, err error) {
	defer recoverAbort(&err)

	o := sb.Oracle
	ts := o.Types()
	baseFn, baseOK := ts.FnInfo(base.Sem)
	implFn, implOK := ts.FnInfo(impl.Sem)
	if !baseOK || !implOK {
		return nil, fmt.Errorf("reabstract: override shim between non-functions %s and %s",
			ts.String(base.Sem), ts.String(impl.Sem))
	}
	if impl.Fn == nil {
		return nil, fmt.Errorf("reabstract: override %s has no body to dispatch to", impl.Name)
	}

	ownSig := o.LowerFnSignature(base.Pat, base.Sem, lowering.FnThin)
	fn = ir.NewFunc("override_shim_"+impl.Name, ownSig, o)
	e := sb.engine(fn)

	own := make([]ir.Managed, len(fn.Params))
	for i, pv := range fn.Params {
		own[i] = e.manageParam(pv, ownSig.Params[i].Conv)
	}

	implPat := abspat.FromType(ts, impl.Sem)
	implSig := o.LowerFnSignature(implPat, impl.Sem, lowering.FnThin)
	tInv := e.sameBody(Raise)
	args := tInv.TranslateArguments(own,
		base.Pat.FunctionInput(ts), baseFn.Input,
		implPat.FunctionInput(ts), implFn.Input,
		implSig.Params)

	calleeType := o.Lower(implPat, impl.Sem)
	callable := ir.Unmanaged(e.B.FuncRef(impl.Fn, calleeType))
	e.emitBridgedCall(base.Pat.FunctionResult(ts), callable, args, implSig, implFn.Result, baseFn.Result)

	if verr := e.B.Ledger.Verify(); verr != nil {
		panic(fmt.Errorf("reabstract: override shim leaked an obligation: %w", verr))
	}
	return fn, nil
}

// BuildProtocolWitnessShim synthesizes the conformance-table thunk
// bridging a requirement's abstracted signature to the shape the witness
// actually expects.
func (sb *ShimBuilder) BuildProtocolWitnessShim(req Decl, wit Witness) (fn *ir.Func, err error) {
	defer recoverAbort(&err)

	o := sb.Oracle
	ts := o.Types()
	reqFn, reqOK := ts.FnInfo(req.Sem)
	witFn, witOK := ts.FnInfo(wit.Sem)
	if !reqOK || !witOK {
		return nil, fmt.Errorf("reabstract: witness shim between non-functions %s and %s",
			ts.String(req.Sem), ts.String(wit.Sem))
	}

	if wit.Materialize {
		if sb.MaterializeEmitter == nil {
			msg := fmt.Sprintf("witness %s requires in-place materialization, which has no emitter", wit.Name)
			sb.Reporter.Report(diag.ReabUnsupportedWitness, diag.SevError, source.Span{}, msg, nil)
			return nil, &Abort{Code: diag.ReabUnsupportedWitness, Msg: msg}
		}
		return sb.MaterializeEmitter(req, wit)
	}

	ownSig := o.LowerFnSignature(req.Pat, req.Sem, lowering.FnThin)
	fn = ir.NewFunc("witness_shim_"+wit.Name, ownSig, o)
	e := sb.engine(fn)
	b := e.B

	reqInSem := reqFn.Input
	reqInPat := req.Pat.FunctionInput(ts)

	// Receiver mutability mismatch: the requirement passes the receiver
	// by mutable reference, the witness takes it by value.
	own := make([]ir.Managed, len(fn.Params))
	for i, pv := range fn.Params {
		conv := ownSig.Params[i].Conv
		if conv == lowering.ConvIndirectInout && i == len(fn.Params)-1 && !witnessTakesReference(ts, witFn.Input, wit.Free) {
			loaded := b.Load(pv, false)
			b.Retain(loaded)
			own[i] = b.ManagedOwned(loaded)
			reqInSem = stripReceiverReference(ts, reqInSem)
			continue
		}
		own[i] = e.manageParam(pv, conv)
	}

	if wit.Free {
		// The witness has no receiver parameter; the requirement's
		// receiver argument stops here.
		recv := own[len(own)-1]
		b.DestroyManaged(recv)
		own = own[:len(own)-1]
		reqInPat = reqInPat.DropLastTupleElement(ts)
		reqInSem = dropLastElement(ts, reqInSem)
	}

	witPat := abspat.FromType(ts, wit.Sem)
	witSig := o.LowerFnSignature(witPat, wit.Sem, lowering.FnThin)
	tInv := e.sameBody(Raise)
	args := tInv.TranslateArguments(own,
		reqInPat, reqInSem,
		witPat.FunctionInput(ts), witFn.Input,
		witSig.Params)

	callable, cerr := sb.witnessRef(e, wit, args, o.Lower(witPat, wit.Sem))
	if cerr != nil {
		return nil, cerr
	}
	e.emitBridgedCall(req.Pat.FunctionResult(ts), callable, args, witSig, witFn.Result, reqFn.Result)

	if verr := b.Ledger.Verify(); verr != nil {
		panic(fmt.Errorf("reabstract: witness shim leaked an obligation: %w", verr))
	}
	return fn, nil
}

// witnessRef resolves the witness callable: statically for free, final
// and extension witnesses, through the receiver's method table
// otherwise.
func (sb *ShimBuilder) witnessRef(e *Engine, wit Witness, args []ir.Managed, calleeType lowering.ID) (ir.Managed, error) {
	switch wit.Dispatch {
	case WitnessStatic:
		if wit.Fn == nil {
			return ir.Managed{}, fmt.Errorf("reabstract: witness %s has no body to dispatch to", wit.Name)
		}
		return ir.Unmanaged(e.B.FuncRef(wit.Fn, calleeType)), nil
	case WitnessClass:
		if wit.Free || len(args) == 0 {
			return ir.Managed{}, fmt.Errorf("reabstract: witness %s has no receiver to dispatch through", wit.Name)
		}
		recv := args[len(args)-1]
		return ir.Unmanaged(e.B.ClassMethod(recv.Val, wit.Name, calleeType)), nil
	default:
		return ir.Managed{}, fmt.Errorf("reabstract: unknown witness dispatch %d", wit.Dispatch)
	}
}

// witnessTakesReference reports whether the witness receiver parameter
// is itself a reference.
func witnessTakesReference(ts *types.Interner, witInput types.TypeID, free bool) bool {
	if free {
		return false
	}
	info, ok := ts.TupleInfo(witInput)
	if !ok || len(info.Elems) == 0 {
		return ts.Kind(witInput) == types.KindReference
	}
	return ts.Kind(info.Elems[len(info.Elems)-1]) == types.KindReference
}

// stripReceiverReference rebuilds an input tuple with the trailing
// receiver element loaded out of its reference.
func stripReceiverReference(ts *types.Interner, input types.TypeID) types.TypeID {
	info, ok := ts.TupleInfo(input)
	if !ok {
		return ts.StripReference(input)
	}
	elems := make([]types.TypeID, len(info.Elems))
	copy(elems, info.Elems)
	elems[len(elems)-1] = ts.StripReference(elems[len(elems)-1])
	return ts.RegisterTuple(elems)
}

// dropLastElement rebuilds an input tuple without its trailing element.
func dropLastElement(ts *types.Interner, input types.TypeID) types.TypeID {
	info, ok := ts.TupleInfo(input)
	if !ok || len(info.Elems) == 0 {
		panic(fmt.Sprintf("reabstract: input %s has no receiver to drop", ts.String(input)))
	}
	return ts.RegisterTuple(info.Elems[:len(info.Elems)-1])
}
