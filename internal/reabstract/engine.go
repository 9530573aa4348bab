// Package reabstract converts values between the two lowered
// representations the same semantic type takes on either side of a
// generic boundary: the original, maximally abstract shape a polymorphic
// body was compiled against, and the substituted, concrete shape a caller
// with known types works with. It houses the recursive value transform,
// the call-boundary argument translator, the thunk synthesizer for
// function-typed values, and the dispatch shim builders layered on top.
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

// Engine performs conversions in one direction into one function body.
// The abstraction pattern handed to its methods always describes the
// original side: the input for Raise, the output for Lower.
type Engine struct {
	Dir      Direction
	B        *ir.Builder
	Conf     *conformance.Registry
	Reporter diag.Reporter
	Thunks   *Cache

	// Loc anchors diagnostics for conversions that abort.
	Loc source.Span
}

// NewEngine constructs an engine emitting through b.
func NewEngine(dir Direction, b *ir.Builder, conf *conformance.Registry, rep diag.Reporter, thunks *Cache) *Engine {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	return &Engine{Dir: dir, B: b, Conf: conf, Reporter: rep, Thunks: thunks}
}

func (e *Engine) oracle() *lowering.Oracle {
	return e.B.Oracle
}

func (e *Engine) types() *types.Interner {
	return e.oracle().Types()
}

// sub builds an engine for a nested synthesized body (an optional-map
// payload transform) sharing everything but the function under
// construction.
func (e *Engine) sub(dir Direction, f *ir.Func) *Engine {
	return &Engine{
		Dir:      dir,
		B:        ir.NewBuilder(f, e.oracle(), ir.NewLedger()),
		Conf:     e.Conf,
		Reporter: e.Reporter,
		Thunks:   e.Thunks,
		Loc:      e.Loc,
	}
}

// inPattern is the abstraction the input representation was lowered
// under.
func (e *Engine) inPattern(p abspat.Pattern, in types.TypeID) abspat.Pattern {
	if e.Dir == Raise {
		return p
	}
	return abspat.FromType(e.types(), in)
}

// outPattern is the abstraction the output representation must be
// lowered under.
func (e *Engine) outPattern(p abspat.Pattern, out types.TypeID) abspat.Pattern {
	if e.Dir == Raise {
		return abspat.FromType(e.types(), out)
	}
	return p
}

// InputLowering returns the representation a value enters this
// conversion with.
func (e *Engine) InputLowering(p abspat.Pattern, in types.TypeID) lowering.ID {
	return e.oracle().Lower(e.inPattern(p, in), in)
}

// OutputLowering returns the representation a value leaves this
// conversion with.
func (e *Engine) OutputLowering(p abspat.Pattern, out types.TypeID) lowering.ID {
	return e.oracle().Lower(e.outPattern(p, out), out)
}

// abort reports a recognized-but-unsupported conversion and stops; the
// caller must not continue emitting after a diagnostic of this class.
func (e *Engine) abort(code diag.Code, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.Reporter.Report(code, diag.SevError, e.Loc, msg, nil)
	panic(&Abort{Code: code, Msg: msg})
}

// Abort is the panic payload for diagnosed unsupported conversions.
// Outer entry points recover it; contract violations panic with plain
// values and are never recovered.
type Abort struct {
	Code diag.Code
	Msg  string
}

func (a *Abort) Error() string {
	return fmt.Sprintf("%s: %s", a.Code, a.Msg)
}

// recoverAbort converts a diagnosed abort back into an error at an
// entry-point boundary.
func recoverAbort(err *error) {
	if r := recover(); r != nil {
		if a, ok := r.(*Abort); ok {
			*err = a
			return
		}
		panic(r)
	}
}
