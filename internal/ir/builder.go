package ir

import (
	"fmt"

	"prism/internal/conformance"
	"prism/internal/lowering"
	"prism/internal/types"
)

// Builder appends instructions to a function and keeps the ownership
// ledger in step with the values it produces.
type Builder struct {
	Fn     *Func
	Oracle *lowering.Oracle
	Ledger *Ledger
}

// NewBuilder constructs a builder over f.
func NewBuilder(f *Func, o *lowering.Oracle, l *Ledger) *Builder {
	return &Builder{Fn: f, Oracle: o, Ledger: l}
}

func (b *Builder) emit(i Instr) {
	b.Fn.Instrs = append(b.Fn.Instrs, i)
}

func (b *Builder) define(t lowering.ID) Value {
	return b.Fn.NewValue(t)
}

// IsAddr reports whether v is an address.
func (b *Builder) IsAddr(v Value) bool {
	return b.Oracle.TypeOf(v.Type).Addr
}

// Constants -----------------------------------------------------------------

func (b *Builder) ConstInt(t lowering.ID, v int64) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrConst, Dst: dst, Const: ConstInt, IntVal: v})
	return dst
}

func (b *Builder) ConstBool(t lowering.ID, v bool) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrConst, Dst: dst, Const: ConstBool, BoolVal: v})
	return dst
}

// Memory --------------------------------------------------------------------

// AllocTemp allocates a temporary for a value of lowered type t and
// returns its address.
func (b *Builder) AllocTemp(t lowering.ID) Value {
	dst := b.define(b.Oracle.AddrOf(t))
	b.emit(Instr{Kind: InstrAllocTemp, Dst: dst})
	return dst
}

// Load reads the value stored at addr. take transfers ownership out of
// the cell.
func (b *Builder) Load(addr Value, take bool) Value {
	obj, ok := b.Oracle.ObjectOf(addr.Type)
	if !ok {
		panic(fmt.Sprintf("ir: load of address-only %s", b.Oracle.String(addr.Type)))
	}
	dst := b.define(obj)
	b.emit(Instr{Kind: InstrLoad, Dst: dst, Src: addr, Take: take})
	return dst
}

// Store writes src into the cell at dst.
func (b *Builder) Store(src, dst Value, init bool) {
	b.emit(Instr{Kind: InstrStore, Src: src, Dst: dst, Init: init})
}

// CopyAddr copies the value at src into dst.
func (b *Builder) CopyAddr(src, dst Value, take, init bool) {
	b.emit(Instr{Kind: InstrCopyAddr, Src: src, Dst: dst, Take: take, Init: init})
}

// Tuples --------------------------------------------------------------------

func (b *Builder) TupleMake(t lowering.ID, elems []Value) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrTupleMake, Dst: dst, Args: elems})
	return dst
}

// TupleExtract projects element i of a direct tuple as elemType.
func (b *Builder) TupleExtract(src Value, i int, elemType lowering.ID) Value {
	dst := b.define(elemType)
	b.emit(Instr{Kind: InstrTupleExtract, Dst: dst, Src: src, Index: i})
	return dst
}

// TupleElemAddr projects the address of element i of a tuple address.
func (b *Builder) TupleElemAddr(src Value, i int, elemType lowering.ID) Value {
	dst := b.define(b.Oracle.AddrOf(elemType))
	b.emit(Instr{Kind: InstrTupleElemAddr, Dst: dst, Src: src, Index: i})
	return dst
}

// Optionals -----------------------------------------------------------------

// EnumInject builds a direct optional of type t around payload (pass a
// null payload for "none").
func (b *Builder) EnumInject(t lowering.ID, payload Value, some bool) Value {
	dst := b.define(t)
	b.emit(Instr{
		Kind:       InstrEnumInject,
		Dst:        dst,
		Src:        payload,
		HasPayload: !payload.IsNull(),
		Some:       some,
	})
	return dst
}

// EnumInjectAddr tags the optional buffer whose payload was initialized
// in place.
func (b *Builder) EnumInjectAddr(buf Value, some bool) {
	b.emit(Instr{Kind: InstrEnumInjectAddr, Dst: buf, Some: some})
}

// EnumDataAddr projects the payload address of an optional buffer.
func (b *Builder) EnumDataAddr(buf Value, payloadType lowering.ID) Value {
	dst := b.define(b.Oracle.AddrOf(payloadType))
	b.emit(Instr{Kind: InstrEnumDataAddr, Dst: dst, Src: buf})
	return dst
}

// ForceUnwrap extracts the payload, emitting a runtime trap for "none".
func (b *Builder) ForceUnwrap(src Value, payloadType lowering.ID) Value {
	dst := b.define(payloadType)
	b.emit(Instr{Kind: InstrForceUnwrap, Dst: dst, Src: src})
	return dst
}

// OptMap maps body over src's payload, rewrapping the result as dstType.
func (b *Builder) OptMap(src Value, dstType lowering.ID, body *Func) Value {
	dst := b.define(dstType)
	b.emit(Instr{Kind: InstrOptMap, Dst: dst, Src: src, Fn: body})
	return dst
}

// Casts ---------------------------------------------------------------------

func (b *Builder) Upcast(src Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrUpcast, Dst: dst, Src: src})
	return dst
}

func (b *Builder) RefCast(src Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrRefCast, Dst: dst, Src: src})
	return dst
}

func (b *Builder) BitCast(src Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrBitCast, Dst: dst, Src: src})
	return dst
}

func (b *Builder) ConvertFn(src Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrConvertFn, Dst: dst, Src: src})
	return dst
}

func (b *Builder) ThinToThick(src Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrThinToThick, Dst: dst, Src: src})
	return dst
}

// Metatypes and existentials ------------------------------------------------

// Metatype materializes a metatype value of lowered type t.
func (b *Builder) Metatype(t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrMetatype, Dst: dst})
	return dst
}

func (b *Builder) MetaToObject(src Value, t lowering.ID, mode MetaObjectMode) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrMetaToObject, Dst: dst, Src: src, Mode: mode})
	return dst
}

// OpenExistential projects the payload of an existential as an address of
// the opened archetype.
func (b *Builder) OpenExistential(src Value, openedType lowering.ID, opened types.TypeID) Value {
	dst := b.define(b.Oracle.AddrOf(openedType))
	b.emit(Instr{Kind: InstrOpenExistential, Dst: dst, Src: src, Concrete: opened})
	return dst
}

// InitExistential erases src into the existential buffer dst.
func (b *Builder) InitExistential(dst, src Value, concrete types.TypeID, table []conformance.Record) {
	b.emit(Instr{
		Kind:     InstrInitExistential,
		Dst:      dst,
		Src:      src,
		Concrete: concrete,
		Table:    table,
	})
}

// Ownership -----------------------------------------------------------------

func (b *Builder) Retain(v Value) {
	b.emit(Instr{Kind: InstrRetain, Src: v})
}

func (b *Builder) Release(v Value) {
	b.emit(Instr{Kind: InstrRelease, Src: v})
}

func (b *Builder) DestroyAddr(addr Value) {
	b.emit(Instr{Kind: InstrDestroyAddr, Src: addr})
}

// Calls ---------------------------------------------------------------------

// FuncRef references fn as a context-free function value of type t.
func (b *Builder) FuncRef(fn *Func, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrFuncRef, Dst: dst, Fn: fn})
	return dst
}

// ClassMethod looks method up through receiver's dispatch table.
func (b *Builder) ClassMethod(receiver Value, method string, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrClassMethod, Dst: dst, Src: receiver, Method: method})
	return dst
}

// PartialApply binds trailing arguments of fn, producing a closure of
// type t.
func (b *Builder) PartialApply(fn Value, bound []Value, t lowering.ID) Value {
	dst := b.define(t)
	b.emit(Instr{Kind: InstrPartialApply, Dst: dst, Src: fn, Args: bound})
	return dst
}

// Apply calls callee. For signatures with an indirect result the result
// address must already be in args and resultType should be the unit-like
// direct result.
func (b *Builder) Apply(callee Value, args []Value, resultType lowering.ID) Value {
	dst := b.define(resultType)
	b.emit(Instr{Kind: InstrApply, Dst: dst, Callee: callee, Args: args})
	return dst
}

// Return terminates the function.
func (b *Builder) Return(v Value) {
	b.emit(Instr{Kind: InstrReturn, Src: v})
}

// Managed-value helpers ------------------------------------------------------

// ManagedOwned wraps v with a fresh destroy obligation.
func (b *Builder) ManagedOwned(v Value) Managed {
	note := fmt.Sprintf("v%d: %s", v.ID, b.Oracle.String(v.Type))
	return Owned(v, b.Ledger.Enter(note))
}

// EmitLoadManaged loads a managed address, transferring its obligation
// onto the loaded value.
func (b *Builder) EmitLoadManaged(m Managed) Managed {
	loaded := b.Load(m.Forward(b.Ledger), true)
	return b.ManagedOwned(loaded)
}

// ForceInto moves a managed value into the destination address,
// forwarding its obligation.
func (b *Builder) ForceInto(m Managed, dst Value) {
	src := m.Forward(b.Ledger)
	if b.IsAddr(src) {
		b.CopyAddr(src, dst, true, true)
		return
	}
	b.Store(src, dst, true)
}

// DestroyManaged resolves a managed value by destruction, emitting the
// matching instruction.
func (b *Builder) DestroyManaged(m Managed) {
	if !m.HasCleanup() {
		return
	}
	b.Ledger.Destroy(m.Cleanup)
	if b.IsAddr(m.Val) {
		b.DestroyAddr(m.Val)
		return
	}
	b.Release(m.Val)
}
