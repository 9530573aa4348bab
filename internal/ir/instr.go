package ir

import (
	"prism/internal/conformance"
	"prism/internal/types"
)

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrConst materializes a literal.
	InstrConst InstrKind = iota
	// InstrAllocTemp allocates a temporary cell; Dst is its address.
	InstrAllocTemp
	// InstrLoad reads a value from an address.
	InstrLoad
	// InstrStore writes a value to an address.
	InstrStore
	// InstrCopyAddr copies between two addresses.
	InstrCopyAddr
	// InstrTupleMake builds a direct tuple from elements.
	InstrTupleMake
	// InstrTupleExtract projects one element of a direct tuple.
	InstrTupleExtract
	// InstrTupleElemAddr projects one element address of a tuple address.
	InstrTupleElemAddr
	// InstrEnumInject builds a direct optional.
	InstrEnumInject
	// InstrEnumInjectAddr sets the tag of an optional buffer whose payload
	// was initialized in place.
	InstrEnumInjectAddr
	// InstrEnumDataAddr projects the payload address of an optional buffer.
	InstrEnumDataAddr
	// InstrForceUnwrap extracts an optional payload, trapping on none.
	InstrForceUnwrap
	// InstrOptMap maps a one-parameter body over an optional payload,
	// rewrapping on success.
	InstrOptMap
	// InstrUpcast relaxes a class or metatype to a supertype; the
	// representation is preserved.
	InstrUpcast
	// InstrRefCast reinterprets between representation-compatible
	// reference types (foreign class clusters).
	InstrRefCast
	// InstrBitCast reinterprets a value or address with an ABI-compatible
	// representation.
	InstrBitCast
	// InstrConvertFn adjusts a function value between ABI-compatible
	// signatures.
	InstrConvertFn
	// InstrThinToThick wraps a context-free function pointer in the
	// context-carrying representation.
	InstrThinToThick
	// InstrMetatype materializes the metatype of Dst's lowered type.
	InstrMetatype
	// InstrMetaToObject converts a metatype to a runtime object reference.
	InstrMetaToObject
	// InstrOpenExistential extracts the payload address and dynamic type
	// of an existential.
	InstrOpenExistential
	// InstrInitExistential erases a payload into an existential buffer.
	InstrInitExistential
	// InstrRetain takes an extra ownership count on a value.
	InstrRetain
	// InstrRelease drops an ownership count on a value.
	InstrRelease
	// InstrDestroyAddr destroys the value stored at an address.
	InstrDestroyAddr
	// InstrFuncRef references a synthesized function.
	InstrFuncRef
	// InstrClassMethod looks a method up through the receiver's vtable.
	InstrClassMethod
	// InstrPartialApply binds trailing arguments, producing a
	// context-carrying closure.
	InstrPartialApply
	// InstrApply calls a callee value.
	InstrApply
	// InstrReturn terminates the function.
	InstrReturn
)

// MetaObjectMode selects the metatype-to-object conversion flavor.
type MetaObjectMode uint8

const (
	// MetaObjectProtocol converts a single-protocol metatype to the
	// ProtocolObject runtime class.
	MetaObjectProtocol MetaObjectMode = iota
	// MetaObjectClass converts a class metatype to the top reference type.
	MetaObjectClass
	// MetaObjectExistential converts an existential metatype to the top
	// reference type.
	MetaObjectExistential
)

// Instr is one instruction. Kind selects which fields are meaningful.
type Instr struct {
	Kind InstrKind

	Dst Value
	Src Value

	// InstrConst
	Const     ConstKind
	IntVal    int64
	BoolVal   bool
	FloatVal  float64
	StringVal string

	// Tuple projections.
	Index int

	// InstrTupleMake, InstrPartialApply, InstrApply.
	Args []Value

	// InstrEnumInject*, payload presence and tag.
	HasPayload bool
	Some       bool

	// InstrLoad/InstrCopyAddr takes, InstrStore/InstrCopyAddr inits.
	Take bool
	Init bool

	// InstrOptMap body, InstrFuncRef target.
	Fn *Func

	// InstrMetaToObject.
	Mode MetaObjectMode

	// InstrOpenExistential / InstrInitExistential.
	Concrete types.TypeID
	Table    []conformance.Record

	// InstrClassMethod.
	Method string

	// InstrApply callee.
	Callee Value
}
