package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTuple
	KindFn
	KindOptional
	KindMetatype
	KindClass
	KindProtocol
	KindExistential
	KindArchetype
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	case KindFn:
		return "fn"
	case KindOptional:
		return "optional"
	case KindMetatype:
		return "metatype"
	case KindClass:
		return "class"
	case KindProtocol:
		return "protocol"
	case KindExistential:
		return "existential"
	case KindArchetype:
		return "archetype"
	case KindReference:
		return "reference"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Type is a compact descriptor for any supported type. Structured kinds
// (tuples, functions, nominals) keep their payload in a side table and
// reference it through the Payload slot.
type Type struct {
	Kind    Kind
	Elem    TypeID // optional payload, metatype instance, reference target
	Width   Width  // numeric primitives
	Payload uint32 // slot into the per-kind side table
	Mutable bool   // mutable references (inout)
	Forced  bool   // auto-forcing optional tier
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width (WidthAny for "int").
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type.
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakeOptional describes T?. Forced marks the auto-forcing tier (T!).
func MakeOptional(payload TypeID, forced bool) Type {
	return Type{Kind: KindOptional, Elem: payload, Forced: forced}
}

// MakeMetatype describes T.Type.
func MakeMetatype(instance TypeID) Type {
	return Type{Kind: KindMetatype, Elem: instance}
}

// MakeReference describes &T or &mut T depending on the mutable flag.
func MakeReference(elem TypeID, mutable bool) Type {
	return Type{Kind: KindReference, Elem: elem, Mutable: mutable}
}
