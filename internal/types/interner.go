package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types plus the two
// runtime-bridging reference types the subtype ladder special-cases.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Int     TypeID
	Uint    TypeID
	Float   TypeID
	String  TypeID

	// AnyRef is the universal top reference type every class and class
	// metatype can erase to.
	AnyRef TypeID
	// ProtocolObject is the singleton runtime class representing a
	// single-protocol metatype as an object.
	ProtocolObject TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Nominal kinds (classes, protocols, archetypes) have identity semantics
// and bypass the structural index.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	tuples       []TupleInfo
	fns          []FnInfo
	classes      []ClassInfo
	protocols    []ProtocolInfo
	existentials []ExistentialInfo
	archetypes   []ArchetypeInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(MakeInt(WidthAny))
	in.builtins.Uint = in.Intern(MakeUint(WidthAny))
	in.builtins.Float = in.Intern(MakeFloat(WidthAny))
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.AnyRef = in.RegisterClass(ClassInfo{Name: "AnyRef"})
	in.builtins.ProtocolObject = in.RegisterClass(ClassInfo{Name: "ProtocolObject", Foreign: true})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// internNominal adds a descriptor that must never be unified with a
// structurally equal one.
func (in *Interner) internNominal(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup returns the descriptor for a TypeID or panics.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// Kind returns the kind of a TypeID (KindInvalid for unknown ids).
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

func (in *Interner) appendSlot(length int) uint32 {
	slot, err := safecast.Conv[uint32](length - 1)
	if err != nil {
		panic(fmt.Errorf("side table overflow: %w", err))
	}
	return slot
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Width   Width
	Payload uint32
	Mutable bool
	Forced  bool
}
