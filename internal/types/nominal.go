package types

import "slices"

// ClassInfo stores metadata for class types.
type ClassInfo struct {
	Name    string
	Super   TypeID // NoTypeID for root classes
	Foreign bool   // foreign class clusters bridged by reference cast
}

// RegisterClass creates a new class type. Classes have identity semantics;
// two registrations with equal metadata are distinct types.
func (in *Interner) RegisterClass(info ClassInfo) TypeID {
	in.classes = append(in.classes, info)
	slot := in.appendSlot(len(in.classes))
	return in.internNominal(Type{Kind: KindClass, Payload: slot})
}

// ClassInfo retrieves class metadata by TypeID.
func (in *Interner) ClassInfo(id TypeID) (*ClassInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindClass {
		return nil, false
	}
	if int(tt.Payload) >= len(in.classes) {
		return nil, false
	}
	return &in.classes[tt.Payload], true
}

// IsSubclassOf walks the superclass chain from sub looking for super.
// A class is considered a subclass of itself.
func (in *Interner) IsSubclassOf(sub, super TypeID) bool {
	for sub != NoTypeID {
		if sub == super {
			return true
		}
		info, ok := in.ClassInfo(sub)
		if !ok {
			return false
		}
		sub = info.Super
	}
	return false
}

// ProtocolInfo stores metadata for protocol declarations.
type ProtocolInfo struct {
	Name string
}

// RegisterProtocol creates a new protocol type.
func (in *Interner) RegisterProtocol(name string) TypeID {
	in.protocols = append(in.protocols, ProtocolInfo{Name: name})
	slot := in.appendSlot(len(in.protocols))
	return in.internNominal(Type{Kind: KindProtocol, Payload: slot})
}

// ProtocolInfo retrieves protocol metadata by TypeID.
func (in *Interner) ProtocolInfo(id TypeID) (*ProtocolInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindProtocol {
		return nil, false
	}
	if int(tt.Payload) >= len(in.protocols) {
		return nil, false
	}
	return &in.protocols[tt.Payload], true
}

// ExistentialInfo stores the ordered protocol list of an existential
// container type.
type ExistentialInfo struct {
	Protocols []TypeID
}

// RegisterExistential creates or finds an existential type over the given
// protocol list. Order is significant: it fixes the conformance table
// layout.
func (in *Interner) RegisterExistential(protocols []TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindExistential {
			continue
		}
		if slices.Equal(in.existentials[tt.Payload].Protocols, protocols) {
			return id
		}
	}
	in.existentials = append(in.existentials, ExistentialInfo{Protocols: slices.Clone(protocols)})
	slot := in.appendSlot(len(in.existentials))
	return in.internNominal(Type{Kind: KindExistential, Payload: slot})
}

// ExistentialInfo retrieves the protocol list of an existential TypeID.
func (in *Interner) ExistentialInfo(id TypeID) (*ExistentialInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindExistential {
		return nil, false
	}
	if int(tt.Payload) >= len(in.existentials) {
		return nil, false
	}
	return &in.existentials[tt.Payload], true
}

// ArchetypeInfo stores metadata for type variables, including locally
// opened existentials.
type ArchetypeInfo struct {
	Name   string
	Super  TypeID // known superclass bound, NoTypeID if none
	Opened TypeID // existential this archetype was opened from
}

// RegisterArchetype creates a fresh archetype. Every registration is a
// distinct type, matching the identity semantics of type variables.
func (in *Interner) RegisterArchetype(info ArchetypeInfo) TypeID {
	in.archetypes = append(in.archetypes, info)
	slot := in.appendSlot(len(in.archetypes))
	return in.internNominal(Type{Kind: KindArchetype, Payload: slot})
}

// ArchetypeInfo retrieves archetype metadata by TypeID.
func (in *Interner) ArchetypeInfo(id TypeID) (*ArchetypeInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindArchetype {
		return nil, false
	}
	if int(tt.Payload) >= len(in.archetypes) {
		return nil, false
	}
	return &in.archetypes[tt.Payload], true
}
