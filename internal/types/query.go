package types

// StripReference looks through a by-reference qualifier, returning the
// referent. Non-reference types are returned unchanged.
func (in *Interner) StripReference(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindReference {
		return id
	}
	return tt.Elem
}

// OptionalObject strips one optional level. ok is false for non-optionals.
func (in *Interner) OptionalObject(id TypeID) (payload TypeID, forced bool, ok bool) {
	tt, found := in.Lookup(id)
	if !found || tt.Kind != KindOptional {
		return NoTypeID, false, false
	}
	return tt.Elem, tt.Forced, true
}

// MetatypeInstance returns the instance type of a metatype.
func (in *Interner) MetatypeInstance(id TypeID) (TypeID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindMetatype {
		return NoTypeID, false
	}
	return tt.Elem, true
}

// IsAnyExistential reports whether id is an existential container or an
// existential metatype (a metatype tower over an existential).
func (in *Interner) IsAnyExistential(id TypeID) bool {
	_, ok := in.ExistentialSelf(id)
	return ok
}

// ExistentialSelf returns the existential at the bottom of a metatype
// tower, unwrapping zero or more metatype levels uniformly.
func (in *Interner) ExistentialSelf(id TypeID) (TypeID, bool) {
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return NoTypeID, false
		}
		switch tt.Kind {
		case KindExistential:
			return id, true
		case KindMetatype:
			id = tt.Elem
		default:
			return NoTypeID, false
		}
	}
}

// IsClass reports whether id names a class type.
func (in *Interner) IsClass(id TypeID) bool {
	return in.Kind(id) == KindClass
}

// IsSingleProtocolMetatype reports whether id is a metatype over an
// existential with exactly one protocol. Only such metatypes are legal
// sources for the ProtocolObject conversion.
func (in *Interner) IsSingleProtocolMetatype(id TypeID) bool {
	inst, ok := in.MetatypeInstance(id)
	if !ok {
		return false
	}
	info, ok := in.ExistentialInfo(inst)
	return ok && len(info.Protocols) == 1
}
