package types

// FnInfo stores metadata for function types. Input is a single type; a
// function of several parameters takes a tuple.
type FnInfo struct {
	Input  TypeID
	Result TypeID
}

// RegisterFn creates or finds a function type.
func (in *Interner) RegisterFn(input, result TypeID) TypeID {
	for id := TypeID(1); int(id) < len(in.types); id++ {
		tt := in.types[id]
		if tt.Kind != KindFn {
			continue
		}
		info := in.fns[tt.Payload]
		if info.Input == input && info.Result == result {
			return id
		}
	}
	in.fns = append(in.fns, FnInfo{Input: input, Result: result})
	slot := in.appendSlot(len(in.fns))
	return in.internNominal(Type{Kind: KindFn, Payload: slot})
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn {
		return nil, false
	}
	if int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}
