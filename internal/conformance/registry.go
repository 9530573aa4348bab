// Package conformance resolves (concrete type, protocol) pairs to
// conformance records and builds the ordered tables existential erasure
// consumes.
package conformance

import (
	"fmt"

	"prism/internal/types"
)

// Record is one protocol conformance of a concrete type.
type Record struct {
	Concrete types.TypeID
	Protocol types.TypeID
}

type recordKey struct {
	concrete types.TypeID
	protocol types.TypeID
}

// Registry stores declared conformances for one compilation unit.
type Registry struct {
	in      *types.Interner
	records map[recordKey]Record
}

// NewRegistry constructs an empty registry over the interner.
func NewRegistry(in *types.Interner) *Registry {
	return &Registry{
		in:      in,
		records: make(map[recordKey]Record, 16),
	}
}

// Register declares that concrete conforms to protocol. Registration order
// is irrelevant; table order comes from the existential's protocol list.
func (r *Registry) Register(concrete, protocol types.TypeID) {
	key := recordKey{concrete: concrete, protocol: protocol}
	r.records[key] = Record{Concrete: concrete, Protocol: protocol}
}

// Lookup resolves one conformance. Archetypes conform to every protocol
// their opened existential carries.
func (r *Registry) Lookup(concrete, protocol types.TypeID) (Record, bool) {
	if rec, ok := r.records[recordKey{concrete: concrete, protocol: protocol}]; ok {
		return rec, true
	}
	if info, ok := r.in.ArchetypeInfo(concrete); ok && info.Opened != types.NoTypeID {
		ex, _ := r.in.ExistentialInfo(info.Opened)
		if ex != nil {
			for _, p := range ex.Protocols {
				if p == protocol {
					return Record{Concrete: concrete, Protocol: protocol}, true
				}
			}
		}
	}
	return Record{}, false
}

// Protocols returns the ordered protocol list an existential type demands.
func (r *Registry) Protocols(existential types.TypeID) ([]types.TypeID, error) {
	info, ok := r.in.ExistentialInfo(existential)
	if !ok {
		return nil, fmt.Errorf("conformance: %s is not an existential", r.in.String(existential))
	}
	return info.Protocols, nil
}

// TableFor builds a fresh conformance table for erasing concrete into the
// existential. One record per required protocol, in the existential's
// declared order.
func (r *Registry) TableFor(concrete, existential types.TypeID) ([]Record, error) {
	protos, err := r.Protocols(existential)
	if err != nil {
		return nil, err
	}
	table := make([]Record, 0, len(protos))
	for _, p := range protos {
		rec, ok := r.Lookup(concrete, p)
		if !ok {
			return nil, fmt.Errorf("conformance: %s does not conform to %s",
				r.in.String(concrete), r.in.String(p))
		}
		table = append(table, rec)
	}
	return table, nil
}

// Open produces a fresh archetype bound to the existential's protocol set,
// used as the local handle for an opened existential payload.
func (r *Registry) Open(existential types.TypeID) (types.TypeID, error) {
	if _, ok := r.in.ExistentialInfo(existential); !ok {
		return types.NoTypeID, fmt.Errorf("conformance: cannot open non-existential %s",
			r.in.String(existential))
	}
	return r.in.RegisterArchetype(types.ArchetypeInfo{
		Name:   fmt.Sprintf("@opened %s", r.in.String(existential)),
		Opened: existential,
	}), nil
}
