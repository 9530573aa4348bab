package conformance_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"prism/internal/conformance"
	"prism/internal/types"
)

func TestTableForFollowsDeclaredOrder(t *testing.T) {
	in := types.NewInterner()
	show := in.RegisterProtocol("Show")
	hash := in.RegisterProtocol("Hash")
	comp := in.RegisterProtocol("Comparable")
	box := in.RegisterClass(types.ClassInfo{Name: "Box"})

	r := conformance.NewRegistry(in)
	// Registration order deliberately scrambled relative to the
	// existential's protocol list.
	r.Register(box, comp)
	r.Register(box, show)
	r.Register(box, hash)

	ex := in.RegisterExistential([]types.TypeID{show, hash, comp})
	table, err := r.TableFor(box, ex)
	if err != nil {
		t.Fatalf("TableFor: %v", err)
	}
	got := make([]types.TypeID, len(table))
	for i, rec := range table {
		if rec.Concrete != box {
			t.Fatalf("record %d has concrete %d", i, rec.Concrete)
		}
		got[i] = rec.Protocol
	}
	if diff := cmp.Diff([]types.TypeID{show, hash, comp}, got); diff != "" {
		t.Fatalf("table order (-want +got):\n%s", diff)
	}
}

func TestTableForMissingConformance(t *testing.T) {
	in := types.NewInterner()
	show := in.RegisterProtocol("Show")
	hash := in.RegisterProtocol("Hash")
	box := in.RegisterClass(types.ClassInfo{Name: "Box"})

	r := conformance.NewRegistry(in)
	r.Register(box, show)

	ex := in.RegisterExistential([]types.TypeID{show, hash})
	if _, err := r.TableFor(box, ex); err == nil || !strings.Contains(err.Error(), "Hash") {
		t.Fatalf("missing conformance not reported, err = %v", err)
	}
}

func TestOpenedArchetypeConforms(t *testing.T) {
	in := types.NewInterner()
	show := in.RegisterProtocol("Show")
	ex := in.RegisterExistential([]types.TypeID{show})

	r := conformance.NewRegistry(in)
	opened, err := r.Open(ex)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if in.Kind(opened) != types.KindArchetype {
		t.Fatalf("Open produced a %v", in.Kind(opened))
	}
	if _, ok := r.Lookup(opened, show); !ok {
		t.Fatalf("opened archetype must conform to the existential's protocols")
	}

	again, _ := r.Open(ex)
	if again == opened {
		t.Fatalf("each opening must mint a fresh archetype")
	}

	if _, err := r.Open(in.Builtins().Int); err == nil {
		t.Fatalf("opening a non-existential must fail")
	}
}

func TestTableForRebuildsFreshTables(t *testing.T) {
	in := types.NewInterner()
	show := in.RegisterProtocol("Show")
	box := in.RegisterClass(types.ClassInfo{Name: "Box"})
	ex := in.RegisterExistential([]types.TypeID{show})

	r := conformance.NewRegistry(in)
	r.Register(box, show)

	t1, err := r.TableFor(box, ex)
	if err != nil {
		t.Fatalf("TableFor: %v", err)
	}
	t2, _ := r.TableFor(box, ex)
	t1[0].Protocol = types.NoTypeID
	if t2[0].Protocol != show {
		t.Fatalf("tables share backing storage")
	}
}
