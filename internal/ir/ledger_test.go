package ir_test

import (
	"strings"
	"testing"

	"prism/internal/ir"
)

func TestLedgerConservation(t *testing.T) {
	l := ir.NewLedger()
	a := l.Enter("a")
	b := l.Enter("b")
	c := l.Enter("c")

	l.Forward(a)
	l.Destroy(b)
	l.Forward(c)

	entered, forwarded, destroyed := l.Counts()
	if entered != 3 || forwarded != 2 || destroyed != 1 {
		t.Fatalf("counts = %d/%d/%d", entered, forwarded, destroyed)
	}
	if forwarded+destroyed != entered {
		t.Fatalf("obligations not conserved")
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("Verify after full resolution: %v", err)
	}
}

func TestLedgerVerifyReportsLeaks(t *testing.T) {
	l := ir.NewLedger()
	l.Enter("temp buffer")
	kept := l.Enter("kept")
	l.Forward(kept)

	err := l.Verify()
	if err == nil || !strings.Contains(err.Error(), "temp buffer") {
		t.Fatalf("leak not reported: %v", err)
	}
}

func TestLedgerDoubleResolvePanics(t *testing.T) {
	l := ir.NewLedger()
	id := l.Enter("x")
	l.Forward(id)

	defer func() {
		if recover() == nil {
			t.Fatalf("resolving a forwarded obligation must panic")
		}
	}()
	l.Destroy(id)
}

func TestNoCleanupIsInert(t *testing.T) {
	l := ir.NewLedger()
	l.Forward(ir.NoCleanup)
	l.Destroy(ir.NoCleanup)
	if entered, _, _ := l.Counts(); entered != 0 {
		t.Fatalf("NoCleanup entered the ledger")
	}
	m := ir.Unmanaged(ir.Value{})
	if m.HasCleanup() {
		t.Fatalf("unmanaged value claims an obligation")
	}
}
