package ir

// Managed is a value in flight plus its optional ownership obligation.
// A managed value with no cleanup is a borrowed view.
type Managed struct {
	Val     Value
	Cleanup CleanupID
}

// Unmanaged wraps a value the holder does not own.
func Unmanaged(v Value) Managed {
	return Managed{Val: v}
}

// Owned wraps a value together with its obligation.
func Owned(v Value, c CleanupID) Managed {
	return Managed{Val: v, Cleanup: c}
}

// IsNull reports whether the managed value is absent.
func (m Managed) IsNull() bool {
	return m.Val.IsNull()
}

// HasCleanup reports whether the holder owns the value.
func (m Managed) HasCleanup() bool {
	return m.Cleanup != NoCleanup
}

// Forward transfers ownership to the caller, disarming the cleanup, and
// returns the raw value.
func (m Managed) Forward(l *Ledger) Value {
	l.Forward(m.Cleanup)
	return m.Val
}

// ForwardCleanup disarms the cleanup without touching the value.
func (m Managed) ForwardCleanup(l *Ledger) {
	l.Forward(m.Cleanup)
}
