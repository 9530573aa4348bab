package reabstract

// Direction selects which side of a conversion is the abstract one.
type Direction uint8

const (
	// Raise converts a value from the original, maximally abstract
	// representation to the substituted, concrete one.
	Raise Direction = iota
	// Lower converts a value from the substituted representation back to
	// the original one.
	Lower
)

// Inverse flips the direction. Parameter positions of a function
// conversion are contravariant and translate in the inverse direction.
func (d Direction) Inverse() Direction {
	if d == Raise {
		return Lower
	}
	return Raise
}

func (d Direction) String() string {
	if d == Raise {
		return "raise"
	}
	return "lower"
}
