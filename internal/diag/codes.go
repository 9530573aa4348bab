package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Lowering oracle.
	LowInfo          Code = 1000
	LowBadTarget     Code = 1001
	LowUnsizedType   Code = 1002
	LowBadConfigFile Code = 1003

	// Reabstraction engine and thunk synthesis.
	ReabInfo                Code = 3000
	ReabNotImplemented      Code = 3001
	ReabInoutWriteback      Code = 3002
	ReabInnerPointerResult  Code = 3003
	ReabMissingConformance  Code = 3004
	ReabUnsupportedWitness  Code = 3005
	ReabThunkContextMissing Code = 3006
)

func (c Code) String() string {
	switch {
	case c >= 3000 && c < 4000:
		return fmt.Sprintf("REAB%04d", uint16(c))
	case c >= 1000 && c < 2000:
		return fmt.Sprintf("LOW%04d", uint16(c))
	default:
		return fmt.Sprintf("DIAG%04d", uint16(c))
	}
}
