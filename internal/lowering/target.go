package lowering

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Target describes the ABI target and the policy knobs the lowering oracle
// consults when deciding between direct and address-based representations.
type Target struct {
	Triple   string `toml:"triple"`
	PtrSize  int    `toml:"ptr_size"`
	PtrAlign int    `toml:"ptr_align"`

	// MaxDirectWords is the largest aggregate, in pointer-sized words,
	// still passed and stored directly under a concrete abstraction.
	MaxDirectWords int `toml:"max_direct_words"`
}

// X86_64LinuxGNU is the default target.
func X86_64LinuxGNU() Target {
	return Target{
		Triple:         "x86_64-linux-gnu",
		PtrSize:        8,
		PtrAlign:       8,
		MaxDirectWords: 4,
	}
}

// LoadTarget reads a target description from a TOML file. Missing knobs
// fall back to the default target's values.
func LoadTarget(path string) (Target, error) {
	t := X86_64LinuxGNU()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("target config: %w", err)
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("target config %s: %w", path, err)
	}
	if t.PtrSize <= 0 || t.MaxDirectWords <= 0 {
		return t, fmt.Errorf("target config %s: non-positive sizes", path)
	}
	return t, nil
}
