package types

import (
	"fmt"
	"strings"
)

// String renders a type for diagnostics and printers.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return "bool"
	case KindInt:
		return widthName("int", tt.Width)
	case KindUint:
		return widthName("uint", tt.Width)
	case KindFloat:
		return widthName("float", tt.Width)
	case KindString:
		return "string"
	case KindTuple:
		info, _ := in.TupleInfo(id)
		parts := make([]string, len(info.Elems))
		for i, e := range info.Elems {
			parts[i] = in.String(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFn:
		info, _ := in.FnInfo(id)
		return in.String(info.Input) + " -> " + in.String(info.Result)
	case KindOptional:
		if tt.Forced {
			return in.String(tt.Elem) + "!"
		}
		return in.String(tt.Elem) + "?"
	case KindMetatype:
		return in.String(tt.Elem) + ".Type"
	case KindClass:
		info, _ := in.ClassInfo(id)
		return info.Name
	case KindProtocol:
		info, _ := in.ProtocolInfo(id)
		return info.Name
	case KindExistential:
		info, _ := in.ExistentialInfo(id)
		parts := make([]string, len(info.Protocols))
		for i, p := range info.Protocols {
			parts[i] = in.String(p)
		}
		return "any " + strings.Join(parts, " & ")
	case KindArchetype:
		info, _ := in.ArchetypeInfo(id)
		return info.Name
	case KindReference:
		if tt.Mutable {
			return "&mut " + in.String(tt.Elem)
		}
		return "&" + in.String(tt.Elem)
	default:
		return fmt.Sprintf("<%s>", tt.Kind)
	}
}

func widthName(base string, w Width) string {
	if w == WidthAny {
		return base
	}
	return fmt.Sprintf("%s%d", base, w)
}
