package ir

import (
	"fmt"
	"io"
	"strings"

	"prism/internal/lowering"
)

// DumpFunc writes a human-readable representation of f.
func DumpFunc(w io.Writer, f *Func, o *lowering.Oracle) error {
	if w == nil || f == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "fn %s: %s\n", f.Name, sigStr(o, f.Sig)); err != nil {
		return err
	}
	if !f.IndirectResult.IsNull() {
		fmt.Fprintf(w, "  out v%d: %s\n", f.IndirectResult.ID, o.String(f.IndirectResult.Type))
	}
	for _, p := range f.Params {
		fmt.Fprintf(w, "  param v%d: %s\n", p.ID, o.String(p.Type))
	}
	for i := range f.Instrs {
		fmt.Fprintf(w, "  %s\n", formatInstr(o, &f.Instrs[i]))
	}
	return nil
}

func sigStr(o *lowering.Oracle, sig *lowering.Signature) string {
	if sig == nil {
		return "<sig?>"
	}
	var sb strings.Builder
	if sig.Rep == lowering.FnThin {
		sb.WriteString("thin ")
	} else {
		sb.WriteString("thick ")
	}
	sb.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Conv.String())
		sb.WriteByte(' ')
		sb.WriteString(o.String(p.Type))
	}
	sb.WriteString(") -> ")
	sb.WriteString(sig.Result.Conv.String())
	sb.WriteByte(' ')
	sb.WriteString(o.String(sig.Result.Type))
	return sb.String()
}

func val(v Value) string {
	if v.IsNull() {
		return "_"
	}
	return fmt.Sprintf("v%d", v.ID)
}

func vals(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = val(v)
	}
	return strings.Join(parts, ", ")
}

func formatInstr(o *lowering.Oracle, ins *Instr) string {
	switch ins.Kind {
	case InstrConst:
		return fmt.Sprintf("%s = const %s", val(ins.Dst), formatConst(ins))
	case InstrAllocTemp:
		return fmt.Sprintf("%s = alloc_temp %s", val(ins.Dst), o.String(ins.Dst.Type))
	case InstrLoad:
		if ins.Take {
			return fmt.Sprintf("%s = load [take] %s", val(ins.Dst), val(ins.Src))
		}
		return fmt.Sprintf("%s = load %s", val(ins.Dst), val(ins.Src))
	case InstrStore:
		return fmt.Sprintf("store %s to %s%s", val(ins.Src), val(ins.Dst), initSuffix(ins.Init))
	case InstrCopyAddr:
		mode := ""
		if ins.Take {
			mode = " [take]"
		}
		return fmt.Sprintf("copy_addr%s %s to %s%s", mode, val(ins.Src), val(ins.Dst), initSuffix(ins.Init))
	case InstrTupleMake:
		return fmt.Sprintf("%s = tuple (%s)", val(ins.Dst), vals(ins.Args))
	case InstrTupleExtract:
		return fmt.Sprintf("%s = tuple_extract %s, %d", val(ins.Dst), val(ins.Src), ins.Index)
	case InstrTupleElemAddr:
		return fmt.Sprintf("%s = tuple_elem_addr %s, %d", val(ins.Dst), val(ins.Src), ins.Index)
	case InstrEnumInject:
		tag := "none"
		if ins.Some {
			tag = "some"
		}
		if ins.HasPayload {
			return fmt.Sprintf("%s = enum_inject %s, %s", val(ins.Dst), tag, val(ins.Src))
		}
		return fmt.Sprintf("%s = enum_inject %s", val(ins.Dst), tag)
	case InstrEnumInjectAddr:
		tag := "none"
		if ins.Some {
			tag = "some"
		}
		return fmt.Sprintf("enum_inject_addr %s, %s", val(ins.Dst), tag)
	case InstrEnumDataAddr:
		return fmt.Sprintf("%s = enum_data_addr %s", val(ins.Dst), val(ins.Src))
	case InstrForceUnwrap:
		return fmt.Sprintf("%s = force_unwrap %s", val(ins.Dst), val(ins.Src))
	case InstrOptMap:
		return fmt.Sprintf("%s = opt_map %s, %s", val(ins.Dst), val(ins.Src), ins.Fn.Name)
	case InstrUpcast:
		return fmt.Sprintf("%s = upcast %s to %s", val(ins.Dst), val(ins.Src), o.String(ins.Dst.Type))
	case InstrRefCast:
		return fmt.Sprintf("%s = ref_cast %s to %s", val(ins.Dst), val(ins.Src), o.String(ins.Dst.Type))
	case InstrBitCast:
		return fmt.Sprintf("%s = bit_cast %s to %s", val(ins.Dst), val(ins.Src), o.String(ins.Dst.Type))
	case InstrConvertFn:
		return fmt.Sprintf("%s = convert_fn %s to %s", val(ins.Dst), val(ins.Src), o.String(ins.Dst.Type))
	case InstrThinToThick:
		return fmt.Sprintf("%s = thin_to_thick %s", val(ins.Dst), val(ins.Src))
	case InstrMetatype:
		return fmt.Sprintf("%s = metatype %s", val(ins.Dst), o.String(ins.Dst.Type))
	case InstrMetaToObject:
		return fmt.Sprintf("%s = meta_to_object %s", val(ins.Dst), val(ins.Src))
	case InstrOpenExistential:
		return fmt.Sprintf("%s = open_existential %s", val(ins.Dst), val(ins.Src))
	case InstrInitExistential:
		return fmt.Sprintf("init_existential %s from %s", val(ins.Dst), val(ins.Src))
	case InstrRetain:
		return fmt.Sprintf("retain %s", val(ins.Src))
	case InstrRelease:
		return fmt.Sprintf("release %s", val(ins.Src))
	case InstrDestroyAddr:
		return fmt.Sprintf("destroy_addr %s", val(ins.Src))
	case InstrFuncRef:
		return fmt.Sprintf("%s = func_ref %s", val(ins.Dst), ins.Fn.Name)
	case InstrClassMethod:
		return fmt.Sprintf("%s = class_method %s, %q", val(ins.Dst), val(ins.Src), ins.Method)
	case InstrPartialApply:
		return fmt.Sprintf("%s = partial_apply %s(%s)", val(ins.Dst), val(ins.Src), vals(ins.Args))
	case InstrApply:
		return fmt.Sprintf("%s = apply %s(%s)", val(ins.Dst), val(ins.Callee), vals(ins.Args))
	case InstrReturn:
		return fmt.Sprintf("return %s", val(ins.Src))
	default:
		return "<instr?>"
	}
}

func formatConst(ins *Instr) string {
	switch ins.Const {
	case ConstInt:
		return fmt.Sprintf("%d", ins.IntVal)
	case ConstBool:
		return fmt.Sprintf("%t", ins.BoolVal)
	case ConstFloat:
		return fmt.Sprintf("%g", ins.FloatVal)
	case ConstString:
		return fmt.Sprintf("%q", ins.StringVal)
	default:
		return "<const?>"
	}
}

func initSuffix(init bool) string {
	if init {
		return " [init]"
	}
	return ""
}
