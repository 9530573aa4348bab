package ir

import (
	"fmt"
	"slices"

	"prism/internal/lowering"
	"prism/internal/types"
)

// RKind tags runtime values.
type RKind uint8

const (
	RUnit RKind = iota
	RInt
	RBool
	RFloat
	RString
	RTuple
	ROpt
	RAddr
	RClosure
	RMeta
	RBox
	RObj
)

// HostFn is a callable supplied by the embedder, used as a call target
// for closures that have no synthesized body.
type HostFn func(args []RVal) (RVal, error)

// RVal is a runtime value. Kind selects which fields are meaningful.
type RVal struct {
	Kind RKind

	Int   int64
	Bool  bool
	Float float64
	Str   string

	Elems []RVal

	Some    bool
	Payload *RVal

	Cell *Cell

	Fn    *Func
	Host  HostFn
	Bound []RVal

	Meta types.TypeID

	Concrete types.TypeID

	Obj *Object
}

// Object is a class instance with a method table for dynamic dispatch.
type Object struct {
	Class   types.TypeID
	Fields  RVal
	Methods map[string]RVal
}

// Cell is a memory cell. A cell may be a view into an element of a
// parent cell's tuple or optional payload.
type Cell struct {
	val    RVal
	live   bool
	parent *Cell
	index  int
	opt    bool
}

// Get reads the cell's current value.
func (c *Cell) Get() RVal {
	if c.parent == nil {
		return c.val
	}
	p := c.parent.Get()
	if c.opt {
		if p.Kind == ROpt && p.Payload != nil {
			return *p.Payload
		}
		return RVal{}
	}
	if p.Kind == RTuple && c.index < len(p.Elems) {
		return p.Elems[c.index]
	}
	return RVal{}
}

// Set writes v into the cell, growing a staged parent aggregate as
// needed.
func (c *Cell) Set(v RVal) {
	if c.parent == nil {
		c.val = v
		c.live = true
		return
	}
	p := c.parent.Get()
	if c.opt {
		if p.Kind != ROpt {
			p = RVal{Kind: ROpt}
		}
		pv := v
		p.Payload = &pv
		c.parent.Set(p)
		return
	}
	if p.Kind != RTuple {
		p = RVal{Kind: RTuple}
	}
	for len(p.Elems) <= c.index {
		p.Elems = append(p.Elems, RVal{})
	}
	p.Elems[c.index] = v
	c.parent.Set(p)
	return
}

// Live reports whether the cell holds an initialized value.
func (c *Cell) Live() bool {
	if c.parent != nil {
		return c.parent.Live()
	}
	return c.live
}

// Constructors used by tests and host callables.

func IntVal(v int64) RVal     { return RVal{Kind: RInt, Int: v} }
func BoolVal(v bool) RVal     { return RVal{Kind: RBool, Bool: v} }
func FloatVal(v float64) RVal { return RVal{Kind: RFloat, Float: v} }
func StrVal(v string) RVal    { return RVal{Kind: RString, Str: v} }
func UnitVal() RVal           { return RVal{Kind: RUnit} }

func TupleVal(elems ...RVal) RVal {
	return RVal{Kind: RTuple, Elems: elems}
}

func SomeVal(payload RVal) RVal {
	return RVal{Kind: ROpt, Some: true, Payload: &payload}
}

func NoneVal() RVal {
	return RVal{Kind: ROpt, Some: false}
}

func HostClosure(fn HostFn) RVal {
	return RVal{Kind: RClosure, Host: fn}
}

// AddrVal allocates a fresh cell holding v and returns its address.
func AddrVal(v RVal) RVal {
	return RVal{Kind: RAddr, Cell: &Cell{val: v, live: true}}
}

// Interp executes synthesized functions. It also counts ownership
// operations so tests can check conservation.
type Interp struct {
	Oracle   *lowering.Oracle
	Retains  int
	Releases int
	Destroys int
}

// NewInterp constructs an interpreter over o.
func NewInterp(o *lowering.Oracle) *Interp {
	return &Interp{Oracle: o}
}

// Call runs f with args. For signatures with an indirect result the
// caller may pass the result address as the leading argument; otherwise
// a buffer is allocated and its final contents returned.
func (in *Interp) Call(f *Func, args []RVal) (RVal, error) {
	env := make(map[ValueID]RVal, len(f.Params)+len(f.Instrs))
	rest := args
	var out *Cell
	if !f.IndirectResult.IsNull() {
		if len(rest) == len(f.Params)+1 {
			if rest[0].Kind != RAddr {
				return RVal{}, fmt.Errorf("interp: %s: result argument is not an address", f.Name)
			}
			env[f.IndirectResult.ID] = rest[0]
			rest = rest[1:]
		} else {
			out = &Cell{}
			env[f.IndirectResult.ID] = RVal{Kind: RAddr, Cell: out}
		}
	}
	if len(rest) != len(f.Params) {
		return RVal{}, fmt.Errorf("interp: %s: want %d arguments, got %d", f.Name, len(f.Params), len(rest))
	}
	for i, p := range f.Params {
		env[p.ID] = rest[i]
	}
	ret, err := in.run(f, env)
	if err != nil {
		return RVal{}, err
	}
	if out != nil {
		return out.Get(), nil
	}
	return ret, nil
}

func (in *Interp) run(f *Func, env map[ValueID]RVal) (RVal, error) {
	get := func(v Value) RVal {
		if v.IsNull() {
			return RVal{}
		}
		return env[v.ID]
	}
	cell := func(v Value) (*Cell, error) {
		r := get(v)
		if r.Kind != RAddr || r.Cell == nil {
			return nil, fmt.Errorf("interp: %s: v%d is not an address", f.Name, v.ID)
		}
		return r.Cell, nil
	}

	for i := range f.Instrs {
		ins := &f.Instrs[i]
		switch ins.Kind {
		case InstrConst:
			switch ins.Const {
			case ConstInt:
				env[ins.Dst.ID] = IntVal(ins.IntVal)
			case ConstBool:
				env[ins.Dst.ID] = BoolVal(ins.BoolVal)
			case ConstFloat:
				env[ins.Dst.ID] = FloatVal(ins.FloatVal)
			case ConstString:
				env[ins.Dst.ID] = StrVal(ins.StringVal)
			}

		case InstrAllocTemp:
			env[ins.Dst.ID] = RVal{Kind: RAddr, Cell: &Cell{}}

		case InstrLoad:
			c, err := cell(ins.Src)
			if err != nil {
				return RVal{}, err
			}
			env[ins.Dst.ID] = c.Get()
			if ins.Take {
				c.Set(RVal{})
				c.live = false
			}

		case InstrStore:
			c, err := cell(ins.Dst)
			if err != nil {
				return RVal{}, err
			}
			c.Set(get(ins.Src))

		case InstrCopyAddr:
			src, err := cell(ins.Src)
			if err != nil {
				return RVal{}, err
			}
			dst, err := cell(ins.Dst)
			if err != nil {
				return RVal{}, err
			}
			dst.Set(src.Get())
			if ins.Take {
				src.live = false
			}

		case InstrTupleMake:
			elems := make([]RVal, len(ins.Args))
			for j, a := range ins.Args {
				elems[j] = get(a)
			}
			env[ins.Dst.ID] = RVal{Kind: RTuple, Elems: elems}

		case InstrTupleExtract:
			t := get(ins.Src)
			if t.Kind != RTuple || ins.Index >= len(t.Elems) {
				return RVal{}, fmt.Errorf("interp: %s: tuple_extract %d out of range", f.Name, ins.Index)
			}
			env[ins.Dst.ID] = t.Elems[ins.Index]

		case InstrTupleElemAddr:
			c, err := cell(ins.Src)
			if err != nil {
				return RVal{}, err
			}
			env[ins.Dst.ID] = RVal{Kind: RAddr, Cell: &Cell{parent: c, index: ins.Index}}

		case InstrEnumInject:
			v := RVal{Kind: ROpt, Some: ins.Some}
			if ins.HasPayload {
				p := get(ins.Src)
				v.Payload = &p
			}
			env[ins.Dst.ID] = v

		case InstrEnumInjectAddr:
			c, err := cell(ins.Dst)
			if err != nil {
				return RVal{}, err
			}
			cur := c.Get()
			if !ins.Some {
				c.Set(RVal{Kind: ROpt})
				break
			}
			if cur.Kind != ROpt {
				p := cur
				cur = RVal{Kind: ROpt, Payload: &p}
			}
			cur.Some = true
			c.Set(cur)

		case InstrEnumDataAddr:
			c, err := cell(ins.Src)
			if err != nil {
				return RVal{}, err
			}
			env[ins.Dst.ID] = RVal{Kind: RAddr, Cell: &Cell{parent: c, opt: true}}

		case InstrForceUnwrap:
			v := get(ins.Src)
			if v.Kind == RAddr {
				v = v.Cell.Get()
			}
			if v.Kind != ROpt || !v.Some || v.Payload == nil {
				return RVal{}, fmt.Errorf("interp: %s: force-unwrapped none", f.Name)
			}
			p := *v.Payload
			if in.Oracle.TypeOf(ins.Dst.Type).Addr && p.Kind != RAddr {
				p = AddrVal(p)
			}
			env[ins.Dst.ID] = p

		case InstrOptMap:
			v := get(ins.Src)
			if v.Kind == RAddr {
				v = v.Cell.Get()
			}
			if v.Kind != ROpt {
				return RVal{}, fmt.Errorf("interp: %s: opt_map over non-optional", f.Name)
			}
			dstAddr := in.Oracle.TypeOf(ins.Dst.Type).Addr
			var res RVal
			if !v.Some {
				res = NoneVal()
			} else {
				arg := *v.Payload
				if len(ins.Fn.Params) != 1 {
					return RVal{}, fmt.Errorf("interp: %s: opt_map body wants %d parameters", f.Name, len(ins.Fn.Params))
				}
				if in.Oracle.TypeOf(ins.Fn.Params[0].Type).Addr {
					if arg.Kind != RAddr {
						arg = AddrVal(arg)
					}
				} else if arg.Kind == RAddr {
					arg = arg.Cell.Get()
				}
				r, err := in.Call(ins.Fn, []RVal{arg})
				if err != nil {
					return RVal{}, err
				}
				res = SomeVal(r)
			}
			if dstAddr {
				res = AddrVal(res)
			}
			env[ins.Dst.ID] = res

		case InstrUpcast, InstrRefCast, InstrBitCast, InstrConvertFn, InstrThinToThick, InstrMetaToObject:
			v := get(ins.Src)
			if in.Oracle.TypeOf(ins.Dst.Type).Addr {
				if v.Kind != RAddr {
					v = AddrVal(v)
				}
			} else if v.Kind == RAddr {
				v = v.Cell.Get()
			}
			env[ins.Dst.ID] = v

		case InstrMetatype:
			sem := in.Oracle.TypeOf(ins.Dst.Type).Sem
			instance, ok := in.Oracle.Types().MetatypeInstance(sem)
			if !ok {
				return RVal{}, fmt.Errorf("interp: %s: metatype of non-metatype", f.Name)
			}
			env[ins.Dst.ID] = RVal{Kind: RMeta, Meta: instance}

		case InstrOpenExistential:
			v := get(ins.Src)
			if v.Kind == RAddr {
				v = v.Cell.Get()
			}
			if v.Kind != RBox || v.Payload == nil {
				return RVal{}, fmt.Errorf("interp: %s: open of non-existential", f.Name)
			}
			env[ins.Dst.ID] = RVal{Kind: RAddr, Cell: &Cell{val: *v.Payload, live: true}}

		case InstrInitExistential:
			dst, err := cell(ins.Dst)
			if err != nil {
				return RVal{}, err
			}
			p := get(ins.Src)
			if p.Kind == RAddr {
				c := p.Cell
				p = c.Get()
				c.live = false
			}
			dst.Set(RVal{Kind: RBox, Concrete: ins.Concrete, Payload: &p})

		case InstrRetain:
			in.Retains++

		case InstrRelease:
			in.Releases++

		case InstrDestroyAddr:
			c, err := cell(ins.Src)
			if err != nil {
				return RVal{}, err
			}
			c.live = false
			in.Destroys++

		case InstrFuncRef:
			env[ins.Dst.ID] = RVal{Kind: RClosure, Fn: ins.Fn}

		case InstrClassMethod:
			recv := get(ins.Src)
			if recv.Kind == RAddr {
				recv = recv.Cell.Get()
			}
			if recv.Kind != RObj || recv.Obj == nil {
				return RVal{}, fmt.Errorf("interp: %s: method lookup on non-object", f.Name)
			}
			m, ok := recv.Obj.Methods[ins.Method]
			if !ok {
				return RVal{}, fmt.Errorf("interp: %s: no method %q", f.Name, ins.Method)
			}
			env[ins.Dst.ID] = m

		case InstrPartialApply:
			fn := get(ins.Src)
			if fn.Kind != RClosure {
				return RVal{}, fmt.Errorf("interp: %s: partial_apply of non-function", f.Name)
			}
			bound := make([]RVal, 0, len(ins.Args)+len(fn.Bound))
			for _, a := range ins.Args {
				bound = append(bound, get(a))
			}
			bound = append(bound, fn.Bound...)
			env[ins.Dst.ID] = RVal{Kind: RClosure, Fn: fn.Fn, Host: fn.Host, Bound: bound}

		case InstrApply:
			callee := get(ins.Callee)
			if callee.Kind != RClosure {
				return RVal{}, fmt.Errorf("interp: %s: apply of non-function", f.Name)
			}
			args := make([]RVal, 0, len(ins.Args)+len(callee.Bound))
			for _, a := range ins.Args {
				args = append(args, get(a))
			}
			args = append(args, slices.Clone(callee.Bound)...)
			var r RVal
			var err error
			if callee.Host != nil {
				r, err = callee.Host(args)
			} else if callee.Fn != nil {
				r, err = in.Call(callee.Fn, args)
			} else {
				err = fmt.Errorf("interp: %s: closure has no body", f.Name)
			}
			if err != nil {
				return RVal{}, err
			}
			env[ins.Dst.ID] = r

		case InstrReturn:
			return get(ins.Src), nil

		default:
			return RVal{}, fmt.Errorf("interp: %s: unhandled instruction", f.Name)
		}
	}
	return RVal{}, nil
}
