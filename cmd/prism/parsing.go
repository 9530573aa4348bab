package main

import (
	"fmt"
	"strings"

	"prism/internal/types"
)

// typeParser reads the small surface syntax the CLI accepts:
//
//	int, uint, float, bool, string, unit   builtins
//	(A, B, C)                              tuples
//	A -> B                                 functions, right associative
//	A?  A!                                 optional tiers
//	A.Type                                 metatypes
//	&A  &mut A                             references
//	any P, any P & Q                       existentials
//
// Any other identifier registers a class; identifiers after "any" register
// protocols. Repeated names resolve to the same registration.
type typeParser struct {
	in     *types.Interner
	src    string
	pos    int
	names  map[string]types.TypeID
	protos map[string]types.TypeID
}

func parseTypeExpr(in *types.Interner, src string) (types.TypeID, error) {
	p := &typeParser{
		in:     in,
		src:    src,
		names:  make(map[string]types.TypeID),
		protos: make(map[string]types.TypeID),
	}
	id, err := p.typeExpr()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return types.NoTypeID, fmt.Errorf("trailing input at offset %d: %q", p.pos, p.src[p.pos:])
	}
	return id, nil
}

func (p *typeParser) typeExpr() (types.TypeID, error) {
	left, err := p.refType()
	if err != nil {
		return types.NoTypeID, err
	}
	if p.eat("->") {
		right, err := p.typeExpr()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.in.RegisterFn(left, right), nil
	}
	return left, nil
}

func (p *typeParser) refType() (types.TypeID, error) {
	if p.eat("&") {
		mutable := p.eatWord("mut")
		elem, err := p.refType()
		if err != nil {
			return types.NoTypeID, err
		}
		return p.in.Intern(types.MakeReference(elem, mutable)), nil
	}
	return p.postfix()
}

func (p *typeParser) postfix() (types.TypeID, error) {
	id, err := p.primary()
	if err != nil {
		return types.NoTypeID, err
	}
	for {
		switch {
		case p.eat("?"):
			id = p.in.Intern(types.MakeOptional(id, false))
		case p.eat("!"):
			id = p.in.Intern(types.MakeOptional(id, true))
		case p.eat(".Type"):
			id = p.in.Intern(types.MakeMetatype(id))
		default:
			return id, nil
		}
	}
}

func (p *typeParser) primary() (types.TypeID, error) {
	p.skipSpace()
	if p.eat("(") {
		if p.eat(")") {
			return p.in.Builtins().Unit, nil
		}
		var elems []types.TypeID
		for {
			elem, err := p.typeExpr()
			if err != nil {
				return types.NoTypeID, err
			}
			elems = append(elems, elem)
			if p.eat(",") {
				continue
			}
			if !p.eat(")") {
				return types.NoTypeID, fmt.Errorf("expected ',' or ')' at offset %d", p.pos)
			}
			break
		}
		if len(elems) == 1 {
			return elems[0], nil
		}
		return p.in.RegisterTuple(elems), nil
	}
	if p.eatWord("any") {
		var protos []types.TypeID
		for {
			name := p.ident()
			if name == "" {
				return types.NoTypeID, fmt.Errorf("expected protocol name at offset %d", p.pos)
			}
			protos = append(protos, p.protocol(name))
			if !p.eat("&") {
				break
			}
		}
		return p.in.RegisterExistential(protos), nil
	}
	name := p.ident()
	if name == "" {
		return types.NoTypeID, fmt.Errorf("expected a type at offset %d", p.pos)
	}
	return p.named(name), nil
}

func (p *typeParser) named(name string) types.TypeID {
	b := p.in.Builtins()
	switch name {
	case "int":
		return b.Int
	case "uint":
		return b.Uint
	case "float":
		return b.Float
	case "bool":
		return b.Bool
	case "string":
		return b.String
	case "unit":
		return b.Unit
	case "AnyRef":
		return b.AnyRef
	case "ProtocolObject":
		return b.ProtocolObject
	}
	if id, ok := p.names[name]; ok {
		return id
	}
	id := p.in.RegisterClass(types.ClassInfo{Name: name})
	p.names[name] = id
	return id
}

func (p *typeParser) protocol(name string) types.TypeID {
	if id, ok := p.protos[name]; ok {
		return id
	}
	id := p.in.RegisterProtocol(name)
	p.protos[name] = id
	return id
}

// Scanning helpers.

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) eat(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

// eatWord matches tok only when it ends at a word boundary, so "mutable"
// never matches "mut".
func (p *typeParser) eatWord(tok string) bool {
	p.skipSpace()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, tok) {
		return false
	}
	if len(rest) > len(tok) && isIdentByte(rest[len(tok)]) {
		return false
	}
	p.pos += len(tok)
	return true
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
