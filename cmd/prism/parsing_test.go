package main

import (
	"strings"
	"testing"

	"prism/internal/types"
)

func TestParseTypeExpr(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"uint", "uint"},
		{"float", "float"},
		{"bool", "bool"},
		{"string", "string"},
		{"unit", "()"},
		{"()", "()"},
		{"(int)", "int"},
		{"(int, bool)", "(int, bool)"},
		{"(int,(bool,string))", "(int, (bool, string))"},
		{"int -> bool", "int -> bool"},
		{"int -> bool -> string", "int -> bool -> string"},
		{"(int -> bool) -> string", "int -> bool -> string"},
		{"(int, int) -> bool", "(int, int) -> bool"},
		{"int?", "int?"},
		{"int!", "int!"},
		{"int??", "int??"},
		{"int.Type", "int.Type"},
		{"int?.Type", "int?.Type"},
		{"&int", "&int"},
		{"&mut int", "&mut int"},
		{"&mut (int, bool)", "&mut (int, bool)"},
		{"&&int", "&&int"},
		{"any Show", "any Show"},
		{"any Show & Hash", "any Show & Hash"},
		{"Box", "Box"},
		{"Box -> Box", "Box -> Box"},
		{"AnyRef", "AnyRef"},
		{"  int  ->  bool  ", "int -> bool"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			in := types.NewInterner()
			id, err := parseTypeExpr(in, tc.src)
			if err != nil {
				t.Fatalf("parseTypeExpr(%q): %v", tc.src, err)
			}
			if got := in.String(id); got != tc.want {
				t.Fatalf("parseTypeExpr(%q) = %s, want %s", tc.src, got, tc.want)
			}
		})
	}
}

func TestParseBuiltinsResolveToSeeded(t *testing.T) {
	in := types.NewInterner()
	bt := in.Builtins()
	for _, tc := range []struct {
		src  string
		want types.TypeID
	}{
		{"int", bt.Int},
		{"unit", bt.Unit},
		{"AnyRef", bt.AnyRef},
		{"ProtocolObject", bt.ProtocolObject},
	} {
		id, err := parseTypeExpr(in, tc.src)
		if err != nil {
			t.Fatalf("parseTypeExpr(%q): %v", tc.src, err)
		}
		if id != tc.want {
			t.Fatalf("parseTypeExpr(%q) = %d, want builtin %d", tc.src, id, tc.want)
		}
	}
}

func TestParseRepeatedNamesInternOnce(t *testing.T) {
	in := types.NewInterner()
	id, err := parseTypeExpr(in, "Box -> Box")
	if err != nil {
		t.Fatalf("parseTypeExpr: %v", err)
	}
	info, ok := in.FnInfo(id)
	if !ok {
		t.Fatalf("parsed a non-function")
	}
	if info.Input != info.Result {
		t.Fatalf("repeated class name registered twice: %d vs %d", info.Input, info.Result)
	}
}

func TestParseFunctionIsRightAssociative(t *testing.T) {
	in := types.NewInterner()
	id, err := parseTypeExpr(in, "int -> bool -> string")
	if err != nil {
		t.Fatalf("parseTypeExpr: %v", err)
	}
	bt := in.Builtins()
	info, _ := in.FnInfo(id)
	if info.Input != bt.Int {
		t.Fatalf("outer input is %s", in.String(info.Input))
	}
	inner, ok := in.FnInfo(info.Result)
	if !ok || inner.Input != bt.Bool || inner.Result != bt.String {
		t.Fatalf("outer result is %s", in.String(info.Result))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src     string
		wantErr string
	}{
		{"", "expected a type"},
		{"(int", "expected ',' or ')'"},
		{"(int;", "expected ',' or ')'"},
		{"int ->", "expected a type"},
		{"any", "expected protocol name"},
		{"any Show &", "expected protocol name"},
		{"int bool", "trailing input"},
		{"&", "expected a type"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			in := types.NewInterner()
			_, err := parseTypeExpr(in, tc.src)
			if err == nil {
				t.Fatalf("parseTypeExpr(%q) succeeded", tc.src)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("parseTypeExpr(%q) = %v, want %q", tc.src, err, tc.wantErr)
			}
		})
	}
}

func TestParseMutWordBoundary(t *testing.T) {
	in := types.NewInterner()
	id, err := parseTypeExpr(in, "&mutable")
	if err != nil {
		t.Fatalf("parseTypeExpr: %v", err)
	}
	// "mutable" is an ordinary class name, not the mut marker.
	if got := in.String(id); got != "&mutable" {
		t.Fatalf("parseTypeExpr(\"&mutable\") = %s", got)
	}
}
