// Package ir is the value-construction service the reabstraction core
// emits into: straight-line functions over lowered-typed values, with an
// explicit ownership ledger replacing scope-based cleanups. It is not a
// full IR; it carries exactly the instructions representation conversion
// needs.
package ir

import (
	"prism/internal/lowering"
)

// ValueID numbers values inside one function.
type ValueID uint32

// NoValueID marks the absence of a value.
const NoValueID ValueID = 0

// Value is an SSA-like value. Its lowered type fully describes the
// physical representation, including whether the value is an address.
type Value struct {
	ID   ValueID
	Type lowering.ID
}

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool {
	return v.ID == NoValueID
}

// ConstKind tags literal constants.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstBool
	ConstFloat
	ConstString
)
