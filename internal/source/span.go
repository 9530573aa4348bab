package source

import "fmt"

// FileID identifies a file registered with the driver. The reabstraction
// core never opens files itself; it only threads spans through to
// diagnostics.
type FileID uint16

// NoFile marks spans that have no originating file, e.g. synthesized thunks.
const NoFile FileID = 0

// Span is a half-open byte range [Start, End) inside a file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Generated returns the span used for compiler-synthesized code.
func Generated() Span {
	return Span{File: NoFile}
}
