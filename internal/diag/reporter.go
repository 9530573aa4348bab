package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"prism/internal/source"
)

// Reporter is the minimal contract phases use to hand over diagnostics.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// BagReporter stores reported diagnostics into a Bag.
type BagReporter struct {
	Bag *Bag
}

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
		Primary:  primary,
		Notes:    notes,
	})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
	noteColor = color.New(color.Faint)
)

// Print writes the bag's diagnostics to w in a stable, human-readable form.
func Print(w io.Writer, b *Bag, colorize bool) {
	if b == nil {
		return
	}
	b.Sort()
	for _, d := range b.Items() {
		label := d.Severity.String()
		if colorize {
			switch d.Severity {
			case SevError:
				label = errColor.Sprint(label)
			case SevWarning:
				label = warnColor.Sprint(label)
			default:
				label = infoColor.Sprint(label)
			}
		}
		fmt.Fprintf(w, "%s %s: %s\n", label, d.Code, d.Message)
		for _, n := range d.Notes {
			prefix := "note"
			if colorize {
				prefix = noteColor.Sprint(prefix)
			}
			fmt.Fprintf(w, "  %s: %s\n", prefix, n.Msg)
		}
	}
}
