package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"prism/internal/abspat"
	"prism/internal/lowering"
	"prism/internal/types"
)

var lowerCmd = &cobra.Command{
	Use:   "lower <type>",
	Short: "Show the lowered representations of a type expression",
	Long: `Lower a type expression twice, once against its own concrete shape and
once against the fully opaque shape, and report how far the two ABIs diverge.`,
	Args: cobra.ExactArgs(1),
	RunE: runLower,
}

func runLower(cmd *cobra.Command, args []string) error {
	in := types.NewInterner()
	sem, err := parseTypeExpr(in, args[0])
	if err != nil {
		return fmt.Errorf("parse %q: %w", args[0], err)
	}

	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	o := lowering.NewOracle(in, target)

	concrete := o.Lower(abspat.FromType(in, sem), sem)
	opaque := o.LowerOpaque(sem)

	label := labelPrinter(cmd)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", label("type:"), in.String(sem))
	fmt.Fprintf(out, "%s %s\n", label("concrete:"), o.String(concrete))
	fmt.Fprintf(out, "%s %s\n", label("opaque:"), o.String(opaque))
	fmt.Fprintf(out, "%s %s\n", label("abi:"), o.ABIDifference(opaque, concrete))
	return nil
}

// targetFromFlags resolves the persistent --target flag, defaulting to the
// host-ish x86-64 Linux description.
func targetFromFlags(cmd *cobra.Command) (lowering.Target, error) {
	path, err := cmd.Flags().GetString("target")
	if err != nil {
		return lowering.Target{}, err
	}
	if path == "" {
		return lowering.X86_64LinuxGNU(), nil
	}
	t, err := lowering.LoadTarget(path)
	if err != nil {
		return lowering.Target{}, fmt.Errorf("load target %s: %w", path, err)
	}
	return t, nil
}

// labelPrinter colors field labels when the user and the terminal allow it.
func labelPrinter(cmd *cobra.Command) func(string) string {
	mode, _ := cmd.Flags().GetString("color")
	enabled := false
	switch mode {
	case "on", "always":
		enabled = true
	case "off", "never":
	default:
		enabled = isTerminal(os.Stdout)
	}
	if !enabled {
		return func(s string) string { return s }
	}
	c := color.New(color.FgCyan, color.Bold)
	return func(s string) string { return c.Sprint(s) }
}
