package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/abspat"
	"prism/internal/conformance"
	"prism/internal/diag"
	"prism/internal/ir"
	"prism/internal/lowering"
	"prism/internal/reabstract"
	"prism/internal/types"
)

var thunkCmd = &cobra.Command{
	Use:   "thunk <fn-type>",
	Short: "Synthesize the thunk bridging a function's opaque and concrete shapes",
	Long: `Build a call site that converts a function value from its fully opaque
representation to its concrete one, then print the site and every thunk
the conversion required. An ABI-compatible pair prints the site alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runThunk,
}

func runThunk(cmd *cobra.Command, args []string) error {
	in := types.NewInterner()
	sem, err := parseTypeExpr(in, args[0])
	if err != nil {
		return fmt.Errorf("parse %q: %w", args[0], err)
	}
	if in.Kind(sem) != types.KindFn {
		return fmt.Errorf("%s is not a function type", in.String(sem))
	}

	target, err := targetFromFlags(cmd)
	if err != nil {
		return err
	}
	o := lowering.NewOracle(in, target)
	conf := conformance.NewRegistry(in)
	cache := reabstract.NewCache()
	bag := diag.NewBag(32)

	src := o.LowerOpaque(sem)
	dst := o.Lower(abspat.FromType(in, sem), sem)
	site := ir.NewFunc("reabstract_site", &lowering.Signature{
		Rep:    lowering.FnThin,
		Params: []lowering.Param{{Type: src, Conv: lowering.ConvDirectOwned}},
		Result: lowering.Result{Type: dst, Conv: lowering.ResultOwned},
	}, o)

	b := ir.NewBuilder(site, o, ir.NewLedger())
	e := reabstract.NewEngine(reabstract.Raise, b, conf, diag.BagReporter{Bag: bag}, cache)

	res, err := e.ReabstractFunctionValue(b.ManagedOwned(site.Params[0]), abspat.Opaque(), sem, sem)
	if err != nil {
		bag.Sort()
		diag.Print(cmd.ErrOrStderr(), bag, isTerminal(os.Stderr))
		return err
	}
	b.Return(res.Forward(b.Ledger))
	if err := b.Ledger.Verify(); err != nil {
		return errors.Join(errors.New("ownership leak in synthesized site"), err)
	}

	out := cmd.OutOrStdout()
	if err := ir.DumpFunc(out, site, o); err != nil {
		return err
	}
	thunks := cache.Funcs()
	if len(thunks) == 0 {
		fmt.Fprintln(out, "\nno thunk required, representations already agree")
		return nil
	}
	for _, fn := range thunks {
		fmt.Fprintln(out)
		if err := ir.DumpFunc(out, fn, o); err != nil {
			return err
		}
	}
	return nil
}
