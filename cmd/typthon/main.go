// Command typthon drives the register allocation core end-to-end over a
// small in-process demo function (a countable loop with a coalescable
// induction chain), running LCSSA construction, loop unrolling, and co2
// register allocation, and reports what each pass did.
//
// There is no front end here: spec.md and SPEC_FULL.md both treat
// parsing and instruction selection as external collaborators. This
// binary exists to exercise the core the way a real driver would, using
// pkg/ir/builder.go to construct the IR a scheduler would otherwise hand
// it.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/regcore/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/regcore/pkg/ir"
	"github.com/GriffinCanCode/regcore/pkg/logger"
	"github.com/GriffinCanCode/regcore/pkg/optimizer"
	"github.com/GriffinCanCode/regcore/pkg/pipeline"
	"github.com/GriffinCanCode/regcore/pkg/ssa"
)

// Dump is a bitmask of IR snapshots to print.
type Dump uint8

const (
	DumpBefore Dump = 1 << iota
	DumpAfter
	DumpCloud
)

const DumpAll = DumpBefore | DumpAfter | DumpCloud

// exit codes mapped from the typed pass errors, per SPEC_FULL.md §8/§9.
const (
	exitOK               = 0
	exitUnknownFailure   = 1
	exitUnsupported      = 2
	exitInvariantBroken  = 3
	exitAllocationFailed = 4
)

func main() {
	log, err := logger.New(logger.Dev())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitUnknownFailure)
	}
	ctx := pipeline.Background().With(log)

	var dumpFlag string
	var stop float64
	var tripCount int64

	root := &cobra.Command{
		Use:   "typthon",
		Short: "Run the co2 register allocator over a demo counting loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			dump, err := parseDump(dumpFlag)
			if err != nil {
				return err
			}
			if stop < 0 || stop > 1 {
				return fmt.Errorf("%w: --stop must be within [0,1]", ir.ErrInvariantBroken)
			}
			return run(ctx, dump, stop, tripCount)
		},
	}

	flags := root.Flags()
	flags.StringVar(&dumpFlag, "dump", "", "comma-separated dump stages: before,after,cloud,all")
	flags.Float64Var(&stop, "stop", 1.0, "fraction of the pipeline to run, in [0,1]")
	flags.Int64Var(&tripCount, "trip-count", 17, "trip count of the demo counting loop")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func parseDump(s string) (Dump, error) {
	var d Dump
	if s == "" {
		return d, nil
	}
	for _, tok := range strings.Split(s, ",") {
		switch strings.TrimSpace(tok) {
		case "before":
			d |= DumpBefore
		case "after":
			d |= DumpAfter
		case "cloud":
			d |= DumpCloud
		case "all":
			d |= DumpAll
		default:
			return 0, fmt.Errorf("%w: unknown --dump stage %q", ir.ErrInvariantBroken, tok)
		}
	}
	return d, nil
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ir.ErrUnsupported):
		return exitUnsupported
	case errors.Is(err, ir.ErrInvariantBroken):
		return exitInvariantBroken
	case errors.Is(err, regalloc.ErrAllocationFailed):
		return exitAllocationFailed
	default:
		return exitUnknownFailure
	}
}

// stage is one named step of the demo pipeline, gated by --stop.
type stage struct {
	name string
	run  func(f *ir.Func) error
}

func run(ctx pipeline.Context, dump Dump, stop float64, tripCount int64) error {
	f := demoCountingLoop(tripCount - 1) // i runs 0..limit inclusive

	if dump.Has(DumpBefore) {
		dumpFunc("before", f)
	}

	unrollCfg := optimizer.DefaultConfig()
	var result *regalloc.Result

	stages := []stage{
		{name: "lcssa", run: func(f *ir.Func) error { ssa.BuildLCSSA(ctx, f); return nil }},
		{name: "unroll", run: func(f *ir.Func) error { return optimizer.UnrollLoops(ctx, f, unrollCfg) }},
		{name: "regalloc", run: func(f *ir.Func) error {
			cons := regalloc.NewConstraints(map[ir.RegClass]regalloc.ClassConfig{0: {NumColors: 8}})
			res, err := regalloc.Allocate(ctx, f, cons)
			if err != nil {
				return err
			}
			result = res
			return nil
		}},
	}

	ran := runCount(len(stages), stop)
	for i := 0; i < ran; i++ {
		st := stages[i]
		ctx.Log.Info("running stage", "stage", st.name)
		if err := st.run(f); err != nil {
			return fmt.Errorf("stage %s: %w", st.name, err)
		}
	}

	if dump.Has(DumpAfter) {
		dumpFunc("after", f)
	}
	if dump.Has(DumpCloud) && result != nil {
		dumpClouds(result)
	}

	fmt.Printf("ok: ran %d/%d stages (stop=%.2f)\n", ran, len(stages), stop)
	return nil
}

// runCount maps a --stop fraction onto a whole number of pipeline stages,
// always running at least the stages stop's fraction covers and never
// more than the full pipeline.
func runCount(n int, stop float64) int {
	count := int(stop * float64(n))
	if float64(count) < stop*float64(n) {
		count++
	}
	if count > n {
		count = n
	}
	return count
}

func (d Dump) Has(flag Dump) bool { return d&flag != 0 }

func dumpFunc(label string, f *ir.Func) {
	fmt.Printf("--- %s: %s ---\n", label, f.Name)
	for _, b := range f.Blocks {
		fmt.Printf("%s:\n", b)
		for _, v := range b.Values {
			fmt.Printf("  %s\n", v)
		}
		if b.Control != nil {
			fmt.Printf("  control: %s\n", b.Control)
		}
	}
}

func dumpClouds(result *regalloc.Result) {
	fmt.Println("--- clouds ---")
	for _, cloud := range regalloc.BuildClouds(result.Affinity) {
		fmt.Printf("cloud root=%s members=%d cost=%.1f\n", cloud.Root(), len(cloud.Members), cloud.TotalCost)
	}
}

// demoCountingLoop builds `for i := 0; i <= limit; i += 1 { doubled = i +
// i }` as a scheduled IR function: a single header phi for i and a CmpLE
// guard (the exact shape optimizer.findSuitableFactor recognizes), plus
// an external use of a loop-body value in the exit block so
// ssa.BuildLCSSA has a real exit phi to insert.
func demoCountingLoop(limit int64) *ir.Func {
	f := ir.NewFunc("demo_counting_loop")
	entry := f.Entry
	header := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(entry, header)   // header.Preds = [entry]
	f.AddEdge(body, header) // header.Preds = [entry, body] (the back edge)

	zero := entry.NewConst(0, 0)
	limitConst := entry.NewConst(0, limit)
	i := header.NewPhi(0, nil, nil) // operands patched once next exists
	cmp := header.NewValue(ir.OpCmpLE, 0, i, limitConst)
	f.Branch(header, cmp, body, exit) // header.Succs = [body, exit]

	step := body.NewConst(0, 1)
	next := body.NewValue(ir.OpAdd, 0, i, step)
	doubled := body.NewValue(ir.OpAdd, 0, i, i)

	i.SetArgs([]*ir.Value{zero, next})

	result := exit.NewValue(ir.OpCopy, 0, doubled) // external use, closed by LCSSA
	f.End.AddEndKeepalive(result)
	return f
}
