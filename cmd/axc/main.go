// Command axc is a minimal driver over internal/compiler and
// internal/executable — kept deliberately thin, per spec.md's framing
// that the CLI frontend itself is out of scope and only its interface
// (compile, then run, against some grid) matters.
//
// Grounded on cmd/sentra/main.go's os.Args dispatch shape, cut down to
// the two subcommands this reference backend can actually drive without
// a real AX lexer/parser (also out of scope per spec.md §1): `demo` runs
// a hand-built kernel end to end, and `compile` reports why it can't (yet)
// accept AX source text directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"github.com/pablocouto/openvdb-ax/internal/ast"
	"github.com/pablocouto/openvdb-ax/internal/axtypes"
	"github.com/pablocouto/openvdb-ax/internal/compiler"
	"github.com/pablocouto/openvdb-ax/internal/executable"
	"github.com/pablocouto/openvdb-ax/internal/functions"
	"github.com/pablocouto/openvdb-ax/internal/grid"
	"github.com/pablocouto/openvdb-ax/internal/jit"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "demo":
		err = runDemo()
	case "compile":
		err = runCompile(args[1:])
	case "--help", "-h", "help":
		showUsage()
		return
	default:
		showUsage()
		os.Exit(1)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Fprintln(os.Stderr, "usage: axc <command>")
	fmt.Fprintln(os.Stderr, "  demo      run a hand-built volume kernel end to end against an in-memory grid")
	fmt.Fprintln(os.Stderr, "  compile   compile AX source read from a file (requires a Parser; see errors)")
}

func printError(err error) {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[31merror:\x1b[0m %s\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %s\n", err)
}

// runCompile exists so `axc compile <file>` gives a precise answer rather
// than silently doing nothing: the lexer/parser that turns AX source text
// into an ast.Stmt tree is an external collaborator spec.md §1 places out
// of scope, and this reference module does not bundle one.
func runCompile(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("compile: expected exactly one source file argument")
	}
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}
	return fmt.Errorf("compile: no AX lexer/parser is wired into this build (out of scope per spec.md §1) — use `axc demo` to exercise the pipeline with a hand-built AST")
}

// runDemo builds the AST for `@density = @density * 2.0f;`, compiles it for
// the volume target, runs it over a single leaf with one active voxel,
// and prints the attribute value before and after.
func runDemo() error {
	funcs := functions.NewCoreRegistry()
	functions.AddVolumeBuiltins(funcs)
	c := compiler.New(fixedParser{root: demoTree()}, funcs)

	result, err := c.Compile("", compiler.Options{Target: compiler.TargetVolume})
	if err != nil {
		return err
	}
	fmt.Printf("compiled %s (%s)\n", result.CompilationID, result.Stats)
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w.Error())
	}

	cm, err := jit.NewBackend(executable.BuildBaseResolver()).Build(result.Module)
	if err != nil {
		return err
	}

	g := grid.NewVolumeGrid(&grid.Transform{VoxelSize: 1, Origin: [3]float32{0, 0, 0}})
	leaf := grid.NewLeaf(grid.Coord{0, 0, 0})
	leaf.AddAttribute("density", float32(0))
	idx := grid.LocalIndex(0, 0, 0)
	leaf.Attrs["density"][idx] = float32(21)
	leaf.Mask.Set(idx, true)
	g.AddLeaf(leaf)

	exe, err := executable.NewVolumeExecutable(cm, result.EntryName, result.Attrs, g)
	if err != nil {
		return err
	}
	fmt.Printf("before: density = %v\n", leaf.Attrs["density"][idx])
	if err := exe.Execute(context.Background(), executable.Options{}); err != nil {
		return err
	}
	fmt.Printf("after:  density = %v\n", leaf.Attrs["density"][idx])
	pretty.Println(result.Warnings)
	return nil
}

// fixedParser implements compiler.Parser over an already-built tree,
// standing in for the out-of-scope lexer/parser for the demo command.
type fixedParser struct {
	root ast.Stmt
}

func (p fixedParser) Parse(source string) (ast.Stmt, error) {
	return p.root, nil
}

func demoTree() ast.Stmt {
	pos := ast.Pos{Line: 1, Column: 1}
	density := func() *ast.AttributeValue {
		return &ast.AttributeValue{Name: "density"}
	}
	rhs := &ast.BinaryOp{
		Op:  axtypes.OpMul,
		Lhs: density(),
		Rhs: ast.NewLiteral(pos, ast.LitFloat, float64(2), axtypes.TF32),
	}
	assign := &ast.Assign{Target: density(), Op: ast.AssignSet, Rhs: rhs}
	return ast.NewBlock(pos, []ast.Stmt{assign})
}
