package functions

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/pablocouto/openvdb-ax/internal/axtypes"
)

// formatArgs renders an argument-type list as "(t1, t2, ...)" for error
// messages.
func formatArgs(args []axtypes.Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// infiniteCost marks a parameter position with no valid implicit
// conversion, per spec.md §4.3 step 2's "cᵢ = ∞".
const infiniteCost = -1

// conversionCost implements the per-parameter cost table of spec.md §4.3
// step 2. Both types must be scalar or both must be arrays of equal
// length (arrays cost elementwise via their common element type).
func conversionCost(arg, param axtypes.Type) int {
	if arg.Equal(param) {
		return 0
	}
	if arg.IsArray() && param.IsArray() {
		if arg.Len != param.Len {
			return infiniteCost
		}
		return conversionCost(*arg.Elem, *param.Elem)
	}
	if arg.IsArray() != param.IsArray() || arg.IsString() || param.IsString() {
		return infiniteCost
	}
	kind := axtypes.ClassifyConversion(arg, param)
	switch kind {
	case axtypes.NoConversion:
		return 0
	case axtypes.FPExtend, axtypes.IntSignExtend, axtypes.BoolToInt, axtypes.BoolToFP:
		return 1
	case axtypes.IntToFP:
		return 2
	case axtypes.FPTruncate, axtypes.IntTruncate, axtypes.FPToInt, axtypes.FPToBool, axtypes.IntToBool:
		return 3
	default:
		return infiniteCost
	}
}

// costVector computes c(Sⱼ, A) for one candidate signature, or reports
// ok=false if any position has no implicit conversion (step 2/3).
func costVector(sig *Signature, args []axtypes.Type) (costs []int, ok bool) {
	costs = make([]int, len(args))
	for i, a := range args {
		c := conversionCost(a, sig.Params[i].Type)
		if c == infiniteCost {
			return nil, false
		}
		costs[i] = c
	}
	return costs, true
}

// lexLess reports whether a is lexicographically smaller than b —
// step 4's primary ordering.
func lexLess(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func sum(cs []int) int {
	s := 0
	for _, c := range cs {
		s += c
	}
	return s
}

// FunctionLookupError reports that no registered group matches name, or
// no candidate signature admits the call site's argument types.
type FunctionLookupError struct {
	Name string
	Args []axtypes.Type
}

func (e *FunctionLookupError) Error() string {
	return fmt.Sprintf("no matching overload for %s%s", e.Name, formatArgs(e.Args))
}

// AmbiguousOverloadError reports that two or more candidates tied
// completely on cost vector and sum, per step 5.
type AmbiguousOverloadError struct {
	Name string
	Args []axtypes.Type
}

func (e *AmbiguousOverloadError) Error() string {
	return fmt.Sprintf("ambiguous overload for %s%s", e.Name, formatArgs(e.Args))
}

// candidate pairs a signature with its computed cost vector, used only
// while ranking.
type candidate struct {
	sig   *Signature
	order int // original declaration order, for the final tie-break
	costs []int
}

// Select implements the five-step overload-selection algorithm of
// spec.md §4.3 over the function group registered under name.
//
// OVERLOAD-DET: Select is a pure function of (name, args, the registry's
// contents) — no hidden state influences the outcome.
func Select(r *Registry, name string, args []axtypes.Type) (*Signature, error) {
	group, ok := r.Lookup(name)
	if !ok {
		return nil, &FunctionLookupError{Name: name, Args: args}
	}

	var candidates []candidate
	for i := range group.Signatures {
		sig := &group.Signatures[i]
		if sig.Arity() != len(args) { // step 1
			continue
		}
		costs, ok := costVector(sig, args) // steps 2-3
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{sig: sig, order: i, costs: costs})
	}
	if len(candidates) == 0 {
		return nil, &FunctionLookupError{Name: name, Args: args}
	}

	// Step 4: smallest cost vector lexicographically, then smallest sum,
	// then declaration order. order is a strict total order over
	// candidates, so an unstable sort is as deterministic as a stable one
	// here.
	slices.SortFunc(candidates, func(a, b candidate) int {
		if lexLess(a.costs, b.costs) {
			return -1
		}
		if lexLess(b.costs, a.costs) {
			return 1
		}
		if sa, sb := sum(a.costs), sum(b.costs); sa != sb {
			return sa - sb
		}
		return a.order - b.order
	})

	best := candidates[0]
	if len(candidates) > 1 {
		second := candidates[1]
		sameLex := !lexLess(best.costs, second.costs) && !lexLess(second.costs, best.costs)
		if sameLex && sum(best.costs) == sum(second.costs) {
			return nil, &AmbiguousOverloadError{Name: name, Args: args} // step 5
		}
	}
	return best.sig, nil
}
