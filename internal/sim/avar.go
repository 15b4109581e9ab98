package sim

import (
	"fmt"
	"strings"

	"github.com/dekarrin/xmilesim/internal/canon"
)

// avar is the compiled, annotated form of a source Var: its AST (if any),
// its resolved dependencies, and its run-list/offset placement. Exactly one
// of {ast set} / {kind == VarRef, src set} / {kind == VarModule, sub set}
// applies, mirroring the source Var's kind.
type avar struct {
	v      *Var
	parent *amodule

	qualifiedName string
	offset        int

	ast *astNode

	directDeps []*avar
	inflows    []*avar
	outflows   []*avar

	isConst bool

	visited  bool
	visiting bool

	// set only when v.Kind == VarRef
	src *avar

	// set only when v.Kind == VarModule
	sub *amodule
}

// amodule is the compiled form of a source Model: its variables and the
// three run-lists produced by topological ordering.
type amodule struct {
	model  *Model
	parent *amodule

	avars  []*avar
	byName map[string]*avar

	initials []*avar
	flows    []*avar
	stocks   []*avar

	// time is non-nil only on the root module: the synthetic clock
	// variable at offset 0.
	time *avar
}

// timeVarName is the canonical name of the synthetic root clock variable.
const timeVarName = "time"

// compileModule builds the avar/amodule tree for model, recursing into any
// sub-modules it contains, then runs both annotation phases over the whole
// sub-tree rooted at model. project is consulted to find the Model a
// VarModule's equation names. parent is nil for the root call.
func compileModule(project *Project, model *Model, parent *amodule) (*amodule, error) {
	am := &amodule{
		model:  model,
		parent: parent,
		byName: make(map[string]*avar, len(model.Vars)),
	}

	if parent == nil {
		am.time = &avar{
			parent:        am,
			qualifiedName: timeVarName,
			offset:        0,
		}
	}

	for i := range model.Vars {
		v := &model.Vars[i]
		name := canon.Name(v.Name)
		av := &avar{v: v, parent: am}
		am.avars = append(am.avars, av)
		am.byName[name] = av
	}

	// Recurse into sub-modules before annotating this level, so that a
	// MODULE avar's child run-lists exist by the time Phase B walks it.
	for _, av := range am.avars {
		if av.v.Kind != VarModule {
			continue
		}
		childModel, err := project.GetModel(canon.Name(av.v.Eqn))
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", av.v.Name, err)
		}
		sub, err := compileModule(project, childModel, am)
		if err != nil {
			return nil, err
		}
		av.sub = sub
	}

	if err := annotatePhaseA(am); err != nil {
		return nil, err
	}
	if err := annotatePhaseB(am); err != nil {
		return nil, err
	}
	return am, nil
}

// resolve looks up name starting from am: a leading "." is stripped; a
// remaining dotted name splits into head.rest, finds a child avar of kind
// VarModule named head, and recurses into its sub-module with rest;
// otherwise it is a plain linear-scan lookup by canonical name.
func (am *amodule) resolve(name string) (*avar, error) {
	name = strings.TrimPrefix(name, ".")
	name = canon.Name(name)

	if name == timeVarName {
		root := am
		for root.parent != nil {
			root = root.parent
		}
		return root.time, nil
	}

	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		head, rest := name[:dot], name[dot+1:]
		child, ok := am.byName[head]
		if !ok || child.v.Kind != VarModule {
			return nil, fmt.Errorf("%q: %w", name, errUnresolvedName)
		}
		return child.sub.resolve(rest)
	}

	if av, ok := am.byName[name]; ok {
		return av, nil
	}
	return nil, fmt.Errorf("%q: %w", name, errUnresolvedName)
}

// annotatePhaseA runs the per-variable initialization pass over every avar
// directly owned by am (sub-modules were already recursed into and
// annotated by compileModule before this is called).
func annotatePhaseA(am *amodule) error {
	var errs []string

	for _, av := range am.avars {
		if av.v.Kind == VarModule {
			continue // already fully annotated by the recursive compile
		}
		if av.v.Kind == VarRef {
			src, err := am.resolve(av.v.Src)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", av.v.Name, err))
				continue
			}
			av.src = src
			continue
		}

		ast, perrs := parseEquation(av.v.Eqn)
		if len(perrs) > 0 {
			errs = append(errs, fmt.Sprintf("%s: %s", av.v.Name, strings.Join(perrs, "; ")))
			continue
		}
		av.ast = ast
		av.isConst = ast != nil && ast.kind == astFloatLit

		ast.walk(func(n *astNode) {
			switch n.kind {
			case astIdent:
				bound, err := am.resolve(n.ident)
				if err != nil {
					errs = append(errs, fmt.Sprintf("%s: %v", av.v.Name, err))
					return
				}
				n.boundVar = bound
				av.directDeps = append(av.directDeps, bound)
			case astCall:
				if fn, ok := builtins[n.fn]; ok {
					n.boundFn = fn
				}
				// unknown callees are left unbound; evaluation yields NaN.
			}
		})

		for _, name := range av.v.Inflows {
			in, err := am.resolve(name)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: inflow %v", av.v.Name, err))
				continue
			}
			av.inflows = append(av.inflows, in)
		}
		for _, name := range av.v.Outflows {
			out, err := am.resolve(name)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: outflow %v", av.v.Name, err))
				continue
			}
			av.outflows = append(av.outflows, out)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", errBadEquation, strings.Join(errs, "; "))
	}
	return nil
}

// annotatePhaseB performs the DFS-based topological sort described for
// dependency ordering: visiting direct dependencies before appending a
// variable to its module's run-lists, failing on any cycle.
func annotatePhaseB(am *amodule) error {
	var visit func(av *avar) error
	visit = func(av *avar) error {
		if av.visited {
			return nil
		}
		if av.visiting {
			return fmt.Errorf("%s: %w", av.qualifiedNameOrName(), errCircular)
		}
		av.visiting = true

		for _, dep := range av.directDeps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		av.visiting = false
		av.visited = true

		switch {
		case av.v.Kind == VarModule:
			am.initials = append(am.initials, av)
			am.flows = append(am.flows, av)
			am.stocks = append(am.stocks, av)
		case av.v.Kind == VarStock:
			am.initials = append(am.initials, av)
			am.stocks = append(am.stocks, av)
		case av.v.Kind == VarRef:
			// no run-list membership; offset assigned later from src.
		case av.isConst:
			am.initials = append(am.initials, av)
			am.stocks = append(am.stocks, av)
		default:
			am.initials = append(am.initials, av)
			am.flows = append(am.flows, av)
		}
		return nil
	}

	for _, av := range am.avars {
		if err := visit(av); err != nil {
			return err
		}
	}
	return nil
}

// assignOffsets performs the depth-first offset-assignment walk described
// for the compiled tree: every non-ref, non-module avar in the whole
// sub-tree rooted at root gets the next sequential offset (root's synthetic
// time var already claims offset 0), then every REF avar adopts its
// source's offset in a second pass once all base offsets exist.
func assignOffsets(root *amodule) {
	next := 1

	var assignBase func(am *amodule)
	assignBase = func(am *amodule) {
		for _, av := range am.avars {
			if av.v.Kind == VarRef || av.v.Kind == VarModule {
				continue
			}
			av.offset = next
			next++
		}
		for _, av := range am.avars {
			if av.v.Kind == VarModule {
				assignBase(av.sub)
			}
		}
	}
	assignBase(root)

	var assignRefs func(am *amodule)
	assignRefs = func(am *amodule) {
		for _, av := range am.avars {
			if av.v.Kind == VarRef {
				av.offset = av.src.offset
			}
		}
		for _, av := range am.avars {
			if av.v.Kind == VarModule {
				assignRefs(av.sub)
			}
		}
	}
	assignRefs(root)
}

func (av *avar) qualifiedNameOrName() string {
	if av.qualifiedName != "" {
		return av.qualifiedName
	}
	if av.v != nil {
		return av.v.Name
	}
	return timeVarName
}
