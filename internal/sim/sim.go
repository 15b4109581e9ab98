package sim

import (
	"fmt"
	"math"

	"github.com/dekarrin/xmilesim/internal/canon"
)

// Sim is the compiled, runnable form of a model: its annotated module tree
// and the dense value slab produced by stepping it. The slab, and it alone,
// mutates after construction; the module tree is immutable from here on.
type Sim struct {
	project *Project
	root    *amodule
	spec    SimSpec

	slab  []float64
	nvars int

	nsteps    int
	nsaves    int
	saveEvery int

	step     int
	saveRow  int
}

// New compiles modelName (the root model when empty) out of project into a
// runnable Sim: resolves names, topologically sorts every module's
// variables, assigns slab offsets, and evaluates the initial row. Fails on
// an unknown model name or any annotation error (unresolved name,
// circularity, ...).
func New(project *Project, modelName string) (*Sim, error) {
	model, err := project.GetModel(modelName)
	if err != nil {
		return nil, err
	}

	root, err := compileModule(project, model, nil)
	if err != nil {
		return nil, err
	}
	assignOffsets(root)
	computeQualifiedNames(root, "")

	s := &Sim{project: project, root: root}

	file, err := fileForModel(project, model)
	if err != nil {
		return nil, err
	}
	s.spec = file.SimSpecs

	s.reset()
	return s, nil
}

func fileForModel(project *Project, model *Model) (*File, error) {
	for fi := range project.Files {
		for mi := range project.Files[fi].Models {
			if &project.Files[fi].Models[mi] == model {
				return &project.Files[fi], nil
			}
		}
	}
	return nil, fmt.Errorf("model %q: %w", model.Name, errUnknownModel)
}

// countVars returns the number of slab columns the whole module tree needs:
// 1 (time) plus one per non-ref, non-module variable anywhere in the tree.
func countVars(am *amodule) int {
	n := 0
	if am.time != nil {
		n++
	}
	for _, av := range am.avars {
		switch av.v.Kind {
		case VarRef, VarModule:
			// no slab column of their own
		default:
			n++
		}
		if av.v.Kind == VarModule {
			n += countVars(av.sub) - boolToInt(av.sub.time != nil)
		}
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// reset reallocates the slab and evaluates the initials run-list into row
// 0, per Reset's contract.
func (s *Sim) reset() {
	s.nvars = countVars(s.root)

	dt := s.spec.DT
	if dt == 0 {
		dt = 1
	}
	s.nsteps = int(math.Floor((s.spec.Stop-s.spec.Start)/dt)) + 1
	saveEvery := int(math.Round(s.spec.SaveStep / dt))
	if saveEvery < 1 {
		saveEvery = 1
	}
	s.saveEvery = saveEvery
	s.nsaves = int(math.Ceil(float64(s.nsteps) / float64(saveEvery)))

	s.slab = make([]float64, s.nvars*(s.nsaves+1))
	s.step = 0
	s.saveRow = 0

	s.curr()[0] = s.spec.Start
	s.calc(s.root.initials, s.curr(), true)
}

func (s *Sim) curr() []float64 {
	return s.slab[s.saveRow*s.nvars : (s.saveRow+1)*s.nvars]
}

func (s *Sim) next() []float64 {
	row := s.saveRow + 1
	return s.slab[row*s.nvars : (row+1)*s.nvars]
}

// RunTo advances the simulation until the current row's time exceeds end or
// the step budget is exhausted, whichever comes first.
func (s *Sim) RunTo(end float64) {
	dt := s.spec.DT
	if dt == 0 {
		dt = 1
	}

	for s.step < s.nsteps && s.curr()[0] <= end {
		curr := s.curr()
		s.calc(s.root.flows, curr, false)

		next := s.next()
		s.calcStocks(s.root, curr, next)

		if s.step+1 >= s.nsteps {
			return
		}

		next[0] = s.spec.Start + float64(s.step+1)*dt

		// step is checked against saveEvery before being incremented, so
		// that the first iteration (step 0) always lands on a save row and
		// never overwrites the seeded initial-conditions row.
		stepBeforeIncrement := s.step
		s.step++
		if stepBeforeIncrement%s.saveEvery != 0 {
			copy(curr, next)
		} else {
			s.saveRow++
		}
	}
}

// RunToEnd runs the simulation to completion.
func (s *Sim) RunToEnd() {
	s.RunTo(s.spec.Stop + 1)
}

// calc evaluates list (initials or flows) into row: sub-module avars recurse
// into their own run-list, everything else evaluates its AST (through its
// graphical function, if any) and stores the result at its offset.
func (s *Sim) calc(list []*avar, row []float64, initial bool) {
	for _, av := range list {
		if av.v.Kind == VarModule {
			if initial {
				s.calc(av.sub.initials, row, initial)
			} else {
				s.calc(av.sub.flows, row, initial)
			}
			continue
		}
		v := s.svisit(av.ast, row)
		if av.v.GF != nil {
			v = av.v.GF.Lookup(v)
		}
		row[av.offset] = v
	}
}

// calcStocks evaluates the stocks run-list: a stock's new value is its
// current value plus dt times the net of its resolved inflows and
// outflows; a sub-module recurses; anything else (constants living in the
// stocks list) is simply re-evaluated.
func (s *Sim) calcStocks(am *amodule, curr, next []float64) {
	dt := s.spec.DT
	if dt == 0 {
		dt = 1
	}
	for _, av := range am.stocks {
		switch av.v.Kind {
		case VarModule:
			s.calcStocks(av.sub, curr, next)
		case VarStock:
			net := 0.0
			for _, in := range av.inflows {
				net += curr[in.offset]
			}
			for _, out := range av.outflows {
				net -= curr[out.offset]
			}
			next[av.offset] = curr[av.offset] + dt*net
		default:
			next[av.offset] = s.svisit(av.ast, curr)
		}
	}
}

// svisit is the pure AST tree-walking evaluator.
func (s *Sim) svisit(n *astNode, row []float64) float64 {
	if n == nil {
		return math.NaN()
	}
	switch n.kind {
	case astFloatLit:
		return n.floatVal
	case astIdent:
		if n.boundVar == nil {
			return math.NaN()
		}
		return row[n.boundVar.offset]
	case astParen:
		return s.svisit(n.operand, row)
	case astUnary:
		x := s.svisit(n.operand, row)
		switch n.unaryOp {
		case "+":
			return x
		case "-":
			return -x
		case "!":
			if x == 0 {
				return 1
			}
			return 0
		default:
			return math.NaN()
		}
	case astBinary:
		l := s.svisit(n.lhs, row)
		r := s.svisit(n.rhs, row)
		return evalBinary(n.binOp, l, r)
	case astIf:
		if s.svisit(n.cond, row) != 0 {
			return s.svisit(n.thenExpr, row)
		}
		if n.elseExpr == nil {
			return math.NaN()
		}
		return s.svisit(n.elseExpr, row)
	case astCall:
		args := make([]float64, 0, len(n.args))
		for _, a := range n.args {
			args = append(args, s.svisit(a, row))
		}
		if n.boundFn == nil {
			return math.NaN()
		}
		dt := s.spec.DT
		if dt == 0 {
			dt = 1
		}
		return n.boundFn(s, n, dt, row[0], args)
	default:
		return math.NaN()
	}
}

func evalBinary(op string, l, r float64) float64 {
	switch op {
	case "+":
		return l + r
	case "-":
		return l - r
	case "*":
		return l * r
	case "/":
		return l / r
	case "^":
		return math.Pow(l, r)
	case ">":
		return boolToFloat(l > r)
	case "<":
		return boolToFloat(l < r)
	case "≥":
		return boolToFloat(l >= r)
	case "≤":
		return boolToFloat(l <= r)
	case "=":
		return boolToFloat(l == r)
	case "≠":
		return boolToFloat(l != r)
	case "&":
		return boolToFloat(l == 1 && r == 1)
	case "|":
		return boolToFloat(l == 1 || r == 1)
	default:
		return math.NaN()
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// StepCount returns the number of saved rows produced by a full run.
func (s *Sim) StepCount() int { return s.nsaves }

// VarCount returns the number of slab columns (including time).
func (s *Sim) VarCount() int { return s.nvars }

// SetValue overrides the live value of name in the current row, bypassing
// its equation. This does not persist across reset.
func (s *Sim) SetValue(name string, val float64) error {
	av, err := s.root.resolve(name)
	if err != nil {
		return err
	}
	s.curr()[av.offset] = val
	return nil
}

// GetValue resolves name from the root module and returns its value at the
// current row; "time" returns the current row's offset-0 value.
func (s *Sim) GetValue(name string) (float64, error) {
	av, err := s.root.resolve(canon.Name(name))
	if err != nil {
		return 0, err
	}
	return s.curr()[av.offset], nil
}

// GetSeries writes every saved sample of name, oldest first, returning how
// many were written (at most StepCount()+1).
func (s *Sim) GetSeries(name string) ([]float64, error) {
	av, err := s.root.resolve(canon.Name(name))
	if err != nil {
		return nil, err
	}
	out := make([]float64, s.saveRow+1)
	for i := range out {
		out[i] = s.slab[i*s.nvars+av.offset]
	}
	return out, nil
}

// VarNames returns every non-ref, non-module variable's qualified name in
// depth-first module order, "time" first.
func (s *Sim) VarNames() []string {
	names := make([]string, 0, s.nvars)
	names = append(names, timeVarName)
	collectVarNames(s.root, &names)
	return names
}

func collectVarNames(am *amodule, names *[]string) {
	for _, av := range am.avars {
		switch av.v.Kind {
		case VarRef:
			continue
		case VarModule:
			collectVarNames(av.sub, names)
		default:
			*names = append(*names, av.qualifiedNameOrName())
		}
	}
}

// computeQualifiedNames lazily fills in every avar's dotted qualified name:
// unqualified at the root, "<module>.<name>" when nested.
func computeQualifiedNames(am *amodule, prefix string) {
	for _, av := range am.avars {
		name := canon.Name(av.v.Name)
		if prefix != "" {
			name = prefix + "." + name
		}
		av.qualifiedName = name
		if av.v.Kind == VarModule {
			computeQualifiedNames(av.sub, name)
		}
	}
}
