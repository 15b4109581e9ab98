// Package sim implements the system-dynamics simulation core: the equation
// lexer and parser, the module compiler that resolves names and
// topologically sorts variables into run-lists, and the time-stepped Euler
// evaluator.
//
// The types in this file (Project, File, Model, Var, Table) are the tree
// handed in by a project loader (see internal/xmile for the XMILE-format
// one this repository ships); sim consumes them and does not otherwise care
// how they were produced.
package sim

import "fmt"

// VarKind identifies the shape a source-level Var takes.
type VarKind int

const (
	VarUnknown VarKind = iota
	VarStock
	VarFlow
	VarAux
	VarModule
	VarRef
)

func (k VarKind) String() string {
	switch k {
	case VarStock:
		return "stock"
	case VarFlow:
		return "flow"
	case VarAux:
		return "aux"
	case VarModule:
		return "module"
	case VarRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Table is a graphical function: a monotone 1-D piecewise-linear lookup
// table. X must be non-decreasing.
type Table struct {
	X []float64
	Y []float64
}

// Lookup implements the table-lookup contract: clamp to [X[0], X[n-1]],
// otherwise linearly interpolate between the bracketing points found via
// binary search. An empty table returns 0.
func (t *Table) Lookup(u float64) float64 {
	if t == nil || len(t.X) == 0 {
		return 0
	}
	n := len(t.X)
	if u <= t.X[0] {
		return t.Y[0]
	}
	if u >= t.X[n-1] {
		return t.Y[n-1]
	}

	// binary search for the smallest index i such that X[i] >= u
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if t.X[mid] < u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	i := lo
	if t.X[i] == u {
		return t.Y[i]
	}

	x0, x1 := t.X[i-1], t.X[i]
	y0, y1 := t.Y[i-1], t.Y[i]
	frac := (u - x0) / (x1 - x0)
	return y0 + frac*(y1-y0)
}

// Var is the source-level representation of a model variable, as produced by
// a project loader.
type Var struct {
	Kind VarKind

	// Name is the canonical name of the variable.
	Name string

	// Eqn is the equation text, empty for Module and most Ref vars.
	Eqn string

	// Src is the dotted name of the referenced variable, only set for Ref.
	Src string

	Inflows  []string
	Outflows []string

	// Connects holds the names of Ref vars nested in a Module var's
	// sub-model that alias names in the parent scope.
	Connects []string

	GF *Table

	IsNonNegative bool
}

// Model is a named collection of Vars, as produced by a project loader.
type Model struct {
	Name string
	Vars []Var
}

// SimSpec holds the simulation-control parameters for a File.
type SimSpec struct {
	Start      float64
	Stop       float64
	DT         float64
	SaveStep   float64
	Method     string
	TimeUnits  string
}

// Header carries the descriptive, non-executable metadata of a File.
type Header struct {
	Name           string
	UUID           string
	Vendor         string
	ProductName    string
	ProductVersion string
}

// Feature identifies an XMILE capability a loaded model exercises that this
// simulation core does not execute. Detecting these lets a caller warn the
// user instead of silently producing numbers that ignore part of the model.
type Feature int

const (
	FeatureArrays Feature = 1 << iota
	FeatureQueues
	FeatureConveyors
	FeatureSubmodels
)

func (f Feature) String() string {
	var names []string
	if f&FeatureArrays != 0 {
		names = append(names, "arrays")
	}
	if f&FeatureQueues != 0 {
		names = append(names, "queues")
	}
	if f&FeatureConveyors != 0 {
		names = append(names, "conveyors")
	}
	if f&FeatureSubmodels != 0 {
		names = append(names, "submodels")
	}
	if len(names) == 0 {
		return "none"
	}
	s := names[0]
	for _, n := range names[1:] {
		s += ", " + n
	}
	return s
}

// File is one parsed model document: its sim-control spec, descriptive
// header, and the models it defines (the first is the root model).
type File struct {
	Header   Header
	SimSpecs SimSpec
	Models   []Model

	// Features records which non-simulated XMILE capabilities this file's
	// models exercise, for diagnostic surfacing only.
	Features Feature
}

// Project is the top-level handle a loader returns: the set of files loaded
// for a simulation run.
type Project struct {
	Files []File
}

// GetModel returns the named model, or the root (first) model of the first
// file when name is empty. Returns simerr.ErrUnknownModel-wrapping error if
// no file has been loaded or the name does not exist.
func (p *Project) GetModel(name string) (*Model, error) {
	if len(p.Files) == 0 {
		return nil, fmt.Errorf("project has no loaded files")
	}
	if name == "" {
		return &p.Files[0].Models[0], nil
	}
	for fi := range p.Files {
		for mi := range p.Files[fi].Models {
			if p.Files[fi].Models[mi].Name == name {
				return &p.Files[fi].Models[mi], nil
			}
		}
	}
	return nil, fmt.Errorf("model %q: %w", name, errUnknownModel)
}
