// Package xmile loads XMILE-format system dynamics model documents and
// produces the sim.Project tree the simulation core consumes. It knows
// nothing about running a model — only about turning XML into the
// lexer/parser/evaluator's input types.
package xmile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/xmilesim/internal/canon"
	"github.com/dekarrin/xmilesim/internal/sim"
)

// xmlDoc mirrors the subset of the XMILE schema this loader understands: a
// header, one sim_specs block, and one or more models.
type xmlDoc struct {
	XMLName  xml.Name      `xml:"xmile"`
	Version  string        `xml:"version,attr"`
	Header   xmlHeader     `xml:"header"`
	SimSpecs xmlSimSpecs   `xml:"sim_specs"`
	Models   []xmlModel    `xml:"model"`
}

type xmlHeader struct {
	Name    string     `xml:"name"`
	UUID    string     `xml:"uuid"`
	Vendor  string     `xml:"vendor"`
	Product xmlProduct `xml:"product"`
}

type xmlProduct struct {
	Value   string `xml:",chardata"`
	Version string `xml:"version,attr"`
}

type xmlSimSpecs struct {
	Method      string  `xml:"method,attr"`
	TimeUnits   string  `xml:"time_units,attr"`
	Start       float64 `xml:"start"`
	Stop        float64 `xml:"stop"`
	DT          float64 `xml:"dt"`
	SaveStep    float64 `xml:"save_step"`
	SaveStepAlt float64 `xml:"savestep"`
}

func (s xmlSimSpecs) saveStep() float64 {
	if s.SaveStep != 0 {
		return s.SaveStep
	}
	return s.SaveStepAlt
}

// xmlModel has an optional Name: the first, unnamed model in a file is the
// root model per the XMILE convention and per sim.Project.GetModel's
// empty-name contract.
type xmlModel struct {
	Name      string       `xml:"name,attr"`
	Variables xmlVariables `xml:"variables"`
}

type xmlVariables struct {
	Stocks  []xmlStock    `xml:"stock"`
	Flows   []xmlAuxLike  `xml:"flow"`
	Auxes   []xmlAuxLike  `xml:"aux"`
	Modules []xmlModuleEl `xml:"module"`
}

type xmlStock struct {
	Name        string    `xml:"name,attr"`
	Eqn         string    `xml:"eqn"`
	Inflows     []string  `xml:"inflow"`
	Outflows    []string  `xml:"outflow"`
	NonNegative *struct{} `xml:"non_negative"`
	GF          *xmlGF    `xml:"gf"`
}

type xmlAuxLike struct {
	Name        string    `xml:"name,attr"`
	Eqn         string    `xml:"eqn"`
	NonNegative *struct{} `xml:"non_negative"`
	GF          *xmlGF    `xml:"gf"`
}

// xmlModuleEl is a module instance. This loader uses the convention that a
// module's own name also names the Model it instantiates; <connect>
// elements are recorded but not otherwise interpreted, since cross-module
// aliasing is resolved structurally through REF variables already present
// in the referenced model.
type xmlModuleEl struct {
	Name     string       `xml:"name,attr"`
	Connects []xmlConnect `xml:"connect"`
}

type xmlConnect struct {
	From string `xml:"from,attr"`
	To   string `xml:"to,attr"`
}

type xmlGF struct {
	Reciprocal bool       `xml:"reciprocal,attr"`
	XScale     *xmlGFScale `xml:"xscale"`
	XPts       string     `xml:"xpts"`
	YPts       string     `xml:"ypts"`
}

type xmlGFScale struct {
	Min float64 `xml:"min,attr"`
	Max float64 `xml:"max,attr"`
}

// ParseFile reads and parses path into a sim.Project.
func ParseFile(path string) (*sim.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%q: reading from disk: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a single XMILE document from r into a one-File sim.Project.
func Parse(r io.Reader) (*sim.Project, error) {
	var doc xmlDoc
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding xmile document: %w", err)
	}

	file := sim.File{
		Header: sim.Header{
			Name:           doc.Header.Name,
			UUID:           doc.Header.UUID,
			Vendor:         doc.Header.Vendor,
			ProductName:    doc.Header.Product.Value,
			ProductVersion: doc.Header.Product.Version,
		},
		SimSpecs: sim.SimSpec{
			Start:     doc.SimSpecs.Start,
			Stop:      doc.SimSpecs.Stop,
			DT:        doc.SimSpecs.DT,
			SaveStep:  doc.SimSpecs.saveStep(),
			Method:    doc.SimSpecs.Method,
			TimeUnits: doc.SimSpecs.TimeUnits,
		},
	}
	if file.SimSpecs.DT == 0 {
		file.SimSpecs.DT = 1
	}
	if file.SimSpecs.SaveStep == 0 {
		file.SimSpecs.SaveStep = file.SimSpecs.DT
	}

	for _, m := range doc.Models {
		model, err := convertModel(m)
		if err != nil {
			return nil, err
		}
		file.Models = append(file.Models, model)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("xmile document defines no models: %w", sim.ErrBadEquation)
	}

	file.Features = detectFeatures(doc)

	return &sim.Project{Files: []sim.File{file}}, nil
}

func convertModel(m xmlModel) (sim.Model, error) {
	model := sim.Model{Name: canon.Name(m.Name)}

	for _, st := range m.Variables.Stocks {
		gf, err := convertGF(st.GF)
		if err != nil {
			return model, fmt.Errorf("stock %q: %w", st.Name, err)
		}
		model.Vars = append(model.Vars, sim.Var{
			Kind:          sim.VarStock,
			Name:          canon.Name(st.Name),
			Eqn:           st.Eqn,
			Inflows:       canonAll(st.Inflows),
			Outflows:      canonAll(st.Outflows),
			GF:            gf,
			IsNonNegative: st.NonNegative != nil,
		})
	}
	for _, fl := range m.Variables.Flows {
		gf, err := convertGF(fl.GF)
		if err != nil {
			return model, fmt.Errorf("flow %q: %w", fl.Name, err)
		}
		model.Vars = append(model.Vars, sim.Var{
			Kind:          sim.VarFlow,
			Name:          canon.Name(fl.Name),
			Eqn:           fl.Eqn,
			GF:            gf,
			IsNonNegative: fl.NonNegative != nil,
		})
	}
	for _, ax := range m.Variables.Auxes {
		gf, err := convertGF(ax.GF)
		if err != nil {
			return model, fmt.Errorf("aux %q: %w", ax.Name, err)
		}
		model.Vars = append(model.Vars, sim.Var{
			Kind: sim.VarAux,
			Name: canon.Name(ax.Name),
			Eqn:  ax.Eqn,
			GF:   gf,
		})
	}
	for _, mod := range m.Variables.Modules {
		var connects []string
		for _, c := range mod.Connects {
			connects = append(connects, canon.Name(c.To))
		}
		model.Vars = append(model.Vars, sim.Var{
			Kind:     sim.VarModule,
			Name:     canon.Name(mod.Name),
			Eqn:      canon.Name(mod.Name), // convention: instance name == model name
			Connects: connects,
		})
	}

	return model, nil
}

func canonAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = canon.Name(n)
	}
	return out
}

// convertGF parses a <gf>'s comma-separated xpts/ypts into a sim.Table.
func convertGF(g *xmlGF) (*sim.Table, error) {
	if g == nil {
		return nil, nil
	}
	x, err := parseFloatList(g.XPts)
	if err != nil {
		return nil, fmt.Errorf("gf xpts: %w", err)
	}
	y, err := parseFloatList(g.YPts)
	if err != nil {
		return nil, fmt.Errorf("gf ypts: %w", err)
	}
	if len(x) == 0 && g.XScale != nil && len(y) > 0 {
		// evenly-spaced points described only by an xscale min/max.
		n := len(y)
		x = make([]float64, n)
		if n == 1 {
			x[0] = g.XScale.Min
		} else {
			step := (g.XScale.Max - g.XScale.Min) / float64(n-1)
			for i := range x {
				x[i] = g.XScale.Min + step*float64(i)
			}
		}
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("xpts/ypts length mismatch (%d vs %d)", len(x), len(y))
	}
	return &sim.Table{X: x, Y: y}, nil
}

func parseFloatList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// detectFeatures is a best-effort scan for XMILE constructs this simulation
// core does not execute, surfaced to callers for diagnostics only. Arrays,
// queues and conveyors are not modeled by any field this loader populates,
// so only submodule usage is detected, structurally.
func detectFeatures(doc xmlDoc) sim.Feature {
	var f sim.Feature
	for _, m := range doc.Models {
		if len(m.Variables.Modules) > 0 {
			f |= sim.FeatureSubmodels
		}
	}
	return f
}
