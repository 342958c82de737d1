// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/theomission/gomdao/comm"
	"github.com/theomission/gomdao/inp"
)

// Problem is the outermost harness: it owns the root group, performs setup
// (variable collection, connection resolution, vector allocation, transfer
// construction) and exposes Run and CalcGradient
type Problem struct {

	// input
	Root *Group       // root group of the system tree
	Opts *inp.Options // options; nil means defaults
	Cm   Comm         // communicator; nil means the world communicator

	// variables of interest, optional: parallel sets of independent (param
	// side) and response (unknown side) names, by top promoted name. When
	// set, each voi gets its own relevance-reduced differential vectors.
	FwdVOIs [][]string
	RevVOIs [][]string

	// results of setup
	Warnings []string

	// derived
	pd        *ProbData
	connOrder []string
	setupDone bool
}

// NewProblem returns a new problem harness
func NewProblem(root *Group, opts *inp.Options) (o *Problem) {
	o = &Problem{Root: root, Opts: opts}
	return
}

// Setup performs the full setup sequence. It must be called before Run or
// CalcGradient, and called again after any structural mutation.
func (o *Problem) Setup() (err error) {
	if o.Cm == nil {
		o.Cm = comm.World()
	}
	o.pd = NewProbData()
	if o.Opts != nil {
		o.pd.Trace = o.Opts.Trace
	}

	// pathnames and variable collection
	o.Root.InitSysData("", o.pd)
	if _, _, err = o.Root.SetupVariables(); err != nil {
		return
	}
	if err = checkSourcePromotions(o.Root); err != nil {
		return
	}

	// top promoted names: the root-level promoted names, pushed down into
	// every per-level metadata copy
	for _, d := range []*VarDict{o.Root.paramsDict, o.Root.unknownsDict} {
		for _, path := range d.Keys() {
			o.pd.ToTopProm[path] = d.Get(path).PromName
		}
	}
	setTopProms(o.Root, o.pd.ToTopProm)

	// connection resolution
	conns, order, err := o.Root.resolveConnections()
	if err != nil {
		return
	}
	o.pd.Connections = conns
	o.connOrder = order
	applySrcIndices(o.Root, conns)

	// parameter ownership and communicators
	owners := paramOwnership(o.Root, conns, order)
	o.Root.SetupComms(o.Cm)

	// relevance
	o.pd.Relevance, err = NewRelevance(o.Root, conns, o.FwdVOIs, o.RevVOIs)
	if err != nil {
		return
	}

	// vectors and transfers
	if err = o.Root.SetupVectors(owners, nil, nil); err != nil {
		return
	}

	// solvers
	o.applyOptions()
	o.setupSolvers(o.Root)

	o.Warnings = collectWarnings(o.Root)
	if o.Opts != nil && o.Opts.Verbose {
		for _, w := range o.Warnings {
			io.Pfred("warning: %s\n", w)
		}
	}

	o.pd.SetupDone = true
	o.setupDone = true
	return
}

// Run performs setup if needed and solves the nonlinear problem
func (o *Problem) Run() (err error) {
	if !o.setupDone {
		if err = o.Setup(); err != nil {
			return
		}
	}
	return o.Root.SolveNonlinear(&Metadata{Coord: "root"})
}

// chooseVOI returns the voi key holding the differential vectors for the
// given seed variable: the variable itself when declared, else the full set
func (o *Problem) chooseVOI(name string) string {
	if _, ok := o.Root.DUMat[name]; ok {
		return name
	}
	return ""
}

// CalcGradient computes the derivatives of the given quantities with respect
// to the given independent variables, by forward or adjoint propagation.
//  Input:
//   indeps -- independent variables, by top promoted name
//   qois   -- quantities of interest, by top promoted name
//   mode   -- "fwd", "rev" or "auto"
//  Output: J[qoi][indep] is a (size(qoi) x size(indep)) matrix
func (o *Problem) CalcGradient(indeps, qois []string, mode string) (J map[string]map[string][][]float64, err error) {
	if !o.setupDone {
		return nil, chk.Err("Setup must be called before CalcGradient")
	}
	if mode == "auto" || mode == "" {
		mode = "fwd"
		if len(qois) < len(indeps) {
			mode = "rev"
		}
	}

	if err = o.Root.Linearize(); err != nil {
		return
	}

	// allocate result matrices
	J = make(map[string]map[string][][]float64)
	usize := func(name string) int {
		meta := o.Root.Unknowns.Metadata(name)
		if meta == nil {
			chk.Panic("variable %q is not a root-level unknown", name)
		}
		return meta.Size
	}
	for _, q := range qois {
		J[q] = make(map[string][][]float64)
		for _, p := range indeps {
			m := make([][]float64, usize(q))
			for i := range m {
				m[i] = make([]float64, usize(p))
			}
			J[q][p] = m
		}
	}

	seed := func(voi string, rhs *VecWrapper, name string, entry int) {
		o.Root.DUMat[voi].Zero()
		o.Root.DRMat[voi].Zero()
		o.Root.ClearDParams()
		rhs.Get(name)[entry] = 1
	}

	if mode == "fwd" {
		for _, p := range indeps {
			voi := o.chooseVOI(p)
			for j := 0; j < usize(p); j++ {
				seed(voi, o.Root.DRMat[voi], p, j)
				if err = o.Root.SolveLinear([]string{voi}, "fwd", false); err != nil {
					return
				}
				du := o.Root.DUMat[voi]
				for _, q := range qois {
					if !du.Contains(q) {
						continue
					}
					col := du.Get(q)
					for i := range col {
						J[q][p][i][j] = col[i]
					}
				}
			}
		}
		return
	}

	for _, q := range qois {
		voi := o.chooseVOI(q)
		for i := 0; i < usize(q); i++ {
			seed(voi, o.Root.DUMat[voi], q, i)
			if err = o.Root.SolveLinear([]string{voi}, "rev", false); err != nil {
				return
			}
			dr := o.Root.DRMat[voi]
			for _, p := range indeps {
				if !dr.Contains(p) {
					continue
				}
				row := dr.Get(p)
				for j := range row {
					J[q][p][i][j] = row[j]
				}
			}
		}
	}
	return
}

// CalcGradientArray stacks the gradient into one dense matrix with one row
// block per quantity and one column block per independent variable
func (o *Problem) CalcGradientArray(indeps, qois []string, mode string) (A [][]float64, err error) {
	J, err := o.CalcGradient(indeps, qois, mode)
	if err != nil {
		return
	}
	nrow, ncol := 0, 0
	for _, q := range qois {
		nrow += len(J[q][indeps[0]])
	}
	for _, p := range indeps {
		ncol += len(J[qois[0]][p][0])
	}
	A = make([][]float64, nrow)
	for i := range A {
		A[i] = make([]float64, ncol)
	}
	i0 := 0
	for _, q := range qois {
		j0 := 0
		for _, p := range indeps {
			m := J[q][p]
			for i := range m {
				copy(A[i0+i][j0:j0+len(m[i])], m[i])
			}
			j0 += len(m[0])
		}
		i0 += len(J[q][indeps[0]])
	}
	return
}

// Dump writes a formatted dump of the system tree
func (o *Problem) Dump(verbose bool) {
	o.dumpSys(o.Root, 0, verbose)
	if verbose {
		io.Pf("\nchild-level connection graph:\n%s", o.Root.sysGraphDot())
	}
}

func (o *Problem) dumpSys(s System, nest int, verbose bool) {
	pad := ""
	for i := 0; i < nest; i++ {
		pad += " "
	}
	b := s.Base()
	switch g := s.(type) {
	case *Group:
		io.Pf("%sGroup %q  usize:%d  psize:%d\n", pad, b.Name(), len(g.Unknowns.Vec), len(g.Params.Vec))
		if verbose {
			g.Unknowns.Dump()
			g.Params.Dump()
		}
		for _, sub := range g.subsystems {
			o.dumpSys(sub, nest+3, verbose)
		}
	case *Component:
		io.Pf("%sComponent %q  usize:%d\n", pad, b.Name(), len(b.Unknowns.Vec))
		if verbose {
			b.Unknowns.Dump()
			b.Params.Dump()
		}
	}
}

// applyOptions instantiates the solvers named in the options and configures
// their tolerances
func (o *Problem) applyOptions() {
	if o.Opts == nil {
		return
	}
	nl := NewNonlinSolver(o.Opts.NlSolver.Type)
	switch s := nl.(type) {
	case *NLGaussSeidel:
		s.Atol = o.Opts.NlSolver.Atol
		s.Rtol = o.Opts.NlSolver.Rtol
		s.NmaxIt = o.Opts.NlSolver.NmaxIt
		s.IPrint = o.Opts.NlSolver.IPrint
	case *Newton:
		s.Atol = o.Opts.NlSolver.Atol
		s.Rtol = o.Opts.NlSolver.Rtol
		s.NmaxIt = o.Opts.NlSolver.NmaxIt
		s.IPrint = o.Opts.NlSolver.IPrint
	}
	o.Root.NlSolver = nl

	ln := NewLinSolver(o.Opts.LnSolver.Type)
	switch s := ln.(type) {
	case *Gmres:
		s.Atol = o.Opts.LnSolver.Atol
		s.Maxiter = o.Opts.LnSolver.Maxiter
		s.Restart = o.Opts.LnSolver.Restart
		s.IPrint = o.Opts.LnSolver.IPrint
		s.Precondition = o.Opts.LnSolver.Precond
	case *LinGaussSeidel:
		s.Maxiter = o.Opts.LnSolver.Maxiter
		s.IPrint = o.Opts.LnSolver.IPrint
	}
	o.Root.LnSolver = ln

	pc := NewLinSolver(o.Opts.Precon.Type)
	if s, ok := pc.(*LinGaussSeidel); ok {
		s.Maxiter = o.Opts.Precon.Maxiter
	}
	o.Root.Precon = pc
}

// setupSolvers gives every group's solvers a chance to initialise
func (o *Problem) setupSolvers(g *Group) {
	g.NlSolver.Setup(g)
	g.LnSolver.Setup(g)
	g.Precon.Setup(g)
	for _, sub := range g.Subgroups() {
		o.setupSolvers(sub)
	}
}

// setTopProms pushes the root-level promoted names down the tree
func setTopProms(s System, topProm map[string]string) {
	s.Base().setTopPromNames(topProm)
	if g, ok := s.(*Group); ok {
		for _, sub := range g.subsystems {
			setTopProms(sub, topProm)
		}
	}
}

// collectWarnings gathers promotion warnings from the whole tree
func collectWarnings(g *Group) (ws []string) {
	ws = append(ws, g.Warnings...)
	for _, sub := range g.Subgroups() {
		ws = append(ws, collectWarnings(sub)...)
	}
	return
}
