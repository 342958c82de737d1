// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// NonlinSolver is the contract of pluggable nonlinear solvers
type NonlinSolver interface {
	Setup(sys *Group)                             // post-setup initialisation
	Solve(mt *Metadata, sys *Group) (err error)   // solve the nonlinear system
}

// LinSolver is the contract of pluggable linear solvers. The flat right-hand
// sides are keyed by variable of interest; the system is an opaque linear
// operator whose action is SysApplyLinear.
type LinSolver interface {
	Setup(sys *Group)
	Solve(rhs map[string][]float64, sys *Group, mode string) (sol map[string][]float64, err error)
}

// Recorder receives solver iterations. The format of the stored data is
// opaque to the engine.
type Recorder interface {
	Record(iterCoord string, params, unknowns, resids *VecWrapper)
}

// nlSolverAllocators holds all available nonlinear solvers
var nlSolverAllocators = make(map[string]func() NonlinSolver)

// lnSolverAllocators holds all available linear solvers
var lnSolverAllocators = make(map[string]func() LinSolver)

// NewNonlinSolver returns a new nonlinear solver by name; e.g. "runonce",
// "nlgs" or "newton"
func NewNonlinSolver(name string) NonlinSolver {
	alloc, ok := nlSolverAllocators[name]
	if !ok {
		chk.Panic("cannot find nonlinear solver named %q", name)
	}
	return alloc()
}

// NewLinSolver returns a new linear solver by name; e.g. "gmres", "lings" or
// "direct"
func NewLinSolver(name string) LinSolver {
	alloc, ok := lnSolverAllocators[name]
	if !ok {
		chk.Panic("cannot find linear solver named %q", name)
	}
	return alloc()
}

// SolverBase holds data common to all solvers
type SolverBase struct {
	IPrint    int        // 0: quiet, 1: iteration norms, 2: subiterations too
	IterCount int        // iterations used by the last solve
	Failed    bool       // last solve did not converge
	Recorders []Recorder // receive iterations
}

// record sends one iteration to all recorders
func (o *SolverBase) record(iterCoord string, sys *Group) {
	for _, r := range o.Recorders {
		r.Record(iterCoord, sys.Params, sys.Unknowns, sys.Resids)
	}
}

// PrintNorm prints the norm of the residual in a neat readable format
func (o *SolverBase) PrintNorm(solverString, pathname string, iteration int, res, res0 float64, msg string) {
	name := "root"
	if pathname != "" {
		name = "root." + pathname
	}
	indent := strings.Repeat("   ", strings.Count(pathname, "."))
	if msg != "" {
		io.Pf("%s[%s] %s   %d | %s\n", indent, name, solverString, iteration, msg)
		return
	}
	rel := res / res0
	io.Pf("%s[%s] %s   %d | %.9g %.9g\n", indent, name, solverString, iteration, res, rel)
}
