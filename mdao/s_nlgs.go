// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/io"
)

// NLGaussSeidel is a nonlinear block Gauss-Seidel solver: it sweeps the
// children in execution order until the residual norm meets the tolerances.
// With maxiter=1 it degenerates into RunOnce.
type NLGaussSeidel struct {
	SolverBase
	Atol   float64 // absolute tolerance on the residual norm
	Rtol   float64 // relative tolerance on the residual norm
	NmaxIt int     // maximum number of sweeps
}

// set factory
func init() {
	nlSolverAllocators["nlgs"] = func() NonlinSolver {
		o := new(NLGaussSeidel)
		o.Atol = 1e-10
		o.Rtol = 1e-9
		o.NmaxIt = 100
		return o
	}
}

// Setup performs post-setup initialisation
func (o *NLGaussSeidel) Setup(sys *Group) {
}

// Solve sweeps the children until convergence
func (o *NLGaussSeidel) Solve(mt *Metadata, sys *Group) (err error) {
	o.Failed = false
	o.IterCount = 0

	// initial sweep and residual
	if err = sys.ChildrenSolveNonlinear(mt); err != nil {
		return
	}
	if err = sys.ApplyNonlinear(mt); err != nil {
		return
	}
	o.IterCount = 1
	fnorm := sys.Resids.Norm()
	fnorm0 := fnorm
	if fnorm0 == 0 {
		fnorm0 = 1
	}
	if o.IPrint > 0 {
		o.PrintNorm("NLGS", sys.Pathname(), o.IterCount, fnorm, fnorm0, "")
	}
	if mt != nil {
		o.record(mt.Coord, sys)
	}

	for fnorm > o.Atol && fnorm/fnorm0 > o.Rtol {
		if o.IterCount >= o.NmaxIt {
			o.Failed = true
			if o.IPrint > 0 {
				o.PrintNorm("NLGS", sys.Pathname(), o.IterCount, fnorm, fnorm0,
					io.Sf("FAILED to converge after %d iterations", o.NmaxIt))
			}
			return
		}
		if err = sys.ChildrenSolveNonlinear(mt); err != nil {
			return
		}
		if err = sys.ApplyNonlinear(mt); err != nil {
			return
		}
		o.IterCount++
		fnorm = sys.Resids.Norm()
		if o.IPrint > 0 {
			o.PrintNorm("NLGS", sys.Pathname(), o.IterCount, fnorm, fnorm0, "")
		}
		if mt != nil {
			o.record(mt.Coord, sys)
		}
	}
	if o.IPrint > 0 {
		o.PrintNorm("NLGS", sys.Pathname(), o.IterCount, fnorm, fnorm0, "Converged")
	}
	return
}
