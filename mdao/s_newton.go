// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Newton solves the group with Newton-Raphson iterations, using the group's
// linear solver for the update step
type Newton struct {
	SolverBase
	Atol   float64 // absolute tolerance on the residual norm
	Rtol   float64 // relative tolerance on the residual norm
	NmaxIt int     // maximum number of iterations
	Relax  float64 // relaxation factor on the update
}

// set factory
func init() {
	nlSolverAllocators["newton"] = func() NonlinSolver {
		o := new(Newton)
		o.Atol = 1e-10
		o.Rtol = 1e-9
		o.NmaxIt = 20
		o.Relax = 1
		return o
	}
}

// Setup performs post-setup initialisation
func (o *Newton) Setup(sys *Group) {
}

// Solve iterates u += relax * J^-1 * r until the residual norm converges
func (o *Newton) Solve(mt *Metadata, sys *Group) (err error) {
	o.Failed = false
	o.IterCount = 0

	if err = sys.ApplyNonlinear(mt); err != nil {
		return
	}
	fnorm := sys.Resids.Norm()
	fnorm0 := fnorm
	if fnorm0 == 0 {
		fnorm0 = 1
	}
	if o.IPrint > 0 {
		o.PrintNorm("NEWTON", sys.Pathname(), o.IterCount, fnorm, fnorm0, "")
	}

	for fnorm > o.Atol && fnorm/fnorm0 > o.Rtol {
		if o.IterCount >= o.NmaxIt {
			o.Failed = true
			if o.IPrint > 0 {
				o.PrintNorm("NEWTON", sys.Pathname(), o.IterCount, fnorm, fnorm0,
					io.Sf("FAILED to converge after %d iterations", o.NmaxIt))
			}
			return
		}

		if err = sys.Linearize(); err != nil {
			return
		}

		// right-hand side: residuals, with state rows negated so the update
		// drives both row kinds towards zero
		du, dr := sys.DUMat[""], sys.DRMat[""]
		du.Zero()
		dr.Zero()
		for _, n := range dr.Keys() {
			meta := dr.Metadata(n)
			if meta.PassByObj || meta.Remote {
				continue
			}
			r := sys.Resids.Get(n)
			w := dr.Get(n)
			if meta.State {
				for i := range r {
					w[i] = -r[i]
				}
			} else {
				copy(w, r)
			}
		}
		sys.ClearDParams()

		if err = sys.SolveLinear([]string{""}, "fwd", false); err != nil {
			return
		}
		la.VecAdd(sys.Unknowns.Vec, o.Relax, du.Vec)

		if err = sys.ApplyNonlinear(mt); err != nil {
			return
		}
		o.IterCount++
		fnorm = sys.Resids.Norm()
		if o.IPrint > 0 {
			o.PrintNorm("NEWTON", sys.Pathname(), o.IterCount, fnorm, fnorm0, "")
		}
		if mt != nil {
			o.record(mt.Coord, sys)
		}
	}
	if o.IPrint > 0 {
		o.PrintNorm("NEWTON", sys.Pathname(), o.IterCount, fnorm, fnorm0, "Converged")
	}
	return
}
