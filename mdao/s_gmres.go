// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"math"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// sysMult applies the group's linear operator to a flat vector: seed the
// solution vector, zero the rhs vector, clear dp, and run SysApplyLinear
func sysMult(sys *Group, voi, mode string, x, out []float64) (err error) {
	sol, rhs := sys.DUMat[voi], sys.DRMat[voi]
	if mode == "rev" {
		sol, rhs = rhs, sol
	}
	copy(sol.Vec, x)
	rhs.Zero()
	sys.ClearDParams()
	if err = sys.SysApplyLinear(mode, []string{voi}, nil); err != nil {
		return
	}
	copy(out, rhs.Vec)
	return
}

// sysPrecon applies the group's slotted preconditioner to a flat vector:
// seed the rhs vector, run one preconditioner solve, and read the solution
// vector back
func sysPrecon(sys *Group, voi, mode string, x, out []float64) (err error) {
	sol, rhs := sys.DUMat[voi], sys.DRMat[voi]
	if mode == "rev" {
		sol, rhs = rhs, sol
	}
	copy(rhs.Vec, x)
	sys.ClearDParams()
	if err = sys.SolveLinear([]string{voi}, mode, true); err != nil {
		return
	}
	copy(out, sol.Vec)
	return
}

// Gmres solves the linearised system with the restarted generalised minimal
// residual method. The system is seen only through its operator action, one
// right-hand side (variable of interest) at a time. With Precondition on,
// every Krylov product is followed by one sweep of the preconditioner
// slotted in the group (left preconditioning).
type Gmres struct {
	SolverBase
	Atol    float64 // absolute convergence tolerance
	Maxiter int     // maximum number of iterations
	Restart int     // restart length

	// Precondition applies the group's slotted preconditioner around each
	// operator application
	Precondition bool
}

// set factory
func init() {
	lnSolverAllocators["gmres"] = func() LinSolver {
		o := new(Gmres)
		o.Atol = 1e-12
		o.Maxiter = 1000
		o.Restart = 30
		return o
	}
}

// Setup performs post-setup initialisation
func (o *Gmres) Setup(sys *Group) {
}

// mult applies the (optionally preconditioned) operator to a flat vector
func (o *Gmres) mult(sys *Group, voi, mode string, x, out []float64) (err error) {
	if err = sysMult(sys, voi, mode, x, out); err != nil {
		return
	}
	if o.Precondition {
		err = sysPrecon(sys, voi, mode, out, out)
	}
	return
}

// Solve solves the linear system for each variable of interest
func (o *Gmres) Solve(rhs map[string][]float64, sys *Group, mode string) (sol map[string][]float64, err error) {
	sol = make(map[string][]float64)
	o.Failed = false
	for voi, b := range rhs {
		x, iters, ok, e := o.gmres(sys, voi, mode, b)
		if e != nil {
			return nil, e
		}
		o.IterCount = iters
		if !ok {
			o.Failed = true
			io.Pfred("solve in %q: gmres FAILED to converge after %d iterations\n", sys.Pathname(), iters)
		} else if o.IPrint > 0 {
			o.PrintNorm("GMRES", sys.Pathname(), iters, 0, 1, "Converged")
		}
		sol[voi] = x
	}
	return
}

// gmres runs restarted GMRES on one right-hand side. The partial solution is
// returned even on non-convergence.
func (o *Gmres) gmres(sys *Group, voi, mode string, b []float64) (x []float64, iters int, converged bool, err error) {
	n := len(b)
	x = make([]float64, n)
	if n == 0 {
		converged = true
		return
	}
	m := o.Restart
	if m > n {
		m = n
	}

	ax := make([]float64, n)
	w := make([]float64, n)
	V := la.MatAlloc(m+1, n)
	H := la.MatAlloc(m+2, m+1)
	c := make([]float64, m+1)
	s := make([]float64, m+1)
	g := make([]float64, m+2)
	y := make([]float64, m+1)

	for iters < o.Maxiter {

		// residual of the current iterate, in the preconditioned space
		if err = sysMult(sys, voi, mode, x, ax); err != nil {
			return
		}
		for i := 0; i < n; i++ {
			w[i] = b[i] - ax[i]
		}
		if o.Precondition {
			if err = sysPrecon(sys, voi, mode, w, w); err != nil {
				return
			}
		}
		beta := la.VecNorm(w)
		if beta <= o.Atol {
			converged = true
			return
		}
		for i := 0; i < n; i++ {
			V[0][i] = w[i] / beta
		}
		la.VecFill(g, 0)
		g[0] = beta

		// Arnoldi with Givens rotations
		k := -1
		for j := 0; j < m && iters < o.Maxiter; j++ {
			k = j
			iters++
			if err = o.mult(sys, voi, mode, V[j], w); err != nil {
				return
			}
			for i := 0; i <= j; i++ {
				H[i][j] = la.VecDot(w, V[i])
				la.VecAdd(w, -H[i][j], V[i])
			}
			H[j+1][j] = la.VecNorm(w)
			if H[j+1][j] > 0 {
				for i := 0; i < n; i++ {
					V[j+1][i] = w[i] / H[j+1][j]
				}
			}

			// apply previous rotations to the new column
			for i := 0; i < j; i++ {
				h0 := c[i]*H[i][j] + s[i]*H[i+1][j]
				h1 := -s[i]*H[i][j] + c[i]*H[i+1][j]
				H[i][j], H[i+1][j] = h0, h1
			}

			// new rotation zeroing H[j+1][j]
			den := math.Sqrt(H[j][j]*H[j][j] + H[j+1][j]*H[j+1][j])
			if den == 0 {
				c[j], s[j] = 1, 0
			} else {
				c[j], s[j] = H[j][j]/den, H[j+1][j]/den
			}
			H[j][j] = c[j]*H[j][j] + s[j]*H[j+1][j]
			H[j+1][j] = 0
			g[j+1] = -s[j] * g[j]
			g[j] = c[j] * g[j]

			res := math.Abs(g[j+1])
			if o.IPrint > 1 {
				o.PrintNorm("GMRES", sys.Pathname(), iters, res, beta, "")
			}
			if res <= o.Atol {
				break
			}
		}

		// back substitution and update of x
		for j := k; j >= 0; j-- {
			y[j] = g[j]
			for i := j + 1; i <= k; i++ {
				y[j] -= H[j][i] * y[i]
			}
			y[j] /= H[j][j]
		}
		for j := 0; j <= k; j++ {
			la.VecAdd(x, y[j], V[j])
		}
		if math.Abs(g[k+1]) <= o.Atol {
			converged = true
			return
		}
	}
	return
}
