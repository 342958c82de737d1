// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/la"
)

// Direct assembles the dense system matrix by probing the linear operator
// with unit vectors and solves with an explicit inverse. Intended for small
// serial systems and for verifying iterative solutions.
type Direct struct {
	SolverBase
}

// set factory
func init() {
	lnSolverAllocators["direct"] = func() LinSolver {
		return new(Direct)
	}
}

// Setup performs post-setup initialisation
func (o *Direct) Setup(sys *Group) {
}

// Solve probes the operator column by column, inverts, and multiplies
func (o *Direct) Solve(rhs map[string][]float64, sys *Group, mode string) (sol map[string][]float64, err error) {
	sol = make(map[string][]float64)
	for voi, b := range rhs {
		n := len(b)
		A := la.MatAlloc(n, n)
		e := make([]float64, n)
		col := make([]float64, n)
		for j := 0; j < n; j++ {
			la.VecFill(e, 0)
			e[j] = 1
			if err = sysMult(sys, voi, mode, e, col); err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				A[i][j] = col[i]
			}
		}
		Ai := la.MatAlloc(n, n)
		if err = la.MatInvG(Ai, A, 1e-12); err != nil {
			return nil, err
		}
		x := make([]float64, n)
		la.MatVecMul(x, 1, Ai, b)
		sol[voi] = x
		o.IterCount = n
	}
	return
}
