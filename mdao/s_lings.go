// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
)

// LinGaussSeidel is a linear block Gauss-Seidel solver. A single sweep
// (Maxiter=1) solves feed-forward systems exactly and is the default
// preconditioner; more sweeps iterate coupled systems in forward mode.
// Children are assumed explicit (identity diagonal blocks).
type LinGaussSeidel struct {
	SolverBase
	Maxiter int       // number of sweeps
	GsOuts  GsOutputs // optional restriction of identity rows
}

// set factory
func init() {
	lnSolverAllocators["lings"] = func() LinSolver {
		o := new(LinGaussSeidel)
		o.Maxiter = 1
		return o
	}
}

// Setup performs post-setup initialisation
func (o *LinGaussSeidel) Setup(sys *Group) {
}

// Solve runs Gauss-Seidel sweeps for each variable of interest
func (o *LinGaussSeidel) Solve(rhs map[string][]float64, sys *Group, mode string) (sol map[string][]float64, err error) {
	sol = make(map[string][]float64)
	for voi, b := range rhs {
		if mode == "fwd" {
			sol[voi], err = o.sweepFwd(sys, voi, b)
		} else {
			sol[voi], err = o.sweepRev(sys, voi, b)
		}
		if err != nil {
			return nil, err
		}
	}
	return
}

// sweepFwd runs forward substitution sweeps: each child's solution block is
// x_c = b_c + dGdp*dp_c, with dp_c scattered from the latest upstream blocks
func (o *LinGaussSeidel) sweepFwd(sys *Group, voi string, b []float64) (x []float64, err error) {
	du := sys.DUMat[voi]
	chk.IntAssert(len(b), len(du.Vec))
	du.Zero()
	sys.ClearDParams()
	for it := 0; it < o.Maxiter; it++ {
		for _, sub := range sys.localSubs {
			sys.TransferData(sub.Base().Name(), "fwd", true, voi)
			if err = sub.SysApplyLinear("fwd", []string{voi}, o.GsOuts); err != nil {
				return
			}
			// x_c = b_c + du_c - dr_c  (dr_c = du_c - dGdp*dp_c)
			cdu := sub.Base().DUMat[voi]
			cdr := sub.Base().DRMat[voi]
			start := cdu.ViewStart()
			for i := 0; i < len(cdu.Vec); i++ {
				du.Vec[start+i] = b[start+i] + cdu.Vec[i] - cdr.Vec[i]
			}
		}
		o.IterCount = it + 1
	}
	x = make([]float64, len(du.Vec))
	copy(x, du.Vec)
	return
}

// sweepRev runs one backward substitution sweep: children are visited in
// reverse order, each block is closed off and its transposed coupling terms
// are accumulated into the upstream blocks
func (o *LinGaussSeidel) sweepRev(sys *Group, voi string, b []float64) (x []float64, err error) {
	du, dr := sys.DUMat[voi], sys.DRMat[voi]
	chk.IntAssert(len(b), len(du.Vec))
	du.Zero()
	dr.Zero()
	sys.ClearDParams()
	for i := len(sys.localSubs) - 1; i >= 0; i-- {
		sub := sys.localSubs[i]
		cdu := sub.Base().DUMat[voi]
		cdr := sub.Base().DRMat[voi]
		start := cdu.ViewStart()
		// x_c = b_c - (accumulated downstream couplings)
		for k := 0; k < len(cdr.Vec); k++ {
			cdr.Vec[k] = b[start+k] - du.Vec[start+k]
		}
		if err = sub.SysApplyLinear("rev", []string{voi}, o.GsOuts); err != nil {
			return
		}
		sys.TransferData("", "rev", true, voi)
		sys.ClearDParams()
	}
	o.IterCount = 1
	x = make([]float64, len(dr.Vec))
	copy(x, dr.Vec)
	return
}
