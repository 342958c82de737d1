// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

// RunOnce is the default nonlinear executor: a single pass over the children
// in execution order, refreshing each child's parameters from upstream
// unknowns before invoking it
type RunOnce struct {
	SolverBase
}

// set factory
func init() {
	nlSolverAllocators["runonce"] = func() NonlinSolver {
		return new(RunOnce)
	}
}

// Setup performs post-setup initialisation
func (o *RunOnce) Setup(sys *Group) {
}

// Solve runs the children once
func (o *RunOnce) Solve(mt *Metadata, sys *Group) (err error) {
	err = sys.ChildrenSolveNonlinear(mt)
	if err != nil {
		return
	}
	o.IterCount = 1
	if mt != nil {
		o.record(mt.Coord, sys)
	}
	return
}
