// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_sol01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol01. linear Gauss-Seidel matches GMRES on a chain")

	prob, root := buildChain()
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	root.LnSolver = NewLinSolver("lings")
	J, err := prob.CalcGradient([]string{"P.x"}, []string{"C.y"}, "fwd")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "lings fwd", 1e-14, J["C.y"]["P.x"][0][0], 2)

	J, err = prob.CalcGradient([]string{"P.x"}, []string{"C.y"}, "rev")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "lings rev", 1e-14, J["C.y"]["P.x"][0][0], 2)
}

func Test_sol02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol02. direct solver agrees with GMRES on the coupled pair")

	prob, root := buildCoupled(0.2, 0.5)
	nl := NewNonlinSolver("nlgs").(*NLGaussSeidel)
	nl.Atol = 1e-12
	root.NlSolver = nl
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	root.LnSolver = NewLinSolver("direct")
	J, err := prob.CalcGradient([]string{"P.x"}, []string{"d2.y2"}, "fwd")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "direct fwd", 1e-12, J["d2.y2"]["P.x"][0][0], 0.5/0.9)

	J, err = prob.CalcGradient([]string{"P.x"}, []string{"d2.y2"}, "rev")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "direct rev", 1e-12, J["d2.y2"]["P.x"][0][0], 0.5/0.9)

	// iterated Gauss-Seidel converges on the (contractive) cycle in fwd mode
	gs := NewLinSolver("lings").(*LinGaussSeidel)
	gs.Maxiter = 60
	root.LnSolver = gs
	J, err = prob.CalcGradient([]string{"P.x"}, []string{"d2.y2"}, "fwd")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "lings fwd coupled", 1e-10, J["d2.y2"]["P.x"][0][0], 0.5/0.9)
}

func Test_sol03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol03. NLGS reports non-convergence and keeps the partial state")

	// ab > 1: the fixed point iteration diverges
	prob, root := buildCoupled(2, 1)
	nl := NewNonlinSolver("nlgs").(*NLGaussSeidel)
	nl.NmaxIt = 3
	root.NlSolver = nl

	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	chk.IntAssert(b2i(nl.Failed), 1)
	chk.IntAssert(nl.IterCount, 3)
}

func Test_sol04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol04. zero right-hand side short-circuits the linear solve")

	prob, root := buildChain()
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	err = root.Linearize()
	if err != nil {
		tst.Errorf("linearize failed:\n%v", err)
		return
	}

	du, dr := root.DUMat[""], root.DRMat[""]
	du.Set("P.x", []float64{9}) // stale solution content
	dr.Zero()                   // rhs below 1e-15
	err = root.SolveLinear([]string{""}, "fwd", false)
	if err != nil {
		tst.Errorf("solve linear failed:\n%v", err)
		return
	}
	chk.Vector(tst, "du zeroed", 1e-17, du.Vec, []float64{0, 0})
}

// countingRecorder counts solver callbacks
type countingRecorder struct {
	n int
}

func (o *countingRecorder) Record(iterCoord string, params, unknowns, resids *VecWrapper) {
	o.n++
}

func Test_sol05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol05. recorders receive solver iterations")

	prob, root := buildCoupled(0.2, 0.5)
	nl := NewNonlinSolver("nlgs").(*NLGaussSeidel)
	rec := new(countingRecorder)
	nl.Recorders = append(nl.Recorders, rec)
	root.NlSolver = nl

	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	if rec.n < 2 {
		tst.Errorf("expected at least two recorded iterations, got %d", rec.n)
	}
	chk.IntAssert(rec.n, nl.IterCount)
}

func Test_sol06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol06. gs_outputs restricts the identity rows")

	root := NewGroup()
	iv := new(IndepVar)
	iv.AddVar("x", []float64{1}, nil)
	iv.AddVar("z", []float64{2}, nil)
	root.Add("P", NewIndepVars(iv))
	prob := NewProblem(root, nil)
	err := prob.Setup()
	if err != nil {
		tst.Errorf("setup failed:\n%v", err)
		return
	}

	du, dr := root.DUMat[""], root.DRMat[""]
	du.SetScalar("P.x", 3)
	du.SetScalar("P.z", 4)
	dr.Zero()

	gs := GsOutputs{"": {"P.x": true}}
	err = root.SysApplyLinear("fwd", []string{""}, gs)
	if err != nil {
		tst.Errorf("fwd apply failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "dr[P.x]", 1e-17, dr.GetScalar("P.x"), 3)
	chk.Scalar(tst, "dr[P.z]", 1e-17, dr.GetScalar("P.z"), 0)
}

func Test_sol07(tst *testing.T) {

	//verbose()
	chk.PrintTitle("sol07. preconditioned GMRES calls back into the slotted preconditioner")

	prob, root := buildCoupled(0.2, 0.5)
	nl := NewNonlinSolver("nlgs").(*NLGaussSeidel)
	nl.Atol = 1e-12
	root.NlSolver = nl
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	gm := NewLinSolver("gmres").(*Gmres)
	gm.Precondition = true
	root.LnSolver = gm

	J, err := prob.CalcGradient([]string{"P.x"}, []string{"d2.y2"}, "fwd")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "precon fwd", 1e-10, J["d2.y2"]["P.x"][0][0], 0.5/0.9)

	J, err = prob.CalcGradient([]string{"P.x"}, []string{"d2.y2"}, "rev")
	if err != nil {
		tst.Errorf("calc gradient failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "precon rev", 1e-10, J["d2.y2"]["P.x"][0][0], 0.5/0.9)
}
