// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// expectSetupError asserts that Setup fails with the given message prefix
func expectSetupError(tst *testing.T, root *Group, kind string) {
	prob := NewProblem(root, nil)
	err := prob.Setup()
	if err == nil {
		tst.Errorf("expected %s error, got nil", kind)
		return
	}
	if !strings.Contains(err.Error(), kind) {
		tst.Errorf("expected %s error, got: %v", kind, err)
	}
}

func Test_conn01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn01. promoted name merge: one source, two targets")

	root := NewGroup()
	root.Add("s", NewIndepVar("out", []float64{2}))
	root.Add("c1", NewComponent(&ScaleComp{In: "a", Out: "b", K: 3}), "a")
	root.Add("c2", NewComponent(&ScaleComp{In: "a", Out: "b", K: 5}), "a")
	root.Connect("s.out", []string{"a"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Setup()
	if err != nil {
		tst.Errorf("setup failed:\n%v", err)
		return
	}

	// both targets point at the same source
	c1 := prob.pd.Connections["c1.a"]
	c2 := prob.pd.Connections["c2.a"]
	if c1 == nil || c2 == nil {
		tst.Errorf("expected two connection entries, got %v", prob.pd.Connections)
		return
	}
	chk.StrAssert(c1.Src, "s.out")
	chk.StrAssert(c2.Src, "s.out")

	// a single forward scatter updates both targets identically
	err = prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	chk.Scalar(tst, "c1.a", 1e-17, root.Subsystem("c1").(*Component).Params.GetScalar("a"), 2)
	chk.Scalar(tst, "c2.a", 1e-17, root.Subsystem("c2").(*Component).Params.GetScalar("a"), 2)
	chk.Scalar(tst, "c1.b", 1e-17, root.Unknowns.GetScalar("c1.b"), 6)
	chk.Scalar(tst, "c2.b", 1e-17, root.Unknowns.GetScalar("c2.b"), 10)
}

func Test_conn02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn02. implied connection by promotion")

	// source and parameter promoted to the same name at the group level
	root := NewGroup()
	root.Add("s", NewIndepVar("a", []float64{4}), "a")
	root.Add("c", NewComponent(&ScaleComp{In: "a", Out: "b", K: 2}), "a")

	prob := NewProblem(root, nil)
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	c := prob.pd.Connections["c.a"]
	if c == nil {
		tst.Errorf("expected implied connection for c.a")
		return
	}
	chk.StrAssert(c.Src, "s.a")
	chk.Scalar(tst, "c.b", 1e-17, root.Unknowns.GetScalar("c.b"), 8)
}

func Test_conn03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn03. connection errors")

	// nonexistent source
	root := NewGroup()
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Connect("nope", []string{"C.x"}, nil)
	expectSetupError(tst, root, "NonexistentSource")

	// nonexistent target
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{1}))
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Connect("P.x", []string{"C.nope"}, nil)
	expectSetupError(tst, root, "NonexistentTarget")

	// target is an output
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{1}))
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Connect("P.x", []string{"C.y"}, nil)
	expectSetupError(tst, root, "InvalidTarget")

	// two different sources for the same target
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{1}))
	root.Add("Q", NewIndepVar("z", []float64{2}))
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Connect("P.x", []string{"C.x"}, nil)
	root.Connect("Q.z", []string{"C.x"}, nil)
	expectSetupError(tst, root, "MultipleSources")

	// src_indices out of range
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{1, 2, 3, 4, 5}))
	root.Add("C", NewComponent(&VecScale{N: 2, K: 1}))
	root.Connect("P.x", []string{"C.x"}, []int{0, 7})
	expectSetupError(tst, root, "IndicesOutOfRange")

	// src_indices on both endpoints
	root = NewGroup()
	iv := new(IndepVar)
	iv.AddVar("x", []float64{1, 2}, &VarOpts{SrcIndices: []int{0, 1}})
	root.Add("P", NewIndepVars(iv))
	root.Add("C", NewComponent(&VecScale{N: 2, K: 1, SrcIdx: []int{0, 1}}))
	root.Connect("P.x", []string{"C.x"}, nil)
	expectSetupError(tst, root, "IndicesBothEnds")
}

func Test_conn04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn04. naming errors at declaration")

	c := NewComponent(nil)
	err := c.AddParam("a.b", []float64{0}, nil)
	if err == nil || !strings.Contains(err.Error(), "InvalidName") {
		tst.Errorf("expected InvalidName, got %v", err)
		return
	}
	err = c.AddParam("a", []float64{0}, nil)
	if err != nil {
		tst.Errorf("AddParam failed: %v", err)
		return
	}
	err = c.AddOutput("a", []float64{0}, nil)
	if err == nil || !strings.Contains(err.Error(), "DuplicateName") {
		tst.Errorf("expected DuplicateName, got %v", err)
		return
	}
	err = c.AddOutput("b", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "MissingShape") {
		tst.Errorf("expected MissingShape, got %v", err)
		return
	}
	err = c.AddOutput("b", nil, &VarOpts{Shape: []int{2, 3}})
	if err != nil {
		tst.Errorf("AddOutput with shape failed: %v", err)
		return
	}
	chk.IntAssert(c.declUnknowns[0].Size, 6)
}

func Test_conn05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn05. setup closes variable additions")

	prob, root := buildChain()
	err := prob.Setup()
	if err != nil {
		tst.Errorf("setup failed:\n%v", err)
		return
	}
	comp := root.Subsystem("C").(*Component)
	err = comp.AddOutput("late", []float64{0}, nil)
	if err == nil || !strings.Contains(err.Error(), "SetupClosed") {
		tst.Errorf("expected SetupClosed, got %v", err)
	}
}

func Test_conn06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn06. source promotion must stay injective")

	root := NewGroup()
	root.Add("a", NewIndepVar("y", []float64{1}), "y")
	root.Add("b", NewIndepVar("y", []float64{2}), "y")
	expectSetupError(tst, root, "multiple sources")
}

func Test_conn07(tst *testing.T) {

	//verbose()
	chk.PrintTitle("conn07. promotion pattern warnings and unconnected defaults")

	root := NewGroup()
	root.Add("P", NewIndepVar("x", []float64{3}), "zzz*")
	root.Add("C", NewComponent(&SumComp{}))
	root.Connect("P.x", []string{"C.x"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	// pattern matched nothing: warning, not error
	if len(prob.Warnings) != 1 {
		tst.Errorf("expected one warning, got %v", prob.Warnings)
		return
	}

	// C.y is unconnected: the component reads its declared default
	chk.Scalar(tst, "C.z", 1e-17, root.Unknowns.GetScalar("C.z"), 3)
}
