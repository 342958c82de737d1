// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_vec01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("vec01. source layout and views")

	root := NewGroup()
	root.Add("P", NewIndepVar("x", []float64{10, 20}))
	root.Add("C", NewComponent(&VecScale{N: 2, K: 3}))
	root.Connect("P.x", []string{"C.x"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Setup()
	if err != nil {
		tst.Errorf("setup failed:\n%v", err)
		return
	}

	// root layout: P.x then C.y, in declaration order
	s0, e0, ok := root.Unknowns.SliceOf("P.x")
	chk.IntAssert(1, b2i(ok))
	chk.Ints(tst, "P.x slice", []int{s0, e0}, []int{0, 2})
	s1, e1, _ := root.Unknowns.SliceOf("C.y")
	chk.Ints(tst, "C.y slice", []int{s1, e1}, []int{2, 4})

	// initial values copied into the flat buffer
	chk.Vector(tst, "u", 1e-17, root.Unknowns.Vec, []float64{10, 20, 0, 0})

	// child views are contiguous windows
	comp := root.Subsystem("C").(*Component)
	chk.IntAssert(len(comp.Unknowns.Vec), 2)
	chk.IntAssert(comp.Unknowns.ViewStart(), 2)

	// writing through the view is visible at the root
	comp.Unknowns.Set("y", []float64{7, 8})
	chk.Vector(tst, "u after view write", 1e-17, root.Unknowns.Vec, []float64{10, 20, 7, 8})

	// sizes: every rank reports the same ordering
	names, sizes := root.Unknowns.FlattenedSizes()
	chk.Strings(tst, "unames", names, []string{"P.x", "C.y"})
	chk.Ints(tst, "usizes", sizes, []int{2, 2})
}

func Test_vec02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("vec02. remote access and flattened sizes")

	sd := NewSysData()
	vw := newVecWrapper(sd, nil)
	ud := NewVarDict()
	ud.Set("sub.a", &VarMeta{Path: "sub.a", PromName: "sub.a", TopPromName: "sub.a", Size: 3, Val: []float64{1, 2, 3}})
	ud.Set("sub.b", &VarMeta{Path: "sub.b", PromName: "sub.b", TopPromName: "sub.b", Size: 2, Remote: true})
	vw.SetupSource(ud, nil, "", true)

	chk.IntAssert(len(vw.Vec), 3)
	_, err := vw.Access("sub.b")
	if err == nil || !strings.Contains(err.Error(), "RemoteAccess") {
		tst.Errorf("expected RemoteAccess error, got %v", err)
		return
	}

	// remote variables count zero in the local sizes row
	names, sizes := vw.FlattenedSizes()
	chk.Strings(tst, "names", names, []string{"sub.a", "sub.b"})
	chk.Ints(tst, "sizes", sizes, []int{3, 0})
}

func Test_vec03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("vec03. pass-by-object variables")

	root := NewGroup()
	iv := new(IndepVar)
	iv.AddVarObj("cfg", "hello")
	root.Add("P", NewIndepVars(iv))
	reader := new(ObjReader)
	root.Add("R", NewComponent(reader))
	root.Connect("P.cfg", []string{"R.cfg"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}
	chk.StrAssert(reader.Seen.(string), "hello")
	chk.Scalar(tst, "R.n", 1e-17, root.Unknowns.GetScalar("R.n"), 5)

	// by-object values live outside the numeric buffers
	_, _, ok := root.Unknowns.SliceOf("P.cfg")
	chk.IntAssert(b2i(ok), 0)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
