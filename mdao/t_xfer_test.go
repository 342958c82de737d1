// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_xfer01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("xfer01. src_indices selection")

	root := NewGroup()
	root.Add("P", NewIndepVar("x", []float64{10, 20, 30, 40, 50}))
	root.Add("C", NewComponent(&VecScale{N: 3, K: 1, SrcIdx: []int{0, 2, 4}}))
	root.Connect("P.x", []string{"C.x"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	// source indices select entries of the full variable; target block is
	// contiguous
	srcIdxs, tgtIdxs := root.XferIdxs("C", "fwd", "")
	chk.Ints(tst, "src idxs", srcIdxs, []int{0, 2, 4})
	chk.Ints(tst, "tgt idxs", tgtIdxs, []int{0, 1, 2})
	chk.IntAssert(len(srcIdxs), len(tgtIdxs))

	chk.Vector(tst, "C.x", 1e-17, root.Subsystem("C").(*Component).Params.Get("x"), []float64{10, 30, 50})
	chk.Vector(tst, "C.y", 1e-17, root.Unknowns.Get("C.y"), []float64{10, 30, 50})
}

func Test_xfer02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("xfer02. full transfer concatenates the per-child pieces")

	root := NewGroup()
	root.Add("P", NewIndepVar("x", []float64{3}))
	root.Add("C1", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Add("C2", NewComponent(&ScaleComp{In: "x", Out: "y", K: 4}))
	root.Connect("P.x", []string{"C1.x"}, nil)
	root.Connect("C1.y", []string{"C2.x"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Setup()
	if err != nil {
		tst.Errorf("setup failed:\n%v", err)
		return
	}

	for _, mode := range []string{"fwd", "rev"} {
		var allSrc, allTgt []int
		for _, child := range []string{"P", "C1", "C2"} {
			s, t := root.XferIdxs(child, mode, "")
			allSrc = append(allSrc, s...)
			allTgt = append(allTgt, t...)
		}
		fullSrc, fullTgt := root.XferIdxs("", mode, "")
		chk.Ints(tst, "full src "+mode, fullSrc, allSrc)
		chk.Ints(tst, "full tgt "+mode, fullTgt, allTgt)
		chk.IntAssert(len(fullSrc), len(fullTgt))
	}
}

func Test_xfer03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("xfer03. unit conversion: values convert, derivatives drop the offset")

	root := NewGroup()
	root.Add("P", NewIndepVar("x", []float64{3}))
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 1, Conv: &UnitConv{Scale: 2, Offset: 5}}))
	root.Connect("P.x", []string{"C.x"}, nil)

	prob := NewProblem(root, nil)
	err := prob.Run()
	if err != nil {
		tst.Errorf("run failed:\n%v", err)
		return
	}

	// value transfer: scale*(val+offset)
	chk.Scalar(tst, "C.x value", 1e-15, root.Subsystem("C").(*Component).Params.GetScalar("x"), 16)

	// derivative transfer: scale only
	du, dp := root.DUMat[""], root.DPMat[""]
	du.Zero()
	dp.Zero()
	du.SetScalar("P.x", 1)
	root.TransferData("", "fwd", true, "")
	chk.Scalar(tst, "C.x deriv", 1e-15, dp.GetScalar("C.x"), 2)

	// reverse derivative transfer accumulates with the scale
	du.Zero()
	dp.Zero()
	dp.SetScalar("C.x", 1)
	root.TransferData("", "rev", true, "")
	chk.Scalar(tst, "P.x rev", 1e-15, du.GetScalar("P.x"), 2)
}

func Test_xfer04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("xfer04. distributed ownership: two ranks, remote endpoints")

	// variable x of size 4 local to rank 0; target of size 4 local to rank 1
	uSizes := [][]int{{4}, {0}}
	pSizes := [][]int{{0}, {4}}

	// rank 0 view
	umeta0 := &VarMeta{Path: "s.x", Size: 4}
	pmeta0 := &VarMeta{Path: "c.t", Size: 4, Remote: true}
	src0, tgt0 := globalIdxs(umeta0, pmeta0, 0, 0, uSizes, pSizes, 0, 0, 1, "fwd")
	chk.IntAssert(len(src0), 0)
	chk.IntAssert(len(tgt0), 0)

	// rank 1 view: pulls the four values from rank 0's window
	umeta1 := &VarMeta{Path: "s.x", Size: 4, Remote: true}
	pmeta1 := &VarMeta{Path: "c.t", Size: 4}
	src1, tgt1 := globalIdxs(umeta1, pmeta1, 0, 0, uSizes, pSizes, 1, 0, 1, "fwd")
	chk.Ints(tst, "rank1 src", src1, []int{0, 1, 2, 3})
	chk.Ints(tst, "rank1 tgt", tgt1, []int{0, 1, 2, 3})
	chk.IntAssert(len(src1), len(tgt1))

	// reverse mode flips which rank computes: rank 0 receives
	srcR, tgtR := globalIdxs(umeta0, pmeta0, 0, 0, uSizes, pSizes, 0, 0, 1, "rev")
	chk.Ints(tst, "rank0 rev src", srcR, []int{0, 1, 2, 3})
	chk.Ints(tst, "rank0 rev tgt", tgtR, []int{0, 1, 2, 3})
	srcR1, tgtR1 := globalIdxs(umeta1, pmeta1, 0, 0, uSizes, pSizes, 1, 0, 1, "rev")
	chk.IntAssert(len(srcR1), 0)
	chk.IntAssert(len(tgtR1), 0)
}

func Test_xfer05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("xfer05. global offsets with several variables per rank")

	// two ranks, three unknowns: a(2,2) distributed, b(1,0), c(0,3)
	uSizes := [][]int{{2, 1, 0}, {2, 0, 3}}
	// two params: p(1,0), q(0,2)
	pSizes := [][]int{{1, 0}, {0, 2}}

	// q connects to the distributed a with src_indices [1,3]: entry 1 lives
	// on rank 0 (offset 0), entry 3 on rank 1 (window starts at 3)
	umeta := &VarMeta{Path: "s.a", Size: 2, SrcIndices: []int{2, 3}}
	pmeta := &VarMeta{Path: "g.q", Size: 2, SrcIndices: []int{1, 3}}
	src, tgt := globalIdxs(umeta, pmeta, 0, 1, uSizes, pSizes, 1, 0, 1, "fwd")

	// rank 0 holds rows a[0:2) at global [0,2); rank 1 holds a[2:4) at
	// global [3,5)
	chk.Ints(tst, "src", src, []int{1, 4})

	// target block starts after rank 0's params plus rank 1's vars before q
	chk.Ints(tst, "tgt", tgt, []int{1, 2})
}
