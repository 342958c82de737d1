// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_serial01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("serial01. single-rank stub")

	c := NewSerial()
	chk.IntAssert(c.Size(), 1)
	chk.IntAssert(c.Rank(), 0)

	rows := c.AllGatherInts([]int{3, 1, 4})
	chk.IntAssert(len(rows), 1)
	chk.Ints(tst, "row0", rows[0], []int{3, 1, 4})

	// summation is a no-op with one rank
	x := []float64{1, 2}
	w := make([]float64, 2)
	c.AllReduceSum(x, w)
	chk.Vector(tst, "x", 1e-17, x, []float64{1, 2})
}

func Test_fake01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("fake01. preset multi-rank views")

	c := &Fake{Sz: 2, Rk: 1, Rows: [][]int{{4, 0}, {0, 4}}}
	chk.IntAssert(c.Size(), 2)
	chk.IntAssert(c.Rank(), 1)
	rows := c.AllGatherInts(nil)
	chk.IntAssert(len(rows), 2)
	chk.Ints(tst, "row0", rows[0], []int{4, 0})
	chk.Ints(tst, "row1", rows[1], []int{0, 4})
}
