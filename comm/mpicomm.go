// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"github.com/cpmech/gosl/mpi"
)

// Mpi implements Comm on top of the MPI world communicator. The wrapper only
// needs float summations; AllGatherInts is emulated with a rank-strided
// scratch vector so that no extra collective kinds are required.
type Mpi struct {
}

// World returns the world communicator: the MPI wrapper when MPI is on,
// otherwise the serial stub.
func World() Comm {
	if mpi.IsOn() {
		return new(Mpi)
	}
	return NewSerial()
}

func (o *Mpi) Size() int  { return mpi.Size() }
func (o *Mpi) Rank() int  { return mpi.Rank() }
func (o *Mpi) Null() bool { return false }

// AllReduceSum sums x across all ranks, in place. w is workspace with the
// same length as x.
func (o *Mpi) AllReduceSum(x, w []float64) {
	mpi.AllReduceSum(x, w)
}

// AllGatherInts gathers one equal-length row of ints per rank. Each rank
// writes its row into its window of a zeroed scratch vector; one summation
// then makes all windows visible everywhere.
func (o *Mpi) AllGatherInts(mine []int) [][]int {
	n := len(mine)
	sz := mpi.Size()
	x := make([]float64, sz*n)
	w := make([]float64, sz*n)
	start := mpi.Rank() * n
	for i, v := range mine {
		x[start+i] = float64(v)
	}
	mpi.AllReduceSum(x, w)
	res := make([][]int, sz)
	for r := 0; r < sz; r++ {
		row := make([]int, n)
		for i := 0; i < n; i++ {
			row[i] = int(x[r*n+i])
		}
		res[r] = row
	}
	return res
}
