// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package comm wraps the message passing layer behind a small communicator
// interface so that the engine runs identically with or without MPI.
package comm

// Comm is the communicator consumed by the engine. All collective calls must
// be entered by every rank of the communicator in the same order.
type Comm interface {

	// size and rank
	Size() int // number of processors
	Rank() int // id of this processor

	// collectives
	AllGatherInts(mine []int) [][]int // gather equal-length int rows from all ranks
	AllReduceSum(x, w []float64)      // sum x across all ranks, in place; w is workspace

	// Null tells whether this rank holds no portion of the work
	Null() bool
}

// Serial implements Comm for a single process. AllReduceSum is a no-op and
// AllGatherInts wraps the local row in a one-entry list.
type Serial struct {
}

// NewSerial returns a single-rank communicator
func NewSerial() *Serial {
	return new(Serial)
}

func (o *Serial) Size() int  { return 1 }
func (o *Serial) Rank() int  { return 0 }
func (o *Serial) Null() bool { return false }

// AllGatherInts wraps the local row in a one-entry list
func (o *Serial) AllGatherInts(mine []int) [][]int {
	row := make([]int, len(mine))
	copy(row, mine)
	return [][]int{row}
}

// AllReduceSum does nothing in serial mode
func (o *Serial) AllReduceSum(x, w []float64) {
}

// Fake implements Comm for tests that exercise multi-rank index math without
// a real transport. Gathered rows are preset by the caller.
type Fake struct {
	Sz   int     // pretended communicator size
	Rk   int     // pretended rank
	Rows [][]int // preset result of AllGatherInts
}

func (o *Fake) Size() int  { return o.Sz }
func (o *Fake) Rank() int  { return o.Rk }
func (o *Fake) Null() bool { return false }

func (o *Fake) AllGatherInts(mine []int) [][]int {
	return o.Rows
}

func (o *Fake) AllReduceSum(x, w []float64) {
}
