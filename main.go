// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/theomission/gomdao/inp"
	"github.com/theomission/gomdao/mdao"
)

// Doubler computes y = 2*x
type Doubler struct {
}

func (o *Doubler) Setup(c *mdao.Component) (err error) {
	if err = c.AddParam("x", []float64{0}, nil); err != nil {
		return
	}
	return c.AddOutput("y", []float64{0}, nil)
}

func (o *Doubler) SolveNonlinear(params, unknowns, resids *mdao.VecWrapper) (err error) {
	unknowns.SetScalar("y", 2*params.GetScalar("x"))
	return
}

func (o *Doubler) Linearize(params, unknowns, resids *mdao.VecWrapper) (jac mdao.Jacobian, err error) {
	jac = mdao.Jacobian{
		{Unknown: "y", Wrt: "x"}: [][]float64{{2}},
	}
	return
}

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			if mpi.Rank() == 0 {
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
	}()
	mpi.Start(false)

	// read input parameters
	optsfn := io.ArgToString(0, "")
	verbose := io.ArgToBool(1, true)
	dump := io.ArgToBool(2, false)

	// message
	if mpi.Rank() == 0 && verbose {
		io.PfWhite("\ngomdao -- hierarchical system composition engine\n\n")
		io.Pf("%v\n", io.ArgsTable(
			"options file path", "optsfn", optsfn,
			"show messages", "verbose", verbose,
			"dump system tree", "dump", dump,
		))
	}

	// options
	var opts *inp.Options
	var err error
	if optsfn != "" {
		opts, err = inp.ReadOptions(optsfn)
		if err != nil {
			chk.Panic("cannot read options:\n%v", err)
		}
	} else {
		opts = new(inp.Options)
		opts.SetDefault()
	}
	opts.Verbose = verbose

	// demo problem: P.x --> C1.x, C1.y --> C2.x
	root := mdao.NewGroup()
	root.Add("P", mdao.NewIndepVar("x", []float64{3}))
	root.Add("C1", mdao.NewComponent(new(Doubler)))
	root.Add("C2", mdao.NewComponent(new(Doubler)))
	root.Connect("P.x", []string{"C1.x"}, nil)
	root.Connect("C1.y", []string{"C2.x"}, nil)

	prob := mdao.NewProblem(root, opts)
	if err = prob.Setup(); err != nil {
		chk.Panic("setup failed:\n%v", err)
	}
	if err = prob.Run(); err != nil {
		chk.Panic("run failed:\n%v", err)
	}

	if mpi.Rank() == 0 && verbose {
		io.Pf("\nC2.y = %v\n", root.Unknowns.GetScalar("C2.y"))
	}

	// gradient d(C2.y)/d(P.x)
	J, err := prob.CalcGradient([]string{"P.x"}, []string{"C2.y"}, "rev")
	if err != nil {
		chk.Panic("calc gradient failed:\n%v", err)
	}
	if mpi.Rank() == 0 && verbose {
		io.Pf("d(C2.y)/d(P.x) = %v\n", J["C2.y"]["P.x"][0][0])
	}

	if dump && mpi.Rank() == 0 {
		io.Pf("\n")
		prob.Dump(true)
	}
}
