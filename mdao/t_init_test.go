// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// ScaleComp computes Out = K*In (scalars)
type ScaleComp struct {
	In, Out string
	K       float64
	SrcIdx  []int
	Conv    *UnitConv
}

func (o *ScaleComp) Setup(c *Component) (err error) {
	opts := &VarOpts{SrcIndices: o.SrcIdx, UnitConv: o.Conv}
	if err = c.AddParam(o.In, []float64{0}, opts); err != nil {
		return
	}
	return c.AddOutput(o.Out, []float64{0}, nil)
}

func (o *ScaleComp) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	unknowns.SetScalar(o.Out, o.K*params.GetScalar(o.In))
	return
}

func (o *ScaleComp) Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error) {
	jac = Jacobian{
		{Unknown: o.Out, Wrt: o.In}: [][]float64{{o.K}},
	}
	return
}

// VecScale computes y = K*x elementwise; x may select src entries
type VecScale struct {
	N      int
	K      float64
	SrcIdx []int
}

func (o *VecScale) Setup(c *Component) (err error) {
	opts := &VarOpts{SrcIndices: o.SrcIdx}
	if err = c.AddParam("x", make([]float64, o.N), opts); err != nil {
		return
	}
	return c.AddOutput("y", make([]float64, o.N), nil)
}

func (o *VecScale) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	x := params.Get("x")
	y := unknowns.Get("y")
	for i := range y {
		y[i] = o.K * x[i]
	}
	return
}

func (o *VecScale) Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error) {
	J := make([][]float64, o.N)
	for i := range J {
		J[i] = make([]float64, o.N)
		J[i][i] = o.K
	}
	jac = Jacobian{{Unknown: "y", Wrt: "x"}: J}
	return
}

// SumComp computes z = x + y
type SumComp struct {
}

func (o *SumComp) Setup(c *Component) (err error) {
	if err = c.AddParam("x", []float64{0}, nil); err != nil {
		return
	}
	if err = c.AddParam("y", []float64{0}, nil); err != nil {
		return
	}
	return c.AddOutput("z", []float64{0}, nil)
}

func (o *SumComp) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	unknowns.SetScalar("z", params.GetScalar("x")+params.GetScalar("y"))
	return
}

func (o *SumComp) Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error) {
	jac = Jacobian{
		{Unknown: "z", Wrt: "x"}: [][]float64{{1}},
		{Unknown: "z", Wrt: "y"}: [][]float64{{1}},
	}
	return
}

// CoupledA computes y1 = x + A*y2
type CoupledA struct {
	A float64
}

func (o *CoupledA) Setup(c *Component) (err error) {
	if err = c.AddParam("x", []float64{0}, nil); err != nil {
		return
	}
	if err = c.AddParam("y2", []float64{0}, nil); err != nil {
		return
	}
	return c.AddOutput("y1", []float64{0}, nil)
}

func (o *CoupledA) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	unknowns.SetScalar("y1", params.GetScalar("x")+o.A*params.GetScalar("y2"))
	return
}

func (o *CoupledA) Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error) {
	jac = Jacobian{
		{Unknown: "y1", Wrt: "x"}:  [][]float64{{1}},
		{Unknown: "y1", Wrt: "y2"}: [][]float64{{o.A}},
	}
	return
}

// CoupledB computes y2 = B*y1
type CoupledB struct {
	B float64
}

func (o *CoupledB) Setup(c *Component) (err error) {
	if err = c.AddParam("y1", []float64{0}, nil); err != nil {
		return
	}
	return c.AddOutput("y2", []float64{0}, nil)
}

func (o *CoupledB) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	unknowns.SetScalar("y2", o.B*params.GetScalar("y1"))
	return
}

func (o *CoupledB) Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error) {
	jac = Jacobian{
		{Unknown: "y2", Wrt: "y1"}: [][]float64{{o.B}},
	}
	return
}

// ObjReader reads a pass-by-object parameter into an output
type ObjReader struct {
	Seen interface{}
}

func (o *ObjReader) Setup(c *Component) (err error) {
	if err = c.AddParamObj("cfg", nil); err != nil {
		return
	}
	return c.AddOutput("n", []float64{0}, nil)
}

func (o *ObjReader) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	o.Seen = params.GetObj("cfg")
	if s, ok := o.Seen.(string); ok {
		unknowns.SetScalar("n", float64(len(s)))
	}
	return
}

// buildChain returns the two-component chain: P.x --> C.x, C.y = 2*C.x
func buildChain() (prob *Problem, root *Group) {
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{3}))
	root.Add("C", NewComponent(&ScaleComp{In: "x", Out: "y", K: 2}))
	root.Connect("P.x", []string{"C.x"}, nil)
	prob = NewProblem(root, nil)
	return
}

// buildCoupled returns the coupled pair: d1.y1 = x + A*d2.y2, d2.y2 = B*d1.y1
func buildCoupled(a, b float64) (prob *Problem, root *Group) {
	root = NewGroup()
	root.Add("P", NewIndepVar("x", []float64{1}))
	root.Add("d1", NewComponent(&CoupledA{A: a}))
	root.Add("d2", NewComponent(&CoupledB{B: b}))
	root.Connect("P.x", []string{"d1.x"}, nil)
	root.Connect("d2.y2", []string{"d1.y2"}, nil)
	root.Connect("d1.y1", []string{"d2.y1"}, nil)
	prob = NewProblem(root, nil)
	return
}
