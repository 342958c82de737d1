// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

// IndepVar is the user code of an independent-variable component: a source
// with no inputs that provides outputs for parameters to connect to. In
// linear mode the component acts as identity.
type IndepVar struct {
	vars []indepVarDecl
}

type indepVarDecl struct {
	name string
	val  []float64
	opts *VarOpts
	obj  interface{}
}

// AddVar declares one more independent variable; chainable before setup
func (o *IndepVar) AddVar(name string, val []float64, opts *VarOpts) *IndepVar {
	o.vars = append(o.vars, indepVarDecl{name: name, val: val, opts: opts})
	return o
}

// AddVarObj declares one more pass-by-object independent variable
func (o *IndepVar) AddVarObj(name string, obj interface{}) *IndepVar {
	o.vars = append(o.vars, indepVarDecl{name: name, obj: obj})
	return o
}

// Setup declares the outputs
func (o *IndepVar) Setup(c *Component) (err error) {
	for _, v := range o.vars {
		if v.obj != nil {
			err = c.AddOutputObj(v.name, v.obj)
		} else {
			err = c.AddOutput(v.name, v.val, v.opts)
		}
		if err != nil {
			return
		}
	}
	return
}

// SolveNonlinear performs no operation
func (o *IndepVar) SolveNonlinear(params, unknowns, resids *VecWrapper) (err error) {
	return
}

// NewIndepVar returns a component providing the given independent variable
func NewIndepVar(name string, val []float64) (c *Component) {
	iv := new(IndepVar)
	iv.AddVar(name, val, nil)
	c = NewComponent(iv)
	c.IsIndep = true
	return
}

// NewIndepVars returns a component providing several independent variables
func NewIndepVars(iv *IndepVar) (c *Component) {
	c = NewComponent(iv)
	c.IsIndep = true
	return
}
