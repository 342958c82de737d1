// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input options read from a (.mdao) JSON file
package inp

import (
	"encoding/json"
	"os"

	"github.com/cpmech/gosl/chk"
)

// NlSolverData holds options for nonlinear solvers
type NlSolverData struct {
	Type   string  `json:"type"`   // "runonce", "nlgs" or "newton"
	NmaxIt int     `json:"nmaxit"` // max number of iterations
	Atol   float64 `json:"atol"`   // absolute tolerance on residual norm
	Rtol   float64 `json:"rtol"`   // relative tolerance on residual norm
	IPrint int     `json:"iprint"` // 0: quiet, 1: iteration norms, 2: subiterations too
}

// SetDefault sets default values
func (o *NlSolverData) SetDefault() {
	o.Type = "runonce"
	o.NmaxIt = 100
	o.Atol = 1e-10
	o.Rtol = 1e-9
}

// LnSolverData holds options for linear solvers
type LnSolverData struct {
	Type    string  `json:"type"`    // "gmres", "lings" or "direct"
	Maxiter int     `json:"maxiter"` // max number of iterations
	Atol    float64 `json:"atol"`    // absolute convergence tolerance
	Restart int     `json:"restart"` // restart length for gmres
	Mode    string  `json:"mode"`    // "fwd", "rev" or "auto"
	IPrint  int     `json:"iprint"`  // 0: quiet, 1: iteration norms
	Precond bool    `json:"precond"` // gmres: apply the slotted preconditioner
}

// SetDefault sets default values
func (o *LnSolverData) SetDefault() {
	o.Type = "gmres"
	o.Maxiter = 1000
	o.Atol = 1e-12
	o.Restart = 30
	o.Mode = "auto"
}

// PostProcess fixes values after reading the json file
func (o *LnSolverData) PostProcess() {
	if o.Mode == "" {
		o.Mode = "auto"
	}
	if o.Restart < 1 {
		o.Restart = 30
	}
}

// Options holds all input options for a problem
type Options struct {

	// global information
	Desc    string `json:"desc"`    // description of problem
	Verbose bool   `json:"verbose"` // show messages
	Trace   bool   `json:"trace"`   // print scatter/setup debug information

	// solvers
	NlSolver NlSolverData `json:"nlsolver"` // nonlinear solver options
	LnSolver LnSolverData `json:"lnsolver"` // linear solver options
	Precon   LnSolverData `json:"precon"`   // preconditioner options
}

// SetDefault sets default values
func (o *Options) SetDefault() {
	o.NlSolver.SetDefault()
	o.LnSolver.SetDefault()
	o.Precon.SetDefault()
	o.Precon.Type = "lings"
	o.Precon.Maxiter = 1
}

// ReadOptions reads options from a JSON file
func ReadOptions(fnamepath string) (o *Options, err error) {
	o = new(Options)
	o.SetDefault()
	b, err := os.ReadFile(fnamepath)
	if err != nil {
		return nil, chk.Err("cannot read options file %q:\n%v", fnamepath, err)
	}
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot parse options file %q:\n%v", fnamepath, err)
	}
	o.LnSolver.PostProcess()
	o.Precon.PostProcess()
	return
}
