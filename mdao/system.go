// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/io"
)

// Metadata holds execution metadata handed to solvers and recorders
type Metadata struct {
	Coord string // iteration coordinate; e.g. "root/2|nlgs/5"
}

// FdOptions holds finite-difference options declared by components. The
// finite-difference engine itself is external; the engine only carries the
// declaration.
type FdOptions struct {
	ForceFd  bool    `json:"force_fd"`
	Form     string  `json:"form"`      // "forward", "backward", "central" or "complex_step"
	StepSize float64 `json:"step_size"` // step size
	StepType string  `json:"step_type"` // "absolute" or "relative"
}

// GsOutputs restricts, per variable of interest, the unknown rows an
// identity (source-only) system copies in linear mode. Rows are keyed by top
// promoted name. nil means all rows.
type GsOutputs map[string]map[string]bool

// System is the shared capability set of components and groups
type System interface {

	// information and initialisation
	Base() *SysBase                                // common data
	InitSysData(parentPath string, pd *ProbData)   // set absolute pathnames down the tree
	SetupVariables() (p, u *VarDict, err error)    // collect parameter/unknown dictionaries
	SetupComms(cm Comm)                            // assign communicators down the tree
	SetupVectors(po map[string][]string, parent *Group, top *VecWrapper) (err error)

	// called by solvers
	SolveNonlinear(mt *Metadata) (err error)                          // solve the nonlinear problem
	ApplyNonlinear(mt *Metadata) (err error)                          // evaluate residuals
	Linearize() (err error)                                           // recompute jacobians
	SysApplyLinear(mode string, vois []string, gs GsOutputs) (err error) // linear operator action
}

// SysBase holds the data common to components and groups
type SysBase struct {

	// naming
	name     string
	pathname string
	promotes []string // promotion patterns handed down by the parent group

	// problem data
	probdata *ProbData
	sysdata  *SysData
	cm       Comm

	// variable dictionaries (absolute path => metadata)
	paramsDict   *VarDict
	unknownsDict *VarDict

	// vectors
	Params   *VecWrapper
	Unknowns *VecWrapper
	Resids   *VecWrapper

	// differential vectors, per variable of interest ("" = all)
	DUMat map[string]*VecWrapper
	DPMat map[string]*VecWrapper
	DRMat map[string]*VecWrapper

	// options
	FdOpts FdOptions
}

// Name returns the name of this system within its parent
func (o *SysBase) Name() string { return o.name }

// SetName sets the name of this system
func (o *SysBase) SetName(name string) { o.name = name }

// Pathname returns the absolute path of this system
func (o *SysBase) Pathname() string { return o.pathname }

// Comm returns the communicator; nil when this rank is inactive
func (o *SysBase) Comm() Comm { return o.cm }

// IsActive tells whether this system participates on this rank
func (o *SysBase) IsActive() bool { return o.cm != nil }

// Promoted tells whether the given variable name matches one of the
// promotion patterns handed down by the parent
func (o *SysBase) Promoted(name string) bool {
	for _, p := range o.promotes {
		if promMatch(p, name) {
			return true
		}
	}
	return false
}

// checkPromotes returns one warning per promotion pattern that matched no
// variable of this system
func (o *SysBase) checkPromotes() (warnings []string) {
	for _, p := range o.promotes {
		found := false
		for _, d := range []*VarDict{o.paramsDict, o.unknownsDict} {
			if d == nil {
				continue
			}
			for _, path := range d.Keys() {
				if promMatch(p, d.Get(path).PromName) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			warnings = append(warnings, io.Sf("promotion pattern %q of system %q matched no variables", p, o.pathname))
		}
	}
	return
}

// initBase initialises the common data
func (o *SysBase) initBase() {
	o.sysdata = NewSysData()
	o.paramsDict = NewVarDict()
	o.unknownsDict = NewVarDict()
	o.DUMat = make(map[string]*VecWrapper)
	o.DPMat = make(map[string]*VecWrapper)
	o.DRMat = make(map[string]*VecWrapper)
	o.FdOpts = FdOptions{Form: "forward", StepSize: 1e-6, StepType: "absolute"}
}

// initSysDataBase sets the pathname of this system
func (o *SysBase) initSysDataBase(parentPath string, pd *ProbData) {
	o.probdata = pd
	o.pathname = joinPath(parentPath, o.name)
	o.sysdata.Pathname = o.pathname
	o.sysdata.ToPromName = make(map[string]string)
	o.sysdata.ToTopProm = make(map[string]string)
}

// setTopPromNames records the root-level promoted names into the local
// metadata copies
func (o *SysBase) setTopPromNames(topProm map[string]string) {
	for _, d := range []*VarDict{o.paramsDict, o.unknownsDict} {
		for _, path := range d.Keys() {
			if tp, ok := topProm[path]; ok {
				d.Get(path).TopPromName = tp
			}
		}
	}
}
