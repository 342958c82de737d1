// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"

	"github.com/cpmech/gosl/la"
)

// Runner is the user contract of a component: declare variables during Setup
// and compute outputs in SolveNonlinear
type Runner interface {
	Setup(c *Component) (err error)
	SolveNonlinear(params, unknowns, resids *VecWrapper) (err error)
}

// ApplyNonlinearer is implemented by components with state variables to
// evaluate residuals in place
type ApplyNonlinearer interface {
	ApplyNonlinear(params, unknowns, resids *VecWrapper) (err error)
}

// Linearizer recomputes and returns the jacobian of a component
type Linearizer interface {
	Linearize(params, unknowns, resids *VecWrapper) (jac Jacobian, err error)
}

// ApplyLinearer is the analytic linear operator of a component. In "fwd" mode
// it accumulates the -dG terms into dresids given dparams/dunknowns; in "rev"
// mode it accumulates the transposed action into dparams/dunknowns given
// dresids. The +1 diagonal of explicit outputs is handled by the dispatcher.
type ApplyLinearer interface {
	ApplyLinear(params, unknowns, dparams, dunknowns, dresids *VecWrapper, mode string) (err error)
}

// JacKey identifies one sub-jacobian: derivative of Unknown with respect to
// Wrt (a parameter or another unknown/state)
type JacKey struct {
	Unknown string
	Wrt     string
}

// Jacobian maps sub-jacobian keys to dense matrices of shape
// (size(Unknown) x size(Wrt))
type Jacobian map[JacKey][][]float64

// Component is a leaf system holding user residual/output equations
type Component struct {
	SysBase

	// user code
	runner Runner

	// declarations, in declaration order
	declParams   []*VarMeta
	declUnknowns []*VarMeta
	declared     map[string]bool

	// state
	varsDone bool
	jac      Jacobian

	// IsIndep marks source-only components that act as identity in linear mode
	IsIndep bool
}

// NewComponent returns a new component wrapping the given user code
func NewComponent(runner Runner) (o *Component) {
	o = new(Component)
	o.initBase()
	o.runner = runner
	o.declared = make(map[string]bool)
	return
}

// Base returns the common system data
func (o *Component) Base() *SysBase { return &o.SysBase }

// VarOpts holds optional settings for variable declarations
type VarOpts struct {
	Shape      []int       // value shape; nil means scalar or flat
	SrcIndices []int       // selector into the connected distributed source
	UnitConv   *UnitConv   // unit conversion from the source
	PassByObj  bool        // opaque value passed by reference
	Obj        interface{} // pass-by-object payload
}

// AddParam declares an input parameter. Pass val=nil with opts.Shape to get
// a zero-initialised value.
func (o *Component) AddParam(name string, val []float64, opts *VarOpts) (err error) {
	return o.addVar(name, val, opts, false, false)
}

// AddOutput declares an explicit output
func (o *Component) AddOutput(name string, val []float64, opts *VarOpts) (err error) {
	return o.addVar(name, val, opts, true, false)
}

// AddState declares a state (implicit) variable
func (o *Component) AddState(name string, val []float64, opts *VarOpts) (err error) {
	return o.addVar(name, val, opts, true, true)
}

// AddParamObj declares a pass-by-object parameter
func (o *Component) AddParamObj(name string, obj interface{}) (err error) {
	return o.addVar(name, nil, &VarOpts{PassByObj: true, Obj: obj}, false, false)
}

// AddOutputObj declares a pass-by-object output
func (o *Component) AddOutputObj(name string, obj interface{}) (err error) {
	return o.addVar(name, nil, &VarOpts{PassByObj: true, Obj: obj}, true, false)
}

func (o *Component) addVar(name string, val []float64, opts *VarOpts, output, state bool) (err error) {
	if o.varsDone || (o.probdata != nil && o.probdata.SetupDone) {
		return errSetupClosed("add variables")
	}
	if strings.ContainsAny(name, "./") {
		return errInvalidName(name)
	}
	if o.declared[name] {
		return errDuplicateName(name)
	}
	if opts == nil {
		opts = new(VarOpts)
	}
	meta := &VarMeta{
		Path:       name, // rewritten to the absolute path at setup
		PromName:   name,
		State:      state,
		PassByObj:  opts.PassByObj,
		SrcIndices: opts.SrcIndices,
		UnitConv:   opts.UnitConv,
		Obj:        opts.Obj,
	}
	if !opts.PassByObj {
		shape := opts.Shape
		if val == nil {
			if shape == nil {
				return errMissingShape(name)
			}
			val = make([]float64, shapeSize(shape))
		}
		if shape == nil && len(val) > 1 {
			shape = []int{len(val)}
		}
		meta.Shape = shape
		meta.Size = len(val)
		meta.Val = val
		if len(opts.SrcIndices) > 0 {
			meta.Size = len(opts.SrcIndices)
		}
	}
	o.declared[name] = true
	if output {
		o.declUnknowns = append(o.declUnknowns, meta)
	} else {
		o.declParams = append(o.declParams, meta)
	}
	return
}

// InitSysData sets the absolute pathname of this component
func (o *Component) InitSysData(parentPath string, pd *ProbData) {
	o.initSysDataBase(parentPath, pd)
}

// SetupVariables runs the user Setup (once) and builds the absolute-path
// dictionaries of this component
func (o *Component) SetupVariables() (p, u *VarDict, err error) {
	if !o.varsDone {
		if o.runner != nil {
			if err = o.runner.Setup(o); err != nil {
				return
			}
		}
		o.varsDone = true
	}
	o.paramsDict = NewVarDict()
	o.unknownsDict = NewVarDict()
	for _, m := range o.declParams {
		meta := m.Clone()
		meta.Path = joinPath(o.pathname, m.PromName)
		o.paramsDict.Set(meta.Path, meta)
	}
	for _, m := range o.declUnknowns {
		meta := m.Clone()
		meta.Path = joinPath(o.pathname, m.PromName)
		o.unknownsDict.Set(meta.Path, meta)
	}
	return o.paramsDict, o.unknownsDict, nil
}

// SetupComms assigns the communicator of this component
func (o *Component) SetupComms(cm Comm) {
	o.cm = cm
	if cm == nil {
		// inactive on this rank: all variables become remote
		for _, d := range []*VarDict{o.paramsDict, o.unknownsDict} {
			for _, path := range d.Keys() {
				d.Get(path).Remote = true
			}
		}
	}
}

// SetupVectors creates the vector views of this component. Unknown and
// residual views point into the parent group's buffers; the parameter
// wrapper owns no storage.
func (o *Component) SetupVectors(po map[string][]string, parent *Group, top *VecWrapper) (err error) {
	rel := o.probdata.Relevance

	varmap := o.relnameMap(parent, o.unknownsDict)
	o.Unknowns = parent.Unknowns.GetView(o.sysdata, o.cm, varmap)
	o.Resids = parent.Resids.GetView(o.sysdata, o.cm, varmap)

	o.Params = newVecWrapper(o.sysdata, o.cm)
	err = o.Params.SetupTarget(parent.Params, o.paramsDict, parent.Unknowns,
		nil, o.probdata.Connections, rel, "", true)
	if err != nil {
		return
	}
	for _, path := range o.paramsDict.Keys() {
		meta := o.paramsDict.Get(path)
		if _, ok := o.probdata.Connections[path]; !ok && !meta.Remote {
			o.Params.AddUnconnected(meta)
		}
	}

	for voi, dup := range parent.DUMat {
		o.DUMat[voi] = dup.GetView(o.sysdata, o.cm, varmap)
		o.DRMat[voi] = parent.DRMat[voi].GetView(o.sysdata, o.cm, varmap)
		dp := newVecWrapper(o.sysdata, o.cm)
		err = dp.SetupTarget(parent.DPMat[voi], o.paramsDict, parent.Unknowns,
			nil, o.probdata.Connections, rel, voi, false)
		if err != nil {
			return
		}
		o.DPMat[voi] = dp
	}
	return
}

// relnameMap returns ordered (nameInParent, nameHere) pairs for our variables
func (o *Component) relnameMap(parent *Group, dict *VarDict) (varmap [][2]string) {
	for _, path := range dict.Keys() {
		meta := dict.Get(path)
		pname, ok := parent.sysdata.ToPromName[path]
		if !ok {
			continue
		}
		varmap = append(varmap, [2]string{pname, meta.PromName})
	}
	return
}

// SolveNonlinear runs the user solve
func (o *Component) SolveNonlinear(mt *Metadata) (err error) {
	if !o.IsActive() {
		return
	}
	return o.runner.SolveNonlinear(o.Params, o.Unknowns, o.Resids)
}

// ApplyNonlinear evaluates residuals. Components without states get the
// default explicit form r = G(p) - u.
func (o *Component) ApplyNonlinear(mt *Metadata) (err error) {
	if !o.IsActive() {
		return
	}
	if an, ok := o.runner.(ApplyNonlinearer); ok {
		return an.ApplyNonlinear(o.Params, o.Unknowns, o.Resids)
	}
	if len(o.Unknowns.States()) > 0 {
		return errNotImplemented(o.pathname, "ApplyNonlinear (required for components with states)")
	}
	ubak := la.VecClone(o.Unknowns.Vec)
	if err = o.runner.SolveNonlinear(o.Params, o.Unknowns, o.Resids); err != nil {
		return
	}
	for i, u := range o.Unknowns.Vec {
		o.Resids.Vec[i] = u - ubak[i]
		o.Unknowns.Vec[i] = ubak[i]
	}
	return
}

// Linearize recomputes the jacobian via the user Linearizer, if any
func (o *Component) Linearize() (err error) {
	if !o.IsActive() {
		return
	}
	if lin, ok := o.runner.(Linearizer); ok {
		o.jac, err = lin.Linearize(o.Params, o.Unknowns, o.Resids)
	}
	return
}

// Jac returns the jacobian stored by the last Linearize
func (o *Component) Jac() Jacobian { return o.jac }

// SysApplyLinear applies the linearised component equations.
//  fwd:  dr = du - dGdp*dp      rev:  du += dr,  dp += -dGdp^T * dr
// State rows are fully user-defined: no negation and no +1 diagonal.
func (o *Component) SysApplyLinear(mode string, vois []string, gs GsOutputs) (err error) {
	if !o.IsActive() {
		return
	}
	if o.IsIndep {
		return o.applyLinearIdentity(mode, vois, gs)
	}
	al, hasAl := o.runner.(ApplyLinearer)
	for _, voi := range vois {
		dp, du, dr := o.DPMat[voi], o.DUMat[voi], o.DRMat[voi]
		if dp == nil || du == nil || dr == nil {
			continue
		}
		if mode == "fwd" {
			dr.Zero()
		}
		if hasAl {
			if err = al.ApplyLinear(o.Params, o.Unknowns, dp, du, dr, mode); err != nil {
				return
			}
		} else {
			o.applyJacobian(mode, dp, du, dr)
		}
		// implicit +1 on the diagonal of explicit outputs
		for _, n := range du.Keys() {
			meta := du.Metadata(n)
			if meta.State || meta.PassByObj || meta.Remote {
				continue
			}
			if mode == "fwd" {
				la.VecAdd(dr.Get(n), 1, du.Get(n))
			} else {
				la.VecAdd(du.Get(n), 1, dr.Get(n))
			}
		}
	}
	return
}

// applyJacobian applies the stored sub-jacobians
func (o *Component) applyJacobian(mode string, dp, du, dr *VecWrapper) {
	for key, J := range o.jac {
		if !dr.Contains(key.Unknown) {
			continue
		}
		rowState := false
		if meta := du.Metadata(key.Unknown); meta != nil {
			rowState = meta.State
		}
		sign := -1.0
		if rowState {
			sign = 1.0
		}
		// wrt resolves in dparams first, then in dunknowns (states)
		tgt := dp
		if !dp.Contains(key.Wrt) {
			if !du.Contains(key.Wrt) {
				continue
			}
			tgt = du
		}
		if mode == "fwd" {
			la.MatVecMulAdd(dr.Get(key.Unknown), sign, J, tgt.Get(key.Wrt))
		} else {
			la.MatTrVecMulAdd(tgt.Get(key.Wrt), sign, J, dr.Get(key.Unknown))
		}
	}
}

// applyLinearIdentity copies du to dr (fwd) or accumulates dr into du (rev),
// restricted to the rows listed in gs
func (o *Component) applyLinearIdentity(mode string, vois []string, gs GsOutputs) (err error) {
	for _, voi := range vois {
		du, dr := o.DUMat[voi], o.DRMat[voi]
		if du == nil || dr == nil {
			continue
		}
		sol, rhs := du, dr
		if mode == "rev" {
			sol, rhs = dr, du
		} else {
			rhs.Zero()
		}
		if gs == nil || gs[voi] == nil {
			la.VecAdd(rhs.Vec, 1, sol.Vec)
			continue
		}
		for _, n := range du.Keys() {
			if gs[voi][du.Metadata(n).TopPromName] {
				la.VecAdd(rhs.Get(n), 1, sol.Get(n))
			}
		}
	}
	return
}
