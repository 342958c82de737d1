// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"

	"github.com/cpmech/gosl/chk"
)

// Group is a system that contains other systems
type Group struct {
	SysBase

	// children
	subsystems []System
	subsNames  map[string]System
	localSubs  []System // children active on this rank

	// explicit connection declarations
	srcDecls map[string][]*srcDecl
	srcOrder []string

	// solvers
	NlSolver NonlinSolver
	LnSolver LinSolver
	Precon   LinSolver

	// promotion maps: promoted name => absolute paths
	toAbsUNames map[string][]string
	toAbsPNames map[string][]string

	// scatter data
	dataXfer    map[xferKey]*DataTransfer
	uSizes      map[string][][]int       // voi => (rank x var) unknown sizes
	pSizes      map[string][][]int       // voi => (rank x var) owned param sizes
	uVarIdx     map[string]map[string]int // voi => promoted name => column in uSizes
	pVarIdx     map[string]map[string]int
	owningRanks map[string]int // promoted name => lowest rank where local

	// state
	orderSet bool
	Warnings []string
}

type srcDecl struct {
	src  string
	idxs []int
}

type xferKey struct {
	tgtSys string // "" means the full group-wide scatter
	mode   string // "fwd" or "rev"
	voi    string
}

// NewGroup returns a new group with the default solvers installed
func NewGroup() (o *Group) {
	o = new(Group)
	o.initBase()
	o.subsNames = make(map[string]System)
	o.srcDecls = make(map[string][]*srcDecl)
	o.NlSolver = NewNonlinSolver("runonce")
	o.LnSolver = NewLinSolver("gmres")
	o.Precon = NewLinSolver("lings")
	return
}

// Base returns the common system data
func (o *Group) Base() *SysBase { return &o.SysBase }

// Add adds a child system under the given name, with optional promotion
// patterns exposing child variables at this group's level
func (o *Group) Add(name string, sys System, promotes ...string) System {
	if o.orderSet {
		chk.Panic("cannot add subsystem %q after an execution order was set", name)
	}
	if o.probdata != nil && o.probdata.SetupDone {
		chk.Panic("%v", errSetupClosed("add subsystems"))
	}
	if _, ok := o.subsNames[name]; ok {
		chk.Panic("group %q already contains a subsystem named %q", o.name, name)
	}
	sys.Base().SetName(name)
	sys.Base().promotes = promotes
	o.subsystems = append(o.subsystems, sys)
	o.subsNames[name] = sys
	return sys
}

// Connect connects a source variable to one or more target variables, all by
// their names as seen from this group. srcIndices optionally selects entries
// of the full distributed source.
func (o *Group) Connect(source string, targets []string, srcIndices []int) {
	for _, tgt := range targets {
		if _, ok := o.srcDecls[tgt]; !ok {
			o.srcOrder = append(o.srcOrder, tgt)
		}
		o.srcDecls[tgt] = append(o.srcDecls[tgt], &srcDecl{src: source, idxs: srcIndices})
	}
}

// Subsystem returns a direct or indirect child by its dotted name
func (o *Group) Subsystem(name string) System {
	var s System = o
	for _, part := range strings.Split(name, ".") {
		g, ok := s.(*Group)
		if !ok {
			return nil
		}
		s = g.subsNames[part]
		if s == nil {
			return nil
		}
	}
	return s
}

// Children returns the direct children in execution order
func (o *Group) Children() []System { return o.subsystems }

// Subgroups returns the direct children that are groups
func (o *Group) Subgroups() (gs []*Group) {
	for _, s := range o.subsystems {
		if g, ok := s.(*Group); ok {
			gs = append(gs, g)
		}
	}
	return
}

// Components returns all components in the subtree, in tree-preorder
func (o *Group) Components() (cs []*Component) {
	for _, s := range o.subsystems {
		switch t := s.(type) {
		case *Component:
			cs = append(cs, t)
		case *Group:
			cs = append(cs, t.Components()...)
		}
	}
	return
}

// InitSysData sets the absolute pathname of every system in the subtree
func (o *Group) InitSysData(parentPath string, pd *ProbData) {
	o.initSysDataBase(parentPath, pd)
	for _, sub := range o.subsystems {
		sub.InitSysData(o.pathname, pd)
	}
}

// SetupVariables merges the children dictionaries, applying the promotion
// rules, and builds the promoted=>absolute maps for both sides
func (o *Group) SetupVariables() (p, u *VarDict, err error) {
	o.paramsDict = NewVarDict()
	o.unknownsDict = NewVarDict()
	o.toAbsUNames = make(map[string][]string)
	o.toAbsPNames = make(map[string][]string)
	for _, sub := range o.subsystems {
		sp, su, e := sub.SetupVariables()
		if e != nil {
			return nil, nil, e
		}
		for _, path := range sp.Keys() {
			meta := sp.Get(path).Clone()
			meta.PromName = o.promotedName(meta.PromName, sub)
			o.paramsDict.Set(path, meta)
			o.toAbsPNames[meta.PromName] = append(o.toAbsPNames[meta.PromName], path)
		}
		for _, path := range su.Keys() {
			meta := su.Get(path).Clone()
			meta.PromName = o.promotedName(meta.PromName, sub)
			o.unknownsDict.Set(path, meta)
			o.toAbsUNames[meta.PromName] = append(o.toAbsUNames[meta.PromName], path)
		}
		o.Warnings = append(o.Warnings, sub.Base().checkPromotes()...)
	}
	return o.paramsDict, o.unknownsDict, nil
}

// promotedName returns the name of a child variable at this group's level
func (o *Group) promotedName(name string, sub System) string {
	if sub.Base().Promoted(name) {
		return name
	}
	if len(sub.Base().Name()) > 0 {
		return sub.Base().Name() + "." + name
	}
	return name
}

// SetupComms assigns communicators down the tree
func (o *Group) SetupComms(cm Comm) {
	o.cm = cm
	o.localSubs = nil
	for _, sub := range o.subsystems {
		sub.SetupComms(cm)
		if o.IsActive() && sub.Base().IsActive() {
			o.localSubs = append(o.localSubs, sub)
		}
	}
}

// SetupVectors creates the vectors of this group and all below it. The root
// allocates the unknown/residual buffers; subgroups hold views. Parameter
// vectors are allocated per group for the parameters each group owns.
func (o *Group) SetupVectors(paramOwners map[string][]string, parent *Group, top *VecWrapper) (err error) {
	o.dataXfer = make(map[xferKey]*DataTransfer)
	o.uSizes = make(map[string][][]int)
	o.pSizes = make(map[string][][]int)
	o.uVarIdx = make(map[string]map[string]int)
	o.pVarIdx = make(map[string]map[string]int)
	if !o.IsActive() {
		return
	}
	rel := o.probdata.Relevance
	conns := o.probdata.Connections
	myParams := make(map[string]bool)
	for _, p := range paramOwners[o.pathname] {
		myParams[p] = true
	}

	if parent == nil {
		o.Unknowns = newVecWrapper(o.sysdata, o.cm)
		o.Unknowns.SetupSource(o.unknownsDict, rel, "", true)
		o.Resids = newVecWrapper(o.sysdata, o.cm)
		o.Resids.SetupSource(o.unknownsDict, rel, "", false)
		o.Params = newVecWrapper(o.sysdata, o.cm)
		err = o.Params.SetupTarget(nil, o.paramsDict, o.Unknowns, myParams, conns, rel, "", true)
		if err != nil {
			return
		}
		top = o.Unknowns
	} else {
		varmap := o.relnameMap(parent)
		o.Unknowns = parent.Unknowns.GetView(o.sysdata, o.cm, varmap)
		o.Resids = parent.Resids.GetView(o.sysdata, o.cm, varmap)
		o.Params = newVecWrapper(o.sysdata, o.cm)
		err = o.Params.SetupTarget(parent.Params, o.paramsDict, o.Unknowns, myParams, conns, rel, "", true)
		if err != nil {
			return
		}
	}

	// differential vectors, one set per variable of interest
	for _, voi := range rel.AllVOIs() {
		if parent == nil {
			du := newVecWrapper(o.sysdata, o.cm)
			du.SetupSource(o.unknownsDict, rel, voi, false)
			dr := newVecWrapper(o.sysdata, o.cm)
			dr.SetupSource(o.unknownsDict, rel, voi, false)
			o.DUMat[voi] = du
			o.DRMat[voi] = dr
		} else {
			varmap := o.relnameMap(parent)
			o.DUMat[voi] = parent.DUMat[voi].GetView(o.sysdata, o.cm, varmap)
			o.DRMat[voi] = parent.DRMat[voi].GetView(o.sysdata, o.cm, varmap)
		}
		dp := newVecWrapper(o.sysdata, o.cm)
		var parentDp *VecWrapper
		if parent != nil {
			parentDp = parent.DPMat[voi]
		}
		err = dp.SetupTarget(parentDp, o.paramsDict, o.Unknowns, myParams, conns, rel, voi, false)
		if err != nil {
			return
		}
		o.DPMat[voi] = dp
	}

	o.owningRanks = o.getOwningRanks()

	for _, voi := range rel.AllVOIs() {
		if err = o.setupDataTransfer(myParams, voi); err != nil {
			return
		}
	}

	for _, sub := range o.subsystems {
		if err = sub.SetupVectors(paramOwners, o, top); err != nil {
			return
		}
	}
	return
}

// relnameMap returns ordered (nameInParent, nameHere) pairs for our unknowns
func (o *Group) relnameMap(parent *Group) (varmap [][2]string) {
	for _, path := range o.unknownsDict.Keys() {
		meta := o.unknownsDict.Get(path)
		pname, ok := parent.sysdata.ToPromName[path]
		if !ok {
			continue
		}
		varmap = append(varmap, [2]string{pname, meta.PromName})
	}
	return
}

// getOwningRanks determines the lowest rank where each variable is local
func (o *Group) getOwningRanks() map[string]int {
	var names []string
	var local []int
	collect := func(vec *VecWrapper) {
		for _, n := range vec.Keys() {
			names = append(names, n)
			if vec.Metadata(n).Remote {
				local = append(local, 0)
			} else {
				local = append(local, 1)
			}
		}
	}
	collect(o.Unknowns)
	collect(o.Params)
	rows := o.cm.AllGatherInts(local)
	ranks := make(map[string]int)
	for rank, row := range rows {
		for i, flag := range row {
			if i >= len(names) {
				break
			}
			if flag == 1 {
				if _, ok := ranks[names[i]]; !ok {
					ranks[names[i]] = rank
				}
			}
		}
	}
	return ranks
}

// SolveNonlinear solves the group using the installed nonlinear solver
func (o *Group) SolveNonlinear(mt *Metadata) (err error) {
	if !o.IsActive() {
		return
	}
	return o.NlSolver.Solve(mt, o)
}

// ChildrenSolveNonlinear scatters data to each child in execution order and
// asks it to solve
func (o *Group) ChildrenSolveNonlinear(mt *Metadata) (err error) {
	for _, sub := range o.subsystems {
		o.TransferData(sub.Base().Name(), "fwd", false, "")
		if sub.Base().IsActive() {
			if err = sub.SolveNonlinear(mt); err != nil {
				return
			}
		}
	}
	return
}

// ApplyNonlinear evaluates the residuals of the children, scattering first
func (o *Group) ApplyNonlinear(mt *Metadata) (err error) {
	if !o.IsActive() {
		return
	}
	for _, sub := range o.subsystems {
		o.TransferData(sub.Base().Name(), "fwd", false, "")
		if sub.Base().IsActive() {
			if err = sub.ApplyNonlinear(mt); err != nil {
				return
			}
		}
	}
	return
}

// Linearize asks all local children to recompute their jacobians
func (o *Group) Linearize() (err error) {
	if !o.IsActive() {
		return
	}
	for _, sub := range o.localSubs {
		if err = sub.Linearize(); err != nil {
			return
		}
	}
	return
}

// SysApplyLinear walks the subtree applying the linearised equations with
// the scatter ordering required by the mode: forward pushes du into child dp
// first; reverse accumulates child dp back into du last.
func (o *Group) SysApplyLinear(mode string, vois []string, gs GsOutputs) (err error) {
	if !o.IsActive() {
		return
	}
	if mode == "fwd" {
		for _, voi := range vois {
			o.TransferData("", "fwd", true, voi)
		}
	}
	for _, sub := range o.localSubs {
		if err = sub.SysApplyLinear(mode, vois, gs); err != nil {
			return
		}
	}
	if mode == "rev" {
		for _, voi := range vois {
			o.TransferData("", "rev", true, voi)
		}
	}
	return
}

// SolveLinear performs a single linear solution with whatever is sitting in
// the rhs vectors, using the installed linear solver (or the preconditioner)
func (o *Group) SolveLinear(vois []string, mode string, precon bool) (err error) {
	if !o.IsActive() {
		return
	}
	solver := o.LnSolver
	if precon {
		solver = o.Precon
	}
	solVec, rhsVec := o.DUMat, o.DRMat
	if mode == "rev" {
		solVec, rhsVec = o.DRMat, o.DUMat
	}
	rhsBuf := make(map[string][]float64)
	var order []string
	for _, voi := range vois {
		rv := rhsVec[voi]
		if rv == nil {
			continue
		}
		if rv.Norm() < 1e-15 {
			solVec[voi].Zero()
			continue
		}
		buf := make([]float64, len(rv.Vec))
		copy(buf, rv.Vec)
		rhsBuf[voi] = buf
		order = append(order, voi)
	}
	if len(order) == 0 {
		return
	}
	sol, err := solver.Solve(rhsBuf, o, mode)
	if err != nil {
		return
	}
	for _, voi := range order {
		copy(solVec[voi].Vec, sol[voi])
	}
	return
}

// ClearDParams zeroes the dp vectors of this group and all subgroups
func (o *Group) ClearDParams() {
	for _, dp := range o.DPMat {
		dp.Zero()
	}
	for _, g := range o.Subgroups() {
		g.ClearDParams()
	}
}
