// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// ByObj wraps a pass-by-object value so that all vectors referencing the
// variable observe updates through the shared wrapper
type ByObj struct {
	Val interface{}
}

// VecWrapper is an ordered, name-indexed view over a contiguous flat buffer.
// Source-flavoured wrappers hold unknowns/residuals (and du/dr); target
// flavoured wrappers hold parameters (and dp).
type VecWrapper struct {
	Vec []float64 // contiguous storage (view into the root buffer, or owned)

	names   []string            // promoted names in layout order
	vardict map[string]*VarMeta // promoted name => metadata
	slices  map[string][2]int   // promoted name => [start,end) inside Vec

	isTarget   bool // parameter-side wrapper
	derivUnits bool // target derivative vector: suppress conversion offsets
	viewStart  int  // offset of this view inside the wrapper it was taken from
	sysdata    *SysData
	cm         Comm
}

// Comm is re-exported here to keep the vector layer free of transport details
type Comm interface {
	Size() int
	Rank() int
	AllGatherInts(mine []int) [][]int
	AllReduceSum(x, w []float64)
	Null() bool
}

func newVecWrapper(sysdata *SysData, cm Comm) *VecWrapper {
	return &VecWrapper{
		vardict: make(map[string]*VarMeta),
		slices:  make(map[string][2]int),
		sysdata: sysdata,
		cm:      cm,
	}
}

// Len returns the number of variables in this wrapper
func (o *VecWrapper) Len() int {
	return len(o.names)
}

// Keys returns the promoted names in layout order
func (o *VecWrapper) Keys() []string {
	return o.names
}

// Contains tells whether the named variable is in this wrapper
func (o *VecWrapper) Contains(name string) bool {
	_, ok := o.vardict[name]
	return ok
}

// Metadata returns the metadata of the named variable; nil if absent
func (o *VecWrapper) Metadata(name string) *VarMeta {
	return o.vardict[name]
}

// SliceOf returns the [start,end) window of the named variable inside Vec
func (o *VecWrapper) SliceOf(name string) (start, end int, ok bool) {
	s, ok := o.slices[name]
	return s[0], s[1], ok
}

// Access returns the flat view of the named variable. Remote variables yield
// a RemoteAccess error; unconnected local defaults are served from their own
// backing value.
func (o *VecWrapper) Access(name string) (v []float64, err error) {
	meta, ok := o.vardict[name]
	if !ok {
		return nil, chk.Err("variable %q does not exist", name)
	}
	if meta.Remote {
		return nil, errRemoteAccess(name)
	}
	if s, ok := o.slices[name]; ok {
		return o.Vec[s[0]:s[1]], nil
	}
	if meta.Val != nil {
		return meta.Val, nil
	}
	return nil, chk.Err("variable %q has no numeric storage (pass-by-object?)", name)
}

// Get returns the flat view of the named variable; panics on unknown names
// and remote access
func (o *VecWrapper) Get(name string) []float64 {
	v, err := o.Access(name)
	if err != nil {
		chk.Panic("%v", err)
	}
	return v
}

// GetScalar returns the single entry of a scalar variable
func (o *VecWrapper) GetScalar(name string) float64 {
	return o.Get(name)[0]
}

// Set copies values into the named variable
func (o *VecWrapper) Set(name string, vals []float64) {
	v := o.Get(name)
	chk.IntAssert(len(v), len(vals))
	copy(v, vals)
}

// SetScalar sets the single entry of a scalar variable
func (o *VecWrapper) SetScalar(name string, val float64) {
	o.Get(name)[0] = val
}

// GetObj returns the pass-by-object payload of the named variable
func (o *VecWrapper) GetObj(name string) interface{} {
	meta, ok := o.vardict[name]
	if !ok {
		chk.Panic("variable %q does not exist", name)
	}
	if w, ok := meta.Obj.(*ByObj); ok {
		return w.Val
	}
	return meta.Obj
}

// SetObj replaces the pass-by-object payload of the named variable
func (o *VecWrapper) SetObj(name string, val interface{}) {
	meta, ok := o.vardict[name]
	if !ok {
		chk.Panic("variable %q does not exist", name)
	}
	if w, ok := meta.Obj.(*ByObj); ok {
		w.Val = val
		return
	}
	meta.Obj = &ByObj{Val: val}
}

// ViewStart returns the offset of this view inside the wrapper it was taken
// from; zero for owning wrappers
func (o *VecWrapper) ViewStart() int {
	return o.viewStart
}

// Norm returns the L2 norm of the flat vector
func (o *VecWrapper) Norm() float64 {
	return la.VecNorm(o.Vec)
}

// Zero fills the flat vector with zeros
func (o *VecWrapper) Zero() {
	la.VecFill(o.Vec, 0)
}

// States returns the names of state variables
func (o *VecWrapper) States() (states []string) {
	for _, n := range o.names {
		if o.vardict[n].State {
			states = append(states, n)
		}
	}
	return
}

// PromOf returns the promoted name (at this level) of an absolute path
func (o *VecWrapper) PromOf(abspath string) string {
	prom, ok := o.sysdata.ToPromName[abspath]
	if !ok {
		chk.Panic("promoted name not found for variable %q", abspath)
	}
	return prom
}

// setupPromMap fills the shared absolute=>promoted and promoted=>top maps
func (o *VecWrapper) setupPromMap() {
	for _, n := range o.names {
		meta := o.vardict[n]
		o.sysdata.ToPromName[meta.Path] = n
		o.sysdata.ToTopProm[n] = meta.TopPromName
	}
}

// SetupSource configures this wrapper as a source vector (unknowns/residuals
// or du/dr): the layout is the concatenation of all relevant, non-remote,
// non-pass-by-object variables of unknownsDict in its (deterministic) order.
//  Input:
//   unknownsDict -- absolute path => metadata, in tree-preorder
//   rel          -- relevance sets; may be nil
//   voi          -- variable of interest; "" means everything is relevant
//   storeByObjs  -- initialise values and keep pass-by-object entries
func (o *VecWrapper) SetupSource(unknownsDict *VarDict, rel *Relevance, voi string, storeByObjs bool) {
	vecSize := 0
	for _, path := range unknownsDict.Keys() {
		meta := unknownsDict.Get(path)
		if rel != nil && !rel.IsRelevant(voi, meta.TopPromName) {
			continue
		}
		vmeta := meta.Clone()
		prom := vmeta.PromName
		if !vmeta.PassByObj && !vmeta.Remote {
			o.slices[prom] = [2]int{vecSize, vecSize + vmeta.Size}
			vecSize += vmeta.Size
		}
		o.names = append(o.names, prom)
		o.vardict[prom] = vmeta
	}

	o.Vec = make([]float64, vecSize)

	// map windows and wrap pass-by-object values
	for _, n := range o.names {
		vmeta := o.vardict[n]
		if vmeta.PassByObj {
			if storeByObjs {
				vmeta.Obj = &ByObj{Val: vmeta.Obj}
			}
			continue
		}
		if vmeta.Remote {
			vmeta.Val = []float64{}
			continue
		}
		s := o.slices[n]
		win := o.Vec[s[0]:s[1]]
		if storeByObjs && vmeta.Val != nil {
			copy(win, vmeta.Val)
		}
		vmeta.Val = win
	}

	o.setupPromMap()
}

// GetView returns a new wrapper that is a contiguous view into this one.
//  Input:
//   sysdata -- naming data of the child system
//   cm      -- communicator of the child system
//   varmap  -- ordered (nameInParent, nameInChild) pairs; pairs absent from
//              this wrapper (filtered by relevance) are skipped
func (o *VecWrapper) GetView(sysdata *SysData, cm Comm, varmap [][2]string) *VecWrapper {
	view := newVecWrapper(sysdata, cm)
	viewSize := 0
	start, end := -1, -1
	for _, pair := range varmap {
		name, cname := pair[0], pair[1]
		meta, ok := o.vardict[name]
		if !ok {
			continue
		}
		view.names = append(view.names, cname)
		view.vardict[cname] = meta
		if !meta.PassByObj && !meta.Remote {
			s := o.slices[name]
			if start == -1 {
				start = s[0]
			} else if s[0] != end {
				chk.Panic("variable %q is not contiguous in the block containing %v", name, varmap)
			}
			end = s[1]
			view.slices[cname] = [2]int{viewSize, viewSize + meta.Size}
			viewSize += meta.Size
		}
	}
	if start == -1 {
		view.Vec = o.Vec[0:0]
	} else {
		view.Vec = o.Vec[start:end]
		view.viewStart = start
	}
	view.isTarget = o.isTarget
	view.derivUnits = o.derivUnits
	view.setupPromMap()
	return view
}

// FlattenedSizes returns the local size of each vector variable, in layout
// order. Remote variables count zero. Target wrappers report owned variables
// only.
func (o *VecWrapper) FlattenedSizes() (names []string, sizes []int) {
	for _, n := range o.names {
		meta := o.vardict[n]
		if meta.PassByObj {
			continue
		}
		if o.isTarget && !meta.Owned {
			continue
		}
		names = append(names, n)
		if meta.Remote {
			sizes = append(sizes, 0)
		} else {
			sizes = append(sizes, meta.Size)
		}
	}
	return
}

// Dump writes a human readable table of the wrapper contents
func (o *VecWrapper) Dump() {
	for _, n := range o.names {
		meta := o.vardict[n]
		if meta.PassByObj {
			io.Pf("%-20s (by obj)  %v\n", n, o.GetObj(n))
			continue
		}
		if meta.Remote {
			io.Pf("%-20s (remote)\n", n)
			continue
		}
		if s, ok := o.slices[n]; ok {
			io.Pf("%-20s [%d:%d] %v\n", n, s[0], s[1], o.Vec[s[0]:s[1]])
		} else {
			io.Pf("%-20s (local) %v\n", n, meta.Val)
		}
	}
}
