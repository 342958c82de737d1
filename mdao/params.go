// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"strings"

	"github.com/cpmech/gosl/chk"
)

// SetupTarget configures this wrapper as a target (parameter-side) vector.
// The wrapper allocates storage only for the parameters owned by its system;
// parameters owned by an ancestor are filled in as references to the parent
// wrapper's entries, so a component never owns its parameter buffer.
//  Input:
//   parentParams -- params wrapper of the parent system; nil at the root
//   paramsDict   -- absolute path => metadata, in tree-preorder
//   srcvec       -- unknowns wrapper of the owning system
//   myParams     -- set of absolute parameter paths owned by this system
//   connections  -- absolute target path => resolved connection
//   rel          -- relevance sets; may be nil
//   voi          -- variable of interest; "" means everything is relevant
//   storeByObjs  -- true for the value vector; false for derivative vectors
func (o *VecWrapper) SetupTarget(parentParams *VecWrapper, paramsDict *VarDict,
	srcvec *VecWrapper, myParams map[string]bool, connections map[string]*Conn,
	rel *Relevance, voi string, storeByObjs bool) (err error) {

	o.isTarget = true
	if !storeByObjs {
		o.derivUnits = true
	}

	vecSize := 0
	var missing []*VarMeta
	for _, path := range paramsDict.Keys() {
		meta := paramsDict.Get(path)
		if rel != nil && !rel.IsRelevant(voi, meta.TopPromName) {
			continue
		}
		if myParams[path] {
			conn := connections[path]
			if conn == nil {
				return errUnconnectedParam(path)
			}
			srcProm := srcvec.PromOf(conn.Src)
			srcMeta := srcvec.Metadata(srcProm)

			vmeta := meta.Clone()
			vmeta.Owned = true
			if vmeta.SrcIndices == nil && srcMeta.SrcIndices == nil {
				vmeta.Size = srcMeta.Size
			}
			sname := o.scopedName(path)
			if srcMeta.PassByObj {
				vmeta.PassByObj = true
				vmeta.Obj = srcMeta.Obj // share the wrapper with the source
			} else if !vmeta.Remote {
				o.slices[sname] = [2]int{vecSize, vecSize + vmeta.Size}
				vecSize += vmeta.Size
			}
			o.names = append(o.names, sname)
			o.vardict[sname] = vmeta
			continue
		}

		// not ours: reference the parent's entry when the connection is owned
		// at this level or above
		if parentParams != nil {
			if conn, ok := connections[path]; ok {
				common := commonAncestorPath(conn.Src, path)
				if !o.ownedBelow(common) {
					missing = append(missing, meta)
				}
			}
		}
	}

	o.Vec = make([]float64, vecSize)

	// map windows
	for _, n := range o.names {
		vmeta := o.vardict[n]
		if vmeta.PassByObj {
			continue
		}
		if vmeta.Remote {
			vmeta.Val = []float64{}
			continue
		}
		s := o.slices[n]
		vmeta.Val = o.Vec[s[0]:s[1]]
	}

	// fill entries for params owned above us with references into the parent
	for _, meta := range missing {
		pname := parentParams.scopedName(meta.Path)
		newmeta := parentParams.Metadata(pname)
		if newmeta == nil {
			return chk.Err("parameter %q not found in the parent vector", meta.Path)
		}
		vm := newmeta.Clone() // shares Val window and Obj wrapper
		vm.PromName = meta.PromName
		vm.Owned = false
		sname := o.scopedName(meta.Path)
		o.names = append(o.names, sname)
		o.vardict[sname] = vm
	}

	o.setupPromMap()
	return
}

// AddUnconnected adds a local entry for an unconnected parameter so the
// component can still read its declared default through the wrapper
func (o *VecWrapper) AddUnconnected(meta *VarMeta) {
	vmeta := meta.Clone()
	sname := o.scopedName(meta.Path)
	if vmeta.PassByObj {
		vmeta.Obj = &ByObj{Val: vmeta.Obj}
	} else {
		val := make([]float64, vmeta.Size)
		copy(val, meta.Val)
		vmeta.Val = val
	}
	o.names = append(o.names, sname)
	o.vardict[sname] = vmeta
	o.sysdata.ToPromName[meta.Path] = sname
	o.sysdata.ToTopProm[sname] = meta.TopPromName
}

// scopedName returns an absolute path as seen from this wrapper's system
func (o *VecWrapper) scopedName(abspath string) string {
	return nameRelativeTo(o.sysdata.Pathname, abspath)
}

// ownedBelow tells whether the given owner pathname is strictly below this
// wrapper's system
func (o *VecWrapper) ownedBelow(ownerPath string) bool {
	mine := o.sysdata.Pathname
	if ownerPath == mine {
		return false
	}
	if mine == "" {
		return ownerPath != ""
	}
	return strings.HasPrefix(ownerPath, mine+".")
}
