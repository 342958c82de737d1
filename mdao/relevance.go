// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/katalvlaran/lvlath/bfs"
	lvcore "github.com/katalvlaran/lvlath/core"
)

// Relevance holds, per variable of interest, the subset of variables whose
// derivatives matter. It is consulted when constructing differential vectors
// and transfers so that irrelevant variables are left out of the per-voi
// vectors.
type Relevance struct {
	relevant map[string]map[string]bool // voi => set of top promoted names
	fwdVOIs  [][]string                 // parallel sets of forward (param side) vois
	revVOIs  [][]string                 // parallel sets of reverse (quantity side) vois
}

// NewRelevance builds the relevance sets by reachability over the variable
// connection graph. Forward vois collect their downstream variables; reverse
// vois collect their upstream ones.
//  Input:
//   root     -- the root group, after variable setup
//   conns    -- resolved connections
//   fwdVOIs  -- parallel sets of independent (param side) vois, by top name
//   revVOIs  -- parallel sets of response (unknown side) vois, by top name
func NewRelevance(root *Group, conns map[string]*Conn, fwdVOIs, revVOIs [][]string) (o *Relevance, err error) {
	o = &Relevance{
		relevant: make(map[string]map[string]bool),
		fwdVOIs:  fwdVOIs,
		revVOIs:  revVOIs,
	}
	if len(fwdVOIs) == 0 && len(revVOIs) == 0 {
		return
	}

	top := root.probdata.ToTopProm
	fg := lvcore.NewGraph(lvcore.WithDirected(true))
	rg := lvcore.NewGraph(lvcore.WithDirected(true))

	addDirected := func(g *lvcore.Graph, a, b string) error {
		if e := g.AddVertex(a); e != nil {
			return e
		}
		if e := g.AddVertex(b); e != nil {
			return e
		}
		if !g.HasEdge(a, b) {
			if _, e := g.AddEdge(a, b, 0); e != nil {
				return e
			}
		}
		return nil
	}
	addEdge := func(from, to string) error {
		if from == to {
			return nil
		}
		if e := addDirected(fg, from, to); e != nil {
			return e
		}
		return addDirected(rg, to, from)
	}

	for tgt, c := range conns {
		if err = addEdge(top[c.Src], top[tgt]); err != nil {
			return
		}
	}
	for _, comp := range root.Components() {
		for _, p := range comp.paramsDict.Keys() {
			for _, u := range comp.unknownsDict.Keys() {
				if err = addEdge(top[p], top[u]); err != nil {
					return
				}
			}
		}
	}

	reach := func(g *lvcore.Graph, voi string) (set map[string]bool, err error) {
		set = map[string]bool{voi: true}
		if !g.HasVertex(voi) {
			return
		}
		res, err := bfs.BFS(g, voi)
		if err != nil {
			return nil, err
		}
		for _, n := range res.Order {
			set[n] = true
		}
		return
	}

	for _, group := range fwdVOIs {
		for _, voi := range group {
			if o.relevant[voi], err = reach(fg, voi); err != nil {
				return
			}
		}
	}
	for _, group := range revVOIs {
		for _, voi := range group {
			if o.relevant[voi], err = reach(rg, voi); err != nil {
				return
			}
		}
	}
	return
}

// IsRelevant tells whether the named variable participates in the derivative
// computation of the given variable of interest. The empty voi means the
// full, unpartitioned derivative space.
func (o *Relevance) IsRelevant(voi, topPromName string) bool {
	if voi == "" {
		return true
	}
	return o.relevant[voi][topPromName]
}

// AllVOIs returns the empty (full) voi followed by every declared voi
func (o *Relevance) AllVOIs() (vois []string) {
	vois = []string{""}
	for _, group := range o.fwdVOIs {
		vois = append(vois, group...)
	}
	for _, group := range o.revVOIs {
		vois = append(vois, group...)
	}
	return
}

// VarsOfInterest returns the parallel voi sets, forward first
func (o *Relevance) VarsOfInterest() (groups [][]string) {
	groups = append(groups, o.fwdVOIs...)
	groups = append(groups, o.revVOIs...)
	return
}
