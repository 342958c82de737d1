// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
)

// explicitConnections resolves the connect() declarations of this group and
// all subgroups into absolute (target, source) pairs
func (o *Group) explicitConnections() (conns map[string][]*Conn, order []string, err error) {
	conns = make(map[string][]*Conn)
	add := func(tgt string, c *Conn) {
		if _, ok := conns[tgt]; !ok {
			order = append(order, tgt)
		}
		conns[tgt] = append(conns[tgt], c)
	}
	for _, g := range o.Subgroups() {
		sub, subOrder, e := g.explicitConnections()
		if e != nil {
			return nil, nil, e
		}
		for _, tgt := range subOrder {
			for _, c := range sub[tgt] {
				add(tgt, c)
			}
		}
	}
	for _, tgt := range o.srcOrder {
		for _, decl := range o.srcDecls[tgt] {
			srcPaths, ok := o.toAbsUNames[decl.src]
			if !ok {
				return nil, nil, errNonexistentSource(decl.src, tgt)
			}
			if len(srcPaths) != 1 {
				return nil, nil, errMultipleSources(tgt, srcPaths[0], srcPaths[1])
			}
			tgtPaths, ok := o.toAbsPNames[tgt]
			if !ok {
				if _, isSrc := o.toAbsUNames[tgt]; isSrc {
					return nil, nil, errInvalidTarget(decl.src, tgt)
				}
				return nil, nil, errNonexistentTarget(decl.src, tgt)
			}
			for _, tgtPath := range tgtPaths {
				add(tgtPath, &Conn{Src: srcPaths[0], SrcIdxs: decl.idxs})
			}
		}
	}
	return
}

// impliedConnections finds the promotion-induced connections: a source whose
// promoted name at some group matches a parameter's promoted name at the
// same group
func (o *Group) impliedConnections() (conns map[string]*Conn, order []string) {
	conns = make(map[string]*Conn)
	for prom, srcs := range o.toAbsUNames {
		tgts, ok := o.toAbsPNames[prom]
		if !ok || len(srcs) != 1 {
			continue
		}
		// deterministic order: follow the params dictionary
		for _, tgtPath := range o.paramsDict.Keys() {
			found := false
			for _, t := range tgts {
				if t == tgtPath {
					found = true
					break
				}
			}
			if !found {
				continue
			}
			if _, ok := conns[tgtPath]; !ok {
				order = append(order, tgtPath)
			}
			conns[tgtPath] = &Conn{Src: srcs[0]}
		}
	}
	for _, g := range o.Subgroups() {
		sub, subOrder := g.impliedConnections()
		for _, tgt := range subOrder {
			if _, ok := conns[tgt]; !ok {
				order = append(order, tgt)
				conns[tgt] = sub[tgt]
			}
		}
	}
	return
}

// resolveConnections collapses the explicit and implied connections into the
// single target=>source map, verifying uniqueness and index bounds
func (o *Group) resolveConnections() (conns map[string]*Conn, order []string, err error) {
	conns = make(map[string]*Conn)
	explicit, exOrder, err := o.explicitConnections()
	if err != nil {
		return nil, nil, err
	}
	for _, tgt := range exOrder {
		for _, c := range explicit[tgt] {
			if prev, ok := conns[tgt]; ok {
				if prev.Src != c.Src {
					return nil, nil, errMultipleSources(tgt, prev.Src, c.Src)
				}
				continue
			}
			order = append(order, tgt)
			conns[tgt] = c
		}
	}
	implied, imOrder := o.impliedConnections()
	for _, tgt := range imOrder {
		c := implied[tgt]
		if prev, ok := conns[tgt]; ok {
			if prev.Src != c.Src {
				return nil, nil, errMultipleSources(tgt, prev.Src, c.Src)
			}
			continue
		}
		order = append(order, tgt)
		conns[tgt] = c
	}

	// validate src_indices
	for _, tgt := range order {
		c := conns[tgt]
		srcMeta := o.unknownsDict.Get(c.Src)
		tgtMeta := o.paramsDict.Get(tgt)
		eff := c.SrcIdxs
		if eff == nil {
			eff = tgtMeta.SrcIndices
		}
		if eff != nil && srcMeta.SrcIndices != nil {
			return nil, nil, errIndicesBothEnds(tgt, c.Src)
		}
		if eff != nil {
			for _, i := range eff {
				if i < 0 || i >= srcMeta.Size {
					return nil, nil, errIndicesOutOfRange(tgt, c.Src, i, srcMeta.Size)
				}
			}
		}
		c.SrcIdxs = eff
	}
	return
}

// applySrcIndices pushes the resolved src_indices down into the per-level
// metadata copies so sizes and scatters see them
func applySrcIndices(s System, conns map[string]*Conn) {
	base := s.Base()
	for tgt, c := range conns {
		if c.SrcIdxs == nil {
			continue
		}
		if meta := base.paramsDict.Get(tgt); meta != nil {
			meta.SrcIndices = c.SrcIdxs
			meta.Size = len(c.SrcIdxs)
		}
	}
	if g, ok := s.(*Group); ok {
		for _, sub := range g.subsystems {
			applySrcIndices(sub, conns)
		}
	}
}

// checkSourcePromotions verifies that promoted-to-absolute is one-to-one on
// the source side of every group
func checkSourcePromotions(g *Group) (err error) {
	for _, path := range g.unknownsDict.Keys() {
		prom := g.unknownsDict.Get(path).PromName
		if len(g.toAbsUNames[prom]) > 1 {
			return chk.Err("promoted name %q in group %q maps to multiple sources: %v",
				prom, g.pathname, g.toAbsUNames[prom])
		}
	}
	for _, sub := range g.Subgroups() {
		if err = checkSourcePromotions(sub); err != nil {
			return
		}
	}
	return
}

// paramOwnership assigns each connected parameter to the closest group
// containing both endpoints of its connection
func paramOwnership(root *Group, conns map[string]*Conn, order []string) map[string][]string {
	owners := make(map[string][]string)
	for _, tgt := range order {
		c := conns[tgt]
		owner := commonAncestorPath(c.Src, tgt)
		for owner != "" {
			if _, ok := root.Subsystem(owner).(*Group); ok {
				break
			}
			owner = parentPath(owner)
		}
		owners[owner] = append(owners[owner], tgt)
	}
	return owners
}
