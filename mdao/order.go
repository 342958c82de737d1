// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"sort"
	"strings"

	lvcore "github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// SetOrder specifies a new execution order for the children of this group.
// The list must be a permutation of the current children.
func (o *Group) SetOrder(newOrder []string) (err error) {
	newset := make(map[string]int)
	for _, n := range newOrder {
		newset[n]++
	}
	var missing, extra, dupes []string
	for _, sub := range o.subsystems {
		if _, ok := newset[sub.Base().Name()]; !ok {
			missing = append(missing, sub.Base().Name())
		}
	}
	for n, count := range newset {
		if _, ok := o.subsNames[n]; !ok {
			extra = append(extra, n)
		}
		if count > 1 {
			dupes = append(dupes, n)
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return errDuplicateOrder(dupes)
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return errBadOrder(missing, extra)
	}
	newSubs := make([]System, 0, len(newOrder))
	for _, n := range newOrder {
		newSubs = append(newSubs, o.subsNames[n])
	}
	o.subsystems = newSubs
	var newLocs []System
	for _, sub := range o.subsystems {
		for _, loc := range o.localSubs {
			if loc == sub {
				newLocs = append(newLocs, sub)
				break
			}
		}
	}
	o.localSubs = newLocs
	o.orderSet = true
	return
}

// ListOrder lists the execution order of the children of this group
func (o *Group) ListOrder() (names []string) {
	for _, sub := range o.subsystems {
		names = append(names, sub.Base().Name())
	}
	return
}

// childGraphEdges returns the child-level connection graph of this group:
// one edge per connection whose endpoints live under different direct
// children
func (o *Group) childGraphEdges() map[string]map[string]bool {
	edges := make(map[string]map[string]bool)
	for tgt, c := range o.probdata.Connections {
		tRel := nameRelativeTo(o.pathname, tgt)
		sRel := nameRelativeTo(o.pathname, c.Src)
		if tRel == tgt && o.pathname != "" {
			continue // target outside this group
		}
		if sRel == c.Src && o.pathname != "" {
			continue // source outside this group
		}
		tChild := firstSegment(tRel)
		sChild := firstSegment(sRel)
		if tChild == sChild {
			continue
		}
		if _, ok := o.subsNames[tChild]; !ok {
			continue
		}
		if _, ok := o.subsNames[sChild]; !ok {
			continue
		}
		if edges[sChild] == nil {
			edges[sChild] = make(map[string]bool)
		}
		edges[sChild][tChild] = true
	}
	return edges
}

// ListAutoOrder returns the order in which the children would be executed if
// no manual order was set, together with the connection edges that had to be
// severed to make the graph acyclic
func (o *Group) ListAutoOrder() (order []string, brokenEdges [][2]string, err error) {
	edges := o.childGraphEdges()
	brokenEdges = o.breakCycles(o.ListOrder(), edges)

	g := lvcore.NewGraph(lvcore.WithDirected(true))
	for _, sub := range o.subsystems {
		if err = g.AddVertex(sub.Base().Name()); err != nil {
			return
		}
	}
	for src, tgts := range edges {
		for tgt := range tgts {
			if _, err = g.AddEdge(src, tgt, 0); err != nil {
				return
			}
		}
	}
	order, err = dfs.TopologicalSort(g)
	return
}

// breakCycles keeps severing intra-cycle in-edges until the graph is a DAG.
// The node to cut at is the one with the most in-edges arriving from outside
// its strongly-connected component; with no such edges, the first node of
// the declared order found inside the component.
func (o *Group) breakCycles(order []string, edges map[string]map[string]bool) (broken [][2]string) {
	nodes := o.ListOrder()
	strong := stronglyConnected(nodes, edges)
	for len(strong) > 0 {
		scc := strong[0]
		inSCC := make(map[string]bool)
		for _, n := range scc {
			inSCC[n] = true
		}

		start := ""
		if len(scc) < len(nodes) {
			best := 0
			for _, n := range scc {
				count := 0
				for src, tgts := range edges {
					if !inSCC[src] && tgts[n] {
						count++
					}
				}
				if count > best || (count == best && count > 0 && n > start) {
					best = count
					start = n
				}
			}
		}
		if start == "" {
			for _, n := range order {
				if inSCC[n] {
					start = n
					break
				}
			}
		}

		var preds []string
		for src, tgts := range edges {
			if inSCC[src] && tgts[start] {
				preds = append(preds, src)
			}
		}
		sort.Strings(preds)
		for _, p := range preds {
			delete(edges[p], start)
			broken = append(broken, [2]string{p, start})
		}

		strong = stronglyConnected(nodes, edges)
	}
	return
}

// stronglyConnected returns the non-trivial strongly-connected components of
// the graph (Tarjan), in a deterministic order
func stronglyConnected(nodes []string, edges map[string]map[string]bool) (sccs [][]string) {
	index := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	counter := 0

	var visit func(v string)
	visit = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		var succs []string
		for t := range edges[v] {
			succs = append(succs, t)
		}
		sort.Strings(succs)
		for _, w := range succs {
			if _, seen := index[w]; !seen {
				visit(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				sort.Strings(scc)
				sccs = append(sccs, scc)
			}
		}
	}

	for _, v := range nodes {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return
}

// sysGraphDot writes the child-level graph in dot format, for debugging
func (o *Group) sysGraphDot() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	edges := o.childGraphEdges()
	var srcs []string
	for s := range edges {
		srcs = append(srcs, s)
	}
	sort.Strings(srcs)
	for _, s := range srcs {
		var tgts []string
		for t := range edges[s] {
			tgts = append(tgts, t)
		}
		sort.Strings(tgts)
		for _, t := range tgts {
			b.WriteString("  \"" + s + "\" -> \"" + t + "\"\n")
		}
	}
	b.WriteString("}\n")
	return b.String()
}
