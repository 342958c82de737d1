// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mdao implements the hierarchical system composition engine for
// multidisciplinary analysis and optimization: variable collection and
// promotion over a tree of components, distributed vector layout, scatter
// construction, and nonlinear/linear solution drivers.
package mdao

import (
	"strings"
)

// UnitConv holds a linear unit conversion applied when moving a value from a
// source variable to a target variable
type UnitConv struct {
	Scale  float64 // multiplier
	Offset float64 // additive offset; suppressed on derivative transfers
}

// VarMeta holds the descriptor of one variable
type VarMeta struct {

	// naming
	Path        string // absolute path; e.g. "sub.C1.x"
	PromName    string // promoted name relative to the owning system
	TopPromName string // promoted name as seen at the root

	// sizing
	Size  int   // total number of scalar entries
	Shape []int // nil means scalar

	// flags
	State     bool // variable is a state (implicit unknown)
	PassByObj bool // opaque value passed by reference, not scattered
	Remote    bool // not present on this rank; local view has zero size
	Owned     bool // for targets: this system propagates the connection

	// connection data
	SrcIndices []int     // selects a slice of a distributed source
	UnitConv   *UnitConv // optional unit conversion

	// values
	Val []float64   // initial/backing value (flattened); nil for pass-by-object
	Obj interface{} // pass-by-object payload
}

// Clone returns a copy of the metadata. Val and Obj are shared; the promoted
// names may then be overwritten per tree level.
func (o *VarMeta) Clone() *VarMeta {
	m := *o
	return &m
}

// VarDict is an ordered dictionary mapping absolute variable paths to their
// metadata. Iteration follows insertion order on every rank.
type VarDict struct {
	keys []string
	m    map[string]*VarMeta
}

// NewVarDict returns a new empty dictionary
func NewVarDict() *VarDict {
	return &VarDict{m: make(map[string]*VarMeta)}
}

// Set adds or replaces the metadata under the given absolute path
func (o *VarDict) Set(path string, meta *VarMeta) {
	if _, ok := o.m[path]; !ok {
		o.keys = append(o.keys, path)
	}
	o.m[path] = meta
}

// Get returns the metadata under path; nil if absent
func (o *VarDict) Get(path string) *VarMeta {
	return o.m[path]
}

// Has tells whether path is in the dictionary
func (o *VarDict) Has(path string) bool {
	_, ok := o.m[path]
	return ok
}

// Keys returns the insertion-ordered list of absolute paths
func (o *VarDict) Keys() []string {
	return o.keys
}

// Len returns the number of entries
func (o *VarDict) Len() int {
	return len(o.keys)
}

// SysData holds naming data shared by the vectors of one system
type SysData struct {
	Pathname   string            // absolute path of the owning system
	ToPromName map[string]string // absolute path => promoted name at this level
	ToTopProm  map[string]string // promoted name at this level => top promoted name
}

// NewSysData returns a new SysData
func NewSysData() *SysData {
	return &SysData{
		ToPromName: make(map[string]string),
		ToTopProm:  make(map[string]string),
	}
}

// Conn holds one resolved connection
type Conn struct {
	Src     string // absolute path of source
	SrcIdxs []int  // optional selector into the full distributed source
}

// ProbData holds problem-level data shared by all systems in the tree
type ProbData struct {
	SetupDone   bool             // setup has completed; adding subsystems or variables is now rejected
	Connections map[string]*Conn // absolute target path => resolved connection
	ToTopProm   map[string]string
	Relevance   *Relevance
	Trace       bool // print scatter/setup debug information
}

// NewProbData returns a new ProbData
func NewProbData() *ProbData {
	return &ProbData{
		Connections: make(map[string]*Conn),
		ToTopProm:   make(map[string]string),
	}
}

// joinPath joins a parent pathname and a child name
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// nameRelativeTo strips the pathname of an ancestor system plus the separator
// from an absolute variable path
func nameRelativeTo(sysPath, varPath string) string {
	if sysPath == "" {
		return varPath
	}
	return strings.TrimPrefix(varPath, sysPath+".")
}

// firstSegment returns the first path segment of a relative name
func firstSegment(relName string) string {
	if i := strings.Index(relName, "."); i >= 0 {
		return relName[:i]
	}
	return relName
}

// parentPath strips the last segment of a pathname; "" for top-level names
func parentPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

// commonAncestorPath returns the pathname of the deepest system containing
// both variables; "" denotes the root
func commonAncestorPath(a, b string) string {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	var common []string
	for i := 0; i < len(as)-1 && i < len(bs)-1; i++ {
		if as[i] != bs[i] {
			break
		}
		common = append(common, as[i])
	}
	return strings.Join(common, ".")
}

// promMatch tells whether a promotion pattern matches a variable name.
// Patterns are "*" (any), "prefix*", "*suffix", or an exact name.
func promMatch(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, pattern[1:])
	}
	return pattern == name
}

// shapeSize returns the total number of entries of a shape; nil means scalar
func shapeSize(shape []int) int {
	if len(shape) == 0 {
		return 1
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
