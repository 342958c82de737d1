// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// sumAll returns the sum of all entries of the first n rows of a sizes table
func sumAll(sizes [][]int, n int) (total int) {
	for r := 0; r < n && r < len(sizes); r++ {
		for _, s := range sizes[r] {
			total += s
		}
	}
	return
}

// sumRow returns the sum of the first n entries of row r
func sumRow(sizes [][]int, r, n int) (total int) {
	for i := 0; i < n; i++ {
		total += sizes[r][i]
	}
	return
}

// sumCol returns the sum of column ivar over the first n rows
func sumCol(sizes [][]int, ivar, n int) (total int) {
	for r := 0; r < n; r++ {
		total += sizes[r][ivar]
	}
	return
}

// globalIdxs returns the global indices into the distributed unknowns and
// params vectors for one connection, on the calling rank.
//  Input:
//   umeta, pmeta     -- metadata of the source unknown and the target param
//   ivar, pvar       -- column of each variable in its sizes table
//   uSizes, pSizes   -- (rank x var) local size tables
//   iproc            -- this rank
//   uOwner, pOwner   -- owning (lowest local) rank of each variable
//   mode             -- "fwd" or "rev"
//  Output: equal-length source and target index arrays; empty on ranks where
//  the endpoints are remote.
func globalIdxs(umeta, pmeta *VarMeta, ivar, pvar int, uSizes, pSizes [][]int,
	iproc, uOwner, pOwner int, mode string) (srcIdxs, tgtIdxs []int) {

	rev := mode == "rev"
	udist := umeta.SrcIndices != nil
	pdist := pmeta.SrcIndices != nil

	if (!rev && pmeta.Remote) ||
		(rev && !pdist && umeta.Remote) ||
		(rev && udist && !pdist && iproc != pOwner) {
		return []int{}, []int{}
	}

	var argIdxs []int
	if pdist {
		argIdxs = pmeta.SrcIndices
	} else {
		argIdxs = utl.IntRange(pmeta.Size)
	}

	var varRank int
	if udist || pdist {
		nproc := len(uSizes)
		srcIdxs = make([]int, len(argIdxs))
		for irank := 0; irank < nproc; irank++ {
			start := sumCol(uSizes, ivar, irank)
			end := start + uSizes[irank][ivar]

			// rebase the selector entries landing on this rank to global
			// offsets inside the full distributed vector
			offset := -start
			offset += sumAll(uSizes, irank)
			offset += sumRow(uSizes, irank, ivar)
			for k, a := range argIdxs {
				if a >= start && a < end {
					srcIdxs[k] = a + offset
				}
			}
		}
		varRank = iproc
	} else {
		varRank = uOwner
		if rev {
			varRank = iproc
		}
		offset := sumAll(uSizes, varRank) + sumRow(uSizes, varRank, ivar)
		srcIdxs = make([]int, len(argIdxs))
		for k, a := range argIdxs {
			srcIdxs[k] = a + offset
		}
		varRank = iproc
		if rev {
			varRank = pOwner
		}
	}

	tgtStart := sumAll(pSizes, varRank) + sumRow(pSizes, varRank, pvar)
	tgtIdxs = make([]int, len(argIdxs))
	for k := range argIdxs {
		tgtIdxs[k] = tgtStart + k
	}
	return
}

// getGlobalIdxs wraps globalIdxs with this group's tables for the given
// promoted names and variable of interest
func (o *Group) getGlobalIdxs(uProm, pProm, voi, mode string) (srcIdxs, tgtIdxs []int) {
	umeta := o.Unknowns.Metadata(uProm)
	pmeta := o.Params.Metadata(pProm)
	ivar, uok := o.uVarIdx[voi][uProm]
	pvar, pok := o.pVarIdx[voi][pProm]
	if !uok || !pok {
		return []int{}, []int{}
	}
	return globalIdxs(umeta, pmeta, ivar, pvar, o.uSizes[voi], o.pSizes[voi],
		o.cm.Rank(), o.owningRanks[uProm], o.owningRanks[pProm], mode)
}

// DataTransfer is a precomputed scatter descriptor: a pair of equal-length
// global index arrays plus the pass-by-object pairs. Cross-rank movement
// reuses the summed-scratch assembly idiom, so only one collective kind is
// needed.
type DataTransfer struct {
	cm Comm

	srcIdxs []int
	tgtIdxs []int

	// per-element unit conversion (identity when no conversion applies)
	scales  []float64
	offsets []float64

	vecConns   [][2]string // (target, source) promoted pairs moved by index
	byObjConns [][2]string // (target, source) promoted pairs moved by reference

	// local windows inside the global flat spaces
	uOff, uTot int
	pOff, pTot int
}

// Transfer moves data between the source and target vectors.
//  fwd: tgt[tgtIdxs] = scale*(src[srcIdxs] + offset)
//  rev: src[srcIdxs] += scale*tgt[tgtIdxs]   (accumulate)
// With deriv=true the vectors are the differential wrappers and conversion
// offsets are suppressed.
func (o *DataTransfer) Transfer(src, tgt *VecWrapper, mode string, deriv bool) {
	if o.cm.Size() == 1 {
		o.transferLocal(src.Vec, tgt.Vec, mode, deriv)
	} else {
		o.transferDistributed(src.Vec, tgt.Vec, mode, deriv)
	}
	if mode == "fwd" && !deriv {
		for _, pair := range o.byObjConns {
			tgt.SetObj(pair[0], src.GetObj(pair[1]))
		}
	}
}

func (o *DataTransfer) transferLocal(src, tgt []float64, mode string, deriv bool) {
	if mode == "fwd" {
		for k, s := range o.srcIdxs {
			v := src[s-o.uOff]
			if !deriv {
				v += o.offsets[k]
			}
			tgt[o.tgtIdxs[k]-o.pOff] = o.scales[k] * v
		}
		return
	}
	for k, s := range o.srcIdxs {
		src[s-o.uOff] += o.scales[k] * tgt[o.tgtIdxs[k]-o.pOff]
	}
}

// transferDistributed moves values across ranks: each rank publishes its
// local window into a zeroed global scratch, one summation makes all windows
// visible, and each rank then picks the entries its index pairs point at.
func (o *DataTransfer) transferDistributed(src, tgt []float64, mode string, deriv bool) {
	if mode == "fwd" {
		scratch := make([]float64, o.uTot)
		w := make([]float64, o.uTot)
		copy(scratch[o.uOff:o.uOff+len(src)], src)
		o.cm.AllReduceSum(scratch, w)
		for k, s := range o.srcIdxs {
			t := o.tgtIdxs[k]
			if t < o.pOff || t >= o.pOff+len(tgt) {
				continue
			}
			v := scratch[s]
			if !deriv {
				v += o.offsets[k]
			}
			tgt[t-o.pOff] = o.scales[k] * v
		}
		return
	}
	scratch := make([]float64, o.pTot)
	w := make([]float64, o.pTot)
	copy(scratch[o.pOff:o.pOff+len(tgt)], tgt)
	o.cm.AllReduceSum(scratch, w)
	for k, s := range o.srcIdxs {
		if s < o.uOff || s >= o.uOff+len(src) {
			continue
		}
		src[s-o.uOff] += o.scales[k] * scratch[o.tgtIdxs[k]]
	}
}

// xferAccum accumulates the per-subsystem pieces of a scatter while the
// transfer dictionary is being built
type xferAccum struct {
	srcs     [][]int
	tgts     [][]int
	pmetas   []*VarMeta
	vecConns [][2]string
	byObjs   [][2]string
}

// setupDataTransfer creates the DataTransfer objects handling all of the
// connections whose parameters this group is responsible for, for one
// variable of interest
func (o *Group) setupDataTransfer(myParams map[string]bool, voi string) (err error) {
	rel := o.probdata.Relevance
	conns := o.probdata.Connections

	// map relevant vars to their column in the sizes tables
	uNames, uLocal := o.DUMat[voi].FlattenedSizes()
	pNames, pLocal := o.DPMat[voi].FlattenedSizes()
	o.uSizes[voi] = o.cm.AllGatherInts(uLocal)
	o.pSizes[voi] = o.cm.AllGatherInts(pLocal)
	o.uVarIdx[voi] = make(map[string]int)
	for i, n := range uNames {
		o.uVarIdx[voi][n] = i
	}
	o.pVarIdx[voi] = make(map[string]int)
	for i, n := range pNames {
		o.pVarIdx[voi][n] = i
	}

	xferDict := make(map[[2]string]*xferAccum)
	var keyOrder [][2]string
	accOf := func(sname, mode string) *xferAccum {
		key := [2]string{sname, mode}
		acc, ok := xferDict[key]
		if !ok {
			acc = new(xferAccum)
			xferDict[key] = acc
			keyOrder = append(keyOrder, key)
		}
		return acc
	}

	for _, tgt := range o.paramsDict.Keys() {
		if !myParams[tgt] {
			continue
		}
		c := conns[tgt]
		uProm := o.Unknowns.PromOf(c.Src)
		pProm := o.Params.PromOf(tgt)
		topU := o.unknownsDict.Get(c.Src).TopPromName
		topP := o.paramsDict.Get(tgt).TopPromName
		if rel != nil && (!rel.IsRelevant(voi, topU) || !rel.IsRelevant(voi, topP)) {
			continue
		}
		umeta := o.Unknowns.Metadata(uProm)
		tgtSys := firstSegment(nameRelativeTo(o.pathname, tgt))
		srcSys := firstSegment(nameRelativeTo(o.pathname, c.Src))
		for _, sm := range [][2]string{{tgtSys, "fwd"}, {srcSys, "rev"}} {
			acc := accOf(sm[0], sm[1])
			if umeta.PassByObj {
				// rev is for derivatives only: no by-object passing needed
				if sm[1] == "fwd" {
					acc.byObjs = append(acc.byObjs, [2]string{pProm, uProm})
				}
				continue
			}
			sidxs, didxs := o.getGlobalIdxs(uProm, pProm, voi, sm[1])
			acc.srcs = append(acc.srcs, sidxs)
			acc.tgts = append(acc.tgts, didxs)
			acc.pmetas = append(acc.pmetas, o.Params.Metadata(pProm))
			acc.vecConns = append(acc.vecConns, [2]string{pProm, uProm})
		}
	}

	for _, key := range keyOrder {
		acc := xferDict[key]
		if len(acc.vecConns) > 0 || len(acc.byObjs) > 0 {
			o.dataXfer[xferKey{key[0], key[1], voi}] = o.newDataTransfer(acc, voi)
		}
	}

	// full transfer: the concatenation of all per-subsystem pieces
	for _, mode := range []string{"fwd", "rev"} {
		full := new(xferAccum)
		for _, key := range keyOrder {
			if key[1] != mode {
				continue
			}
			acc := xferDict[key]
			full.srcs = append(full.srcs, acc.srcs...)
			full.tgts = append(full.tgts, acc.tgts...)
			full.pmetas = append(full.pmetas, acc.pmetas...)
			full.vecConns = append(full.vecConns, acc.vecConns...)
			full.byObjs = append(full.byObjs, acc.byObjs...)
		}
		o.dataXfer[xferKey{"", mode, voi}] = o.newDataTransfer(full, voi)
	}

	if o.probdata.Trace {
		io.Pf("setup xfer: system=%q voi=%q nxfer=%d\n", o.pathname, voi, len(keyOrder))
	}
	return
}

// newDataTransfer merges the accumulated index arrays into one descriptor
func (o *Group) newDataTransfer(acc *xferAccum, voi string) *DataTransfer {
	x := &DataTransfer{
		cm:         o.cm,
		vecConns:   acc.vecConns,
		byObjConns: acc.byObjs,
	}
	for i := range acc.srcs {
		n := len(acc.srcs[i])
		x.srcIdxs = append(x.srcIdxs, acc.srcs[i]...)
		x.tgtIdxs = append(x.tgtIdxs, acc.tgts[i]...)
		scale, offset := 1.0, 0.0
		if uc := acc.pmetas[i].UnitConv; uc != nil {
			scale, offset = uc.Scale, uc.Offset
		}
		for k := 0; k < n; k++ {
			x.scales = append(x.scales, scale)
			x.offsets = append(x.offsets, offset)
		}
	}
	rank := o.cm.Rank()
	x.uOff = sumAll(o.uSizes[voi], rank)
	x.uTot = sumAll(o.uSizes[voi], len(o.uSizes[voi]))
	x.pOff = sumAll(o.pSizes[voi], rank)
	x.pTot = sumAll(o.pSizes[voi], len(o.pSizes[voi]))
	return x
}

// TransferData runs the scatter to the given target subsystem (or the full
// group-wide scatter when targetSys is "")
func (o *Group) TransferData(targetSys, mode string, deriv bool, voi string) {
	x := o.dataXfer[xferKey{targetSys, mode, voi}]
	if x == nil {
		return
	}
	if deriv {
		x.Transfer(o.DUMat[voi], o.DPMat[voi], mode, true)
	} else {
		x.Transfer(o.Unknowns, o.Params, mode, false)
	}
}

// XferIdxs returns the merged (source, target) index arrays of one transfer;
// nil slices when the transfer does not exist. Mostly for debugging.
func (o *Group) XferIdxs(targetSys, mode, voi string) (srcIdxs, tgtIdxs []int) {
	x := o.dataXfer[xferKey{targetSys, mode, voi}]
	if x == nil {
		return
	}
	return x.srcIdxs, x.tgtIdxs
}
