// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mdao

import (
	"github.com/cpmech/gosl/chk"
)

// Setup and runtime error constructors. Each kind carries a stable prefix so
// callers can distinguish kinds without a parallel type hierarchy, and every
// message names the offending variable by its absolute path.

// naming errors

func errDuplicateName(path string) error {
	return chk.Err("DuplicateName: variable %q was already added", path)
}

func errInvalidName(name string) error {
	return chk.Err("InvalidName: variable name %q must not contain '.' or '/'", name)
}

func errSetupClosed(what string) error {
	return chk.Err("SetupClosed: cannot %s after setup has begun", what)
}

// connection errors

func errNonexistentSource(src, tgt string) error {
	return chk.Err("NonexistentSource: source %q (connected to %q) does not exist", src, tgt)
}

func errNonexistentTarget(src, tgt string) error {
	return chk.Err("NonexistentTarget: target %q (connected to %q) does not exist", tgt, src)
}

func errInvalidTarget(src, tgt string) error {
	return chk.Err("InvalidTarget: target %q (connected to %q) is a source (output or state) and cannot be a connection target", tgt, src)
}

func errMultipleSources(tgt, src1, src2 string) error {
	return chk.Err("MultipleSources: target %q is connected to both %q and %q", tgt, src1, src2)
}

// shape errors

func errMissingShape(path string) error {
	return chk.Err("MissingShape: variable %q needs either a value or a shape", path)
}

func errIndicesOutOfRange(tgt, src string, idx, size int) error {
	return chk.Err("IndicesOutOfRange: src_indices entry %d for target %q exceeds the size (%d) of source %q", idx, tgt, size, src)
}

func errIndicesBothEnds(tgt, src string) error {
	return chk.Err("IndicesBothEnds: both source %q and target %q specify src_indices; specify them on one end only", src, tgt)
}

// order errors

func errBadOrder(missing, extra []string) error {
	return chk.Err("BadOrder: new order is not a permutation of the children. missing=%v extra=%v", missing, extra)
}

func errDuplicateOrder(dupes []string) error {
	return chk.Err("DuplicateOrder: duplicate name(s) found in order list: %v", dupes)
}

// runtime errors

func errRemoteAccess(name string) error {
	return chk.Err("RemoteAccess: cannot access remote variable %q in this process", name)
}

func errUnconnectedParam(path string) error {
	return chk.Err("UnconnectedParam: parameter %q has no source", path)
}

func errNotImplemented(path, method string) error {
	return chk.Err("NotImplemented: component %q does not implement %s", path, method)
}
