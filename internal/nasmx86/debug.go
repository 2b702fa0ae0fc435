// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"io"

	"github.com/davecgh/go-spew/spew"
)

// debugConfig pins DisableMethods and SortKeys so two dumps of
// an equal Entry are byte-identical, matching the determinism
// spec.md section 8 property 6 requires of the matcher itself.
var debugConfig = spew.ConfigState{
	DisableMethods: true,
	SortKeys:       true,
	Indent:         "  ",
}

// DumpEntry writes a deterministic, human-readable rendering of
// entry to w, for use diagnosing a ParseError/UnimplementedError
// report or inspecting a freshly added insns.dat line.
func DumpEntry(w io.Writer, entry *Entry) {
	debugConfig.Fdump(w, entry)
}

// SdumpEntry is DumpEntry rendered to a string, for use in test
// assertions that a dump contains an expected field.
func SdumpEntry(entry *Entry) string {
	return debugConfig.Sdump(entry)
}
