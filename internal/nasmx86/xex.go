// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import "fmt"

// XexType identifies which extended-prefix family applies
// to an instruction: the plain escape bytes (no extended
// prefix at all), REX, the 2-byte or 3-byte VEX forms, XOP,
// or EVEX.
type XexType uint8

const (
	XexEscapes XexType = iota // No extended prefix; legacy escape bytes only.
	XexRex
	XexVex2
	XexVex3
	XexXop
	XexEVex
)

func (t XexType) String() string {
	switch t {
	case XexEscapes:
		return "escapes"
	case XexRex:
		return "rex"
	case XexVex2:
		return "vex2"
	case XexVex3:
		return "vex3"
	case XexXop:
		return "xop"
	case XexEVex:
		return "evex"
	default:
		return fmt.Sprintf("XexType(%d)", t)
	}
}

// Xex carries the decoded bits of whichever extended prefix
// family was observed. Fields not relevant to the matched
// family are zero. Map, VectorLength, RexWValue and SimdPrefix
// are only meaningful for the VEX/XOP/EVEX families and are
// populated by the caller's decoder from the corresponding
// prefix bytes; the matcher uses them to verify a Vex token's
// encoding descriptor field-by-field (see Match).
type Xex struct {
	Type XexType

	OperandSize64    bool // REX.W / VEX.W / EVEX.W.
	BaseRegExtension bool // REX.B / VEX.B / EVEX.B.

	Map         OpcodeMap
	VectorLength VexVectorLength
	RexWValue    bool
	SimdPrefix   SimdPrefixKind
}

// AllowsEscapes reports whether this extended-prefix family
// allows the 0x0F (and 0x0F 0x38 / 0x0F 0x3A) escape bytes to
// follow. Only the plain-escapes and REX families do; VEX,
// XOP, and EVEX bake the escape map into their own encoding
// and never have literal 0x0F bytes on the wire.
func (x Xex) AllowsEscapes() bool {
	return x.Type == XexEscapes || x.Type == XexRex
}
