// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import "fmt"

// VexVectorLength is the vector-length field carried by a VEX,
// XOP, or EVEX prefix (the "L"/"L'L" bits), or Ignored when the
// encoding table entry does not constrain it.
type VexVectorLength uint8

const (
	VexLIgnored VexVectorLength = iota
	VexL128
	VexL256
	VexL512
)

func (l VexVectorLength) String() string {
	switch l {
	case VexLIgnored:
		return "LIG"
	case VexL128:
		return "128"
	case VexL256:
		return "256"
	case VexL512:
		return "512"
	default:
		return fmt.Sprintf("VexVectorLength(%d)", l)
	}
}

// VexRexW is the state required of the W bit by a vex_encoding
// descriptor: ignored, forced to 0, or forced to 1.
type VexRexW uint8

const (
	VexWIgnored VexRexW = iota
	VexW0
	VexW1
)

func (w VexRexW) String() string {
	switch w {
	case VexWIgnored:
		return "WIG"
	case VexW0:
		return "W0"
	case VexW1:
		return "W1"
	default:
		return fmt.Sprintf("VexRexW(%d)", w)
	}
}

// VexNonDestructiveReg classifies how a form's VEX.vvvv field
// (the "non-destructive" operand slot) is used, if at all: NASM
// spells this nds/ndd/dds in a dotted clause, distinguishing a
// vvvv that names a source operand from one naming the
// destination or a second source.
type VexNonDestructiveReg uint8

const (
	NonDestructiveInvalid VexNonDestructiveReg = iota
	NonDestructiveSource
	NonDestructiveDest
	NonDestructiveSecondSource
)

func (n VexNonDestructiveReg) String() string {
	switch n {
	case NonDestructiveSource:
		return "nds"
	case NonDestructiveDest:
		return "ndd"
	case NonDestructiveSecondSource:
		return "dds"
	default:
		return "invalid"
	}
}

// VexFamily distinguishes the three extended-prefix encodings
// a vex_encoding descriptor may require: VEX proper, XOP, or EVEX.
type VexFamily uint8

const (
	VexFamilyVex VexFamily = iota
	VexFamilyXop
	VexFamilyEvex
)

func (f VexFamily) String() string {
	switch f {
	case VexFamilyVex:
		return "vex"
	case VexFamilyXop:
		return "xop"
	case VexFamilyEvex:
		return "evex"
	default:
		return fmt.Sprintf("VexFamily(%d)", f)
	}
}

// VexOpcodeEncoding is the packed descriptor parsed from a
// dotted VEX/XOP/EVEX clause in an insns.dat code string, e.g.
// "vex.128.66.0f38.w0". Callers read it through accessor
// methods rather than through exposed bit positions, matching
// the packed-field accessor pattern the teacher applies to its
// own VEX/EVEX byte types (ProjectSerenity-firefly,
// tools/ruse/internal/x86/x86.go's VEX/EVEX On/Reset/Default/
// accessor methods).
type VexOpcodeEncoding struct {
	family            VexFamily
	mmap              OpcodeMap
	vectorLength      VexVectorLength
	rexW              VexRexW
	simdPrefix        SimdPrefixKind
	is4               bool // /is4: a fourth register operand encoded in an immediate byte.
	nonDestructiveReg VexNonDestructiveReg
}

// Family reports which extended-prefix family this descriptor requires.
func (v VexOpcodeEncoding) Family() VexFamily { return v.family }

// Map reports the opcode map this descriptor requires.
func (v VexOpcodeEncoding) Map() OpcodeMap { return v.mmap }

// VectorLength reports the vector-length constraint, or VexLIgnored.
func (v VexOpcodeEncoding) VectorLength() VexVectorLength { return v.vectorLength }

// RexW reports the W-bit constraint, or VexWIgnored.
func (v VexOpcodeEncoding) RexW() VexRexW { return v.rexW }

// SimdPrefix reports the mandatory SIMD prefix this descriptor requires.
func (v VexOpcodeEncoding) SimdPrefix() SimdPrefixKind { return v.simdPrefix }

// Is4 reports whether the form uses /is4 (an immediate-encoded register).
func (v VexOpcodeEncoding) Is4() bool { return v.is4 }

// NonDestructiveReg reports how the form's VEX.vvvv field is
// used, or NonDestructiveInvalid if the form carries no vvvv
// operand at all.
func (v VexOpcodeEncoding) NonDestructiveReg() VexNonDestructiveReg { return v.nonDestructiveReg }

func (v VexOpcodeEncoding) String() string {
	return fmt.Sprintf("%s.%s.%s.%s.%s", v.family, v.vectorLength, v.simdPrefix, v.mmap, v.rexW)
}

// matchesFamily reports whether a decoded instruction's Xex.Type
// is eligible to satisfy a descriptor of this family.
func (v VexOpcodeEncoding) matchesFamily(t XexType) bool {
	switch v.family {
	case VexFamilyXop:
		return t == XexXop
	case VexFamilyEvex:
		return t == XexEVex
	default:
		return t == XexVex2 || t == XexVex3
	}
}
