// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import "fmt"

// TokenKind closes the vocabulary of tokens a code string in
// the third column of an insns.dat line can expand to.
type TokenKind uint8

const (
	AddressSizeFixed16 TokenKind = iota
	AddressSizeFixed32
	AddressSizeFixed64
	AddressSizeNoOverride

	OperandSize16
	OperandSize32
	OperandSize64
	OperandSizeNoOverride
	OperandSize64WithoutW

	LegacyPrefixF2
	LegacyPrefixF3
	LegacyPrefixNoF3
	LegacyPrefixNoSimd
	LegacyPrefixMustRep
	LegacyPrefixNoRep
	LegacyPrefixDisassembleRepAsRepE
	LegacyPrefixHleAlways
	LegacyPrefixHleWithLock
	LegacyPrefixXReleaseAlways

	Vex
	RexNoB
	RexNoW
	RexLockAsRexR

	Byte
	BytePlusRegister
	BytePlusConditionCode

	ModRMToken
	ModRMFixedReg

	VectorSibX32
	VectorSibX64
	VectorSibY32
	VectorSibY64
	VectorSibZ32
	VectorSibZ64

	ImmediateByte
	ImmediateByteSigned
	ImmediateByteUnsigned
	ImmediateIs4
	ImmediateRelativeOffset8
	ImmediateWord
	ImmediateDword
	ImmediateDwordSigned
	ImmediateQword
	ImmediateRelativeOffset

	MiscAssembleWaitPrefix
	MiscNoHigh8Register
)

var tokenKindNames = map[TokenKind]string{
	AddressSizeFixed16:               "a16",
	AddressSizeFixed32:               "a32",
	AddressSizeFixed64:               "a64",
	AddressSizeNoOverride:            "adf",
	OperandSize16:                    "o16",
	OperandSize32:                    "o32",
	OperandSize64:                    "o64",
	OperandSizeNoOverride:            "odf",
	OperandSize64WithoutW:            "o64nw",
	LegacyPrefixF2:                   "f2i",
	LegacyPrefixF3:                   "f3i",
	LegacyPrefixNoF3:                 "nof3",
	LegacyPrefixNoSimd:               "nosimd",
	LegacyPrefixMustRep:              "mustrep",
	LegacyPrefixNoRep:                "norep",
	LegacyPrefixDisassembleRepAsRepE: "repe",
	LegacyPrefixHleAlways:            "hlexrelease",
	LegacyPrefixHleWithLock:          "hlelock",
	LegacyPrefixXReleaseAlways:       "xrelease",
	Vex:                              "vex",
	RexNoB:                           "norexb",
	RexNoW:                           "norexw",
	RexLockAsRexR:                    "lockrexr",
	Byte:                             "byte",
	BytePlusRegister:                 "+r",
	BytePlusConditionCode:            "+cc",
	ModRMToken:                       "/r",
	ModRMFixedReg:                    "/digit",
	VectorSibX32:                     "vm32x",
	VectorSibX64:                     "vm64x",
	VectorSibY32:                     "vm32y",
	VectorSibY64:                     "vm64y",
	VectorSibZ32:                     "vm32z",
	VectorSibZ64:                     "vm64z",
	ImmediateByte:                    "ib",
	ImmediateByteSigned:              "ib,s",
	ImmediateByteUnsigned:            "ib,u",
	ImmediateIs4:                     "/is4",
	ImmediateRelativeOffset8:         "rb",
	ImmediateWord:                    "iw",
	ImmediateDword:                   "id",
	ImmediateDwordSigned:             "id,s",
	ImmediateQword:                   "iq",
	ImmediateRelativeOffset:          "rel",
	MiscAssembleWaitPrefix:           "wait",
	MiscNoHigh8Register:              "nohigh8",
}

// literalEncodingTokens maps the fixed, zero-payload token
// spellings recognised in the encoding sub-parser (step 1 of
// section 4.1's token loop: "match against a literal token
// name") to their TokenKind, before the hex-byte, ModRM-digit,
// and dotted-descriptor forms are tried.
var literalEncodingTokens = map[string]TokenKind{
	"a16": AddressSizeFixed16, "a32": AddressSizeFixed32, "a64": AddressSizeFixed64, "adf": AddressSizeNoOverride,
	"o16": OperandSize16, "o32": OperandSize32, "o64": OperandSize64, "odf": OperandSizeNoOverride, "o64nw": OperandSize64WithoutW,
	"f2i": LegacyPrefixF2, "f3i": LegacyPrefixF3, "nof3": LegacyPrefixNoF3, "nosimd": LegacyPrefixNoSimd,
	"mustrep": LegacyPrefixMustRep, "norep": LegacyPrefixNoRep,
	"repe": LegacyPrefixDisassembleRepAsRepE, "hlexrelease": LegacyPrefixHleAlways,
	"hlelock": LegacyPrefixHleWithLock, "xrelease": LegacyPrefixXReleaseAlways,
	"norexb": RexNoB, "norexw": RexNoW, "lockrexr": RexLockAsRexR,
	"/r": ModRMToken,
	"vm32x": VectorSibX32, "vm64x": VectorSibX64,
	"vm32y": VectorSibY32, "vm64y": VectorSibY64,
	"vm32z": VectorSibZ32, "vm64z": VectorSibZ64,
	"ib": ImmediateByte, "ib,s": ImmediateByteSigned, "ib,u": ImmediateByteUnsigned,
	"/is4": ImmediateIs4, "rb": ImmediateRelativeOffset8,
	"iw": ImmediateWord, "id": ImmediateDword, "id,s": ImmediateDwordSigned, "iq": ImmediateQword,
	"rel": ImmediateRelativeOffset,
	"wait": MiscAssembleWaitPrefix, "nohigh8": MiscNoHigh8Register,
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("TokenKind(%d)", k)
}

// immediateWidthFor returns the byte count a fixed-width
// immediate or relative-offset token contributes, or -1 for
// Immediate_RelativeOffset, whose width depends on
// default_address_size and so is computed by the matcher.
func immediateWidthFor(k TokenKind) int {
	switch k {
	case ImmediateByte, ImmediateByteSigned, ImmediateByteUnsigned, ImmediateIs4, ImmediateRelativeOffset8:
		return 1
	case ImmediateWord:
		return 2
	case ImmediateDword, ImmediateDwordSigned:
		return 4
	case ImmediateQword:
		return 8
	default:
		return -1
	}
}

// NasmEncodingToken is one element of an Entry's parsed code
// string: the sequence the matcher replays against a partially
// decoded Instruction. Byte is meaningful only for Byte,
// BytePlusRegister, BytePlusConditionCode, and ModRMFixedReg.
type NasmEncodingToken struct {
	Kind TokenKind
	Byte byte
}

func (t NasmEncodingToken) String() string {
	switch t.Kind {
	case Byte, BytePlusRegister, BytePlusConditionCode:
		return fmt.Sprintf("%s(%#02x)", t.Kind, t.Byte)
	case ModRMFixedReg:
		return fmt.Sprintf("/%d", t.Byte)
	default:
		return t.Kind.String()
	}
}
