// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

// Instruction is the partially-decoded input the matcher
// consumes. It is produced by a byte-level decoder outside this
// package's scope (see the package doc comment): this package
// only defines the contract a decoder must satisfy, not the
// decoder itself.
//
// When Match is called with upToOpcode true, only the fields up
// to and including MainByte are authoritative; ModRM, SIB, and
// ImmediateSizeInBytes are not checked against the token stream,
// though the BaseReg operand post-pass still reads ModRM.
type Instruction struct {
	// DefaultAddressSize is the mode-derived default address
	// size in bits (16, 32, or 64) before any override prefix.
	DefaultAddressSize int

	// EffectiveAddressSize is the address size in effect after
	// any address-size override prefix is applied.
	EffectiveAddressSize int

	// LegacyPrefixes is the ordered set of legacy prefix bytes
	// observed before any extended prefix or opcode byte.
	LegacyPrefixes LegacyPrefixList

	// Xex carries the decoded extended-prefix bits (REX, VEX,
	// XOP, or EVEX), or the zero value when none was present.
	Xex Xex

	// OpcodeMap is the opcode map the decoder determined for
	// MainByte, accounting for any escape bytes or extended
	// prefix already consumed.
	OpcodeMap OpcodeMap

	// MainByte is the single opcode byte, after any legacy
	// prefixes, escape bytes, and extended prefix bytes.
	MainByte byte

	// SimdPrefix is the legacy prefix, if any, folded into the
	// SIMD opcode's encoding rather than treated as a standalone
	// legacy prefix.
	SimdPrefix SimdPrefixKind

	// ModRM is the decoded ModR/M byte, when one follows the
	// opcode.
	ModRM ModRM

	// SIB is the decoded scale-index-base byte, when one follows
	// the ModR/M byte.
	SIB SIB

	// ImmediateSizeInBytes is the number of immediate/
	// displacement bytes following the opcode and any ModR/M+SIB
	// +displacement, once fully decoded.
	ImmediateSizeInBytes int
}
