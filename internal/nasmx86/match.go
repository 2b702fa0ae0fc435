// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

// matchState is the matcher's progress through an entry's
// opcode bytes: it only ever advances, never regresses.
// PreOpcode is folded into statePostEscape, since nothing
// distinguishes them in this matcher's token handling.
type matchState uint8

const (
	statePrefixes matchState = iota
	statePostSimdPrefix
	stateEscape0F
	statePostEscape // aka PreOpcode.
	statePostOpcode
	statePostModRM
	stateImmediates
)

// Match runs entry's token stream as a declarative matcher
// against inst. It reports whether inst satisfies entry, and
// when it does, the has_modrm and immediate_size_in_bytes
// values derived as a side effect of the walk.
//
// When upToOpcode is true, only inst's fields up to and
// including MainByte are authoritative: ModRM/SIB presence and
// ImmediateSizeInBytes are not checked against inst, only
// required by the token stream's shape. The BaseReg operand
// post-pass (matchOperands) still reads inst.ModRM in both modes,
// treating an absent ModRM as register addressing.
//
// Match never decodes bytes itself: inst is assumed already
// decoded as far as legacy prefixes, any extended prefix, the
// opcode map, and the single opcode byte (see the Instruction
// doc comment for the exact contract).
func Match(entry *Entry, inst *Instruction, upToOpcode bool) (matched, hasModRM bool, immediateSize int, err error) {
	if entry.IsAssembleOnly || entry.IsPseudo {
		return false, false, 0, nil
	}

	expectedOpcodeMap := MapDefault
	state := statePrefixes
	vexSeen := false

	for _, tok := range entry.Tokens {
		switch tok.Kind {
		case AddressSizeFixed16, AddressSizeFixed32, AddressSizeFixed64:
			if inst.EffectiveAddressSize != addressSizeTokenBits(tok.Kind) {
				return false, false, 0, nil
			}

		case AddressSizeNoOverride:
			if inst.EffectiveAddressSize != inst.DefaultAddressSize {
				return false, false, 0, nil
			}

		case OperandSize16, OperandSize32, OperandSize64:
			if integerOperandSize(inst) != operandSizeTokenWidth(tok.Kind) {
				return false, false, 0, nil
			}

		case OperandSizeNoOverride:
			if inst.LegacyPrefixes.HasOperandSizeOverride() {
				return false, false, 0, nil
			}

		case OperandSize64WithoutW:
			if !(inst.DefaultAddressSize == 64 && !inst.LegacyPrefixes.HasOperandSizeOverride()) {
				return false, false, 0, nil
			}

		case LegacyPrefixF2:
			if !inst.LegacyPrefixes.Contains(PrefixRepeatNot) {
				return false, false, 0, nil
			}

		case LegacyPrefixF3:
			if !inst.LegacyPrefixes.Contains(PrefixRepeat) {
				return false, false, 0, nil
			}

		case LegacyPrefixNoF3:
			if inst.LegacyPrefixes.Contains(PrefixRepeat) {
				return false, false, 0, nil
			}

		case LegacyPrefixNoSimd:
			if inst.LegacyPrefixes.Contains(PrefixRepeat) || inst.LegacyPrefixes.Contains(PrefixRepeatNot) || inst.LegacyPrefixes.Contains(PrefixOperandSize) {
				return false, false, 0, nil
			}

		case LegacyPrefixMustRep:
			if inst.SimdPrefix != SimdF3 {
				return false, false, 0, nil
			}

		case LegacyPrefixNoRep:
			if inst.LegacyPrefixes.Contains(PrefixRepeat) || inst.LegacyPrefixes.Contains(PrefixRepeatNot) {
				return false, false, 0, nil
			}

		case LegacyPrefixDisassembleRepAsRepE, LegacyPrefixHleAlways, LegacyPrefixHleWithLock, LegacyPrefixXReleaseAlways:
			// Informational only; no check against inst.

		case Vex:
			vexSeen = true
			if !matchVexEncoding(entry.VexEncoding, inst) {
				return false, false, 0, nil
			}

			expectedOpcodeMap = entry.VexEncoding.Map()
			state = statePostEscape

		case RexNoB:
			if inst.Xex.BaseRegExtension {
				return false, false, 0, nil
			}

		case RexNoW:
			if inst.Xex.OperandSize64 {
				return false, false, 0, nil
			}

		case RexLockAsRexR:
			// No-op.

		case Byte:
			if state >= statePostModRM {
				return false, false, 0, &UnimplementedError{
					Mnemonic: entry.Mnemonic, Token: tok,
					Reason: "constant immediate byte after ModR/M requires raw immediate bytes, which Instruction does not carry",
				}
			}

			var ok bool
			state, expectedOpcodeMap, ok = matchByteToken(tok.Byte, inst, state, expectedOpcodeMap, upToOpcode)
			if !ok {
				return false, false, 0, nil
			}

			if state == statePostModRM {
				hasModRM = true
			}

		case BytePlusRegister:
			if state > statePostOpcode {
				return false, false, 0, &UnimplementedError{Mnemonic: entry.Mnemonic, Token: tok, Reason: "+r token encountered past the opcode state"}
			}

			if inst.MainByte&0xf8 != tok.Byte&0xf8 {
				return false, false, 0, nil
			}

			state = statePostOpcode

		case BytePlusConditionCode:
			if state > statePostOpcode {
				return false, false, 0, &UnimplementedError{Mnemonic: entry.Mnemonic, Token: tok, Reason: "+cc token encountered past the opcode state"}
			}

			if inst.MainByte&0xf0 != tok.Byte&0xf0 {
				return false, false, 0, nil
			}

			state = statePostOpcode

		case ModRMToken:
			if !upToOpcode && !inst.ModRM.Present {
				return false, false, 0, nil
			}

			hasModRM = true
			state = statePostModRM

		case ModRMFixedReg:
			if !upToOpcode && (!inst.ModRM.Present || inst.ModRM.Reg != tok.Byte) {
				return false, false, 0, nil
			}

			hasModRM = true
			state = statePostModRM

		case VectorSibX32, VectorSibX64, VectorSibY32, VectorSibY64, VectorSibZ32, VectorSibZ64:
			if !upToOpcode && !inst.SIB.Present {
				return false, false, 0, nil
			}

		case ImmediateByte, ImmediateByteSigned, ImmediateByteUnsigned, ImmediateIs4, ImmediateRelativeOffset8, ImmediateWord, ImmediateDword, ImmediateDwordSigned, ImmediateQword:
			immediateSize += immediateWidthFor(tok.Kind)

		case ImmediateRelativeOffset:
			if inst.DefaultAddressSize == 16 {
				immediateSize += 2
			} else {
				immediateSize += 4
			}

		case MiscAssembleWaitPrefix, MiscNoHigh8Register:
			// No-op.
		}
	}

	if !matchOperands(entry, inst, hasModRM) {
		return false, false, 0, nil
	}

	if state < statePostOpcode {
		return false, false, 0, nil
	}

	if vexSeen {
		// The opcode map was already verified field-by-field
		// against inst.Xex in the Vex case; a VEX/XOP/EVEX form
		// never walks literal 0F/0F38/0F3A escape bytes, so
		// inst.OpcodeMap (which reflects that byte walk) plays no
		// further part here.
	} else {
		if !inst.Xex.AllowsEscapes() {
			return false, false, 0, nil
		}

		if inst.OpcodeMap != expectedOpcodeMap {
			return false, false, 0, nil
		}
	}

	if !upToOpcode {
		if inst.ModRM.Present != hasModRM {
			return false, false, 0, nil
		}

		if inst.ImmediateSizeInBytes != immediateSize {
			return false, false, 0, nil
		}
	}

	return true, hasModRM, immediateSize, nil
}

// matchByteToken implements the Byte token's state-dependent
// behaviour: depending on how far the walk has progressed, the
// same literal byte value means a SIMD mandatory prefix, the
// 0F escape byte, a 0F38/0F3A second escape byte, the opcode
// byte proper, or a fixed ModR/M byte.
func matchByteToken(b byte, inst *Instruction, state matchState, expectedOpcodeMap OpcodeMap, upToOpcode bool) (matchState, OpcodeMap, bool) {
	if state < statePostSimdPrefix {
		switch b {
		case 0x66:
			if inst.LegacyPrefixes.EndsWith(PrefixOperandSize) {
				return statePostSimdPrefix, expectedOpcodeMap, true
			}

			return state, expectedOpcodeMap, false
		case 0xf2:
			if inst.LegacyPrefixes.EndsWith(PrefixRepeatNot) {
				return statePostSimdPrefix, expectedOpcodeMap, true
			}

			return state, expectedOpcodeMap, false
		case 0xf3:
			if inst.LegacyPrefixes.EndsWith(PrefixRepeat) {
				return statePostSimdPrefix, expectedOpcodeMap, true
			}

			return state, expectedOpcodeMap, false
		}
	}

	if state < stateEscape0F && b == 0x0f {
		if !inst.Xex.AllowsEscapes() {
			return state, expectedOpcodeMap, false
		}

		return stateEscape0F, MapEscape0F, true
	}

	if state == stateEscape0F && (b == 0x38 || b == 0x3a) {
		if b == 0x38 {
			return statePostEscape, MapEscape0F38, true
		}

		return statePostEscape, MapEscape0F3A, true
	}

	if state < statePostOpcode {
		if inst.MainByte != b {
			return state, expectedOpcodeMap, false
		}

		return statePostOpcode, expectedOpcodeMap, true
	}

	if state == statePostOpcode {
		if !upToOpcode && inst.ModRM.Value != b {
			return state, expectedOpcodeMap, false
		}

		return statePostModRM, expectedOpcodeMap, true
	}

	// A Byte token past ModR/M denotes a constant immediate byte;
	// this matcher has no raw immediate bytes to compare against
	// (Instruction carries only an aggregate immediate size), so
	// it cannot be implemented here. Callers hit this only for
	// entries using that rare encoding shape.
	return state, expectedOpcodeMap, false
}

// matchVexEncoding verifies a Vex token's descriptor field by
// field against inst.Xex: after the family check via
// VexOpcodeEncoding.matchesFamily, the opcode map, vector
// length, REX.W value, and SIMD mandatory prefix must all agree,
// per the REDESIGN note resolving spec.md section 9's VEX/XOP/
// EVEX verification gap. An Ignored field on the entry side
// matches any value on inst's side.
func matchVexEncoding(enc VexOpcodeEncoding, inst *Instruction) bool {
	if !enc.matchesFamily(inst.Xex.Type) {
		return false
	}

	if enc.Map() != inst.Xex.Map {
		return false
	}

	if enc.VectorLength() != VexLIgnored && enc.VectorLength() != inst.Xex.VectorLength {
		return false
	}

	if enc.RexW() != VexWIgnored {
		wantW := enc.RexW() == VexW1
		if wantW != inst.Xex.RexWValue {
			return false
		}
	}

	if enc.SimdPrefix() != inst.Xex.SimdPrefix {
		return false
	}

	return true
}

// matchOperands is the post-pass described in spec.md section
// 4.2: for the operand (if any) carrying the BaseReg field, its
// declared operand class must agree with whether the decoded
// ModR/M addresses a register or memory.
func matchOperands(entry *Entry, inst *Instruction, hasModRM bool) bool {
	for _, op := range entry.Operands {
		if op.Field != OperandFieldBaseReg {
			continue
		}

		isReg := !inst.ModRM.Present || inst.ModRM.ModDirect()

		switch op.Type.Class {
		case OperandClassRegister:
			if !isReg {
				return false
			}
		case OperandClassMemory:
			if isReg {
				return false
			}
		}
	}

	return true
}

func addressSizeTokenBits(k TokenKind) int {
	switch k {
	case AddressSizeFixed16:
		return 16
	case AddressSizeFixed32:
		return 32
	case AddressSizeFixed64:
		return 64
	default:
		return 0
	}
}

func operandSizeTokenWidth(k TokenKind) IntegerOperandSize {
	switch k {
	case OperandSize16:
		return SizeWord
	case OperandSize32:
		return SizeDword
	case OperandSize64:
		return SizeQword
	default:
		return SizeDword
	}
}
