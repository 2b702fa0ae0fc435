// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		Name string
		Line string
		Want *Entry
	}{
		{
			Name: "ADD r/m32, imm8",
			Line: "ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
			Want: &Entry{
				LineNumber: 1,
				Mnemonic:   "ADD",
				Operands: []Operand{
					{Field: OperandFieldBaseReg, Type: NasmOperandType{Name: "rm32", Class: OperandClassOther}},
					{Field: OperandFieldImmediate, Type: NasmOperandType{Name: "imm8", Class: OperandClassOther}},
				},
				Tokens: []NasmEncodingToken{
					{Kind: OperandSize32},
					{Kind: Byte, Byte: 0x83},
					{Kind: ModRMFixedReg, Byte: 0},
					{Kind: ImmediateByteSigned},
				},
				Flags: InstructionFlagSet{"_8086": true, "LOCK": true},
			},
		},
		{
			Name: "MOV reg32, imm32",
			Line: "MOV reg32,imm32 [ri: o32 b8+r id] 386",
			Want: &Entry{
				LineNumber: 1,
				Mnemonic:   "MOV",
				Operands: []Operand{
					{Field: OperandFieldModReg, Type: NasmOperandType{Name: "reg32", Class: OperandClassRegister}},
					{Field: OperandFieldImmediate, Type: NasmOperandType{Name: "imm32", Class: OperandClassOther}},
				},
				Tokens: []NasmEncodingToken{
					{Kind: OperandSize32},
					{Kind: BytePlusRegister, Byte: 0xb8},
					{Kind: ImmediateDword},
				},
				Flags: InstructionFlagSet{"_386": true},
			},
		},
		{
			Name: "JCC short",
			Line: "JCC imm [i: 70+cc rb] 8086",
			Want: &Entry{
				LineNumber: 1,
				Mnemonic:   "JCC",
				Operands: []Operand{
					{Field: OperandFieldImmediate, Type: NasmOperandType{Name: "imm", Class: OperandClassOther}},
				},
				Tokens: []NasmEncodingToken{
					{Kind: BytePlusConditionCode, Byte: 0x70},
					{Kind: ImmediateRelativeOffset8},
				},
				Flags: InstructionFlagSet{"_8086": true},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := ParseLine(1, test.Line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}

			if diff := cmp.Diff(test.Want, got, cmp.AllowUnexported(VexOpcodeEncoding{})); diff != "" {
				t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseVexClause(t *testing.T) {
	tests := []struct {
		Name string
		Line string
		Want VexOpcodeEncoding
	}{
		{
			Name: "VADDPS xmm (Intel-style)",
			Line: "VADDPS xmm1,xmm2,xmm3m128 [rvm: vex.nds.128.0f.wig 58 /r] AVX",
			Want: VexOpcodeEncoding{
				family: VexFamilyVex, mmap: MapEscape0F, vectorLength: VexL128,
				rexW: VexWIgnored, simdPrefix: SimdNone, nonDestructiveReg: NonDestructiveSource,
			},
		},
		{
			Name: "VPERMQ ymm",
			Line: "VPERMQ ymm1,ymm2m256,imm8 [rmi: vex.256.66.0f3a.w1 00 /r ib] AVX2",
			Want: VexOpcodeEncoding{
				family: VexFamilyVex, mmap: MapEscape0F3A, vectorLength: VexL256,
				rexW: VexW1, simdPrefix: Simd66,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			entry, err := ParseLine(1, test.Line)
			if err != nil {
				t.Fatalf("ParseLine: %v", err)
			}

			if diff := cmp.Diff(test.Want, entry.VexEncoding, cmp.AllowUnexported(VexOpcodeEncoding{})); diff != "" {
				t.Errorf("VexEncoding mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseOperandTypeVector exercises classifyVectorOperand's
// open-ended numbered vector/mask register family, which
// nasmOperandTypes cannot enumerate directly.
func TestParseOperandTypeVector(t *testing.T) {
	tests := []struct {
		Name string
		Want OperandClass
	}{
		{"xmm1", OperandClassRegister},
		{"xmm2", OperandClassRegister},
		{"ymm1", OperandClassRegister},
		{"zmm31", OperandClassRegister},
		{"k1", OperandClassRegister},
		{"xmm3m128", OperandClassOther},
		{"xmm2m64", OperandClassOther},
		{"ymm2m256", OperandClassOther},
		{"zmm3m512", OperandClassOther},
		{"xmm3/m128", OperandClassOther},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := ParseOperandType(test.Name)
			if err != nil {
				t.Fatalf("ParseOperandType(%q): %v", test.Name, err)
			}

			if got.Class != test.Want {
				t.Errorf("ParseOperandType(%q).Class = %s, want %s", test.Name, got.Class, test.Want)
			}
		})
	}

	if _, err := ParseOperandType("xmmfoo"); err == nil {
		t.Errorf("ParseOperandType(%q): expected an error", "xmmfoo")
	}
}

// TestParseLineUnknownFlagRejected exercises the closed
// nasmInstructionFlags vocabulary: an unrecognised fourth-column
// token must produce a *ParseError, not be silently accepted.
func TestParseLineUnknownFlagRejected(t *testing.T) {
	_, err := ParseLine(1, "ADD rm32,imm8 [mi: o32 83 /0 ib,s] NOTAREALFLAG")
	if err == nil {
		t.Fatalf("ParseLine: expected an error for an unrecognised flag")
	}

	var perr *ParseError
	if !errorsAsParseError(err, &perr) {
		t.Fatalf("ParseLine: error %v is not a *ParseError", err)
	}
}

func errorsAsParseError(err error, target **ParseError) bool {
	if e, ok := err.(*ParseError); ok {
		*target = e
		return true
	}

	return false
}

// TestParseVexClauseMissingMapRejected exercises the
// mandatory-Map rule for every extended-prefix family: a dotted
// clause naming no opcode map must be rejected rather than
// silently defaulting to the legacy 0F map.
func TestParseVexClauseMissingMapRejected(t *testing.T) {
	tests := []string{
		"vex.nds.128.wig",
		"evex.512.66.w1",
	}

	for _, clause := range tests {
		t.Run(clause, func(t *testing.T) {
			if _, err := parseVexClause(clause); err == nil {
				t.Errorf("parseVexClause(%q): expected an error for a missing map component", clause)
			}
		})
	}
}

// TestTokenRoundTrip is property 5 from spec.md section 8:
// re-serialising an entry's encoding tokens via FormatTokens and
// re-parsing the result yields the same tokens, for every entry
// whose tokens FormatTokens fully covers (no Vex token).
func TestTokenRoundTrip(t *testing.T) {
	lines := []string{
		"ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
		"MOV reg32,imm32 [ri: o32 b8+r id] 386",
		"JCC imm [i: 70+cc rb] 8086",
		"MOVSD xmm1,xmm2m64 [rm: f2i 0f 10 /r] SSE2",
	}

	for _, line := range lines {
		entry, err := ParseLine(1, line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}

		rendered := FormatTokens(entry.Tokens)
		reparsed, _, tokens, _, err := parseCodeStringForTest(rendered)
		if err != nil {
			t.Fatalf("re-parsing %q (from %q): %v", rendered, line, err)
		}
		_ = reparsed

		if diff := cmp.Diff(entry.Tokens, tokens); diff != "" {
			t.Errorf("round trip mismatch for %q (-original +reparsed):\n%s", line, diff)
		}
	}
}

// parseCodeStringForTest wraps the bracketed-clause form of
// parseCodeString so tests can feed it a bare encoding string.
func parseCodeStringForTest(encoding string) (string, EVexTupleType, []NasmEncodingToken, VexOpcodeEncoding, error) {
	return parseCodeString("[" + encoding + "]")
}

// TestImmediateWidthInvariant is property 1 from spec.md section
// 8: the immediate-width sum the matcher derives equals the
// textual sum of immediate-width tokens in the entry, and only
// Immediate_RelativeOffset varies with DefaultAddressSize.
func TestImmediateWidthInvariant(t *testing.T) {
	entry, err := ParseLine(1, "ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}

	for _, addrSize := range []int{16, 32, 64} {
		// o32 requires a dword operand size, which a 16-bit default
		// only reaches through the 0x66 operand-size override.
		var prefixes LegacyPrefixList
		if addrSize == 16 {
			prefixes = LegacyPrefixList{PrefixOperandSize}
		}

		inst := &Instruction{
			DefaultAddressSize:   addrSize,
			EffectiveAddressSize: addrSize,
			LegacyPrefixes:       prefixes,
			MainByte:             0x83,
			ModRM:                NewModRM(0xc0),
			ImmediateSizeInBytes: 1,
		}

		matched, _, immSize, err := Match(entry, inst, false)
		if err != nil {
			t.Fatalf("Match: %v", err)
		}

		if !matched {
			t.Fatalf("Match: expected a match at address size %d", addrSize)
		}

		if immSize != 1 {
			t.Errorf("Match: immediate size varied with DefaultAddressSize (got %d), want 1", immSize)
		}
	}
}

// TestEveryEntryReachesPostOpcode is property 2 from spec.md
// section 8: every parsed entry's token stream produces an
// opcode byte. It checks this structurally: each entry's tokens
// include at least one opcode-emitting token (Byte, +r or +cc).
func TestEveryEntryReachesPostOpcode(t *testing.T) {
	lines := []string{
		"ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
		"MOV reg32,imm32 [ri: o32 b8+r id] 386",
		"JCC imm [i: 70+cc rb] 8086",
		"MOVSD xmm1,xmm2m64 [rm: f2i 0f 10 /r] SSE2",
		"VADDPS xmm1,xmm2,xmm3m128 [rvm: vex.nds.128.0f.wig 58 /r] AVX",
	}

	for _, line := range lines {
		entry, err := ParseLine(1, line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}

		hasOpcode := false
		for _, tok := range entry.Tokens {
			switch tok.Kind {
			case Byte, BytePlusRegister, BytePlusConditionCode:
				hasOpcode = true
			}
		}

		if !hasOpcode {
			t.Errorf("entry %q has no opcode-emitting token", line)
		}
	}
}
