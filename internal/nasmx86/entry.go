// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"fmt"
	"strings"
)

// OperandClass distinguishes the handful of operand-type
// families the matcher needs to reason about: most of the
// parser's work is classification, not decoding (the decoder
// itself is out of scope, per the lookup contract), so
// NasmOperandType carries only enough structure to drive
// has_modrm/immediate_size derivation and operand-count checks.
type OperandClass uint8

const (
	OperandClassOther OperandClass = iota
	OperandClassRegister
	OperandClassMemory
)

func (c OperandClass) String() string {
	switch c {
	case OperandClassRegister:
		return "register"
	case OperandClassMemory:
		return "memory"
	default:
		return "other"
	}
}

// NasmOperandType is a single NASM operand-type keyword from
// the insns.dat second column (e.g. "reg32", "mem", "imm8",
// "xmmreg"), classified into the OperandClass the matcher
// distinguishes on.
type NasmOperandType struct {
	Name  string
	Class OperandClass
}

func (t NasmOperandType) String() string { return t.Name }

// nasmOperandTypes is the closed vocabulary of operand-type
// keywords recognised in the second column. Unrecognised names
// produce a *ParseError rather than being silently accepted,
// per spec.md section 4.1's malformed-line handling.
var nasmOperandTypes = map[string]OperandClass{
	"void":     OperandClassOther,
	"r8":       OperandClassRegister,
	"r16":      OperandClassRegister,
	"r32":      OperandClassRegister,
	"r64":      OperandClassRegister,
	"reg8":     OperandClassRegister,
	"reg16":    OperandClassRegister,
	"reg32":    OperandClassRegister,
	"reg64":    OperandClassRegister,
	"rm8":      OperandClassOther,
	"rm16":     OperandClassOther,
	"rm32":     OperandClassOther,
	"rm64":     OperandClassOther,
	"mem":      OperandClassMemory,
	"mem8":     OperandClassMemory,
	"mem16":    OperandClassMemory,
	"mem32":    OperandClassMemory,
	"mem64":    OperandClassMemory,
	"mem80":    OperandClassMemory,
	"mem128":   OperandClassMemory,
	"mem256":   OperandClassMemory,
	"mem512":   OperandClassMemory,
	"imm":      OperandClassOther,
	"imm8":     OperandClassOther,
	"imm16":    OperandClassOther,
	"imm32":    OperandClassOther,
	"imm64":    OperandClassOther,
	"imm8_n":   OperandClassOther,
	"rel8":     OperandClassOther,
	"rel16":    OperandClassOther,
	"rel32":    OperandClassOther,
	"xmmreg":   OperandClassRegister,
	"ymmreg":   OperandClassRegister,
	"zmmreg":   OperandClassRegister,
	"mmxreg":   OperandClassRegister,
	"kreg":     OperandClassRegister,
	"bndreg":   OperandClassRegister,
	"sreg":     OperandClassRegister,
	"creg":     OperandClassRegister,
	"dreg":     OperandClassRegister,
	"fpureg":   OperandClassRegister,
	"rmi":      OperandClassOther,
	"xmem32":   OperandClassMemory,
	"xmem64":   OperandClassMemory,
	"ymem32":   OperandClassMemory,
	"ymem64":   OperandClassMemory,
	"zmem32":   OperandClassMemory,
	"zmem64":   OperandClassMemory,
}

// ParseOperandType resolves a single second-column keyword. It
// does no stripping of its own: the '*' marker (NASM's "this
// operand may be omitted from some forms" marker, which is not
// otherwise significant to the matcher) and the r+mi -> rmi IMUL
// special case are handled upstream in parseOperandValues.
func ParseOperandType(name string) (NasmOperandType, error) {
	if class, ok := nasmOperandTypes[name]; ok {
		return NasmOperandType{Name: name, Class: class}, nil
	}

	if class, ok := classifyVectorOperand(name); ok {
		return NasmOperandType{Name: name, Class: class}, nil
	}

	return NasmOperandType{}, fmt.Errorf("unknown operand type %q", name)
}

// vectorRegisterPrefixes are the register-family prefixes a
// numbered vector/mask operand spelling may start with (e.g.
// "xmm1", "k1"); none is a prefix of another, so trying them in
// any order is unambiguous.
var vectorRegisterPrefixes = []string{"zmm", "ymm", "xmm", "mmx", "k"}

// classifyVectorOperand recognises the open-ended family of
// numbered vector/mask operand spellings insns.dat-style tables
// use for SIMD forms, which nasmOperandTypes cannot enumerate up
// front since the trailing register ordinal and, for a
// register-or-memory operand, the memory alternative's bit width
// both vary freely (e.g. "xmm1", "ymm2m256", "zmm3/m512", "k1").
// A bare "<prefix><digits>" classifies as OperandClassRegister; a
// "<prefix><digits>[/]m<digits>" classifies as OperandClassOther,
// the same unconstrained treatment "rm32" and friends already get
// in nasmOperandTypes, since matchOperands only ever constrains
// the BaseReg operand when its class is Register or Memory.
func classifyVectorOperand(name string) (OperandClass, bool) {
	for _, prefix := range vectorRegisterPrefixes {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}

		digits, rest, ok := cutLeadingDigits(rest)
		_ = digits
		if !ok {
			continue
		}

		if rest == "" {
			return OperandClassRegister, true
		}

		rest = strings.TrimPrefix(rest, "/")
		rest, ok = strings.CutPrefix(rest, "m")
		if !ok {
			continue
		}

		if _, rest, ok := cutLeadingDigits(rest); ok && rest == "" {
			return OperandClassOther, true
		}
	}

	return OperandClassOther, false
}

// cutLeadingDigits splits the leading run of ASCII digits off s,
// reporting false if s has none.
func cutLeadingDigits(s string) (digits, rest string, ok bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	return s[:i], s[i:], i > 0
}

// OperandField names the encoded role a single operand plays,
// taken from one character of the code string's leading
// "field-chars:" prefix (e.g. "rvm", "mi").
type OperandField uint8

const (
	OperandFieldNone OperandField = iota
	OperandFieldModReg
	OperandFieldBaseReg
	OperandFieldIndexReg
	OperandFieldImmediate
	OperandFieldImmediate2
	OperandFieldNonDestructiveReg
	OperandFieldIS4
)

func (f OperandField) String() string {
	switch f {
	case OperandFieldModReg:
		return "modreg"
	case OperandFieldBaseReg:
		return "basereg"
	case OperandFieldIndexReg:
		return "indexreg"
	case OperandFieldImmediate:
		return "immediate"
	case OperandFieldImmediate2:
		return "immediate2"
	case OperandFieldNonDestructiveReg:
		return "nondestructivereg"
	case OperandFieldIS4:
		return "is4"
	default:
		return "none"
	}
}

// operandFieldChars maps the one-character field-chars
// vocabulary from spec.md section 4.1 to OperandField.
var operandFieldChars = map[byte]OperandField{
	'-': OperandFieldNone,
	'r': OperandFieldModReg,
	'm': OperandFieldBaseReg,
	'x': OperandFieldIndexReg,
	'i': OperandFieldImmediate,
	'j': OperandFieldImmediate2,
	'v': OperandFieldNonDestructiveReg,
	's': OperandFieldIS4,
}

// ParseOperandField resolves a single field-chars character.
func ParseOperandField(c byte) (OperandField, error) {
	f, ok := operandFieldChars[c]
	if !ok {
		return OperandFieldNone, fmt.Errorf("unknown operand field character %q", string(c))
	}

	return f, nil
}

// Operand is one operand of an Entry: its encoded field role
// (from the code string's field-chars prefix) paired with its
// NASM operand type (from the operand-values column).
type Operand struct {
	Field OperandField
	Type  NasmOperandType
}

// InstructionFlag is a single flag keyword from the insns.dat
// fourth column (e.g. "SM", "ND", "LONG", "X64").
type InstructionFlag string

// InstructionFlagSet is the parsed, order-independent set of
// flags on one entry.
type InstructionFlagSet map[InstructionFlag]bool

// Has reports whether f is present in the set.
func (s InstructionFlagSet) Has(f InstructionFlag) bool {
	return s[f]
}

// assembleOnlyFlags names the flags that mark a form the
// disassembler should never select, per SPEC_FULL.md section
// 4.1's resolution of spec.md section 9's "ND flag family" hint.
var assembleOnlyFlags = map[InstructionFlag]bool{
	"ND": true,
}

// EVexTupleType is the EVEX compressed-displacement tuple type
// named in an EVEX descriptor's optional tuple clause, mirrored
// from the teacher's TupleType (ProjectSerenity-firefly,
// tools/ruse/internal/x86/x86.go) but trimmed to the tuple kinds
// that affect compressed-displacement scale, which is all the
// matcher needs: has_modrm/immediate_size derivation never reads
// the tuple type itself, only VexOpcodeEncoding fields, so this
// type exists for completeness of the parsed Entry rather than
// to drive a match decision.
type EVexTupleType uint8

const (
	TupleNone EVexTupleType = iota
	TupleFull
	TupleHalf
	TupleFullMem
	Tuple1Scalar
	Tuple1Fixed
	Tuple2
	Tuple4
	Tuple8
	TupleHalfMem
	TupleQuarterMem
	TupleEighthMem
	TupleMem128
	TupleMovddup
)

var evexTupleNames = map[string]EVexTupleType{
	"":          TupleNone,
	"full":      TupleFull,
	"half":      TupleHalf,
	"fullmem":   TupleFullMem,
	"t1s":       Tuple1Scalar,
	"t1f":       Tuple1Fixed,
	"t2":        Tuple2,
	"t4":        Tuple4,
	"t8":        Tuple8,
	"halfmem":   TupleHalfMem,
	"quartermem": TupleQuarterMem,
	"eighthmem": TupleEighthMem,
	"m128":      TupleMem128,
	"movddup":   TupleMovddup,
}

func (t EVexTupleType) String() string {
	for name, v := range evexTupleNames {
		if v == t {
			if name == "" {
				return "none"
			}

			return name
		}
	}

	return fmt.Sprintf("EVexTupleType(%d)", t)
}

// ParseEVexTupleType resolves a tuple-type keyword from a
// dotted EVEX clause.
func ParseEVexTupleType(name string) (EVexTupleType, error) {
	t, ok := evexTupleNames[name]
	if !ok {
		return TupleNone, fmt.Errorf("unknown EVEX tuple type %q", name)
	}

	return t, nil
}

// Entry is one parsed insns.dat line: a single encoding form of
// a mnemonic, ready to be matched against a decoded Instruction.
type Entry struct {
	LineNumber int
	Mnemonic   string
	Operands   []Operand
	Tokens     []NasmEncodingToken
	VexEncoding VexOpcodeEncoding
	Flags      InstructionFlagSet
	Tuple      EVexTupleType

	IsPseudo       bool
	IsAssembleOnly bool
}

// isAssembleOnly derives Entry.IsAssembleOnly from the parsed
// flag set.
func isAssembleOnly(flags InstructionFlagSet) bool {
	for f := range flags {
		if assembleOnlyFlags[f] {
			return true
		}
	}

	return false
}
