// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package nasmx86 parses NASM insns.dat-format instruction
// tables into a Database of Entry values, and matches a
// partially-decoded Instruction against that Database to derive
// has_modrm and immediate_size_in_bytes. It does not decode raw
// machine code bytes itself: callers supply an already-decoded
// Instruction (legacy prefixes, extended prefix, opcode map,
// opcode byte), and this package only evaluates whether that
// decoded shape satisfies a given encoding form.
package nasmx86

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// skipLineRE matches a blank line or a whole-line comment;
// these are skipped by LoadDatabase without producing a
// ParseError or an Entry.
var skipLineRE = regexp.MustCompile(`^\s*(;.*)?$`)

// mnemonicRE validates the first column: uppercase identifier
// characters, with an optional literal "cc" suffix marking a
// condition-code family.
var mnemonicRE = regexp.MustCompile(`^[A-Z_0-9]+(cc)?$`)

// ShouldSkipLine reports whether line is blank or a full-line
// comment and should be skipped without parsing.
func ShouldSkipLine(line string) bool {
	return skipLineRE.MatchString(line)
}

// splitColumns splits a line into exactly four columns: the
// third (code-string) column is bracket-atomic, so a '['
// encountered while splitting on whitespace absorbs everything
// up to the matching ']' into one field, spaces and all.
func splitColumns(line string) []string {
	var columns []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' || i < len(line) && line[i] == '\t' {
			i++
		}

		if i >= len(line) {
			break
		}

		start := i
		if line[i] == '[' {
			depth := 0
			for i < len(line) {
				if line[i] == '[' {
					depth++
				} else if line[i] == ']' {
					depth--
					i++
					if depth == 0 {
						break
					}

					continue
				}

				i++
			}
		} else {
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				i++
			}
		}

		columns = append(columns, line[start:i])
	}

	return columns
}

// ParseLine parses one non-skipped insns.dat line into an
// Entry. lineNumber is carried into any *ParseError for
// diagnostics; it plays no role in parsing itself.
func ParseLine(lineNumber int, line string) (*Entry, error) {
	columns := splitColumns(line)
	if len(columns) != 4 {
		return nil, &ParseError{
			Line:   lineNumber,
			Text:   line,
			Reason: "expected 4 whitespace-separated columns, found " + strconv.Itoa(len(columns)),
		}
	}

	mnemonic, operandsCol, codeCol, flagsCol := columns[0], strings.ToUpper(columns[1]), columns[2], columns[3]

	if !mnemonicRE.MatchString(mnemonic) {
		return nil, &ParseError{Line: lineNumber, Text: line, Reason: "malformed mnemonic"}
	}

	mnemonic = strings.ToUpper(mnemonic)

	fieldsStr, tuple, tokens, vexEnc, err := parseCodeString(codeCol)
	if err != nil {
		return nil, &ParseError{Line: lineNumber, Text: line, Reason: err.Error()}
	}

	operands, err := parseOperandValues(operandsCol, fieldsStr)
	if err != nil {
		return nil, &ParseError{Line: lineNumber, Text: line, Reason: err.Error()}
	}

	flags, err := parseFlags(flagsCol)
	if err != nil {
		return nil, &ParseError{Line: lineNumber, Text: line, Reason: err.Error()}
	}

	entry := &Entry{
		LineNumber:  lineNumber,
		Mnemonic:    mnemonic,
		Operands:    operands,
		Tokens:      tokens,
		VexEncoding: vexEnc,
		Flags:       flags,
		Tuple:       tuple,
	}
	entry.IsPseudo = pseudoMnemonics[strings.TrimSuffix(entry.Mnemonic, "CC")] || pseudoMnemonics[entry.Mnemonic]
	entry.IsAssembleOnly = isAssembleOnly(flags)

	return entry, nil
}

// pseudoMnemonics is the closed set of pseudo-instruction
// mnemonics recognised for the is_pseudo flag, matched
// case-insensitively against the uppercased mnemonic.
var pseudoMnemonics = map[string]bool{
	"DB": true, "DW": true, "DD": true, "DQ": true, "DT": true, "DO": true, "DY": true, "DZ": true,
	"RESB": true, "RESW": true, "RESD": true, "RESQ": true, "REST": true, "RESO": true, "RESY": true, "RESZ": true,
}

// parseOperandValues parses the comma-separated second column
// into Operand values pairing each value with the OperandField
// named at the same position in fieldsStr (the code string's
// leading "field-chars:" prefix). "void" or "ignore" means zero
// operands, and requires fieldsStr to be empty. A lone trailing
// '*' is stripped (NASM's "relaxed" marker, not otherwise
// significant here). The IMUL special case renames a "r+mi"
// fields string to "rmi" and expands its two values into three:
// the first value, a copy of it with "reg" replaced by the
// shared register/memory "rm" form, and the second value.
func parseOperandValues(s, fieldsStr string) ([]Operand, error) {
	imulRegRM := false
	if fieldsStr == "r+mi" {
		fieldsStr = "rmi"
		imulRegRM = true
	}

	s = strings.TrimSuffix(s, "*")

	if s == "" || s == "VOID" || s == "IGNORE" {
		if fieldsStr != "" {
			return nil, errLenMismatch
		}

		return nil, nil
	}

	values := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ':' })
	if imulRegRM && len(values) == 2 {
		values = []string{values[0], strings.Replace(values[0], "REG", "RM", 1), values[1]}
	}

	if len(values) != len(fieldsStr) {
		return nil, errLenMismatch
	}

	operands := make([]Operand, 0, len(values))
	for i, v := range values {
		v = strings.TrimPrefix(v, "*")
		v = strings.TrimSuffix(v, "*")

		// The first '|'-separated component names the operand
		// type; subsequent flag components are currently ignored.
		typeName, _, _ := strings.Cut(v, "|")

		typ, err := ParseOperandType(strings.ToLower(typeName))
		if err != nil {
			return nil, err
		}

		field, err := ParseOperandField(fieldsStr[i])
		if err != nil {
			return nil, err
		}

		operands = append(operands, Operand{Field: field, Type: typ})
	}

	return operands, nil
}

var errLenMismatch = errors.New("operand values and field-chars length mismatch")

// nasmInstructionFlags is the closed vocabulary of fourth-column
// flag keywords, matched case-insensitively. Unrecognised names
// produce a *ParseError, the same treatment ParseOperandType and
// ParseEVexTupleType give an unknown name, per spec.md section
// 4.1's "unknown NasmInstructionFlag names... produce a
// *ParseError" clarification.
var nasmInstructionFlags = map[string]bool{
	"8086": true, "186": true, "286": true, "386": true, "486": true,
	"PENT": true, "P6": true, "KATMAI": true, "WILLAMETTE": true, "PRESCOTT": true,
	"X64": true, "X86_64": true, "IA64": true,
	"FPU": true, "MMX": true,
	"SSE": true, "SSE2": true, "SSE3": true, "SSSE3": true, "SSE4A": true, "SSE41": true, "SSE42": true,
	"AVX": true, "AVX2": true, "AVX512": true,
	"VEX": true, "XOP": true, "EVEX": true,
	"BMI1": true, "BMI2": true, "TBM": true, "RTM": true, "MPX": true,
	"SHA": true, "ADX": true, "AES": true, "PCLMUL": true, "FMA": true, "F16C": true,
	"GFNI": true, "VAES": true, "VPCLMULQDQ": true,
	"AVX512VL": true, "AVX512BW": true, "AVX512CD": true, "AVX512DQ": true, "AVX512ER": true, "AVX512PF": true,
	"AVX512VBMI": true, "AVX512VBMI2": true, "AVX512IFMA": true, "AVX512VNNI": true, "AVX512BITALG": true,
	"AVX512VPOPCNTDQ": true, "AVX512FP16": true, "AVX512BF16": true,
	"SM": true, "SM2": true, "SB": true, "SO": true, "SQ": true, "SD": true, "SY": true,
	"AR0": true, "AR1": true, "AR2": true,
	"LOCK": true, "NOLONG": true, "LONG": true, "ND": true, "NOP": true, "HLE": true,
	"SIB": true, "VSIB": true, "BND": true, "MIB": true, "ANYSIZE": true, "LATEVEX": true,
	"PRIV": true, "PROT": true, "SMM": true, "UNDOC": true, "OBSOLETE": true, "NEVER": true,
	"NOAPX": true, "APX": true,
}

// parseFlags parses the comma-separated fourth column into a
// flag set, rejecting any name not in nasmInstructionFlags. A
// flag name beginning with a digit (e.g. "8086" or "386") is
// stored with a leading underscore prepended, so "8086" becomes
// the set key "_8086".
func parseFlags(s string) (InstructionFlagSet, error) {
	flags := make(InstructionFlagSet)

	if s == "" || s == "ignore" || s == "IGNORE" {
		return flags, nil
	}

	for _, raw := range strings.Split(s, ",") {
		if raw == "" {
			continue
		}

		if !nasmInstructionFlags[strings.ToUpper(raw)] {
			return nil, fmt.Errorf("unknown instruction flag %q", raw)
		}

		name := raw
		if name[0] >= '0' && name[0] <= '9' {
			name = "_" + name
		}

		flags[InstructionFlag(name)] = true
	}

	return flags, nil
}
