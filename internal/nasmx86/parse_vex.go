// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"fmt"
	"strconv"
	"strings"
)

// parseCodeString parses the third column of an insns.dat line:
// either the literal "ignore" (no encoding at all, as for a
// pseudo-instruction), or the bracket form
// "[ (field-chars: (tuple-type:)? )? encoding ]". It returns the
// field-chars string (empty if absent), the EVEX tuple type
// (TupleNone if absent), the parsed token stream, and the VEX/
// XOP/EVEX descriptor if the stream contains exactly one Vex
// token.
func parseCodeString(s string) (fieldsStr string, tuple EVexTupleType, tokens []NasmEncodingToken, vexEnc VexOpcodeEncoding, err error) {
	if strings.EqualFold(s, "ignore") {
		return "", TupleNone, nil, VexOpcodeEncoding{}, nil
	}

	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return "", TupleNone, nil, VexOpcodeEncoding{}, fmt.Errorf("code string is neither \"ignore\" nor a bracketed expression: %q", s)
	}

	inner := s[1 : len(s)-1]
	fields := strings.Fields(inner)

	idx := 0
	if idx < len(fields) && strings.HasSuffix(fields[idx], ":") {
		fieldsStr = strings.ToLower(strings.TrimSuffix(fields[idx], ":"))
		idx++

		if idx < len(fields) && strings.HasSuffix(fields[idx], ":") {
			tuple, err = ParseEVexTupleType(strings.ToLower(strings.TrimSuffix(fields[idx], ":")))
			if err != nil {
				return "", TupleNone, nil, VexOpcodeEncoding{}, err
			}

			idx++
		}
	}

	var sawVex bool
	for _, f := range fields[idx:] {
		lower := strings.ToLower(f)

		if strings.HasPrefix(lower, "vex.") || strings.HasPrefix(lower, "xop.") || strings.HasPrefix(lower, "evex.") {
			if sawVex {
				return "", TupleNone, nil, VexOpcodeEncoding{}, fmt.Errorf("more than one vex/xop/evex clause in one entry")
			}

			vexEnc, err = parseVexClause(lower)
			if err != nil {
				return "", TupleNone, nil, VexOpcodeEncoding{}, err
			}

			sawVex = true
			tokens = append(tokens, NasmEncodingToken{Kind: Vex})
			continue
		}

		tok, err := parsePlainToken(lower)
		if err != nil {
			return "", TupleNone, nil, VexOpcodeEncoding{}, err
		}

		tokens = append(tokens, tok)
	}

	return fieldsStr, tuple, tokens, vexEnc, nil
}

// parsePlainToken parses every code-string token that is not a
// dotted VEX/XOP/EVEX clause: a literal token name, a hex
// opcode byte (optionally carrying a "+r"/"+c" suffix), or a
// "/0".."/7" ModR/M reg-field fix.
func parsePlainToken(f string) (NasmEncodingToken, error) {
	if kind, ok := literalEncodingTokens[f]; ok {
		return NasmEncodingToken{Kind: kind}, nil
	}

	if len(f) == 2 && f[0] == '/' && f[1] >= '0' && f[1] <= '7' {
		return NasmEncodingToken{Kind: ModRMFixedReg, Byte: f[1] - '0'}, nil
	}

	return parseOpcodeByteToken(f)
}

// parseOpcodeByteToken parses a bare hex opcode byte, optionally
// carrying a "+r" or "+c"/"+cc" suffix that folds a register
// number or condition code into its low bits.
func parseOpcodeByteToken(f string) (NasmEncodingToken, error) {
	if rest, ok := strings.CutSuffix(f, "+r"); ok {
		b, err := parseHexByte(rest)
		if err != nil {
			return NasmEncodingToken{}, err
		}

		return NasmEncodingToken{Kind: BytePlusRegister, Byte: b}, nil
	}

	if rest, ok := strings.CutSuffix(f, "+cc"); ok {
		b, err := parseHexByte(rest)
		if err != nil {
			return NasmEncodingToken{}, err
		}

		return NasmEncodingToken{Kind: BytePlusConditionCode, Byte: b}, nil
	}

	if rest, ok := strings.CutSuffix(f, "+c"); ok {
		b, err := parseHexByte(rest)
		if err != nil {
			return NasmEncodingToken{}, err
		}

		return NasmEncodingToken{Kind: BytePlusConditionCode, Byte: b}, nil
	}

	b, err := parseHexByte(f)
	if err != nil {
		return NasmEncodingToken{}, err
	}

	return NasmEncodingToken{Kind: Byte, Byte: b}, nil
}

func parseHexByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("not a recognised code-string token: %q", s)
	}

	return byte(v), nil
}

// parseVexClause parses a single dotted VEX/XOP/EVEX clause,
// e.g. "vex.128.66.0f38.w0" or "evex.nds.512.66.0f3a.w1". The
// family name (vex/xop/evex) is consumed first; the remainder
// is parsed in one of two orders chosen by peeking at the next
// token's first character: AMD-style (starts with 'm': Map,
// RexW, Vvvv, VectorLength, SimdPrefix) or Intel-style
// (otherwise: Vvvv, VectorLength, SimdPrefix, Map, RexW). Since
// every component here is self-describing (each spelling names
// exactly one field), both orderings are accepted by simply
// classifying each component independently rather than
// positionally, which is equivalent for every well-formed
// clause and additionally tolerant of either source ordering.
func parseVexClause(s string) (VexOpcodeEncoding, error) {
	parts := strings.Split(s, ".")
	if len(parts) == 0 {
		return VexOpcodeEncoding{}, fmt.Errorf("empty vex clause")
	}

	var family VexFamily
	switch parts[0] {
	case "vex":
		family = VexFamilyVex
	case "xop":
		family = VexFamilyXop
	case "evex":
		family = VexFamilyEvex
	default:
		return VexOpcodeEncoding{}, fmt.Errorf("unknown extended-prefix family %q", parts[0])
	}

	enc := VexOpcodeEncoding{family: family, mmap: MapDefault, vectorLength: VexLIgnored, rexW: VexWIgnored, simdPrefix: SimdNone}
	mapSeen := false

	for _, c := range parts[1:] {
		switch c {
		case "nds":
			enc.nonDestructiveReg = NonDestructiveSource
		case "ndd":
			enc.nonDestructiveReg = NonDestructiveDest
		case "dds":
			enc.nonDestructiveReg = NonDestructiveSecondSource
		case "lig":
			enc.vectorLength = VexLIgnored
		case "128", "l0", "lz":
			enc.vectorLength = VexL128
		case "256", "l1":
			enc.vectorLength = VexL256
		case "512":
			enc.vectorLength = VexL512
		case "66":
			enc.simdPrefix = Simd66
		case "f2":
			enc.simdPrefix = SimdF2
		case "f3":
			enc.simdPrefix = SimdF3
		case "np":
			enc.simdPrefix = SimdNone
		case "0f":
			enc.mmap = MapEscape0F
			mapSeen = true
		case "0f38":
			enc.mmap = MapEscape0F38
			mapSeen = true
		case "0f3a":
			enc.mmap = MapEscape0F3A
			mapSeen = true
		case "map8":
			enc.mmap = MapXop8
			mapSeen = true
		case "map9":
			enc.mmap = MapXop9
			mapSeen = true
		case "map10":
			enc.mmap = MapXop10
			mapSeen = true
		case "wig":
			enc.rexW = VexWIgnored
		case "w0":
			enc.rexW = VexW0
		case "w1":
			enc.rexW = VexW1
		case "is4":
			enc.is4 = true
		default:
			// An unrecognised clause component in an optional slot
			// falls through to the default without consuming the
			// token, per spec.md section 4.1; the Map slot is the
			// only mandatory component.
		}
	}

	if !mapSeen {
		return VexOpcodeEncoding{}, fmt.Errorf("%s clause %q is missing a mandatory map component", family, s)
	}

	return enc, nil
}
