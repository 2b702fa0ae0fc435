// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"fmt"
	"strings"
)

// literalTokenSpellings is the reverse of literalEncodingTokens,
// built once: it recovers the exact code-string spelling a
// literal token was parsed from, for FormatTokens' round-trip.
var literalTokenSpellings = func() map[TokenKind]string {
	m := make(map[TokenKind]string, len(literalEncodingTokens))
	for spelling, kind := range literalEncodingTokens {
		if _, exists := m[kind]; exists {
			// Prefer the shorter spelling when a kind has more than
			// one literal form mapping to it (there are none today,
			// but this keeps the reverse mapping deterministic if
			// one is ever added).
			if len(spelling) >= len(m[kind]) {
				continue
			}
		}

		m[kind] = spelling
	}

	return m
}()

// FormatTokens renders entry's encoding tokens back to the
// space-separated code-string spelling insns.dat uses, for every
// token kind except Vex: a dotted VEX/XOP/EVEX clause carries
// more structure (map, vector length, W, SIMD prefix, vvvv use)
// than VexOpcodeEncoding's current accessors expose in clause
// order, so FormatTokens covers the subset of tokens spec.md
// section 8 property 5 describes and omits a Vex token from its
// output entirely, matching the property's "for the subset of
// tokens the printer covers" qualifier.
func FormatTokens(tokens []NasmEncodingToken) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Kind {
		case Vex:
			continue
		case Byte:
			parts = append(parts, fmt.Sprintf("%02x", tok.Byte))
		case BytePlusRegister:
			parts = append(parts, fmt.Sprintf("%02x+r", tok.Byte))
		case BytePlusConditionCode:
			parts = append(parts, fmt.Sprintf("%02x+cc", tok.Byte))
		case ModRMFixedReg:
			parts = append(parts, fmt.Sprintf("/%d", tok.Byte))
		default:
			if spelling, ok := literalTokenSpellings[tok.Kind]; ok {
				parts = append(parts, spelling)
			}
		}
	}

	return strings.Join(parts, " ")
}
