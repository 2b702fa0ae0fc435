// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import "testing"

// TestConditionCodeNegateInvolution is property 3 from spec.md
// section 8: negation is an involution over all 16 condition
// codes, and flips exactly the low bit.
func TestConditionCodeNegateInvolution(t *testing.T) {
	for cc := ConditionCode(0); cc <= 0xf; cc++ {
		t.Run(cc.String(), func(t *testing.T) {
			negated := cc.Negate()
			if negated.Negate() != cc {
				t.Errorf("Negate(Negate(%s)) = %s, want %s", cc, negated.Negate(), cc)
			}

			if negated^cc != 1 {
				t.Errorf("%s ^ Negate(%s) = %#x, want 1", cc, cc, uint8(negated^cc))
			}
		})
	}
}

// TestConditionCodeComparisonKindsExclusive is property 4 from
// spec.md section 8: IsUnsignedComparison and IsSignedComparison
// are mutually exclusive, and exactly one is true for the eight
// relational codes B/AE/BE/A/L/GE/LE/G (0x2,0x3,0x6,0x7,0xc,0xd,
// 0xe,0xf); neither holds for the remaining flag-test codes.
func TestConditionCodeComparisonKindsExclusive(t *testing.T) {
	wantRelational := map[ConditionCode]bool{
		CCBelow: true, CCAboveOrEqual: true, CCBelowOrEqual: true, CCAbove: true,
		CCLess: true, CCGreaterOrEqual: true, CCLessOrEqual: true, CCGreater: true,
	}

	for cc := ConditionCode(0); cc <= 0xf; cc++ {
		t.Run(cc.String(), func(t *testing.T) {
			unsigned := cc.IsUnsignedComparison()
			signed := cc.IsSignedComparison()

			if unsigned && signed {
				t.Fatalf("%s: IsUnsignedComparison and IsSignedComparison both true", cc)
			}

			got := unsigned != signed
			want := wantRelational[cc]
			if got != want {
				t.Errorf("%s: unsigned=%t signed=%t, want exactly one true = %t", cc, unsigned, signed, want)
			}
		})
	}
}

// TestConditionCodeAliasesResolveCanonically checks that every
// alternate spelling in conditionCodeAliases resolves to the same
// value as its canonical String() form, and that MnemonicSuffix
// round-trips through ParseConditionCode.
func TestConditionCodeAliasesResolveCanonically(t *testing.T) {
	aliasGroups := map[ConditionCode][]string{
		CCBelow:          {"b", "c", "nae"},
		CCAboveOrEqual:   {"ae", "nb", "nc"},
		CCEqual:          {"e", "z"},
		CCNotEqual:       {"ne", "nz"},
		CCBelowOrEqual:   {"be", "na"},
		CCAbove:          {"a", "nbe"},
		CCParityEven:     {"p", "pe"},
		CCParityOdd:      {"np", "po"},
		CCLess:           {"l", "nge"},
		CCGreaterOrEqual: {"ge", "nl"},
		CCLessOrEqual:    {"le", "ng"},
		CCGreater:        {"g", "nle"},
	}

	for cc, spellings := range aliasGroups {
		for _, spelling := range spellings {
			got, ok := ParseConditionCode(spelling)
			if !ok {
				t.Errorf("ParseConditionCode(%q): not recognised", spelling)
				continue
			}

			if got != cc {
				t.Errorf("ParseConditionCode(%q) = %s, want %s", spelling, got, cc)
			}
		}
	}

	for cc := ConditionCode(0); cc <= 0xf; cc++ {
		suffix := cc.MnemonicSuffix()
		got, ok := ParseConditionCode(suffix)
		if !ok || got != cc {
			t.Errorf("ParseConditionCode(%q) = (%s, %t), want (%s, true)", suffix, got, ok, cc)
		}
	}
}
