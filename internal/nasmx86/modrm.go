// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import "fmt"

// ModRM is an optional, decoded ModR/M byte.
type ModRM struct {
	Present bool
	Value   byte
	Mod     byte // 2 bits.
	Reg     byte // 3 bits.
	RM      byte // 3 bits.
}

// NewModRM decodes a raw ModR/M byte into its subfields.
func NewModRM(b byte) ModRM {
	return ModRM{
		Present: true,
		Value:   b,
		Mod:     (b >> 6) & 0b11,
		Reg:     (b >> 3) & 0b111,
		RM:      b & 0b111,
	}
}

// ModDirect reports whether mod selects direct (register)
// addressing, i.e. mod == 0b11.
func (m ModRM) ModDirect() bool {
	return m.Present && m.Mod == 0b11
}

func (m ModRM) String() string {
	if !m.Present {
		return "<none>"
	}

	return fmt.Sprintf("{Mod: %02b, Reg: %03b, R/M: %03b}", m.Mod, m.Reg, m.RM)
}

// SIB is an optional, decoded scale-index-base byte.
type SIB struct {
	Present bool
	Value   byte
	Scale   byte
	Index   byte
	Base    byte
}

// NewSIB decodes a raw SIB byte into its subfields.
func NewSIB(b byte) SIB {
	return SIB{
		Present: true,
		Value:   b,
		Scale:   (b >> 6) & 0b11,
		Index:   (b >> 3) & 0b111,
		Base:    b & 0b111,
	}
}

func (s SIB) String() string {
	if !s.Present {
		return "<none>"
	}

	return fmt.Sprintf("{Scale: %02b, Index: %03b, Base: %03b}", s.Scale, s.Index, s.Base)
}
