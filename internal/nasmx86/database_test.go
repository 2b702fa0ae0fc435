// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"context"
	"strings"
	"testing"
)

// TestLoadDatabaseResilience is property 9 from SPEC_FULL.md's
// §8 expansion: a file with N valid lines interleaved with M
// malformed lines yields exactly N entries and M LineErrors, and
// the entries retain their original line order.
func TestLoadDatabaseResilience(t *testing.T) {
	src := strings.Join([]string{
		"; a leading comment, skipped without error",
		"ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
		"this line has the wrong number of columns",
		"MOV reg32,imm32 [ri: o32 b8+r id] 386",
		"",
		"BOGUS reg32 [x: notatoken] ignore",
		"JCC imm [i: 70+cc rb] 8086",
	}, "\n")

	db, lineErrors := LoadDatabase(strings.NewReader(src))

	if len(db.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(db.Entries))
	}

	if len(lineErrors) != 2 {
		t.Fatalf("got %d line errors, want 2", len(lineErrors))
	}

	wantMnemonics := []string{"ADD", "MOV", "JCC"}
	for i, e := range db.Entries {
		if e.Mnemonic != wantMnemonics[i] {
			t.Errorf("entry %d: got mnemonic %s, want %s (order not preserved)", i, e.Mnemonic, wantMnemonics[i])
		}
	}

	if lineErrors[0].LineNumber != 3 {
		t.Errorf("first line error: got line %d, want 3", lineErrors[0].LineNumber)
	}

	if lineErrors[1].LineNumber != 6 {
		t.Errorf("second line error: got line %d, want 6", lineErrors[1].LineNumber)
	}
}

// TestDatabaseLookupTieBreak exercises the REDESIGN FLAGS
// resolution in SPEC_FULL.md: two entries matching with
// identical derived (has_modrm, immediate_size) resolve without
// ambiguity, picking the first in append order.
func TestDatabaseLookupTieBreak(t *testing.T) {
	src := strings.Join([]string{
		"FOOA rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
		"FOOB rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK",
	}, "\n")

	db, lineErrors := LoadDatabase(strings.NewReader(src))
	if len(lineErrors) != 0 {
		t.Fatalf("unexpected line errors: %v", lineErrors)
	}

	inst := &Instruction{
		DefaultAddressSize:   32,
		EffectiveAddressSize: 32,
		MainByte:             0x83,
		ModRM:                NewModRM(0xc0),
		ImmediateSizeInBytes: 1,
	}

	entry, hasModRM, immSize, err := db.Lookup(context.Background(), inst)
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}

	if entry == nil {
		t.Fatalf("Lookup: expected a match")
	}

	if entry.Mnemonic != "FOOA" {
		t.Errorf("Lookup: got mnemonic %s, want first-match-wins FOOA", entry.Mnemonic)
	}

	if !hasModRM || immSize != 1 {
		t.Errorf("Lookup: got (hasModRM=%t, immSize=%d), want (true, 1)", hasModRM, immSize)
	}
}

func TestDatabaseLookupNoMatch(t *testing.T) {
	db, lineErrors := LoadDatabase(strings.NewReader("ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK"))
	if len(lineErrors) != 0 {
		t.Fatalf("unexpected line errors: %v", lineErrors)
	}

	inst := &Instruction{DefaultAddressSize: 32, EffectiveAddressSize: 32, MainByte: 0xff}

	entry, _, _, err := db.Lookup(context.Background(), inst)
	if err != nil {
		t.Fatalf("Lookup: unexpected error: %v", err)
	}

	if entry != nil {
		t.Fatalf("Lookup: expected no match, got %s", entry.Mnemonic)
	}
}
