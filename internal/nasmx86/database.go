// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package nasmx86

import (
	"bufio"
	"context"
	"io"
)

// Database is the immutable, in-memory collection of Entry
// values produced by LoadDatabase. A *Database is safe for
// concurrent use by multiple goroutines once LoadDatabase has
// returned: nothing in this package mutates an Entry or a
// Database after construction.
type Database struct {
	Entries    []*Entry
	ByMnemonic map[string][]*Entry
}

// LoadDatabase scans r line by line, parsing each
// non-comment, non-blank line into an Entry. A malformed line
// never aborts the scan: it is instead collected into the
// returned []LineError, preserving the position of every
// successfully parsed Entry in Database.Entries.
func LoadDatabase(r io.Reader) (*Database, []LineError) {
	db := &Database{ByMnemonic: make(map[string][]*Entry)}
	var lineErrors []LineError

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if ShouldSkipLine(line) {
			continue
		}

		entry, err := ParseLine(lineNumber, line)
		if err != nil {
			lineErrors = append(lineErrors, LineError{LineNumber: lineNumber, Line: line, Err: err})
			continue
		}

		db.Entries = append(db.Entries, entry)
		db.ByMnemonic[entry.Mnemonic] = append(db.ByMnemonic[entry.Mnemonic], entry)
	}

	return db, lineErrors
}

// Lookup finds the Entry matching inst, in the original
// append order of the database (see SPEC_FULL.md's REDESIGN
// FLAGS: first match wins). It reports ErrAmbiguousMatch if two
// or more entries match inst with differing derived
// (has_modrm, immediate_size_in_bytes) results, since the
// caller cannot choose between them safely.
//
// ctx is checked once per candidate entry, bounding the work
// Lookup will do against an adversarially large database.
func (db *Database) Lookup(ctx context.Context, inst *Instruction) (entry *Entry, hasModRM bool, immediateSize int, err error) {
	var found *Entry
	var foundModRM bool
	var foundImmSize int
	matchedAny := false

	for _, e := range db.Entries {
		if err := ctx.Err(); err != nil {
			return nil, false, 0, err
		}

		ok, hm, sz, mErr := Match(e, inst, false)
		if mErr != nil {
			return nil, false, 0, mErr
		}

		if !ok {
			continue
		}

		if !matchedAny {
			found, foundModRM, foundImmSize = e, hm, sz
			matchedAny = true
			continue
		}

		if hm != foundModRM || sz != foundImmSize {
			return nil, false, 0, ErrAmbiguousMatch
		}
	}

	if !matchedAny {
		return nil, false, 0, nil
	}

	return found, foundModRM, foundImmSize, nil
}
