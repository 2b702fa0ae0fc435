// Copyright 2024 The Asmuth Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Command asmuth loads a NASM insns.dat-format instruction
// table and answers lookups against it.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lance2088/Asmuth/internal/nasmx86"
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	log.SetPrefix("")
}

type Command struct {
	Name        string
	Description string
	Func        func(ctx context.Context, w io.Writer, args []string) error
}

var (
	commandNames = make([]string, 0, 4)
	commandsMap  = make(map[string]*Command)

	program = filepath.Base(os.Args[0])
)

func RegisterCommand(name, description string, fun func(ctx context.Context, w io.Writer, args []string) error) {
	if commandsMap[name] != nil {
		panic("command " + name + " already registered")
	}

	commandNames = append(commandNames, name)
	commandsMap[name] = &Command{Name: name, Description: description, Func: fun}
}

func init() {
	RegisterCommand("lookup", "Decode a hex byte string and look it up in the database", lookupMain)
	RegisterCommand("parse", "Load a database and print a summary", parseMain)
	RegisterCommand("dump", "Print every entry for a mnemonic with go-spew", dumpMain)
}

func main() {
	sort.Strings(commandNames)

	var help bool
	flag.BoolVar(&help, "h", false, "Show this message and exit.")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage\n  %s COMMAND [OPTIONS]\n\n", program)
		fmt.Fprintf(os.Stderr, "Commands:\n")
		maxWidth := 0
		for _, name := range commandNames {
			if maxWidth < len(name) {
				maxWidth = len(name)
			}
		}

		for _, name := range commandNames {
			cmd := commandsMap[name]
			fmt.Fprintf(os.Stderr, "  %-*s  %s\n", maxWidth, name, cmd.Description)
		}

		os.Exit(2)
	}

	flag.Parse()

	args := flag.Args()
	if help || len(args) == 0 {
		flag.Usage()
	}

	cmd, ok := commandsMap[args[0]]
	if !ok {
		flag.Usage()
	}

	log.SetPrefix(args[0] + ": ")
	if err := cmd.Func(context.Background(), os.Stdout, args[1:]); err != nil {
		log.Fatal(err)
	}
}

// loadDatabaseFile opens and loads the insns.dat file named by
// path, logging (but not aborting on) any per-line errors. It
// returns their count alongside the database so callers can
// report it without re-scanning the log.
func loadDatabaseFile(path string) (*nasmx86.Database, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	db, lineErrors := nasmx86.LoadDatabase(f)
	for _, le := range lineErrors {
		log.Printf("%v", le)
	}

	return db, len(lineErrors), nil
}

// decodePrefix speculatively decodes as much of raw as the
// lookup contract needs: legacy prefixes, an optional REX
// prefix, the opcode map (accounting for a 0x0F escape byte),
// the opcode byte, and, if one more byte remains, a ModR/M
// byte. It is a minimal stand-in for a real decoder, which is
// outside this package's scope, and it does not attempt to
// size immediates: a freshly decoded Instruction always reports
// ImmediateSizeInBytes as however many trailing bytes remain
// after the opcode (and ModR/M, if decoded). That is only
// correct for forms with a ModR/M byte and no SIB or
// displacement, or with neither ModR/M nor an immediate: for a
// form without ModR/M, the first immediate byte is taken as a
// ModR/M byte.
func decodePrefix(raw []byte) *nasmx86.Instruction {
	inst := &nasmx86.Instruction{DefaultAddressSize: 32, EffectiveAddressSize: 32}

	i := 0
	for i < len(raw) {
		p := nasmx86.Prefix(raw[i])
		switch p {
		case nasmx86.PrefixLock, nasmx86.PrefixRepeatNot, nasmx86.PrefixRepeat,
			nasmx86.PrefixCS, nasmx86.PrefixSS, nasmx86.PrefixDS, nasmx86.PrefixES,
			nasmx86.PrefixFS, nasmx86.PrefixGS, nasmx86.PrefixOperandSize, nasmx86.PrefixAddressSize:
			inst.LegacyPrefixes = append(inst.LegacyPrefixes, p)
			if p == nasmx86.PrefixAddressSize {
				inst.EffectiveAddressSize = 16
			}
			i++
			continue
		}

		break
	}

	if i < len(raw) && raw[i]&0xf0 == 0x40 {
		inst.Xex = nasmx86.Xex{Type: nasmx86.XexRex, OperandSize64: raw[i]&0x08 != 0, BaseRegExtension: raw[i]&0x01 != 0}
		i++
	}

	if i < len(raw) && raw[i] == 0x0f {
		inst.OpcodeMap = nasmx86.MapEscape0F
		i++

		if i < len(raw) && (raw[i] == 0x38 || raw[i] == 0x3a) {
			if raw[i] == 0x38 {
				inst.OpcodeMap = nasmx86.MapEscape0F38
			} else {
				inst.OpcodeMap = nasmx86.MapEscape0F3A
			}
			i++
		}
	}

	if i < len(raw) {
		inst.MainByte = raw[i]
		i++
	}

	if i < len(raw) {
		inst.ModRM = nasmx86.NewModRM(raw[i])
		i++
	}

	inst.ImmediateSizeInBytes = len(raw) - i
	return inst
}

func lookupMain(ctx context.Context, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	dbPath := fs.String("db", "insns.dat", "Path to the insns.dat database file.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one hex byte string argument")
	}

	raw, err := hex.DecodeString(strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		return fmt.Errorf("decoding hex bytes: %w", err)
	}

	db, _, err := loadDatabaseFile(*dbPath)
	if err != nil {
		return err
	}

	inst := decodePrefix(raw)

	entry, hasModRM, immSize, err := db.Lookup(ctx, inst)
	if err != nil {
		return err
	}

	if entry == nil {
		fmt.Fprintln(w, "no match")
		return nil
	}

	fmt.Fprintf(w, "%s\thas_modrm=%t\timmediate_size=%d\n", entry.Mnemonic, hasModRM, immSize)
	return nil
}

func parseMain(ctx context.Context, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	dbPath := fs.String("db", "insns.dat", "Path to the insns.dat database file.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, lineErrorCount, err := loadDatabaseFile(*dbPath)
	if err != nil {
		return err
	}

	var pseudo, assembleOnly int
	for _, e := range db.Entries {
		if e.IsPseudo {
			pseudo++
		}

		if e.IsAssembleOnly {
			assembleOnly++
		}
	}

	fmt.Fprintf(w, "entries=%d\tpseudo=%d\tassemble_only=%d\tline_errors=%d\n", len(db.Entries), pseudo, assembleOnly, lineErrorCount)
	return nil
}

func dumpMain(ctx context.Context, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dbPath := fs.String("db", "insns.dat", "Path to the insns.dat database file.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one mnemonic argument")
	}

	db, _, err := loadDatabaseFile(*dbPath)
	if err != nil {
		return err
	}

	mnemonic := strings.ToUpper(fs.Arg(0))
	for _, e := range db.ByMnemonic[mnemonic] {
		nasmx86.DumpEntry(w, e)
	}

	return nil
}
