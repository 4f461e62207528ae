// This file is part of rauk.
//
// rauk is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rauk is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with rauk.  If not, see <https://www.gnu.org/licenses/>.

// Package disasm runs the platform object-code disassembler over a
// replay ELF and indexes its output by instruction address, so the
// replay engine can recover a hardware accessor's destination register
// without re-disassembling on every hit.
package disasm

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/markhakansson/rauk/internal/failure"
)

// Index maps instruction address to a normalized "mnemonic operands"
// string, built once per replay ELF and never mutated afterwards.
type Index struct {
	instructions map[uint32]string
}

// Disassembler runs an external disassembler and returns its raw
// stdout. The default, Objdump, shells out to llvm-objdump; tests
// substitute a fake to avoid depending on a toolchain being installed.
type Disassembler interface {
	Disassemble(elfPath string) ([]byte, error)
}

// Objdump invokes llvm-objdump the way the replay engine needs it:
// hex immediates, no raw instruction bytes alongside the mnemonic.
type Objdump struct {
	// Path overrides the executable name, defaulting to
	// "llvm-objdump" when empty.
	Path string
}

func (o Objdump) Disassemble(elfPath string) ([]byte, error) {
	path := o.Path
	if path == "" {
		path = "llvm-objdump"
	}
	cmd := exec.Command(path, "--disassemble", "--print-imm-hex", "--no-show-raw-insn", elfPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, failure.Errorf(failure.DisassemblyParse, "disasm: %s: %w", path, err)
	}
	return out.Bytes(), nil
}

// Build runs d against elfPath and indexes every disassembled
// instruction line by address.
func Build(d Disassembler, elfPath string) (*Index, error) {
	raw, err := d.Disassemble(elfPath)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse indexes raw disassembler stdout. Exported separately from
// Build so tests can feed canned disassembler output directly.
func Parse(raw []byte) (*Index, error) {
	idx := &Index{instructions: make(map[uint32]string)}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\t", " "))
		if line == "" || !strings.HasPrefix(line, "8") {
			continue
		}
		addr, rest, ok := splitAddress(line)
		if !ok {
			continue
		}
		idx.instructions[addr] = rest
	}
	if err := scanner.Err(); err != nil {
		return nil, failure.Errorf(failure.DisassemblyParse, "disasm: reading disassembler output: %w", err)
	}

	return idx, nil
}

// splitAddress splits a line of the form "8000a1c0: ldr r1, [r0]" into
// its address and mnemonic/operand text.
func splitAddress(line string) (uint32, string, bool) {
	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return 0, "", false
	}
	addr, err := strconv.ParseUint(line[:colon], 16, 32)
	if err != nil {
		return 0, "", false
	}
	return uint32(addr), strings.TrimSpace(line[colon+1:]), true
}

// InstructionAt returns the mnemonic/operand text at address, if any
// instruction was indexed there.
func (idx *Index) InstructionAt(address uint32) (string, bool) {
	s, ok := idx.instructions[address]
	return s, ok
}

// DestinationRegister parses the "rN" (N in 0..=7) destination
// register out of a load instruction's operand text, e.g. "ldr r3,
// [r2]" yields 3. Returns false if no low register operand is found.
func DestinationRegister(instruction string) (uint8, bool) {
	fields := strings.FieldsFunc(instruction, func(r rune) bool {
		return r == ' ' || r == ','
	})
	for _, f := range fields {
		if len(f) == 2 && (f[0] == 'r' || f[0] == 'R') && f[1] >= '0' && f[1] <= '7' {
			return f[1] - '0', true
		}
	}
	return 0, false
}

func (idx *Index) String() string {
	return fmt.Sprintf("disasm.Index{%d instructions}", len(idx.instructions))
}
