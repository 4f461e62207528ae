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

// Package ktest parses KLEE's .ktest binary format: a sequence of
// named symbolic objects, each a plain byte blob, that KLEE wrote out
// after solving a path constraint. rauk does not produce this format,
// only consumes it to build vector.Vector values.
package ktest

import (
	"bytes"
	"encoding/binary"

	"github.com/markhakansson/rauk/internal/failure"
)

// Object is one symbolic object recorded in a .ktest file: a name
// (the KLEE symbol, e.g. a variable or "argv" alias) and its
// concretized bytes.
type Object struct {
	Name  string
	Bytes []byte
}

// File is a parsed .ktest file.
type File struct {
	Version    uint32
	Args       []string
	SymArgvs   uint32
	SymArgvLen uint32
	Objects    []Object
}

var magicKTest = []byte("KTEST")
var magicBout = []byte("BOUT\n")

// Parse parses a .ktest file's raw bytes.
func Parse(data []byte) (*File, error) {
	r := &cursor{buf: data}

	if !r.consumeMagic() {
		return nil, failure.Errorf(failure.DwarfParse, "ktest: invalid magic number")
	}

	version, ok := r.be32()
	if !ok {
		return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated file version")
	}

	args, ok := r.stringList()
	if !ok {
		return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated argument list")
	}

	var symArgvs, symArgvLen uint32
	if version > 2 {
		symArgvs, ok = r.be32()
		if !ok {
			return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated symbolic argv count")
		}
		symArgvLen, ok = r.be32()
		if !ok {
			return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated symbolic argv length")
		}
	}

	numObjects, ok := r.be32()
	if !ok {
		return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated object count")
	}

	objects := make([]Object, 0, numObjects)
	for i := uint32(0); i < numObjects; i++ {
		obj, ok := r.object()
		if !ok {
			return nil, failure.Errorf(failure.DwarfParse, "ktest: truncated object %d of %d", i, numObjects)
		}
		objects = append(objects, obj)
	}

	return &File{
		Version:    version,
		Args:       args,
		SymArgvs:   symArgvs,
		SymArgvLen: symArgvLen,
		Objects:    objects,
	}, nil
}

type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) consumeMagic() bool {
	if bytes.HasPrefix(c.buf[c.pos:], magicKTest) {
		c.pos += len(magicKTest)
		return true
	}
	if bytes.HasPrefix(c.buf[c.pos:], magicBout) {
		c.pos += len(magicBout)
		return true
	}
	return false
}

func (c *cursor) be32() (uint32, bool) {
	if c.pos+4 > len(c.buf) {
		return 0, false
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, true
}

func (c *cursor) take(n uint32) ([]byte, bool) {
	if c.pos+int(n) > len(c.buf) || n > uint32(len(c.buf)) {
		return nil, false
	}
	b := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, true
}

func (c *cursor) string() (string, bool) {
	size, ok := c.be32()
	if !ok {
		return "", false
	}
	b, ok := c.take(size)
	if !ok {
		return "", false
	}
	return string(b), true
}

func (c *cursor) stringList() ([]string, bool) {
	n, ok := c.be32()
	if !ok {
		return nil, false
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, ok := c.string()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func (c *cursor) object() (Object, bool) {
	name, ok := c.string()
	if !ok {
		return Object{}, false
	}
	size, ok := c.be32()
	if !ok {
		return Object{}, false
	}
	raw, ok := c.take(size)
	if !ok {
		return Object{}, false
	}
	// copy out of the shared buffer so the returned Object owns its bytes
	bs := make([]byte, len(raw))
	copy(bs, raw)
	return Object{Name: name, Bytes: bs}, true
}
