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

package dwarfidx

import "debug/elf"

// rawSections carries the handful of raw DWARF sections that
// debug/dwarf does not expose structured accessors for: classic-format
// (DWARF <=4) location lists and range lists, consulted only when an
// entry's DW_AT_location/DW_AT_ranges is a section offset rather than
// an inline expression.
type rawSections struct {
	debugLoc    []byte
	debugRanges []byte
}

func loadRawSections(ef *elf.File) rawSections {
	read := func(name string) []byte {
		sec := ef.Section(name)
		if sec == nil {
			return nil
		}
		data, err := sec.Data()
		if err != nil {
			return nil
		}
		return data
	}
	return rawSections{
		debugLoc:    read(".debug_loc"),
		debugRanges: read(".debug_ranges"),
	}
}

// locationListExprs returns, in order, the location expressions of
// every entry in the classic-format .debug_loc list starting at
// offset.
func (s rawSections) locationListExprs(offset uint64) [][]byte {
	return classicListEntries(s.debugLoc, offset, true)
}

// rangeList returns the (begin, end) pairs of the classic-format
// .debug_ranges list starting at offset, relocated against base (the
// owning compile unit's low_pc).
func (s rawSections) rangeList(offset, base uint64) []PCRange {
	var out []PCRange
	for _, raw := range classicListEntries(s.debugRanges, offset, false) {
		if len(raw) != 16 {
			continue
		}
		begin := le64(raw[0:8])
		end := le64(raw[8:16])
		out = append(out, PCRange{Low: base + begin, High: base + end})
	}
	return out
}

// classicListEntries walks a classic-format (begin, end, [len, data])
// list: 8-byte begin/end address pairs, terminated by a (0, 0) pair.
// When withData is true each entry additionally carries a 2-byte
// little-endian length followed by that many bytes of expression data,
// which is what's returned; when false the raw 16-byte address pair is
// returned instead.
func classicListEntries(section []byte, offset uint64, withData bool) [][]byte {
	if section == nil || offset >= uint64(len(section)) {
		return nil
	}

	var entries [][]byte
	pos := offset
	for pos+16 <= uint64(len(section)) {
		begin := le64(section[pos : pos+8])
		end := le64(section[pos+8 : pos+16])
		pos += 16
		if begin == 0 && end == 0 {
			break
		}
		if !withData {
			entries = append(entries, section[pos-16:pos])
			continue
		}
		if pos+2 > uint64(len(section)) {
			break
		}
		length := uint64(section[pos]) | uint64(section[pos+1])<<8
		pos += 2
		if pos+length > uint64(len(section)) {
			break
		}
		entries = append(entries, section[pos:pos+length])
		pos += length
	}
	return entries
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
