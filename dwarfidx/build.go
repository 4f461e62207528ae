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

import (
	"debug/dwarf"
	"debug/elf"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/markhakansson/rauk/internal/failure"
)

// ramThreshold is the lowest address considered to be RAM on the
// target MCU family; a Location::Value result below this is a register
// or computed scalar, not a pointer into RAM, and is discarded.
const ramThreshold = 0x2000_0000

// Build walks every compile unit of the replay ELF's DWARF data and
// returns the combined Index: variable locations, subprograms, inlined
// subroutines, and the resource-lock / hardware-accessor views derived
// from them.
func Build(ef *elf.File) (*Index, error) {
	d, err := ef.DWARF()
	if err != nil {
		return nil, failure.Errorf(failure.DwarfParse, "dwarfidx: no DWARF data: %w", err)
	}
	raw := loadRawSections(ef)

	idx := &Index{variables: make(map[string]uint64)}

	r := d.Reader()
	var currentUnitBase uint64
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, failure.Errorf(failure.DwarfParse, "dwarfidx: reading DIE: %w", err)
		}
		if entry == nil {
			break
		}

		switch entry.Tag {
		case dwarf.TagCompileUnit:
			if low, ok := addrField(entry, dwarf.AttrLowpc); ok {
				currentUnitBase = low
			}
		case dwarf.TagVariable:
			if name, addr, ok := parseVariable(entry, d, raw); ok {
				idx.variables[name] = addr
			}
		case dwarf.TagSubprogram:
			if sp, ok := parseSubprogram(entry); ok {
				idx.subprograms = append(idx.subprograms, sp)
			}
		case dwarf.TagInlinedSubroutine:
			if sub, ok := parseInlinedSubroutine(d, entry, currentUnitBase, raw); ok {
				idx.subroutines = append(idx.subroutines, sub)
			}
		}
	}

	return New(idx.variables, idx.subprograms, idx.subroutines), nil
}

func addrField(entry *dwarf.Entry, attr dwarf.Attr) (uint64, bool) {
	v := entry.Val(attr)
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	default:
		return 0, false
	}
}

// parseVariable resolves a DW_TAG_variable's name and RAM address.
// Variables carrying DW_AT_external are skipped, matching the design's
// "internal, concretely-located globals only" rule.
func parseVariable(entry *dwarf.Entry, d *dwarf.Data, raw rawSections) (string, uint64, bool) {
	if entry.Val(dwarf.AttrExternal) != nil {
		return "", 0, false
	}

	name, _ := entry.Val(dwarf.AttrName).(string)
	if name == "" {
		return "", 0, false
	}

	loc, ok := resolveLocation(entry, d, raw)
	if !ok {
		return "", 0, false
	}

	switch loc.kind {
	case locAddress:
		return name, loc.value, true
	case locValue:
		if loc.value >= ramThreshold {
			return name, loc.value, true
		}
	}
	return "", 0, false
}

func resolveLocation(entry *dwarf.Entry, d *dwarf.Data, raw rawSections) (location, bool) {
	v := entry.Val(dwarf.AttrLocation)
	if v == nil {
		return location{}, false
	}

	switch val := v.(type) {
	case []byte:
		return evalLocationExpr(val)
	case int64:
		return firstResolvableLocation(raw.locationListExprs(uint64(val)))
	case uint64:
		return firstResolvableLocation(raw.locationListExprs(val))
	default:
		return location{}, false
	}
}

func firstResolvableLocation(exprs [][]byte) (location, bool) {
	for _, e := range exprs {
		if loc, ok := evalLocationExpr(e); ok {
			return loc, true
		}
	}
	return location{}, false
}

// parseSubprogram parses a DW_TAG_subprogram entry. Subprograms whose
// source name starts with "__" are reserved/compiler-generated and are
// excluded from the index.
func parseSubprogram(entry *dwarf.Entry) (Subprogram, bool) {
	name, _ := entry.Val(dwarf.AttrName).(string)
	if name == "" || strings.HasPrefix(name, "__") {
		return Subprogram{}, false
	}

	low, lowOK := addrField(entry, dwarf.AttrLowpc)
	high, highOK := highPC(entry, low)
	if !lowOK || !highOK {
		return Subprogram{}, false
	}

	linkage, _ := entry.Val(dwarf.AttrLinkageName).(string)

	return Subprogram{
		Name:        name,
		LinkageName: demangleName(linkage),
		Low:         low,
		High:        high,
	}, true
}

// highPC resolves DW_AT_high_pc, which DWARF4+ encodes either as an
// absolute address or as an offset from low_pc.
func highPC(entry *dwarf.Entry, low uint64) (uint64, bool) {
	v := entry.Val(dwarf.AttrHighpc)
	if v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		if n > low {
			return n, true
		}
		return low + n, true
	case int64:
		return low + uint64(n), true
	default:
		return 0, false
	}
}

// parseInlinedSubroutine parses a DW_TAG_inlined_subroutine entry,
// taking its name from the abstract origin's linkage name and
// collecting the union of any DW_AT_ranges list with a direct
// low_pc/high_pc pair.
func parseInlinedSubroutine(d *dwarf.Data, entry *dwarf.Entry, unitBase uint64, raw rawSections) (Subroutine, bool) {
	name := abstractOriginName(d, entry)
	if name == "" {
		return Subroutine{}, false
	}

	var ranges []PCRange

	if off, ok := entry.Val(dwarf.AttrRanges).(int64); ok {
		ranges = append(ranges, raw.rangeList(uint64(off), unitBase)...)
	} else if off, ok := entry.Val(dwarf.AttrRanges).(uint64); ok {
		ranges = append(ranges, raw.rangeList(off, unitBase)...)
	}

	if low, ok := addrField(entry, dwarf.AttrLowpc); ok {
		if high, ok := highPC(entry, low); ok {
			ranges = append(ranges, PCRange{Low: low, High: high})
		}
	}

	if len(ranges) == 0 {
		return Subroutine{}, false
	}

	return Subroutine{Name: name, Ranges: ranges}, true
}

func abstractOriginName(d *dwarf.Data, entry *dwarf.Entry) string {
	offset, ok := entry.Val(dwarf.AttrAbstractOrigin).(dwarf.Offset)
	if !ok {
		return ""
	}

	r := d.Reader()
	r.Seek(offset)
	origin, err := r.Next()
	if err != nil || origin == nil {
		return ""
	}

	linkage, _ := origin.Val(dwarf.AttrLinkageName).(string)
	return demangleName(linkage)
}

// demangleName demangles a Rust (or Itanium C++) mangled linkage name.
// Names that are not mangled, or that demangle fails to parse, are
// returned unchanged.
func demangleName(name string) string {
	if name == "" {
		return name
	}
	if out, err := demangle.ToString(name, demangle.NoParams); err == nil {
		return out
	}
	return name
}
