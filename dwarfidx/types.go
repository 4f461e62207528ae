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

// Package dwarfidx builds queryable views over the DWARF debugging
// information of a replay ELF binary: the RAM addresses of symbolic
// input variables, the subprograms making up RTIC tasks, and the
// inlined subroutines representing resource locks and hardware-register
// accessors.
package dwarfidx

// ObjectLocation is the resolved RAM address of a DW_TAG_variable.
type ObjectLocation struct {
	Name    string
	Address uint64
}

// Subprogram is an out-of-line function: a name, its demangled linkage
// name, and its half-open PC range [Low, High).
type Subprogram struct {
	Name        string
	LinkageName string
	Low         uint64
	High        uint64
}

// InRange reports whether addr falls within the subprogram's PC range.
func (s Subprogram) InRange(addr uint64) bool {
	return addr >= s.Low && addr < s.High
}

func (s Subprogram) extent() uint64 {
	return s.High - s.Low
}

// PCRange is a single contiguous range of program-counter addresses.
type PCRange struct {
	Low  uint64
	High uint64
}

func (r PCRange) contains(addr uint64) bool {
	return addr >= r.Low && addr < r.High
}

func (r PCRange) extent() uint64 {
	return r.High - r.Low
}

// containedIn reports whether r lies fully within [low, high].
func (r PCRange) containedIn(low, high uint64) bool {
	return r.Low >= low && r.High <= high
}

// Subroutine is an inlined subroutine: a name and one or more
// (possibly discontiguous) PC ranges, one per inlined instance the
// compiler emitted.
type Subroutine struct {
	Name   string
	Ranges []PCRange
}

// InRange reports whether addr falls within any of the subroutine's
// ranges.
func (s Subroutine) InRange(addr uint64) bool {
	for _, r := range s.Ranges {
		if r.contains(addr) {
			return true
		}
	}
	return false
}

// shortestRangeContaining returns the extent of the smallest range of s
// that contains addr, and whether any range did.
func (s Subroutine) shortestRangeContaining(addr uint64) (uint64, bool) {
	best := uint64(0)
	found := false
	for _, r := range s.Ranges {
		if !r.contains(addr) {
			continue
		}
		if !found || r.extent() < best {
			best = r.extent()
			found = true
		}
	}
	return best, found
}
