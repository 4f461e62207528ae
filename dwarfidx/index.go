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

// Index is the immutable, queryable view over a replay ELF's DWARF
// data. Construct with Build; once built it is never mutated, so it is
// safe to share across the goroutine-free, single-threaded replay loop
// without further synchronisation.
type Index struct {
	variables   map[string]uint64
	subprograms []Subprogram
	subroutines []Subroutine

	resourceLocks []Subroutine
	hwAccessors   []Subroutine
}

// New assembles an Index from its already-parsed parts, deriving the
// resource-lock and hardware-accessor views the same way Build does.
// Exported for tests that need a populated Index without a real ELF.
func New(variables map[string]uint64, subprograms []Subprogram, subroutines []Subroutine) *Index {
	return &Index{
		variables:     variables,
		subprograms:   subprograms,
		subroutines:   subroutines,
		resourceLocks: deriveResourceLocks(subroutines),
		hwAccessors:   deriveHardwareAccessors(subroutines),
	}
}

// VariableAddress returns the RAM address pinned for the named symbolic
// object, if the DWARF carried a concrete location for it.
func (idx *Index) VariableAddress(name string) (uint64, bool) {
	addr, ok := idx.variables[name]
	return addr, ok
}

// Subprograms returns every indexed subprogram.
func (idx *Index) Subprograms() []Subprogram {
	return idx.subprograms
}

// Subroutines returns every indexed inlined subroutine.
func (idx *Index) Subroutines() []Subroutine {
	return idx.subroutines
}

// ResourceLocks returns the subset of subroutines recognised as RTIC
// resource-lock specialisations, named after the resource they guard.
func (idx *Index) ResourceLocks() []Subroutine {
	return idx.resourceLocks
}

// HardwareAccessors returns the subset of subroutines recognised as
// hardware-register accessors (vcell get/as_ptr).
func (idx *Index) HardwareAccessors() []Subroutine {
	return idx.hwAccessors
}

// SubprogramsInRange returns every subprogram whose range brackets addr.
func (idx *Index) SubprogramsInRange(addr uint64) []Subprogram {
	var out []Subprogram
	for _, s := range idx.subprograms {
		if s.InRange(addr) {
			out = append(out, s)
		}
	}
	return out
}

// ShortestSubprogram returns the entry in candidates with the smallest
// PC extent, used to disambiguate subprograms that happen to nest at
// the same address. Ties go to the first entry, matching DWARF
// traversal order.
func ShortestSubprogram(candidates []Subprogram) (Subprogram, bool) {
	if len(candidates) == 0 {
		return Subprogram{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.extent() < best.extent() {
			best = c
		}
	}
	return best, true
}

// SubroutinesInRange returns, for each subroutine with a range
// containing addr, a copy of that subroutine restricted to the
// single matching range.
func (idx *Index) SubroutinesInRange(addr uint64) []Subroutine {
	var out []Subroutine
	for _, s := range idx.subroutines {
		out = append(out, restrictToRangesContaining(s, addr)...)
	}
	return out
}

func restrictToRangesContaining(s Subroutine, addr uint64) []Subroutine {
	var out []Subroutine
	for _, r := range s.Ranges {
		if r.contains(addr) {
			out = append(out, Subroutine{Name: s.Name, Ranges: []PCRange{r}})
		}
	}
	return out
}

// ShortestSubroutine returns the entry in candidates with the smallest
// matching-range extent. Ties go to the first entry.
func ShortestSubroutine(candidates []Subroutine) (Subroutine, bool) {
	if len(candidates) == 0 {
		return Subroutine{}, false
	}
	var best Subroutine
	bestExtent := uint64(0)
	found := false
	for _, c := range candidates {
		if len(c.Ranges) == 0 {
			continue
		}
		extent := c.Ranges[0].extent()
		if !found || extent < bestExtent {
			best = c
			bestExtent = extent
			found = true
		}
	}
	return best, found
}

// RangesContainedIn returns the subset of subroutines (specifically:
// resource-lock specialisations) every one of whose ranges lies fully
// inside [low, high).
func RangesContainedIn(candidates []Subroutine, low, high uint64) []Subroutine {
	var out []Subroutine
	for _, c := range candidates {
		allInside := len(c.Ranges) > 0
		for _, r := range c.Ranges {
			if !r.containedIn(low, high) {
				allInside = false
				break
			}
		}
		if allInside {
			out = append(out, c)
		}
	}
	return out
}
