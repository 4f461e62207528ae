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

import "strings"

// deriveResourceLocks picks out the inlined subroutines that are RTIC
// Mutex::lock specialisations and renames each to the resource type it
// guards, e.g. "<impl rtic_core::Mutex for shared::Counter>::lock"
// becomes "shared::Counter".
func deriveResourceLocks(subroutines []Subroutine) []Subroutine {
	var out []Subroutine
	for _, s := range subroutines {
		resource, ok := resourceNameFromLockSymbol(s.Name)
		if !ok {
			continue
		}
		out = append(out, Subroutine{Name: resource, Ranges: s.Ranges})
	}
	return out
}

// resourceNameFromLockSymbol extracts R from a demangled symbol of
// the shape "<impl rtic_core::Mutex for R>::lock".
func resourceNameFromLockSymbol(name string) (string, bool) {
	const prefix = "impl rtic_core::Mutex for "
	idx := strings.Index(name, prefix)
	if idx < 0 {
		return "", false
	}
	rest := name[idx+len(prefix):]
	end := strings.Index(rest, ">::lock")
	if end < 0 {
		return "", false
	}
	resource := strings.TrimSpace(rest[:end])
	if resource == "" {
		return "", false
	}
	return resource, true
}

// deriveHardwareAccessors picks out the inlined subroutines that read a
// memory-mapped peripheral register through a vcell wrapper: symbols
// containing "vcell" and either "get" or "as_ptr".
func deriveHardwareAccessors(subroutines []Subroutine) []Subroutine {
	var out []Subroutine
	for _, s := range subroutines {
		if !strings.Contains(s.Name, "vcell") {
			continue
		}
		if !strings.Contains(s.Name, "get") && !strings.Contains(s.Name, "as_ptr") {
			continue
		}
		out = append(out, s)
	}
	return out
}
