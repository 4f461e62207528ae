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

package trace

import "github.com/markhakansson/rauk/internal/failure"

// frame is a scope that has been opened by an Entry marker but not yet
// closed by its matching Exit.
type frame struct {
	entry EntryVariant
	name  string
	kind  Kind
	start uint32
	inner []Trace
}

// Build folds a linear sequence of Entry/Exit samples into a forest of
// Trace nodes. It keeps an explicit stack of open frames rather than
// recursing one call per nesting level, which is the iterative
// alternative described alongside the recursive-descent formulation:
// the two are behaviourally identical, and the explicit stack form
// avoids call-depth concerns for deeply nested critical sections.
//
// Build rejects samples whose Marker is neither an Entry nor an Exit
// (auxiliary markers must already have been consumed upstream) and
// rejects empty input, mismatched entry/exit pairs, and entries left
// open at the end of the sequence.
func Build(samples []Sample) ([]Trace, error) {
	if len(samples) == 0 {
		return nil, failure.Errorf(failure.EmptyInput, "trace: empty sample list")
	}

	var stack []frame
	var forest []Trace

	appendChild := func(t Trace) {
		if len(stack) == 0 {
			forest = append(forest, t)
			return
		}
		top := &stack[len(stack)-1]
		top.inner = append(top.inner, t)
	}

	for _, s := range samples {
		switch s.Marker.Category {
		case CategoryEntry:
			stack = append(stack, frame{
				entry: s.Marker.Entry,
				name:  s.Name,
				kind:  KindOf(s.Marker.Entry),
				start: s.CycleCount,
			})
		case CategoryExit:
			if len(stack) == 0 {
				return nil, failure.Errorf(failure.ScopeMismatch,
					"trace: exit marker %v with no open scope", s.Marker.Exit)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !top.entry.ScopeMatches(s.Marker.Exit) {
				return nil, failure.Errorf(failure.ScopeMismatch,
					"trace: entry/exit codes do not sum to 255 (entry=%d exit=%d)",
					top.entry, s.Marker.Exit)
			}

			completed := Trace{
				Name:  top.name,
				Ttype: top.kind,
				Start: top.start,
				Inner: top.inner,
				End:   s.CycleCount,
			}
			appendChild(completed)
		default:
			return nil, failure.Errorf(failure.UnsupportedMarkerInAnalysis,
				"trace: unsupported marker %v reached the trace builder", s.Marker.Other)
		}
	}

	if len(stack) != 0 {
		return nil, failure.Errorf(failure.ScopeMismatch,
			"trace: %d scope(s) never closed", len(stack))
	}

	return forest, nil
}
