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

// Package schedule derives Stack Resource Policy ceilings and
// computes response-time bounds from measured WCET traces. It is a
// pure function of its inputs: task declarations and the trace
// forests gathered for them, nothing here touches the target.
package schedule

import "github.com/markhakansson/rauk/trace"

// Task is one RTIC task declaration together with the trace chosen to
// represent its measured worst case.
type Task struct {
	Name         string
	Priority     uint8
	Deadline     uint32
	InterArrival uint32
	Trace        *trace.Trace
}

// Priorities maps a task or resource name to its priority, resources
// carrying their SRP ceiling rather than a task priority.
type Priorities map[string]uint8

// TaskResources maps a task name to the set of resource names it
// locks, directly or transitively, anywhere in its trace tree.
type TaskResources map[string]map[string]bool

// AnalysisResult is the response-time bound computed for one task.
type AnalysisResult struct {
	Name           string
	ResponseTime   uint32
	WCET           uint32
	BlockingTime   uint32
	PreemptionTime uint32
	LoadFactor     float64
}
