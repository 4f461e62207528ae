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

package schedule

import "github.com/markhakansson/rauk/trace"

// SelectWCETTraces picks, for each declared task, the longest-duration
// trace among candidates whose root name matches that task, and
// returns the tasks with Trace populated. Tasks with no matching trace
// are dropped.
func SelectWCETTraces(declared []Task, candidates []trace.Trace) []Task {
	out := make([]Task, 0, len(declared))
	for _, t := range declared {
		if longest, ok := longestMatching(t.Name, candidates); ok {
			t.Trace = longest
			out = append(out, t)
		}
	}
	return out
}

func longestMatching(name string, candidates []trace.Trace) (*trace.Trace, bool) {
	var best *trace.Trace
	for i := range candidates {
		c := candidates[i]
		if c.Name != name {
			continue
		}
		if best == nil || c.Duration() > best.Duration() {
			cc := c
			best = &cc
		}
	}
	return best, best != nil
}

// DeriveTaskResources walks every task's WCET trace and records, at
// any depth, every inner node's name as a resource that task locks.
func DeriveTaskResources(tasks []Task) TaskResources {
	tr := make(TaskResources)
	for _, t := range tasks {
		if t.Trace == nil {
			continue
		}
		for _, inner := range t.Trace.Inner {
			collectResources(t.Name, inner, tr)
		}
	}
	return tr
}

func collectResources(taskName string, node trace.Trace, tr TaskResources) {
	set, ok := tr[taskName]
	if !ok {
		set = make(map[string]bool)
		tr[taskName] = set
	}
	set[node.Name] = true
	for _, inner := range node.Inner {
		collectResources(taskName, inner, tr)
	}
}

// DerivePriorities assigns each task its declared priority, then
// raises every resource it locks to the SRP ceiling: the maximum
// priority among all tasks that lock it.
func DerivePriorities(tasks []Task, tr TaskResources) Priorities {
	p := make(Priorities)
	for _, t := range tasks {
		p[t.Name] = t.Priority
		for resource := range tr[t.Name] {
			if cur, ok := p[resource]; !ok || t.Priority > cur {
				p[resource] = t.Priority
			}
		}
	}
	return p
}
