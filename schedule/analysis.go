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

import (
	"math"

	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/trace"
)

// WCET returns a task's measured worst-case execution time: the
// duration of its selected trace.
func WCET(t Task) uint32 {
	if t.Trace == nil {
		return 0
	}
	return t.Trace.Duration()
}

// LoadFactor returns C(tau) / T(tau) as a real number.
func LoadFactor(t Task) float64 {
	if t.InterArrival == 0 {
		return 0
	}
	return float64(WCET(t)) / float64(t.InterArrival)
}

// BlockingTime returns the maximum time t may be blocked by any
// lower-priority task holding a resource whose SRP ceiling is at least
// t's priority.
func BlockingTime(t Task, tasks []Task, p Priorities, tr TaskResources) uint32 {
	taskPrio := p[t.Name]

	var maxBlock uint32
	for _, other := range tasks {
		otherPrio, ok := p[other.Name]
		if !ok || otherPrio >= taskPrio {
			continue
		}
		if other.Trace == nil {
			continue
		}
		for resource := range tr[other.Name] {
			ceiling, hasCeiling := p[resource]
			if !hasCeiling || ceiling < taskPrio {
				continue
			}
			if !holdsResource(other, resource, tr) {
				continue
			}
			if hold := maxTimeHoldingResource(*other.Trace, resource); hold > maxBlock {
				maxBlock = hold
			}
		}
	}
	return maxBlock
}

func holdsResource(t Task, resource string, tr TaskResources) bool {
	return tr[t.Name][resource]
}

// maxTimeHoldingResource returns the longest duration of any node
// named resourceName anywhere in the trace tree, at any depth.
func maxTimeHoldingResource(t trace.Trace, resourceName string) uint32 {
	var max uint32
	if t.Name == resourceName {
		max = t.Duration()
	}
	for _, inner := range t.Inner {
		if d := maxTimeHoldingResource(inner, resourceName); d > max {
			max = d
		}
	}
	return max
}

// maxFixedPointIterations bounds the preemption recurrence so a
// malformed priority assignment cannot iterate indefinitely.
const maxFixedPointIterations = 10_000

// Preemption computes I(tau) via fixed-point iteration of the response
// time recurrence, returning DeadlineExceeded if the recurrence
// overshoots the task's deadline before converging.
func Preemption(t Task, tasks []Task, p Priorities, tr TaskResources) (uint32, error) {
	base := WCET(t) + BlockingTime(t, tasks, p, tr)
	converged, err := preemptionRec(t, tasks, p, tr, base)
	if err != nil {
		return 0, err
	}
	return converged - base, nil
}

func preemptionRec(t Task, tasks []Task, p Priorities, tr TaskResources, prevRT uint32) (uint32, error) {
	taskPrio := p[t.Name]

	currentRT, err := stepPreemption(t, tasks, p, tr, prevRT, taskPrio)
	if err != nil {
		return 0, err
	}
	if currentRT == prevRT {
		return currentRT, nil
	}

	for iterations := 1; iterations < maxFixedPointIterations; iterations++ {
		next, err := stepPreemption(t, tasks, p, tr, currentRT, taskPrio)
		if err != nil {
			return 0, err
		}
		if next == currentRT {
			return next, nil
		}
		currentRT = next
	}
	return 0, failure.Errorf(failure.DeadlineExceeded, "schedule: response time recurrence for %q did not converge", t.Name)
}

func stepPreemption(t Task, tasks []Task, p Priorities, tr TaskResources, prevRT uint32, taskPrio uint8) (uint32, error) {
	currentRT := WCET(t) + BlockingTime(t, tasks, p, tr)
	for _, other := range tasks {
		otherPrio, ok := p[other.Name]
		if !ok || otherPrio <= taskPrio {
			continue
		}
		if other.InterArrival == 0 {
			continue
		}
		ceil := math.Ceil(float64(prevRT) / float64(other.InterArrival))
		currentRT += WCET(other) * uint32(ceil)
	}
	if currentRT > t.Deadline {
		return 0, failure.Errorf(failure.DeadlineExceeded, "schedule: response time %d exceeds deadline %d for %q", currentRT, t.Deadline, t.Name)
	}
	return currentRT, nil
}

// ResponseTime returns R(tau) = C(tau) + B(tau) + I(tau).
func ResponseTime(t Task, tasks []Task, p Priorities, tr TaskResources) (uint32, error) {
	c := WCET(t)
	b := BlockingTime(t, tasks, p, tr)
	i, err := Preemption(t, tasks, p, tr)
	if err != nil {
		return 0, err
	}
	return c + b + i, nil
}

// Analyze computes the full AnalysisResult for every task.
func Analyze(tasks []Task, p Priorities, tr TaskResources) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(tasks))
	for _, t := range tasks {
		c := WCET(t)
		b := BlockingTime(t, tasks, p, tr)
		i, err := Preemption(t, tasks, p, tr)
		if err != nil {
			return results, err
		}
		results = append(results, AnalysisResult{
			Name:           t.Name,
			ResponseTime:   c + b + i,
			WCET:           c,
			BlockingTime:   b,
			PreemptionTime: i,
			LoadFactor:     LoadFactor(t),
		})
	}
	return results, nil
}
