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

package schedule_test

import (
	"testing"

	"github.com/markhakansson/rauk/schedule"
	"github.com/markhakansson/rauk/trace"
)

func traceOf(name string, start, end uint32, inner ...trace.Trace) trace.Trace {
	return trace.Trace{Name: name, Start: start, End: end, Inner: inner}
}

// TestPreemptionFixedPoint exercises the SRP preemption recurrence
// with two independent, unblocked tasks converging after one
// preemption round.
func TestPreemptionFixedPoint(t *testing.T) {
	hiTrace := traceOf("hi", 0, 5)
	loTrace := traceOf("lo", 0, 20)

	hi := schedule.Task{Name: "hi", Priority: 3, Deadline: 50, InterArrival: 100, Trace: &hiTrace}
	lo := schedule.Task{Name: "lo", Priority: 1, Deadline: 900, InterArrival: 1000, Trace: &loTrace}

	tasks := []schedule.Task{hi, lo}
	tr := schedule.DeriveTaskResources(tasks)
	p := schedule.DerivePriorities(tasks, tr)

	results, err := schedule.Analyze(tasks, p, tr)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	byName := map[string]schedule.AnalysisResult{}
	for _, r := range results {
		byName[r.Name] = r
	}

	if got := byName["hi"]; got.BlockingTime != 0 || got.PreemptionTime != 0 || got.ResponseTime != 5 {
		t.Fatalf("hi: got %+v, want B=0 I=0 R=5", got)
	}
	if got := byName["lo"]; got.BlockingTime != 0 || got.PreemptionTime != 5 || got.ResponseTime != 25 {
		t.Fatalf("lo: got %+v, want B=0 I=5 R=25", got)
	}
}

// TestBlockingTimeFromLowerPriorityHolder exercises a task blocked by
// a lower-priority task holding a ceiling-raised resource.
func TestBlockingTimeFromLowerPriorityHolder(t *testing.T) {
	hiTrace := traceOf("hi", 0, 10, traceOf("r", 2, 4))
	loTrace := traceOf("lo", 0, 100, traceOf("r", 10, 60))

	hi := schedule.Task{Name: "hi", Priority: 3, Deadline: 1000, InterArrival: 500}
	lo := schedule.Task{Name: "lo", Priority: 1, Deadline: 1000, InterArrival: 500}
	hi.Trace = &hiTrace
	lo.Trace = &loTrace

	tasks := []schedule.Task{hi, lo}
	tr := schedule.DeriveTaskResources(tasks)
	p := schedule.DerivePriorities(tasks, tr)

	if p["r"] != 3 {
		t.Fatalf("ceiling of r = %d, want 3", p["r"])
	}

	b := schedule.BlockingTime(hi, tasks, p, tr)
	if b != 50 {
		t.Fatalf("BlockingTime(hi) = %d, want 50", b)
	}
}

func TestDeadlineExceededFails(t *testing.T) {
	hiTrace := traceOf("hi", 0, 900)
	hi := schedule.Task{Name: "hi", Priority: 3, Deadline: 10, InterArrival: 100, Trace: &hiTrace}

	tasks := []schedule.Task{hi}
	tr := schedule.DeriveTaskResources(tasks)
	p := schedule.DerivePriorities(tasks, tr)

	if _, err := schedule.ResponseTime(hi, tasks, p, tr); err == nil {
		t.Fatalf("expected deadline-exceeded error")
	}
}

func TestSelectWCETTracesPicksLongest(t *testing.T) {
	declared := []schedule.Task{{Name: "hi", Priority: 1, Deadline: 100, InterArrival: 100}}
	candidates := []trace.Trace{
		traceOf("hi", 0, 5),
		traceOf("hi", 0, 9),
		traceOf("lo", 0, 100),
	}

	selected := schedule.SelectWCETTraces(declared, candidates)
	if len(selected) != 1 || selected[0].Trace.Duration() != 9 {
		t.Fatalf("got %+v, want single task with duration 9", selected)
	}
}

func TestLoadFactor(t *testing.T) {
	tr := traceOf("t", 0, 25)
	task := schedule.Task{Name: "t", InterArrival: 100, Trace: &tr}
	if lf := schedule.LoadFactor(task); lf != 0.25 {
		t.Fatalf("LoadFactor = %v, want 0.25", lf)
	}
}
