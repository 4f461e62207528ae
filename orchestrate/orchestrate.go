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

// Package orchestrate drives one full analysis run: replay every vector
// in the store, reconstruct its trace, then feed the surviving traces
// into the schedulability analyzer. It is the only package that knows
// about the per-vector-recoverable vs. run-fatal distinction in the
// error taxonomy; every other package just returns a curated error and
// lets its caller decide.
package orchestrate

import (
	"context"
	"fmt"

	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/logger"
	"github.com/markhakansson/rauk/replay"
	"github.com/markhakansson/rauk/schedule"
	"github.com/markhakansson/rauk/trace"
	"github.com/markhakansson/rauk/vector"
)

// Result is the outcome of a full run: the traces that were
// successfully reconstructed, the tasks as scheduled against them, and
// the final response-time analysis.
type Result struct {
	Traces  []trace.Trace
	Tasks   []schedule.Task
	Results []schedule.AnalysisResult
}

// Run replays every vector in store through engine, reconstructs a
// trace per vector, discards vectors whose measurement or trace
// reconstruction failed with a per-vector error (logging each one),
// and aborts immediately on a run-fatal error. Once all vectors have
// been attempted, it matches the longest trace per declared task name,
// derives priorities and resource ceilings, and runs the SRP analysis.
func Run(ctx context.Context, engine *replay.Engine, store *vector.Store, declared []schedule.Task, log *logger.Logger, perm logger.Permission) (Result, error) {
	var traces []trace.Trace

	for i := 0; i < store.Len(); i++ {
		v := store.At(i)

		samples, err := engine.Measure(ctx, v)
		if err != nil {
			if handled := handlePerVectorError(log, perm, i, err); handled {
				continue
			}
			return Result{}, fmt.Errorf("orchestrate: vector %d: %w", i, err)
		}

		built, err := trace.Build(samples)
		if err != nil {
			if handled := handlePerVectorError(log, perm, i, err); handled {
				continue
			}
			return Result{}, fmt.Errorf("orchestrate: vector %d: %w", i, err)
		}

		traces = append(traces, built...)
	}

	tasks := schedule.SelectWCETTraces(declared, traces)
	taskResources := schedule.DeriveTaskResources(tasks)
	priorities := schedule.DerivePriorities(tasks, taskResources)

	results, err := schedule.Analyze(tasks, priorities, taskResources)
	if err != nil {
		// DeadlineExceeded is a diagnostic, not a run failure: report
		// what we can and let the caller render the partial result.
		if failure.KindOf(err) != failure.DeadlineExceeded {
			return Result{}, fmt.Errorf("orchestrate: analysis: %w", err)
		}
		if log != nil {
			log.Logf(perm, "orchestrate", "%s", err)
		}
	}

	return Result{Traces: traces, Tasks: tasks, Results: results}, nil
}

// handlePerVectorError reports whether err is recoverable at the
// per-vector granularity (logged and skipped) as opposed to run-fatal
// (the caller must abort). It logs recoverable errors itself so
// callers don't need to repeat that at every call site.
func handlePerVectorError(log *logger.Logger, perm logger.Permission, index int, err error) bool {
	kind := failure.KindOf(err)
	if kind.Fatal() {
		return false
	}
	switch kind {
	case failure.ScopeMismatch, failure.EmptyInput, failure.HaltedWithoutBreakpoint,
		failure.UnsupportedMarkerInAnalysis, failure.MissingInputAddress:
		if log != nil {
			log.Logf(perm, "orchestrate", "vector %d discarded: %s", index, err)
		}
		return true
	default:
		return false
	}
}
