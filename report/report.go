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

// Package report serializes measured traces and renders the
// response-time analysis as output: a JSON trace file and a printable
// table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/schedule"
	"github.com/markhakansson/rauk/trace"
)

// TraceFileName is the fixed file name traces are written under,
// inside whatever output directory the caller chooses.
const TraceFileName = "rauk.json"

// WriteTraces serializes traces as a JSON array into
// filepath.Join(dir, TraceFileName).
func WriteTraces(dir string, traces []trace.Trace) error {
	data, err := json.MarshalIndent(traces, "", "  ")
	if err != nil {
		return failure.Errorf(failure.Unclassified, "report: marshaling traces: %w", err)
	}
	path := filepath.Join(dir, TraceFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return failure.Errorf(failure.Unclassified, "report: writing %s: %w", path, err)
	}
	return nil
}

// ReadTraces is the inverse of WriteTraces, reading a previously
// written trace file back into memory.
func ReadTraces(dir string) ([]trace.Trace, error) {
	path := filepath.Join(dir, TraceFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Errorf(failure.Unclassified, "report: reading %s: %w", path, err)
	}
	var traces []trace.Trace
	if err := json.Unmarshal(data, &traces); err != nil {
		return nil, failure.Errorf(failure.Unclassified, "report: unmarshaling %s: %w", path, err)
	}
	return traces, nil
}

// RenderTable writes a human-readable response-time table to w.
func RenderTable(w io.Writer, results []schedule.AnalysisResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Response-Time Analysis")
	t.AppendHeader(table.Row{"Task", "WCET", "Blocking", "Preemption", "Response Time", "Load Factor"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Name,
			r.WCET,
			r.BlockingTime,
			r.PreemptionTime,
			r.ResponseTime,
			fmt.Sprintf("%.3f", r.LoadFactor),
		})
	}
	t.Render()
}
