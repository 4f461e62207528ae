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

package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/markhakansson/rauk/report"
	"github.com/markhakansson/rauk/schedule"
	"github.com/markhakansson/rauk/trace"
)

func TestWriteAndReadTracesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	traces := []trace.Trace{
		{Name: "t1", Ttype: trace.HardwareTask, Start: 0, End: 10},
	}
	if err := report.WriteTraces(dir, traces); err != nil {
		t.Fatalf("WriteTraces: %v", err)
	}
	got, err := report.ReadTraces(dir)
	if err != nil {
		t.Fatalf("ReadTraces: %v", err)
	}
	if len(got) != 1 || got[0].Name != "t1" || got[0].End != 10 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}

func TestRenderTableIncludesTaskNames(t *testing.T) {
	var buf bytes.Buffer
	report.RenderTable(&buf, []schedule.AnalysisResult{
		{Name: "hi", WCET: 5, ResponseTime: 5, LoadFactor: 0.05},
	})
	if !strings.Contains(buf.String(), "hi") {
		t.Fatalf("expected table to mention task name, got:\n%s", buf.String())
	}
}
