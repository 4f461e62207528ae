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

package trace_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/trace"
)

func entry(v trace.EntryVariant, name string, cc uint32) trace.Sample {
	return trace.Sample{Marker: trace.Marker{Category: trace.CategoryEntry, Entry: v}, Name: name, CycleCount: cc}
}

func exit(v trace.ExitVariant, name string, cc uint32) trace.Sample {
	return trace.Sample{Marker: trace.Marker{Category: trace.CategoryExit, Exit: v}, Name: name, CycleCount: cc}
}

// Scenario A — single task, no locks.
func TestBuildSingleTask(t *testing.T) {
	samples := []trace.Sample{
		entry(trace.HardwareTaskStart, "t1", 0),
		exit(trace.HardwareTaskEnd, "t1", 10),
	}
	got, err := trace.Build(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []trace.Trace{{Name: "t1", Ttype: trace.HardwareTask, Start: 0, End: 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// Scenario B — nested locks.
func TestBuildNestedLocks(t *testing.T) {
	samples := []trace.Sample{
		entry(trace.SoftwareTaskStart, "t1", 0),
		entry(trace.ResourceLockStart, "r1", 5),
		entry(trace.ResourceLockStart, "r2", 15),
		entry(trace.ResourceLockStart, "r3", 25),
		exit(trace.ResourceLockEnd, "r3", 35),
		exit(trace.ResourceLockEnd, "r2", 45),
		exit(trace.ResourceLockEnd, "r1", 55),
		exit(trace.SoftwareTaskEnd, "t1", 60),
	}
	got, err := trace.Build(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []trace.Trace{{
		Name: "t1", Ttype: trace.SoftwareTask, Start: 0, End: 60,
		Inner: []trace.Trace{{
			Name: "r1", Ttype: trace.ResourceLock, Start: 5, End: 55,
			Inner: []trace.Trace{{
				Name: "r2", Ttype: trace.ResourceLock, Start: 15, End: 45,
				Inner: []trace.Trace{{
					Name: "r3", Ttype: trace.ResourceLock, Start: 25, End: 35,
				}},
			}},
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// Scenario C — nested and sibling locks.
func TestBuildNestedAndSiblingLocks(t *testing.T) {
	samples := []trace.Sample{
		entry(trace.HardwareTaskStart, "t1", 0),
		entry(trace.ResourceLockStart, "r1", 5),
		entry(trace.ResourceLockStart, "r2", 10),
		exit(trace.ResourceLockEnd, "r2", 15),
		exit(trace.ResourceLockEnd, "r1", 15),
		entry(trace.ResourceLockStart, "r3", 15),
		exit(trace.ResourceLockEnd, "r3", 20),
		exit(trace.HardwareTaskEnd, "t1", 20),
	}
	got, err := trace.Build(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []trace.Trace{{
		Name: "t1", Ttype: trace.HardwareTask, Start: 0, End: 20,
		Inner: []trace.Trace{
			{
				Name: "r1", Ttype: trace.ResourceLock, Start: 5, End: 15,
				Inner: []trace.Trace{{Name: "r2", Ttype: trace.ResourceLock, Start: 10, End: 15}},
			},
			{Name: "r3", Ttype: trace.ResourceLock, Start: 15, End: 20},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// Scenario D — scope mismatch.
func TestBuildScopeMismatch(t *testing.T) {
	samples := []trace.Sample{
		entry(trace.HardwareTaskStart, "t1", 0),
		exit(trace.SoftwareTaskEnd, "t1", 10),
	}
	_, err := trace.Build(samples)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !failure.Is(err, failure.ScopeMismatch) {
		t.Errorf("expected ScopeMismatch, got: %v", err)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	_, err := trace.Build(nil)
	if !failure.Is(err, failure.EmptyInput) {
		t.Errorf("expected EmptyInput, got: %v", err)
	}
}

func TestBuildMoreEntriesThanExits(t *testing.T) {
	samples := []trace.Sample{
		entry(trace.HardwareTaskStart, "t1", 0),
		entry(trace.ResourceLockStart, "r1", 5),
	}
	_, err := trace.Build(samples)
	if err == nil {
		t.Fatal("expected an error for unclosed scopes")
	}
	if !failure.Is(err, failure.ScopeMismatch) {
		t.Errorf("expected ScopeMismatch, got: %v", err)
	}
}

func TestBuildUnsupportedMarker(t *testing.T) {
	samples := []trace.Sample{
		{Marker: trace.Marker{Category: trace.CategoryOther, Other: trace.InsideTask}, Name: "t1", CycleCount: 0},
	}
	_, err := trace.Build(samples)
	if !failure.Is(err, failure.UnsupportedMarkerInAnalysis) {
		t.Errorf("expected UnsupportedMarkerInAnalysis, got: %v", err)
	}
}

func TestMarkerFromByteTotal(t *testing.T) {
	seen := map[uint8]bool{}
	for i := 0; i <= 255; i++ {
		m := trace.MarkerFromByte(uint8(i))
		if m.Category == trace.CategoryOther && m.Other == trace.Invalid {
			seen[uint8(i)] = true
		}
	}
	known := []uint8{0, 1, 2, 3, 4, 5, 251, 252, 253, 254, 255}
	for _, k := range known {
		if seen[k] {
			t.Errorf("code %d should be a known marker, not Invalid", k)
		}
	}
}

func TestEntryExitCodesSumTo255(t *testing.T) {
	pairs := []struct {
		e trace.EntryVariant
		x trace.ExitVariant
	}{
		{trace.HardwareTaskStart, trace.HardwareTaskEnd},
		{trace.ResourceLockStart, trace.ResourceLockEnd},
		{trace.SoftwareTaskStart, trace.SoftwareTaskEnd},
	}
	for _, p := range pairs {
		if !p.e.ScopeMatches(p.x) {
			t.Errorf("%v + %v should sum to 255", p.e, p.x)
		}
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	original := trace.Trace{
		Name: "t1", Ttype: trace.SoftwareTask, Start: 0, End: 60,
		Inner: []trace.Trace{{Name: "r1", Ttype: trace.ResourceLock, Start: 5, End: 55}},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var roundtripped trace.Trace
	if err := json.Unmarshal(data, &roundtripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(original, roundtripped); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
