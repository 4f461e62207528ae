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

package config_test

import (
	"testing"

	"github.com/markhakansson/rauk/config"
)

const validYAML = `
tasks:
  - name: hi
    priority: 3
    deadline: 50
    inter_arrival: 100
  - name: lo
    priority: 1
    deadline: 900
    inter_arrival: 1000
`

func TestParseTasks(t *testing.T) {
	tasks, err := config.ParseTasks([]byte(validYAML))
	if err != nil {
		t.Fatalf("ParseTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Name != "hi" || tasks[0].Priority != 3 || tasks[0].Deadline != 50 || tasks[0].InterArrival != 100 {
		t.Fatalf("unexpected first task: %+v", tasks[0])
	}
}

func TestParseTasksRejectsUnknownFields(t *testing.T) {
	const badYAML = `
tasks:
  - name: hi
    priority: 3
    deadline: 50
    inter_arrival: 100
    extra_field: true
`
	if _, err := config.ParseTasks([]byte(badYAML)); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseTasksRejectsMissingName(t *testing.T) {
	const badYAML = `
tasks:
  - priority: 3
    deadline: 50
    inter_arrival: 100
`
	if _, err := config.ParseTasks([]byte(badYAML)); err == nil {
		t.Fatalf("expected error for missing name")
	}
}
