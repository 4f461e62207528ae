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

// Package config loads the task declarations an analysis run is
// scheduled against: name, priority, deadline and inter-arrival time,
// nothing more.
package config

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/schedule"
)

// taskDecl is the on-disk shape of one task declaration. Exactly
// these four fields are accepted; yaml.v3's KnownFields strictness
// (applied via a strict decoder) rejects anything else.
type taskDecl struct {
	Name         string `yaml:"name"`
	Priority     uint8  `yaml:"priority"`
	Deadline     uint32 `yaml:"deadline"`
	InterArrival uint32 `yaml:"inter_arrival"`
}

type taskFile struct {
	Tasks []taskDecl `yaml:"tasks"`
}

// LoadTasks reads and validates the task declaration file at path,
// returning schedule.Task values (with Trace left nil; the caller
// attaches traces via schedule.SelectWCETTraces).
func LoadTasks(path string) ([]schedule.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Errorf(failure.Unclassified, "config: reading %s: %w", path, err)
	}
	return ParseTasks(data)
}

// ParseTasks parses task declarations from raw YAML bytes.
func ParseTasks(data []byte) ([]schedule.Task, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var tf taskFile
	if err := dec.Decode(&tf); err != nil {
		return nil, failure.Errorf(failure.Unclassified, "config: parsing task declarations: %w", err)
	}

	tasks := make([]schedule.Task, 0, len(tf.Tasks))
	for _, d := range tf.Tasks {
		if d.Name == "" {
			return nil, failure.Errorf(failure.Unclassified, "config: task declaration missing name")
		}
		tasks = append(tasks, schedule.Task{
			Name:         d.Name,
			Priority:     d.Priority,
			Deadline:     d.Deadline,
			InterArrival: d.InterArrival,
		})
	}
	return tasks, nil
}
