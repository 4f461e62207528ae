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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markhakansson/rauk/trace"
)

var _ = Describe("Trace", func() {
	Describe("Duration", func() {
		It("returns end minus start", func() {
			tr := trace.Trace{Start: 10, End: 35}
			Expect(tr.Duration()).To(Equal(uint32(25)))
		})
	})

	Describe("Walk", func() {
		It("visits every node depth-first, pre-order", func() {
			leaf := trace.Trace{Name: "r", Start: 2, End: 4}
			root := trace.Trace{Name: "task", Start: 0, End: 10, Inner: []trace.Trace{leaf}}

			var visited []string
			root.Walk(func(t trace.Trace) {
				visited = append(visited, t.Name)
			})

			Expect(visited).To(Equal([]string{"task", "r"}))
		})

		It("visits nested siblings in order", func() {
			a := trace.Trace{Name: "a", Start: 1, End: 2}
			b := trace.Trace{Name: "b", Start: 3, End: 4}
			root := trace.Trace{Name: "task", Start: 0, End: 10, Inner: []trace.Trace{a, b}}

			var visited []string
			root.Walk(func(t trace.Trace) {
				visited = append(visited, t.Name)
			})

			Expect(visited).To(Equal([]string{"task", "a", "b"}))
		})
	})
})
