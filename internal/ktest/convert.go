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

package ktest

import (
	"strings"

	"github.com/markhakansson/rauk/vector"
)

// hwReadPrefix marks the KLEE symbolic-object names generated for
// hardware-register reads; every other object is a plain RAM input.
const hwReadPrefix = "hwread_"

// ToVector partitions a parsed .ktest file's objects into the RAM
// inputs and the ordered hardware-read queue a vector.Vector carries,
// in encounter order.
func ToVector(f *File) vector.Vector {
	var v vector.Vector
	for _, obj := range f.Objects {
		if strings.HasPrefix(obj.Name, hwReadPrefix) {
			v.HWReads = append(v.HWReads, vector.HardwareRead{
				Name:  strings.TrimPrefix(obj.Name, hwReadPrefix),
				Bytes: obj.Bytes,
			})
			continue
		}
		v.Inputs = append(v.Inputs, vector.Input{Name: obj.Name, Bytes: obj.Bytes})
	}
	return v
}
