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

package trace

import (
	"encoding/json"
	"fmt"
)

// traceWire is the JSON wire shape of a Trace: ttype is spelled out as
// one of "SoftwareTask", "HardwareTask", "ResourceLock" rather than as
// the small integer Kind uses internally.
type traceWire struct {
	Name  string      `json:"name"`
	Ttype string      `json:"ttype"`
	Start uint32      `json:"start"`
	Inner []traceWire `json:"inner"`
	End   uint32      `json:"end"`
}

func kindFromWire(s string) (Kind, error) {
	switch s {
	case "SoftwareTask":
		return SoftwareTask, nil
	case "HardwareTask":
		return HardwareTask, nil
	case "ResourceLock":
		return ResourceLock, nil
	default:
		return 0, fmt.Errorf("unrecognised trace type %q", s)
	}
}

func toWire(t Trace) traceWire {
	inner := make([]traceWire, len(t.Inner))
	for i, c := range t.Inner {
		inner[i] = toWire(c)
	}
	return traceWire{
		Name:  t.Name,
		Ttype: t.Ttype.String(),
		Start: t.Start,
		Inner: inner,
		End:   t.End,
	}
}

func fromWire(w traceWire) (Trace, error) {
	kind, err := kindFromWire(w.Ttype)
	if err != nil {
		return Trace{}, err
	}
	var inner []Trace
	if len(w.Inner) > 0 {
		inner = make([]Trace, len(w.Inner))
	}
	for i, c := range w.Inner {
		ct, err := fromWire(c)
		if err != nil {
			return Trace{}, err
		}
		inner[i] = ct
	}
	return Trace{
		Name:  w.Name,
		Ttype: kind,
		Start: w.Start,
		Inner: inner,
		End:   w.End,
	}, nil
}

// MarshalJSON implements json.Marshaler, spelling Ttype out as a string.
func (t Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(t))
}

// UnmarshalJSON implements json.Unmarshaler, parsing Ttype back from its
// string spelling.
func (t *Trace) UnmarshalJSON(data []byte) error {
	var w traceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := fromWire(w)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
