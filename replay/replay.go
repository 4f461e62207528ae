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

// Package replay drives a target session through one input vector,
// producing the linear marker sample list the trace builder consumes.
// This is the only package that touches the probe; it is otherwise
// pure with respect to everything else (the DWARF index, disassembly
// index and vector are read-only collaborators).
package replay

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/markhakansson/rauk/disasm"
	"github.com/markhakansson/rauk/dwarfidx"
	"github.com/markhakansson/rauk/internal/failure"
	"github.com/markhakansson/rauk/logger"
	"github.com/markhakansson/rauk/trace"
	"github.com/markhakansson/rauk/vector"
)

// Session is the minimal target.Session surface the engine drives,
// narrowed to ease substituting a fake in tests.
type Session interface {
	Run() error
	WaitForHalt(ctx context.Context, timeout time.Duration) error
	BreakpointAtPC() (bool, error)
	ReadBreakpointImmediate() (uint8, error)
	ReadCycleCounter() (uint32, error)
	SetHwBreakpoint(addr uint32) error
	ClearHwBreakpoint(addr uint32) error
	Write8(addr uint32, bytes []byte) error
	ReadReturnAddressRegister() (uint32, error)
	ReadProgramCounter() (uint32, error)
	WriteCoreReg(reg uint8, value uint32) error
}

// Engine replays input vectors against a target session, consulting
// the DWARF and disassembly indexes to turn raw marker halts into
// named samples.
type Engine struct {
	Session Session
	DWARF   *dwarfidx.Index
	Disasm  *disasm.Index

	// HaltTimeout bounds every wait_for_halt call. Zero selects a
	// conservative default.
	HaltTimeout time.Duration

	// Release selects the release-mode destination-register recovery
	// path (parse rN from the disassembly) versus the debug-mode path
	// (always r0), matching how the replay firmware itself is built.
	Release bool

	// Log receives diagnostic, never-fatal notices (missing input
	// address, short hardware-read value). Optional.
	Log *logger.Logger
	// Perm gates Log; see logger.Permission.
	Perm logger.Permission
}

// destRegOffset is how far before pending_hw_bkpt the concluding
// load's disassembly line sits.
const destRegOffset = 2

// Measure runs the full replay protocol for one vector and returns the
// samples observed in execution order.
func (e *Engine) Measure(ctx context.Context, v vector.Vector) ([]trace.Sample, error) {
	if err := e.awaitReplayStart(ctx); err != nil {
		return nil, err
	}
	if err := e.injectInputs(v.Inputs); err != nil {
		return nil, err
	}
	return e.measurementLoop(ctx, vector.ReverseHWReads(v.HWReads))
}

// awaitReplayStart resumes and halt-waits until the next halt carries
// the ReplayStart marker, stepping over any other breakpoint
// encountered along the way.
func (e *Engine) awaitReplayStart(ctx context.Context) error {
	for {
		if err := e.resumeAndHalt(ctx); err != nil {
			return err
		}
		atBkpt, err := e.Session.BreakpointAtPC()
		if err != nil {
			return err
		}
		if !atBkpt {
			continue
		}
		imm, err := e.Session.ReadBreakpointImmediate()
		if err != nil {
			return err
		}
		if trace.MarkerFromByte(imm).Other == trace.ReplayStart {
			return nil
		}
	}
}

func (e *Engine) injectInputs(inputs []vector.Input) error {
	for _, in := range inputs {
		addr, ok := e.DWARF.VariableAddress(in.Name)
		if !ok {
			e.warnf("missing input address for %q, skipping", in.Name)
			continue
		}
		if err := e.Session.Write8(uint32(addr), in.Bytes); err != nil {
			return err
		}
	}
	return nil
}

// measurementLoop runs marker-to-marker until ReplayStart closes the
// vector, returning the accumulated sample list.
func (e *Engine) measurementLoop(ctx context.Context, vcellQueue []vector.HardwareRead) ([]trace.Sample, error) {
	var samples []trace.Sample
	var pendingHwBkpt uint32

	for {
		if err := e.resumeAndHalt(ctx); err != nil {
			return nil, err
		}

		if pendingHwBkpt != 0 {
			atPending, err := e.atAddress(pendingHwBkpt)
			if err != nil {
				return nil, err
			}
			if atPending {
				var popped vector.HardwareRead
				if len(vcellQueue) > 0 {
					popped = vcellQueue[len(vcellQueue)-1]
					vcellQueue = vcellQueue[:len(vcellQueue)-1]
				}
				if err := e.completeHardwareRead(pendingHwBkpt, popped); err != nil {
					return nil, err
				}
				pendingHwBkpt = 0
				continue
			}
		}

		atBkpt, err := e.Session.BreakpointAtPC()
		if err != nil {
			return nil, err
		}
		if !atBkpt {
			return nil, failure.Errorf(failure.HaltedWithoutBreakpoint, "replay: halted without breakpoint or pending hardware read")
		}

		imm, err := e.Session.ReadBreakpointImmediate()
		if err != nil {
			return nil, err
		}
		marker := trace.MarkerFromByte(imm)

		switch {
		case marker.Category == trace.CategoryOther && marker.Other == trace.ReplayStart:
			return samples, nil

		case marker.Category == trace.CategoryOther && marker.Other == trace.InsideTask:
			if err := e.refineLastSample(samples, e.DWARF.Subprograms()); err != nil {
				return nil, err
			}

		case marker.Category == trace.CategoryOther && marker.Other == trace.InsideLock:
			if err := e.refineLastSampleSubroutines(samples, e.DWARF.ResourceLocks()); err != nil {
				return nil, err
			}

		case marker.Category == trace.CategoryOther && marker.Other == trace.InsideHardwareRead:
			next, err := e.armHardwareBreakpoint()
			if err != nil {
				return nil, err
			}
			pendingHwBkpt = next

		default:
			cyccnt, err := e.Session.ReadCycleCounter()
			if err != nil {
				return nil, err
			}
			samples = append(samples, trace.Sample{Marker: marker, Name: trace.UnknownName, CycleCount: cyccnt})
		}
	}
}

func (e *Engine) resumeAndHalt(ctx context.Context) error {
	if err := e.Session.Run(); err != nil {
		return err
	}
	timeout := e.HaltTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return e.Session.WaitForHalt(ctx, timeout)
}

// atAddress reports whether the core is currently halted exactly at
// addr.
func (e *Engine) atAddress(addr uint32) (bool, error) {
	pc, err := e.Session.ReadProgramCounter()
	if err != nil {
		return false, err
	}
	return pc == addr, nil
}

// refineLastSample rewrites the most recently pushed sample's name
// using the link register to find the enclosing subprogram.
func (e *Engine) refineLastSample(samples []trace.Sample, candidates []dwarfidx.Subprogram) error {
	if len(samples) == 0 {
		return nil
	}
	lr, err := e.Session.ReadReturnAddressRegister()
	if err != nil {
		return err
	}
	var inRange []dwarfidx.Subprogram
	for _, sp := range candidates {
		if sp.InRange(uint64(lr)) {
			inRange = append(inRange, sp)
		}
	}
	name := trace.UnknownName
	if sp, ok := dwarfidx.ShortestSubprogram(inRange); ok {
		name = sp.Name
	}
	samples[len(samples)-1].Name = name
	return nil
}

func (e *Engine) refineLastSampleSubroutines(samples []trace.Sample, candidates []dwarfidx.Subroutine) error {
	if len(samples) == 0 {
		return nil
	}
	lr, err := e.Session.ReadReturnAddressRegister()
	if err != nil {
		return err
	}
	var inRange []dwarfidx.Subroutine
	for _, sub := range candidates {
		if sub.InRange(uint64(lr)) {
			inRange = append(inRange, sub)
		}
	}
	name := trace.UnknownName
	if sub, ok := dwarfidx.ShortestSubroutine(inRange); ok {
		name = sub.Name
	}
	samples[len(samples)-1].Name = name
	return nil
}

// armHardwareBreakpoint finds the hardware accessor enclosing LR,
// programs a hardware breakpoint at its concluding load, and returns
// that address.
func (e *Engine) armHardwareBreakpoint() (uint32, error) {
	lr, err := e.Session.ReadReturnAddressRegister()
	if err != nil {
		return 0, err
	}
	var inRange []dwarfidx.Subroutine
	for _, sub := range e.DWARF.HardwareAccessors() {
		if sub.InRange(uint64(lr) - 1) {
			inRange = append(inRange, sub)
		}
	}
	sub, ok := dwarfidx.ShortestSubroutine(inRange)
	if !ok || len(sub.Ranges) == 0 {
		return 0, failure.Errorf(failure.HaltedWithoutBreakpoint, "replay: no hardware accessor encloses LR-1=0x%x", lr-1)
	}
	addr := uint32(sub.Ranges[0].High)
	if e.Release {
		addr += destRegOffset
	}
	if err := e.Session.SetHwBreakpoint(addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// completeHardwareRead clears the hardware breakpoint and, if
// possible, writes the next queued value into the accessor's
// destination register.
func (e *Engine) completeHardwareRead(addr uint32, value vector.HardwareRead) error {
	if err := e.Session.ClearHwBreakpoint(addr); err != nil {
		return err
	}
	if len(value.Bytes) != 4 {
		e.warnf("hardware read %q has %d bytes, want 4, skipping", value.Name, len(value.Bytes))
		return nil
	}
	reg, ok := e.destinationRegister(addr)
	if !ok {
		reg = 0
	}
	return e.Session.WriteCoreReg(reg, binary.LittleEndian.Uint32(value.Bytes))
}

func (e *Engine) destinationRegister(concludingLoadAddr uint32) (uint8, bool) {
	if !e.Release {
		return 0, true
	}
	instAddr := concludingLoadAddr - destRegOffset
	inst, ok := e.Disasm.InstructionAt(instAddr)
	if !ok {
		return 0, false
	}
	return disasm.DestinationRegister(inst)
}

func (e *Engine) warnf(format string, args ...interface{}) {
	if e.Log == nil {
		return
	}
	e.Log.Logf(e.Perm, "replay", format, args...)
}
