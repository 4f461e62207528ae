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

// rauk is the command line entry point: it wires the DWARF index, the
// disassembler, the target driver, the replay engine and the
// schedulability analyzer together into one run, against an ELF build
// instrumented with the breakpoint markers the replay engine expects.
//
// It does not generate input vectors or flash firmware; it consumes a
// directory of already-generated .ktest files (see internal/ktest) and
// a YAML task declaration file (see config).
package main

import (
	"context"
	"debug/elf"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/markhakansson/rauk/config"
	"github.com/markhakansson/rauk/disasm"
	"github.com/markhakansson/rauk/dwarfidx"
	"github.com/markhakansson/rauk/internal/ktest"
	"github.com/markhakansson/rauk/logger"
	"github.com/markhakansson/rauk/orchestrate"
	"github.com/markhakansson/rauk/replay"
	"github.com/markhakansson/rauk/report"
	"github.com/markhakansson/rauk/target"
	"github.com/markhakansson/rauk/vector"
)

// options collates every flag-settable input to a run.
type options struct {
	elfPath    string
	chip       string
	device     string
	baud       int
	objdump    string
	ktestDir   string
	tasksPath  string
	outDir     string
	haltTimout time.Duration
	release    bool
	verbose    bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "rauk: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flgs := flag.NewFlagSet("rauk", flag.ExitOnError)
	flgs.StringVar(&opts.elfPath, "elf", "", "path to the instrumented replay ELF (required)")
	flgs.StringVar(&opts.chip, "chip", "", "target chip identifier passed to the probe on attach")
	flgs.StringVar(&opts.device, "device", "", "serial device the debug probe is attached to (required)")
	flgs.IntVar(&opts.baud, "baud", 115200, "serial baud rate")
	flgs.StringVar(&opts.objdump, "objdump", "llvm-objdump", "path to an objdump-compatible disassembler")
	flgs.StringVar(&opts.ktestDir, "ktests", "", "directory of .ktest input vector files (required)")
	flgs.StringVar(&opts.tasksPath, "tasks", "", "path to the YAML task declaration file (required)")
	flgs.StringVar(&opts.outDir, "out", ".", "directory to write the trace and report into")
	flgs.DurationVar(&opts.haltTimout, "halt-timeout", 5*time.Second, "maximum time to wait for the target to halt")
	flgs.BoolVar(&opts.release, "release", false, "replay ELF was built with optimizations (affects breakpoint placement)")
	flgs.BoolVar(&opts.verbose, "v", false, "echo the measurement log to stderr")

	if err := flgs.Parse(args); err != nil {
		return err
	}
	if opts.elfPath == "" || opts.device == "" || opts.ktestDir == "" || opts.tasksPath == "" {
		flgs.Usage()
		return fmt.Errorf("missing required flag: -elf, -device, -ktests and -tasks must all be set")
	}

	ef, err := elf.Open(opts.elfPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", opts.elfPath, err)
	}
	defer ef.Close()

	idx, err := dwarfidx.Build(ef)
	if err != nil {
		return err
	}

	dsm, err := disasm.Build(disasm.Objdump{Path: opts.objdump}, opts.elfPath)
	if err != nil {
		return err
	}

	transport, err := target.OpenSerialTransport(opts.device, opts.baud)
	if err != nil {
		return err
	}

	session, err := target.Open(transport, opts.chip)
	if err != nil {
		transport.Close()
		return err
	}

	log := logger.NewLogger(512)
	perm := verbosity(opts.verbose)

	// Install the SIGINT cleanup hook before anything touches the
	// target further: a ctrl-C mid-replay must still leave the probe
	// in a state the next invocation can attach to cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cleanup(session)
		os.Exit(130)
	}()
	defer cleanup(session)

	store, err := loadVectors(opts.ktestDir)
	if err != nil {
		return err
	}

	declared, err := config.LoadTasks(opts.tasksPath)
	if err != nil {
		return err
	}

	engine := &replay.Engine{
		Session:     session,
		DWARF:       idx,
		Disasm:      dsm,
		HaltTimeout: opts.haltTimout,
		Release:     opts.release,
		Log:         log,
		Perm:        perm,
	}

	result, err := orchestrate.Run(context.Background(), engine, store, declared, log, perm)
	if err != nil {
		log.Write(os.Stderr)
		return err
	}
	if opts.verbose {
		log.Write(os.Stderr)
	}

	if err := report.WriteTraces(opts.outDir, result.Traces); err != nil {
		return err
	}
	report.RenderTable(os.Stdout, result.Results)

	return nil
}

// loadVectors parses every *.ktest file in dir into the replay vector
// store, in directory order.
func loadVectors(dir string) (*vector.Store, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.ktest"))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .ktest files found in %s", dir)
	}

	vectors := make([]vector.Vector, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		f, err := ktest.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		vectors = append(vectors, ktest.ToVector(f))
	}
	return vector.NewStore(vectors), nil
}

// cleanup releases the probe session so a subsequent invocation can
// attach cleanly, whether reached via a normal return or the SIGINT
// handler below.
func cleanup(session *target.Session) {
	if err := session.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "rauk: cleanup: %s\n", err)
	}
}

type verbosity bool

func (v verbosity) AllowLogging() bool { return bool(v) }
