// Command alphaprofile runs a guest ELF image under pprof's CPU/memory
// profilers and reports steps/second, to identify hot spots in the
// pipeline rather than in guest code (see cmd/alphacore's doc comment:
// the fetch producer here is the same undecoded-Grain placeholder,
// since decode tables are out of scope).
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/alphaev6/coresim/core"
	"github.com/alphaev6/coresim/coherency"
	"github.com/alphaev6/coresim/internal/config"
	"github.com/alphaev6/coresim/irq"
	"github.com/alphaev6/coresim/grain"
	"github.com/alphaev6/coresim/loader"
	"github.com/alphaev6/coresim/mmio"
	"github.com/alphaev6/coresim/state"
)

var (
	configPath = flag.String("config", "", "Path to a machine configuration JSON file")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run")
	maxSteps   = flag.Uint64("max-steps", 1_000_000, "max core steps to execute (0 = unlimited)")
)

type undecodedProducer struct{}

func (undecodedProducer) Next(pc uint64) (grain.FetchResult, bool) {
	return grain.FetchResult{PC: pc, Decoded: nil, Valid: true}, true
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: alphaprofile [options] <guest.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	machine := config.Default()
	if *configPath != "" {
		var err error
		machine, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
			os.Exit(1)
		}
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded: %s\nEntry point: %#x\n", flag.Arg(0), prog.EntryPoint)

	timedOut := make(chan struct{})
	timer := time.AfterFunc(*duration, func() { close(timedOut) })

	start := time.Now()
	steps, halted, exitCode := runProfile(machine, prog, timedOut, *maxSteps)
	elapsed := time.Since(start)
	timer.Stop()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "alphaprofile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Halted: %v (exit code %d)\n", halted, exitCode)
	fmt.Printf("Steps: %d\n", steps)
	fmt.Printf("Elapsed: %v\n", elapsed)
	if steps > 0 {
		fmt.Printf("Steps/second: %.0f\n", float64(steps)/elapsed.Seconds())
	}
}

// runProfile boots machine.CPUCount cores, one per goroutine via
// core.Machine (spec.md §5: "each CPU runs on a dedicated OS thread,
// executing ticks in a tight run loop"). Each core's goroutine returns
// on its own once that core halts or reaches maxSteps ticks; runProfile
// additionally calls Stop on every core once timedOut fires, so a
// guest that neither halts nor hits the ceiling still bounds the run
// to the requested duration.
func runProfile(machine *config.Machine, prog *loader.Program, timedOut <-chan struct{}, maxSteps uint64) (steps uint64, halted bool, exitCode uint64) {
	reg := mmio.NewRegistry()
	reg.Finalize()
	bus := core.NewBus(machine.RAMBase, machine.RAMSize, reg)
	for _, seg := range prog.Segments {
		for i, b := range seg.Data {
			bus.Write8(seg.VirtAddr+uint64(i), uint64(b))
		}
		for i := uint64(len(seg.Data)); i < seg.MemSize; i++ {
			bus.Write8(seg.VirtAddr+i, 0)
		}
	}

	master := state.NewMaster()
	irqState := irq.NewState()
	reserve := coherency.NewManager()

	cores := make([]*core.Core, machine.CPUCount)
	for i := range cores {
		c := core.NewCore(i, master, irqState, bus, reserve, undecodedProducer{}, machine.PipelineConfig())
		c.View().Pal.PalBase = machine.PalBase
		if i == 0 {
			c.SetPC(prog.EntryPoint)
		}
		cores[i] = c
	}

	m := core.NewMachine(cores, maxSteps)
	m.Start()

	allDone := make(chan struct{})
	go func() {
		m.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-timedOut:
		m.Stop()
	}

	for _, c := range cores {
		steps += c.Stats().Ticks
	}
	halted, exitCode = cores[0].Exited()
	return steps, halted, exitCode
}
