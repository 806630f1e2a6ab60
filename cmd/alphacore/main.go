// Command alphacore boots a guest ELF image on one or more emulated
// Alpha AXP CPUs and runs it to completion (HALT) or a step ceiling.
//
// Instruction decoding is an external collaborator this codebase does
// not specify (see the grain package doc): this binary's fetch producer
// hands the pipeline an undecoded Grain for every fetch, which the EX
// stage turns into an illegal-opcode fault by contract. That is enough
// to exercise the full boot path — image load, PAL fault entry, HW_REI
// — without fabricating an Alpha instruction decoder.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/alphaev6/coresim/core"
	"github.com/alphaev6/coresim/coherency"
	"github.com/alphaev6/coresim/internal/config"
	"github.com/alphaev6/coresim/internal/logging"
	"github.com/alphaev6/coresim/irq"
	"github.com/alphaev6/coresim/grain"
	"github.com/alphaev6/coresim/loader"
	"github.com/alphaev6/coresim/mmio"
	"github.com/alphaev6/coresim/state"
)

var (
	configPath = flag.String("config", "", "Path to a machine configuration JSON file")
	logPath    = flag.String("log", "", "Diagnostic log file (stderr always gets warnings and above)")
	maxSteps   = flag.Uint64("max-steps", 1_000_000, "Stop after this many core steps even if no CPU halted")
	verbose    = flag.Bool("v", false, "Also log info-level messages (image load, halt)")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: alphacore [options] <guest.elf>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	machine, err := loadMachine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "alphacore: %v\n", err)
		os.Exit(1)
	}

	var logFile *os.File
	if *logPath != "" {
		logFile, err = os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "alphacore: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logFile.Close() }()
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := logging.New(logFile, level)

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		log.Error("failed to load guest image", "error", err)
		os.Exit(1)
	}
	log.Info("loaded guest image", "path", flag.Arg(0), "entry", fmt.Sprintf("%#x", prog.EntryPoint))

	exitCode, err := run(machine, prog, log, *maxSteps)
	if err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
	os.Exit(int(exitCode))
}

func loadMachine() (*config.Machine, error) {
	if *configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*configPath)
}

// undecodedProducer hands the pipeline an undecoded Grain for every
// fetch: grain decode tables are out of scope (see package grain's doc
// comment), so this is the documented placeholder fetch producer.
type undecodedProducer struct{}

func (undecodedProducer) Next(pc uint64) (grain.FetchResult, bool) {
	return grain.FetchResult{PC: pc, Decoded: nil, Valid: true}, true
}

func run(machine *config.Machine, prog *loader.Program, log *slog.Logger, steps uint64) (uint64, error) {
	reg := mmio.NewRegistry()
	reg.Finalize()

	bus := core.NewBus(machine.RAMBase, machine.RAMSize, reg)
	if err := loadSegments(bus, prog); err != nil {
		return 1, err
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

	var step uint64
	for ; step < steps; step++ {
		allHalted := true
		for _, c := range cores {
			if halted, _ := c.Exited(); halted {
				continue
			}
			allHalted = false
			c.Step()
		}
		if allHalted {
			break
		}
	}

	if halted, code := cores[0].Exited(); halted {
		log.Info("cpu 0 halted", "exit_code", code, "steps", step)
		return code, nil
	}
	log.Warn("step ceiling reached without halt", "steps", step)
	return 0, nil
}

func loadSegments(bus *core.Bus, prog *loader.Program) error {
	for _, seg := range prog.Segments {
		for i, b := range seg.Data {
			bus.Write8(seg.VirtAddr+uint64(i), uint64(b))
		}
		for i := uint64(len(seg.Data)); i < seg.MemSize; i++ {
			bus.Write8(seg.VirtAddr+i, 0)
		}
	}
	return nil
}
