package core

import (
	"github.com/alphaev6/coresim/coherency"
	"github.com/alphaev6/coresim/grain"
	"github.com/alphaev6/coresim/irq"
	"github.com/alphaev6/coresim/pal"
	"github.com/alphaev6/coresim/pipeline"
	"github.com/alphaev6/coresim/state"
)

// FetchProducer supplies decoded instructions to a Core's pipeline. It is
// the external I-box spec.md §6 describes; decode and branch-prediction
// computation live entirely on this side of the boundary, out of scope
// for the pipeline itself.
type FetchProducer interface {
	// Next decodes and returns the Grain at pc, along with IF's
	// prediction fields. valid is false when nothing could be fetched
	// (e.g. the producer itself is waiting on an I-cache fill).
	Next(pc uint64) (result grain.FetchResult, valid bool)
}

// Stats mirrors pipeline.Stats plus the R31 instrumentation counters, the
// per-core summary a profiler or CLI reports.
type Stats struct {
	pipeline.Stats
	R31 pipeline.R31Counters
}

// Core wires one CPU's architectural state, interrupt state, MMIO bus,
// reservation manager, pipeline, and PAL orchestrator into a runnable
// unit: Step drains one PipelineStepResult per call and performs whatever
// PAL entry or halt handling it calls for, per spec.md §6's orchestrator
// contract.
type Core struct {
	cpu int

	view     *state.View
	irq      *irq.State
	bus      *Bus
	reserve  *coherency.Manager
	pipe     *pipeline.Pipeline
	pal      *pal.Orchestrator
	producer FetchProducer

	exited    bool
	exitCode  uint64
}

// NewCore constructs a Core for cpu, wiring pipe's collaborators from the
// supplied state, interrupt, bus, and reservation objects.
func NewCore(cpu int, master *state.Master, irqState *irq.State, bus *Bus, reserve *coherency.Manager, producer FetchProducer, cfg pipeline.Config) *Core {
	view := master.Bind(cpu)
	pipe := pipeline.NewPipeline(view, bus,
		pipeline.WithConfig(cfg),
		pipeline.WithReservations(reserve),
		pipeline.WithDrainer(bus),
		pipeline.WithCPU(cpu),
	)
	return &Core{
		cpu:      cpu,
		view:     view,
		irq:      irqState,
		bus:      bus,
		reserve:  reserve,
		pipe:     pipe,
		pal:      pal.NewOrchestrator(view, irqState),
		producer: producer,
	}
}

// SetPC sets the architectural PC the fetch producer should be asked for
// next.
func (c *Core) SetPC(pc uint64) { c.pipe.SetPC(pc) }

// Halted reports whether the CPU thread is parked.
func (c *Core) Halted() bool { return c.pipe.Halted() }

// Stats returns the pipeline and R31 telemetry accumulated so far.
func (c *Core) Stats() Stats {
	return Stats{Stats: c.pipe.Stats(), R31: c.pipe.R31Counters()}
}

// Step drains the fetch producer (if the pipeline isn't back-pressuring
// it), ticks the pipeline once, and acts on the resulting StepResult per
// spec.md §6:
//   - Advanced/Stalled: nothing further to do this step.
//   - Fault: PAL entry via the fault path.
//   - PalCall: PAL entry via the CALL_PAL path, unless it's HW_REI
//     (function 0x3B on OSF/1-style personalities), which instead
//     performs a return.
//   - Mispredict: PC is already redirected inside EX; nothing further.
//   - Halted: report via Halted().
//
// Step also checks for a deliverable interrupt before ticking, since
// interrupt delivery preempts whatever the pipeline would otherwise fetch
// next.
func (c *Core) Step() {
	if c.pipe.Halted() {
		return
	}

	if entry, ok := c.pal.EnterInterrupt(c.pipe.PC()); ok {
		c.pipe.Flush()
		c.pipe.SetPC(entry.Vector)
		return
	}

	if !c.pipe.IsFrontendStalled() {
		if fr, ok := c.producer.Next(c.pipe.PC()); ok {
			c.pipe.SupplyFetchResult(fr)
		}
	}

	result := c.pipe.Tick()
	switch result.Kind {
	case pipeline.FaultResult:
		entry := c.pal.EnterFault(result.TrapCode, result.FaultVA, result.FaultPC)
		c.pipe.SetPC(entry.Vector)
	case pipeline.PalCall:
		if result.CallPalFunc == hwREIFunction {
			ret := c.pal.HWREI()
			c.pipe.SetPC(ret.PC)
			return
		}
		entry := c.pal.EnterCallPal(result.CallPalFunc, result.CallPC)
		c.pipe.SetPC(entry.Vector)
	case pipeline.Halted:
		c.exited = true
		c.exitCode = result.HaltCode
	}
}

// hwREIFunction is OSF/1 PALcode's conventional CALL_PAL function code
// for HW_REI.
const hwREIFunction = 0x3B

// Exited reports whether a Tick has returned a Halted result (the
// pipeline was parked with Pipeline.Halt), and its code. CALL_PAL
// functions, HALT included, go through PAL entry and do not set it.
func (c *Core) Exited() (bool, uint64) { return c.exited, c.exitCode }

// View exposes the bound architectural state view for diagnostics and
// tests.
func (c *Core) View() *state.View { return c.view }
