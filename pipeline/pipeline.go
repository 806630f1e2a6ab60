// Package pipeline implements the 6-slot ring-buffered, in-order
// pipeline with deferred writeback: stage functions execute in a fixed
// reverse order each tick (WB, MEM, EX, IS, DE, IF), eliminating RAW
// hazards for the common one-cycle producer/consumer pair without
// forwarding.
//
// Grounded on the teacher's pipeline.Pipeline (timing/pipeline/pipeline.go):
// the functional-options construction, the per-stage struct split, and
// the Stats block are kept; the fixed 5-stage register-handoff design
// is replaced with the spec's ring buffer and deferred-commit record,
// since the teacher's stage registers assume single-cycle forwarding
// this architecture does not use.
package pipeline

import (
	"github.com/alphaev6/coresim/coherency"
	"github.com/alphaev6/coresim/grain"
	"github.com/alphaev6/coresim/state"
)

const ringSize = 6

// Stage names a position in the ring, youngest (IF) to oldest (WB).
type Stage uint8

const (
	StageIF Stage = iota
	StageDE
	StageIS
	StageEX
	StageMEM
	StageWB
)

// Config selects pipeline-wide behavior. DualIssueEnabled defaults to
// false: per spec.md §9, dual issue is not the primary correctness
// path and a conforming implementation may always single-issue.
type Config struct {
	DualIssueEnabled bool
	Predictor        PredictorConfig
}

// DefaultConfig returns single-issue, default predictor sizing.
func DefaultConfig() Config {
	return Config{DualIssueEnabled: false, Predictor: DefaultPredictorConfig()}
}

// Stats accumulates per-CPU pipeline telemetry.
type Stats struct {
	Ticks          uint64
	Retired        uint64
	Stalls         uint64
	Flushes        uint64
	Mispredictions uint64
}

// R31Counters are the six instrumentation counters spec.md §4.5 asks to
// be observable: discarded writes to R31, discarded link writes, LL to
// R31, STC to R31, prefetch loads to R31, and operand-constraint
// violations.
type R31Counters struct {
	DiscardedIntWrites    uint64
	DiscardedLinkWrites   uint64
	LoadLinkedToR31       uint64
	StoreConditionalToR31 uint64
	PrefetchLoadsToR31    uint64
	ConstraintViolations  uint64
}

// StepResult is the composite outcome of one tick, returned to the
// orchestrator.
type StepResult struct {
	Kind StepKind

	TrapCode TrapClass
	FaultVA  uint64
	FaultPC  uint64

	CallPalFunc uint32
	CallPC      uint64
	Vector      uint64

	MispredictTarget uint64

	HaltCode uint64
}

type StepKind uint8

const (
	Advanced StepKind = iota
	Stalled
	FaultResult
	PalCall
	Mispredict
	Halted
)

// PipelineOption configures a Pipeline at construction.
type PipelineOption func(*Pipeline)

// WithConfig overrides the default Config.
func WithConfig(cfg Config) PipelineOption {
	return func(p *Pipeline) { p.cfg = cfg }
}

// WithReservations wires the LL/SC reservation manager store commit
// breaks against.
func WithReservations(mgr *coherency.Manager) PipelineOption {
	return func(p *Pipeline) { p.reservations = mgr }
}

// WithDrainer wires the posted-write counter MEM-stage barrier/drain
// stalls consult.
func WithDrainer(d Drainer) PipelineOption {
	return func(p *Pipeline) { p.drainer = d }
}

// WithCPU sets the CPU id LL/SC reservation and drain checks are made
// under. Defaults to 0.
func WithCPU(cpu int) PipelineOption {
	return func(p *Pipeline) { p.cpu = cpu }
}

// Pipeline is one CPU's 6-stage ring-buffered in-order pipeline.
type Pipeline struct {
	slots [ringSize]Slot
	head  int // H; stage N maps to slot (H - N + ringSize) % ringSize

	view *state.View
	mem  Memory

	reservations *coherency.Manager
	drainer      Drainer
	predictor    *BranchPredictor
	dualIssue    *DualIssueGate
	cfg          Config
	cpu          int

	nextPC          uint64
	frontendStalled bool

	seq uint64

	stats Stats
	r31   R31Counters

	intScoreboard [32]bool
	fpScoreboard  [32]bool

	halted   bool
	haltCode uint64

	pendingFetch grain.FetchResult
	fetchHeld    bool
}

// NewPipeline returns a pipeline bound to view and mem, with slots
// empty and nextPC at zero (callers should SetPC before the first
// tick).
func NewPipeline(view *state.View, mem Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		view:      view,
		mem:       mem,
		dualIssue: NewDualIssueGate(),
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.predictor = NewBranchPredictor(p.cfg.Predictor)
	return p
}

// slotAt returns the slot owning stage n (0=IF .. 5=WB) this tick.
func (p *Pipeline) slotAt(n int) *Slot {
	idx := ((p.head-n)%ringSize + ringSize) % ringSize
	return &p.slots[idx]
}

// SetPC sets the architectural PC the fetch producer should supply
// next.
func (p *Pipeline) SetPC(pc uint64) { p.nextPC = pc }

// PC returns the architectural PC the fetch producer should supply
// next.
func (p *Pipeline) PC() uint64 { return p.nextPC }

// IsFrontendStalled reports whether IF could not drain the 1-deep
// fetch buffer last tick (back-pressure signal for the fetch
// producer).
func (p *Pipeline) IsFrontendStalled() bool { return p.frontendStalled }

// Halted reports whether the pipeline has parked the CPU thread.
func (p *Pipeline) Halted() bool { return p.halted }

// Stats returns accumulated pipeline telemetry.
func (p *Pipeline) Stats() Stats { return p.stats }

// R31Counters returns the six R31 instrumentation counters.
func (p *Pipeline) R31Counters() R31Counters { return p.r31 }

// IsIntPending reports whether an integer register currently carries an
// in-flight, not-yet-committed deferred write. Diagnostic only; the
// pipeline itself never stalls on this (see stageIS).
func (p *Pipeline) IsIntPending(reg uint8) bool { return reg != 31 && p.intScoreboard[reg] }

// IsFPPending is IsIntPending for the float register file.
func (p *Pipeline) IsFPPending(reg uint8) bool { return reg != 31 && p.fpScoreboard[reg] }

// Halt parks the CPU thread with the given code; a subsequent external
// Resume (not modeled here; owned by the core orchestrator) clears it.
func (p *Pipeline) Halt(code uint64) {
	p.halted = true
	p.haltCode = code
}

// Resume un-parks a halted pipeline.
func (p *Pipeline) Resume() { p.halted = false }

// SupplyFetchResult hands the 1-deep fetch buffer a new entry. Callers
// must check IsFrontendStalled before calling again.
func (p *Pipeline) SupplyFetchResult(fr grain.FetchResult) {
	p.pendingFetch = fr
	p.fetchHeld = true
}

// Tick advances the pipeline by one cycle: stages execute in reverse
// order (WB, MEM, EX, IS, DE, IF), then — only on Advanced — the ring
// index rotates.
func (p *Pipeline) Tick() StepResult {
	if p.halted {
		return StepResult{Kind: Halted, HaltCode: p.haltCode}
	}

	p.stats.Ticks++

	wbResult, wbDone := p.stageWB()
	if wbDone {
		return wbResult
	}

	memStalled := p.stageMEM()

	if p.stageEX() {
		p.stats.Mispredictions++
		return StepResult{Kind: Mispredict, MispredictTarget: p.nextPC}
	}

	isStalled := p.stageIS()
	p.stageDE()
	p.stageIF(memStalled || isStalled)

	if memStalled || isStalled {
		p.stats.Stalls++
		return StepResult{Kind: Stalled}
	}

	p.head = (p.head + 1) % ringSize
	return StepResult{Kind: Advanced}
}

// Flush clears all 6 slots. Per spec.md §4.5, a WB-stage fault or PAL
// call preserves the already-committed deferred write of the WB slot
// (the commit happens before the fault/PAL check in stageWB, so by the
// time Flush runs here there is nothing left to preserve — the
// zeroing below is safe).
func (p *Pipeline) Flush() {
	for i := range p.slots {
		p.slots[i].reset()
	}
	p.stats.Flushes++
}

// registerView gives a Grain's reads visibility into not-yet-committed
// deferred writes from older in-flight slots, not just the committed
// register file. This is what makes the deferred-writeback scheme work
// without a global pipeline freeze: a stall that holds one slot in IS
// while letting everything behind it keep draining toward WB would
// require copying slot data between ring positions instead of the
// single head-pointer rotation; consulting in-flight Pending state on
// read sidesteps the need for that stall entirely, so the one-cycle
// producer/consumer pair spec.md describes resolves without the ring
// ever needing to hold.
func (p *Pipeline) registerView() registerView {
	return registerView{
		readInt: func(reg uint8) uint64 {
			if reg == 31 {
				return 0
			}
			if v, ok := p.pendingInt(reg); ok {
				return v
			}
			return p.view.ReadInt(reg)
		},
		readFP: func(reg uint8) uint64 {
			if reg == 31 {
				return 0
			}
			if v, ok := p.pendingFP(reg); ok {
				return v
			}
			return p.view.ReadFP(reg)
		},
	}
}

// pendingInt/pendingFP return the most recently deferred, not-yet-
// committed write to reg among all in-flight slots, if any. Any slot
// carrying a Pending write has already passed through its own EX, so it
// is necessarily older than whatever is reading registers right now.
func (p *Pipeline) pendingInt(reg uint8) (uint64, bool) {
	var (
		found bool
		seq   uint64
		val   uint64
	)
	for i := range p.slots {
		s := &p.slots[i]
		if s.Valid && s.Pending.IntValid && s.Pending.IntReg == reg {
			if !found || s.Seq > seq {
				found, seq, val = true, s.Seq, s.Pending.IntValue
			}
		}
	}
	return val, found
}

func (p *Pipeline) pendingFP(reg uint8) (uint64, bool) {
	var (
		found bool
		seq   uint64
		val   uint64
	)
	for i := range p.slots {
		s := &p.slots[i]
		if s.Valid && s.Pending.FPValid && s.Pending.FPReg == reg {
			if !found || s.Seq > seq {
				found, seq, val = true, s.Seq, s.Pending.FPValue
			}
		}
	}
	return val, found
}
