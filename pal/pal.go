// Package pal implements PAL entry and return: the state transitions a
// real PALcode implementation performs on CALL_PAL, architectural fault,
// interrupt, and machine check, plus HW_REI and SWPCTX. It never executes
// guest or PAL instructions itself — that is the pipeline engine's job —
// it only computes vector PCs and mutates the per-CPU View the way
// PALcode's entry sequence does.
//
// Grounded on state.OSFPersonalityIPRs (the EntInt/EntArith/EntMM/EntUna/
// EntFault/EntSys vector table an OSF/1-style PALcode personality
// exposes) and state.ComputeCallPalEntry/ComputeExceptionVector for the
// two cases OSF/1 bypasses the personality table: CALL_PAL dispatch and
// machine check, which use the hardware-computed PAL-base-relative
// vectors instead of a software entry point.
package pal

import (
	"github.com/alphaev6/coresim/irq"
	"github.com/alphaev6/coresim/pipeline"
	"github.com/alphaev6/coresim/state"
)

// Reason distinguishes why PAL entry is happening, mirroring the four
// CALL_PAL/fault/interrupt/machine-check cases spec.md's PAL entry
// sequence enumerates.
type Reason uint8

const (
	ReasonCallPal Reason = iota
	ReasonFault
	ReasonInterrupt
	ReasonMachineCheck
)

// Entry is the outcome of a PAL entry computation: the vector PC the
// caller must install and flush the pipeline to, plus enough context to
// log or trace the transfer.
type Entry struct {
	Reason Reason
	Vector uint64

	// Populated for ReasonFault.
	Trap pipeline.TrapClass

	// Populated for ReasonInterrupt.
	Claim irq.ClaimedInterrupt

	// Populated for ReasonMachineCheck.
	MCHK MCHKReason
}

// Orchestrator drives PAL entry/return for one CPU. It owns no pipeline
// or memory reference; core wires its Entry results into
// pipeline.Flush/SetPC.
type Orchestrator struct {
	view *state.View
	irq  *irq.State
}

// NewOrchestrator binds an Orchestrator to view's CPU and its interrupt
// pending state.
func NewOrchestrator(view *state.View, irqState *irq.State) *Orchestrator {
	return &Orchestrator{view: view, irq: irqState}
}

// saveContext performs PAL entry step 2: record the PC being left into
// HWPCB.PC, then snapshot IntRegs/FloatRegs/HWPCB. Real PALcode reads the
// leaving PC back out of a dedicated EXC_ADDR IPR at HW_REI time; this
// model gets the same round trip for free by snapshotting it as part of
// HWPCB instead of adding a second copy of the same value.
func (o *Orchestrator) saveContext(leavingPC uint64) {
	o.view.HWPCB.PC = leavingPC
	o.view.SaveContext()
}

// raisePAL performs PAL entry step 3: raise the PAL-mode tag, force
// CM=Kernel, and set IPL. Shadow-bank substitution (spec.md §4.6's
// "enable PAL shadow banks if the personality requires it") is a
// register-decode concern — which GPR numbers a PAL-mode instruction
// stream resolves to shadow banks instead of the architectural file —
// and decode is out of scope for the grain contract this pipeline runs
// on; IsPalMode() is the signal a future decode stage would consult, so
// nothing further is done here.
func (o *Orchestrator) raisePAL(vector uint64, ipl uint8) {
	h := o.view.HWPCB
	h.SetPalMode(vector, true)
	h.SetCM(state.Kernel)
	h.SetIPL(ipl)
}

// EnterCallPal performs PAL entry for a CALL_PAL instruction: the vector
// is computed directly from the function code (illegal functions are
// redirected to OPCDEC by ComputeCallPalEntry itself), and IPL is left
// unchanged — CALL_PAL is a software call, not a priority escalation.
func (o *Orchestrator) EnterCallPal(fn uint32, callPC uint64) Entry {
	cm := o.view.HWPCB.CM()
	vector := state.ComputeCallPalEntry(o.view.Pal.PalBase, fn, cm)
	o.saveContext(callPC)
	o.raisePAL(vector, o.view.HWPCB.IPL())
	return Entry{Reason: ReasonCallPal, Vector: vector}
}

// osfEntryFor maps a fault's trap class onto the OSF/1 personality entry
// point real PALcode dispatches synchronous faults through. The PALcode
// handler at that entry further distinguishes sub-cases (e.g. which
// arithmetic exception) from EXC_SUM and the trap_code the caller has
// already recorded on the slot; pal itself only picks the entry point.
func (o *Orchestrator) osfEntryFor(trap pipeline.TrapClass) uint64 {
	osf := o.view.OSF
	switch trap {
	case pipeline.TrapArithmetic, pipeline.TrapIntegerOverflow:
		return osf.EntArith
	case pipeline.TrapDTBMiss, pipeline.TrapDTBFault, pipeline.TrapDTBAccessViolation,
		pipeline.TrapTranslationFault,
		pipeline.TrapITBMiss, pipeline.TrapITBFault, pipeline.TrapITBAccessViolation, pipeline.TrapITBMisalign:
		return osf.EntMM
	case pipeline.TrapAlignment, pipeline.TrapUnaligned:
		return osf.EntUna
	default:
		// FPDisabled, IllegalOpcode, ReservedOpcode, PrivilegeViolation,
		// FPEnableFault, ReservedDisposition: the catch-all fault entry.
		return osf.EntFault
	}
}

// faultIPL returns the IPL a fault entry sets. Only machine check forces
// IPL to the top of the scale; every other synchronous fault is entered
// at the IPL it was taken at, matching real Alpha PALcode (synchronous
// faults do not themselves block interrupt delivery).
func faultIPL(trap pipeline.TrapClass, current uint8) uint8 {
	if trap == pipeline.TrapMachineCheck {
		return 31
	}
	return current
}

// EnterFault performs PAL entry for an architectural fault recognized at
// the slot's WB stage.
func (o *Orchestrator) EnterFault(trap pipeline.TrapClass, faultVA, faultPC uint64) Entry {
	h := o.view.HWPCB
	o.saveContext(faultPC)
	o.view.Pal.FaultingVA = int64(faultVA) // VA IPR: the fault address, distinct from the leaving PC above
	vector := o.osfEntryFor(trap)
	o.raisePAL(vector, faultIPL(trap, h.IPL()))
	return Entry{Reason: ReasonFault, Vector: vector, Trap: trap}
}

// EnterInterrupt claims the highest deliverable pending interrupt against
// the CPU's current IPL and performs PAL entry to it. Returns ok=false
// (zero Entry) when nothing is deliverable; the caller should not flush
// or redirect the pipeline in that case.
//
// The claimed source's vector is taken as already resolved to an entry
// PC: SCB-table indexing by vector id (spec.md §4.6's "the SCB entry for
// an interrupt") is the device-registration-time responsibility of
// whatever calls irq.State.RegisterSource, not the orchestrator's; by the
// time a source reaches ClaimNext its vector field already is the
// handler PC software installed in the SCB for that source.
func (o *Orchestrator) EnterInterrupt(atPC uint64) (Entry, bool) {
	h := o.view.HWPCB
	claim := o.irq.ClaimNext(h.IPL())
	if !claim.Valid {
		return Entry{}, false
	}
	o.saveContext(atPC)
	o.raisePAL(claim.Vector, claim.IPL)
	return Entry{Reason: ReasonInterrupt, Vector: claim.Vector, Claim: claim}, true
}
