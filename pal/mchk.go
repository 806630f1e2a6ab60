package pal

import (
	"github.com/alphaev6/coresim/pipeline"
	"github.com/alphaev6/coresim/state"
)

// MCHKReason is the one-byte machine-check sub-reason passed to the MCHK
// handler, per spec.md §4.6.
type MCHKReason uint8

const (
	MCHKProcessorError MCHKReason = iota
	MCHKSystemError
	MCHKICacheParity
	MCHKDCacheParity
	MCHKBCacheParity
	MCHKSCacheParity
	MCHKCacheTag
	MCHKCacheCoherency
	MCHKMemoryUncorrectable
	MCHKMemoryCorrectable
	MCHKMemoryController
	MCHKMemoryBus
	MCHKIOBus
	MCHKExecutionUnit
	MCHKRegisterFileParity
	MCHKPipelineError
	MCHKControlLogicError
	MCHKMMUError
	MCHKTLBInsertionFailure
	MCHKInterprocessorError
	MCHKThermalPowerClock
	MCHKPALcodeError
	MCHKDoubleMachineCheck
	MCHKSMPBarrierTimeout
)

// machineCheckVector is the fixed PAL-base-relative hardware vector for
// machine check. Unlike the synchronous faults in osfEntryFor, MCHK does
// not dispatch through an OSF personality entry point in real PALcode: it
// is handled at a fixed low-numbered vector before any personality is
// assumed trustworthy, since the personality table itself may be what a
// memory-parity error corrupted.
const machineCheckVector uint64 = 0x04

// EnterMachineCheck performs PAL entry for a machine check: IPL 31 (masks
// every maskable interrupt, matching real Alpha MCHK delivery), PC via
// the fixed hardware vector rather than a personality entry, and reason
// recorded for the handler the caller logs or surfaces upward.
func (o *Orchestrator) EnterMachineCheck(reason MCHKReason, atPC uint64) Entry {
	o.saveContext(atPC)
	vector := state.ComputeExceptionVector(o.view.Pal.PalBase, machineCheckVector)
	o.raisePAL(vector, 31)
	return Entry{Reason: ReasonMachineCheck, Vector: vector, Trap: pipeline.TrapMachineCheck, MCHK: reason}
}
