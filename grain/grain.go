// Package grain defines the decoded-instruction contract the pipeline's
// EX stage dispatches through. Decoder tables that produce a Grain are
// out of scope; only this interface and the fetch handoff are specified.
//
// Grounded on the teacher's insts.Decoder/insts.Instruction split (a
// decode step producing an opaque instruction value consumed by later
// stages) generalized to a self-executing descriptor so the pipeline
// never branches on opcode.
package grain

// Class tags the execution-unit resource a Grain belongs to, consulted
// by the dual-issue gate.
type Class uint8

const (
	ClassInteger Class = iota
	ClassMemory
	ClassFloat
	ClassPAL
)

// BranchKind reports how a Grain affects control flow. EX checks
// misprediction only for Grains whose kind is not NotBranch. IF does not
// read it: the prediction fields come from the FetchResult, so the
// per-kind policies noted below are the fetch producer's to apply.
type BranchKind uint8

const (
	NotBranch BranchKind = iota
	BranchUnconditional // unconditional branch or BSR: always-taken
	BranchConditional   // conditional branch: predict not-taken
	BranchIndirectJump   // JMP/JSR/RET/JSR_COROUTINE: target from register
)

// Operands exposes the register indices a Grain reads/writes, consulted
// by the dual-issue hazard check. Register 31 (or FP 31) in any field
// means "no operand"/"no destination".
type Operands struct {
	SrcA, SrcB uint8
	Dest       uint8
	DestIsFP   bool
	IsCallPal  bool
	CallPalFn  uint32

	// IsLinkWrite marks a branch-with-link (BSR/JSR) whose deferred
	// write target is Dest <- pc+4 rather than Dest <- payload.
	IsLinkWrite bool
	// IsLoadLinked and IsStoreConditional mark LDx_L/STx_C grains, for
	// the R31 instrumentation counters (spec.md §4.5).
	IsLoadLinked      bool
	IsStoreConditional bool
	// IsPrefetchLoad marks a prefetch-hint load.
	IsPrefetchLoad bool
	// ConstraintViolation is set by the grain when it detects an
	// operand-encoding constraint it cannot represent (e.g. an
	// instruction form that architecturally forbids reg 31 in a field
	// where it was nonetheless encoded).
	ConstraintViolation bool
}

// Grain is a decoded instruction: an opaque descriptor the EX stage
// dispatches through without ever branching on opcode.
type Grain interface {
	// Class reports the execution-unit resource class.
	Class() Class
	// Branch reports whether and how this Grain affects control flow.
	Branch() BranchKind
	// Operands reports the register operands consulted by the hazard
	// and dual-issue logic.
	Operands() Operands
	// Execute performs the architectural effect of the instruction into
	// slot, per the EX-stage contract: results into slot.Payload,
	// addresses into slot.VA, branch outcomes into slot.BranchTaken and
	// slot.BranchTarget, fault state into slot.FaultPending,
	// slot.TrapCode, slot.FaultVA.
	Execute(slot Slot)
}

// Slot is the narrow view of a pipeline slot a Grain's Execute method is
// permitted to mutate. The pipeline package's Slot type satisfies this
// via pointer receiver methods so Grain implementations never import the
// pipeline package (avoiding an import cycle between grain and
// pipeline).
type Slot interface {
	ReadInt(reg uint8) uint64
	ReadFP(reg uint8) uint64
	PC() uint64

	SetPayload(v uint64)
	SetVA(va uint64)
	SetBranchOutcome(taken bool, target uint64)
	SetFault(trapCode uint64, faultVA uint64)

	ReadMem8(pa uint64) uint64
	ReadMem16(pa uint64) uint64
	ReadMem32(pa uint64) uint64
	ReadMem64(pa uint64) uint64
	SetStorePending(pa uint64, v uint64, width int)
}

// FetchResult is what the external fetch producer (I-box) hands to the
// pipeline's IF stage each tick.
type FetchResult struct {
	PC                uint64
	Decoded           Grain
	PredictedValid    bool
	PredictedTaken    bool
	PredictedTarget   uint64
	Valid             bool
}
