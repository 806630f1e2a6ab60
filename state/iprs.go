package state

// RunLoopIPRs is one cache line of state consulted by the CPU run loop:
// the system cycle counter, its control word, process-cycle-counter
// sampling state, the per-CPU interrupt-pending flag, the PAL personality
// tag, and halt state.
type RunLoopIPRs struct {
	CycleCounter uint64
	CCControl    uint64

	// Process-cycle-counter sampling state.
	PCCDivisionRatio uint32
	PCCFraction      uint32
	PCCLastSample    uint64

	InterruptPending bool
	PalPersonality   uint8
	Halted           bool
	HaltCode         uint64
}

// PalIPRs holds the system base addresses, box control, exception state,
// and scratch registers accessed via HW_MTPR/HW_MFPR.
type PalIPRs struct {
	PalBase uint64
	SCBB    uint64
	PCBB    uint64
	VPTB    uint64
	PRBR    uint64
	VIRBND  uint64
	SYSPTBR uint64
	MCES    uint64
	WHAMI   uint64

	BoxControl uint64

	// ExcSum bits 10..16 are the arithmetic-trap flags (see ExcSumKind).
	// Writes clear bits 10..16 and reload only those bits from the
	// incoming value; higher bits are read-as-zero, ignored-on-write.
	ExcSum uint64
	ExcMask uint64

	MMStatus uint64

	TLBStagingA uint64
	TLBStagingB uint64

	DeferredWrite uint64 // bitset of pending deferred-write flags

	PalTemp [32]uint64

	FaultingVA int64
}

const (
	excSumArithShift = 10
	excSumArithWidth = 7 // bits 10..16 inclusive
	excSumArithMask  = ((uint64(1) << excSumArithWidth) - 1) << excSumArithShift
)

// ExcSumKind enumerates the per-arith-kind flag bits packed into
// PalIPRs.ExcSum bits 10..16, in bit order from bit 10 upward.
type ExcSumKind uint8

const (
	ExcSWC ExcSumKind = iota // software completion
	ExcINV                   // invalid operation
	ExcDZE                   // divide by zero
	ExcFOV                   // floating overflow
	ExcUNF                   // underflow
	ExcINE                   // inexact
	ExcIOV                   // integer overflow
)

// SetExcSumArith ORs in the bit for kind (arithmetic units OR in their bit
// on detecting a condition).
func (p *PalIPRs) SetExcSumArith(kind ExcSumKind) {
	p.ExcSum |= uint64(1) << (excSumArithShift + uint(kind))
}

// WriteExcSum implements the documented write semantics: the write clears
// bits 10..16 and reloads only those bits from value; bits outside
// [10,16] are ignored on write and always read back as zero from this
// accessor's perspective of the arithmetic field (the raw ExcSum word may
// still carry other bits set directly by callers that bypass this method).
func (p *PalIPRs) WriteExcSum(value uint64) {
	p.ExcSum &^= excSumArithMask
	p.ExcSum |= value & excSumArithMask
}

// ClearExcSumArith clears the bit for kind; PAL clears bits on service.
func (p *PalIPRs) ClearExcSumArith(kind ExcSumKind) {
	p.ExcSum &^= uint64(1) << (excSumArithShift + uint(kind))
}

// OSFPersonalityIPRs holds the PAL-personality vector table (one cache
// line): entry points the orchestrator dispatches through, and the
// per-process kernel global pointer.
type OSFPersonalityIPRs struct {
	VPTPtr  uint64
	EntInt  uint64
	EntArith uint64
	EntMM   uint64
	EntFault uint64
	EntUna  uint64
	EntSys  uint64
	WrkGP   uint64
}

// Snapshot is the shadow copy of IntRegs, FloatRegs, and HWPCB used to
// save/restore architectural state around PAL entry. PalShadow and IPRs
// do not participate.
type Snapshot struct {
	Int   IntRegs
	Float FloatRegs
	HWPCB HWPCB
}
