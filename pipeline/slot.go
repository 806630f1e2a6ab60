package pipeline

import "github.com/alphaev6/coresim/grain"

// TrapClass is the closed set of architectural fault reasons a slot can
// carry into WB, per the exception classes enumerated for C6.
type TrapClass uint8

const (
	TrapNone TrapClass = iota
	TrapArithmetic
	TrapDTBMiss
	TrapDTBFault
	TrapDTBAccessViolation
	TrapFPDisabled
	TrapIllegalOpcode
	TrapReservedOpcode
	TrapPrivilegeViolation
	TrapAlignment
	TrapUnaligned
	TrapFPEnableFault
	TrapTranslationFault
	TrapITBMiss
	TrapITBFault
	TrapITBAccessViolation
	TrapITBMisalign
	TrapIntegerOverflow
	TrapMachineCheck
	TrapReservedDisposition // SUPPLEMENTED: SCB disposition 11 (spec.md §9 open question)
)

// PendingCommit is the deferred register write a slot carries from its
// EX tick into its WB two ticks later: at most one integer write and
// one FP write, each with a scoreboard-clear hint.
type PendingCommit struct {
	IntValid   bool
	IntReg     uint8
	IntValue   uint64
	IntClearScoreboard bool

	FPValid   bool
	FPReg     uint8
	FPValue   uint64
	FPClearScoreboard bool
}

// StorePending is the PA/value/width for a store instruction,
// pre-computed in EX and committed by WB.
type StorePending struct {
	Valid bool
	PA    uint64
	Value uint64
	Width int
}

// Slot is one entry in the pipeline's 6-slot ring buffer.
type Slot struct {
	Valid   bool
	Stalled bool

	Decoded grain.Grain
	Class   grain.Class
	Seq     uint64

	FaultPending bool
	TrapCode     TrapClass
	FaultVA      uint64

	BranchTaken     bool
	BranchTarget    uint64
	PredictedValid  bool
	PredictedTaken  bool
	PredictedTarget uint64

	VA      uint64
	PA      uint64
	Payload uint64

	Pending PendingCommit
	Store   StorePending

	IsCallPal   bool
	CallPalFunc uint32

	SerializationClass uint8
	RequiresBarrier    bool
	RequiresDrain      bool

	pc  uint64
	reg registerView
	mem Memory
}

// registerView is the narrow register-read surface a Grain's Execute
// sees through Slot; bound fresh each tick from the owning Pipeline's
// View so a Grain never holds a stale pointer across ticks.
type registerView struct {
	readInt func(reg uint8) uint64
	readFP  func(reg uint8) uint64
}

func (s *Slot) bind(pc uint64, reg registerView, mem Memory) {
	s.pc = pc
	s.reg = reg
	s.mem = mem
}

func (s *Slot) reset() {
	*s = Slot{}
}

// The following methods satisfy grain.Slot.

func (s *Slot) ReadInt(reg uint8) uint64 { return s.reg.readInt(reg) }
func (s *Slot) ReadFP(reg uint8) uint64  { return s.reg.readFP(reg) }
func (s *Slot) PC() uint64               { return s.pc }

func (s *Slot) SetPayload(v uint64) { s.Payload = v }
func (s *Slot) SetVA(va uint64)     { s.VA = va }

func (s *Slot) SetBranchOutcome(taken bool, target uint64) {
	s.BranchTaken = taken
	s.BranchTarget = target
}

func (s *Slot) SetFault(trapCode uint64, faultVA uint64) {
	s.FaultPending = true
	s.TrapCode = TrapClass(trapCode)
	s.FaultVA = faultVA
}

func (s *Slot) ReadMem8(pa uint64) uint64  { return s.mem.Read8(pa) }
func (s *Slot) ReadMem16(pa uint64) uint64 { return s.mem.Read16(pa) }
func (s *Slot) ReadMem32(pa uint64) uint64 { return s.mem.Read32(pa) }
func (s *Slot) ReadMem64(pa uint64) uint64 { return s.mem.Read64(pa) }

func (s *Slot) SetStorePending(pa uint64, v uint64, width int) {
	s.Store = StorePending{Valid: true, PA: pa, Value: v, Width: width}
	s.VA = pa
}

// Memory is the narrow guest-memory surface the pipeline needs: word
// reads for loads, and writes for store commit in WB. Width-specific to
// avoid forcing every caller through a width-tagged single method.
type Memory interface {
	Read8(pa uint64) uint64
	Read16(pa uint64) uint64
	Read32(pa uint64) uint64
	Read64(pa uint64) uint64
	Write8(pa uint64, v uint64)
	Write16(pa uint64, v uint64)
	Write32(pa uint64, v uint64)
	Write64(pa uint64, v uint64)
}
