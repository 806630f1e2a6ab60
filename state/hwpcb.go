package state

// Mode is the two-bit current-privilege-mode field of PS.
type Mode uint8

const (
	Kernel    Mode = 0
	Executive Mode = 1
	Supervisor Mode = 2
	User      Mode = 3
)

// PS bitfield layout used internally by this emulator: bits [0:2) hold CM,
// bits [2:7) hold IPL, bit 7 holds VMM. Real EV6 PS has additional bits
// not modeled here; they are out of scope per spec.md.
const (
	psCMShift  = 0
	psCMMask   = 0x3
	psIPLShift = 2
	psIPLMask  = 0x1F
	psVMMShift = 7
	psVMMMask  = 0x1
)

// cmField, iplField, and vmmField project the corresponding bitfield out of
// a raw PS word.
func cmField(ps uint64) Mode  { return Mode((ps >> psCMShift) & psCMMask) }
func iplField(ps uint64) uint8 { return uint8((ps >> psIPLShift) & psIPLMask) }
func vmmField(ps uint64) bool  { return (ps>>psVMMShift)&psVMMMask != 0 }

// StackDisposition is the low 2 bits of an SCB entry, selecting the frame
// target for PAL entry.
type StackDisposition uint8

const (
	DispositionKernel    StackDisposition = 0
	DispositionInterrupt StackDisposition = 1
	DispositionNoFrame   StackDisposition = 2
	DispositionReserved  StackDisposition = 3
)

// HWPCB is the per-CPU Hardware Process Control Block.
type HWPCB struct {
	PC  uint64 // bit 0 is the PAL-mode tag
	PS  uint64 // CM/IPL/VMM bitfield source of truth
	ASN uint8  // 8-bit address space number

	// Stack pointers, laid out contiguously so spSlot(mode) selects
	// without branching. Index order matches Mode: Kernel, Executive,
	// Supervisor, User.
	sp [4]uint64

	// ISP is the interrupt-stack pointer. Supplementing spec.md's
	// documented "falls back to KSP" limitation (see SPEC_FULL.md §12):
	// when UseInterruptStack is true, DispositionInterrupt frames land
	// here instead of on KSP.
	ISP               uint64
	UseInterruptStack bool

	PTBR uint64 // page table base register

	FaultingVA int64 // 43-bit sign-extended, stored widened

	PCC uint64 // accumulated process cycle counter

	UNQ uint64 // unique process value

	FEN bool // floating point enable

	ASTEnable  uint8 // 4-bit nibble, one bit per mode
	ASTSummary uint8 // 4-bit nibble, one bit per mode

	SoftwareIntSummary uint64
	SoftwareIntRequest uint64

	PALScratch [8]uint64 // PAL-scratch quadwords

	ProcessorSerial [10]byte
}

// spSlot returns a pointer into the contiguous stack-pointer array,
// selecting by mode without branching (mode is already masked to 2 bits
// by the Mode type's valid range).
func (h *HWPCB) spSlot(m Mode) *uint64 {
	return &h.sp[m&3]
}

// SaveSP writes v into the stack-pointer slot for mode and returns v.
func (h *HWPCB) SaveSP(m Mode, v uint64) uint64 {
	*h.spSlot(m) = v
	return v
}

// LoadSP reads the stack-pointer slot for mode.
func (h *HWPCB) LoadSP(m Mode) uint64 {
	return *h.spSlot(m)
}

// CM returns the current mode projected from PS.
func (h *HWPCB) CM() Mode { return cmField(h.PS) }

// IPL returns the interrupt priority level projected from PS.
func (h *HWPCB) IPL() uint8 { return iplField(h.PS) }

// VMM returns the virtual-machine-monitor bit projected from PS.
func (h *HWPCB) VMM() bool { return vmmField(h.PS) }

// SetPS overwrites PS. CM/IPL/VMM read back as the bitfield projections of
// the new value (testable property §8.3).
func (h *HWPCB) SetPS(ps uint64) { h.PS = ps }

// SetCM rewrites only the CM bitfield of PS, preserving IPL/VMM.
func (h *HWPCB) SetCM(m Mode) {
	h.PS = (h.PS &^ (psCMMask << psCMShift)) | (uint64(m&psCMMask) << psCMShift)
}

// SetIPL rewrites only the IPL bitfield of PS, preserving CM/VMM.
func (h *HWPCB) SetIPL(ipl uint8) {
	h.PS = (h.PS &^ (psIPLMask << psIPLShift)) | (uint64(ipl&psIPLMask) << psIPLShift)
}

// SetVMM rewrites only the VMM bit of PS, preserving CM/IPL.
func (h *HWPCB) SetVMM(v bool) {
	bit := uint64(0)
	if v {
		bit = 1
	}
	h.PS = (h.PS &^ (psVMMMask << psVMMShift)) | (bit << psVMMShift)
}

// IsPalMode reports whether PC bit 0 (the PAL-mode tag) is set.
func (h *HWPCB) IsPalMode() bool { return h.PC&1 != 0 }

// SetPalMode sets PC to pc with bit 0 forced to reflect enable, preserving
// every other bit of pc (testable property §8.4).
func (h *HWPCB) SetPalMode(pc uint64, enable bool) uint64 {
	cleared := pc &^ 1
	if enable {
		cleared |= 1
	}
	h.PC = cleared
	return cleared
}

// SelectStackForDisposition returns the stack pointer HW_REI/PAL-entry code
// should use for an SCB entry with the given disposition, and whether the
// disposition was valid. Disposition 3 (reserved) is invalid; callers
// should raise TrapReservedDisposition (see pal package) rather than use
// the returned value.
func (h *HWPCB) SelectStackForDisposition(d StackDisposition, m Mode) (sp uint64, ok bool) {
	switch d {
	case DispositionKernel:
		return h.LoadSP(Kernel), true
	case DispositionInterrupt:
		if h.UseInterruptStack {
			return h.ISP, true
		}
		return h.LoadSP(Kernel), true
	case DispositionNoFrame:
		return h.LoadSP(m), true
	default:
		return 0, false
	}
}

// PackASTEnSr packs the enable and summary nibbles into the single byte
// format used by SWPCTX's guest-memory image: enable in the low nibble,
// summary in the high nibble.
func PackASTEnSr(enable, summary uint8) uint8 {
	return (enable & 0xF) | ((summary & 0xF) << 4)
}

// UnpackASTEnSr reverses PackASTEnSr.
func UnpackASTEnSr(packed uint8) (enable, summary uint8) {
	return packed & 0xF, (packed >> 4) & 0xF
}
