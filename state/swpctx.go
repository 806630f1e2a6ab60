package state

// GuestMemory is the narrow slice of the guest physical memory interface
// SWPCTX needs to read and write the HWPCB image. The mmio package's
// dispatcher and the coherency package's DMA hooks operate on the same
// physical address space; this interface keeps the state package free of
// a dependency on either.
type GuestMemory interface {
	Read64(pa uint64) uint64
	Write64(pa uint64, v uint64) bool
}

// SwpctxResult reports the outcome of a SWPCTX.
type SwpctxResult struct {
	OldPCBB     uint64
	PTBRChanged bool
	ASNChanged  bool
	Success     bool
}

// HWPCB guest-memory image field offsets, relative to PCBB.
const (
	pcbbKSP        = 0x00
	pcbbESP        = 0x08
	pcbbSSP        = 0x10
	pcbbUSP        = 0x18
	pcbbPTBR       = 0x20
	pcbbASTPacked  = 0x28 // low byte: AST enable/summary packed byte
	pcbbPCC        = 0x30
	pcbbUNQ        = 0x38
	pcbbFENDAT     = 0x40 // bit0 FEN, bit1 DAT
	pcbbASN        = 0x48 // low byte
)

// Swpctx implements the EV6 SWPCTX algorithm (spec.md §4.1).
func (v *View) Swpctx(newPCBB uint64, mem GuestMemory, hwCycleCounter uint64) SwpctxResult {
	if newPCBB&0x7F != 0 {
		return SwpctxResult{Success: false}
	}

	h := v.HWPCB
	oldPCBB := v.Pal.PCBB

	// Save the current mode's stack pointer into its slot.
	h.SaveSP(h.CM(), h.LoadSP(h.CM()))

	astPacked := PackASTEnSr(h.ASTEnable, h.ASTSummary)
	fenDat := uint64(0)
	if h.FEN {
		fenDat |= 1
	}

	mem.Write64(oldPCBB+pcbbKSP, h.LoadSP(Kernel))
	mem.Write64(oldPCBB+pcbbESP, h.LoadSP(Executive))
	mem.Write64(oldPCBB+pcbbSSP, h.LoadSP(Supervisor))
	mem.Write64(oldPCBB+pcbbUSP, h.LoadSP(User))
	mem.Write64(oldPCBB+pcbbASTPacked, uint64(astPacked))
	mem.Write64(oldPCBB+pcbbPCC, h.PCC)
	mem.Write64(oldPCBB+pcbbUNQ, h.UNQ)
	mem.Write64(oldPCBB+pcbbFENDAT, fenDat)
	// PTBR and ASN are not written back to the old PCBB.

	oldPTBR := h.PTBR
	oldASN := h.ASN

	h.SaveSP(Kernel, mem.Read64(newPCBB+pcbbKSP))
	h.SaveSP(Executive, mem.Read64(newPCBB+pcbbESP))
	h.SaveSP(Supervisor, mem.Read64(newPCBB+pcbbSSP))
	h.SaveSP(User, mem.Read64(newPCBB+pcbbUSP))
	h.PTBR = mem.Read64(newPCBB + pcbbPTBR)
	h.ASN = uint8(mem.Read64(newPCBB + pcbbASN))
	newAST := uint8(mem.Read64(newPCBB + pcbbASTPacked))
	h.ASTEnable, h.ASTSummary = UnpackASTEnSr(newAST)
	newFenDat := mem.Read64(newPCBB + pcbbFENDAT)
	h.FEN = newFenDat&1 != 0
	h.PCC = RestorePCC(mem.Read64(newPCBB+pcbbPCC), hwCycleCounter)
	h.UNQ = mem.Read64(newPCBB + pcbbUNQ)

	v.Pal.PCBB = newPCBB

	return SwpctxResult{
		OldPCBB:     oldPCBB,
		PTBRChanged: oldPTBR != h.PTBR,
		ASNChanged:  oldASN != h.ASN,
		Success:     true,
	}
}

// SavePCC converts a logical PCC value v into the offset-relative form
// stored in the guest HWPCB image, relative to hardware cycle counter hw.
func SavePCC(v uint64, hw uint64) uint64 {
	return v - hw
}

// RestorePCC reverses SavePCC, recovering the logical PCC value from its
// stored offset and the current hardware counter. The low 32 bits of
// save_pcc(restore_pcc(v, hw), hw) equal the low 32 bits of v for every v
// (spec.md §8, round-trip laws).
func RestorePCC(stored uint64, hw uint64) uint64 {
	return stored + hw
}
