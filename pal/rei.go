package pal

import "github.com/alphaev6/coresim/state"

// ReturnResult is the outcome of HW_REI: the PC the pipeline should
// resume at and whether delivery was redirected to an AST instead of the
// plain restored PC.
type ReturnResult struct {
	PC         uint64
	ASTMode    state.Mode
	ASTPending bool
}

// HWREI restores architectural state from the snapshot pair, clears the
// PAL-mode tag, and checks AST eligibility against the just-restored
// CM/IPL before resuming. Real OSF/1 PALcode folds AST delivery into REI
// this way: rather than ever returning to a mode with a deliverable,
// enabled AST outstanding, it redirects through the software-interrupt
// entry point with the AST reason, and the restored PC is not lost — it
// becomes the return address AST processing itself will REI back to.
func (o *Orchestrator) HWREI() ReturnResult {
	o.view.RestoreContext()
	h := o.view.HWPCB

	// RestoreContext already put the leaving PC saveContext recorded
	// into HWPCB.PC back in place; clearing the PAL-mode tag yields the
	// PC to resume at.
	restoredPC := h.SetPalMode(h.PC, false)

	elig := state.ASTEligible(h.ASTEnable, h.ASTSummary, h.CM(), h.IPL())
	if !elig.Eligible {
		return ReturnResult{PC: restoredPC}
	}

	bit := uint8(1) << uint(elig.Target)
	h.ASTSummary &^= bit
	vector := o.view.OSF.EntInt
	o.raisePAL(vector, h.IPL())
	return ReturnResult{PC: vector, ASTMode: elig.Target, ASTPending: true}
}
